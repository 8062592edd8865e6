package game

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-test/deep"
	"github.com/sirupsen/logrus"

	"github.com/splashsrv/splashsrv/internal/core"
	"github.com/splashsrv/splashsrv/internal/core/auth"
	"github.com/splashsrv/splashsrv/internal/core/client"
	"github.com/splashsrv/splashsrv/internal/core/data"
	"github.com/splashsrv/splashsrv/internal/packets"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	db, err := data.Initialize(filepath.Join(t.TempDir(), "test.db"), false)
	if err != nil {
		t.Fatalf("error initializing test database: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &core.Config{}
	cfg.GameServer.Number = 1
	cfg.GameServer.NumLobbies = 2
	cfg.GameServer.LobbyCapacity = 8
	cfg.GameServer.MaxPlayers = 200

	srv := &Server{Name: "GAME", Config: cfg, Logger: logger, DB: db}
	if err := srv.Init(context.Background()); err != nil {
		t.Fatalf("error initializing server: %v", err)
	}
	return srv
}

func seedAccount(t *testing.T, srv *Server, username, password string) {
	t.Helper()
	if _, err := auth.CreateAccount(srv.DB, username, password, username); err != nil {
		t.Fatalf("error seeding account %q: %v", username, err)
	}
}

// testClient pairs a connected client with the remote end its replies
// arrive on.
type testClient struct {
	c      *client.Client
	remote net.Conn
}

func connect(t *testing.T, srv *Server) *testClient {
	t.Helper()
	remote, local := net.Pipe()
	c := client.NewClient(local)
	srv.SetUpClient(c)
	t.Cleanup(func() {
		_ = c.Close()
		_ = remote.Close()
	})
	return &testClient{c: c, remote: remote}
}

func (tc *testClient) send(t *testing.T, srv *Server, pid int16, pkt packets.Packet) {
	t.Helper()
	if err := srv.Handle(context.Background(), tc.c, packets.Marshal(pid, pkt)); err != nil {
		t.Fatalf("Handle returned an error: %v", err)
	}
}

func (tc *testClient) recv(t *testing.T) packets.Envelope {
	t.Helper()
	_ = tc.remote.SetReadDeadline(time.Now().Add(time.Second))

	var prefix [2]byte
	if _, err := io.ReadFull(tc.remote, prefix[:]); err != nil {
		t.Fatalf("error reading frame prefix: %v", err)
	}
	body := make([]byte, binary.LittleEndian.Uint16(prefix[:]))
	if _, err := io.ReadFull(tc.remote, body); err != nil {
		t.Fatalf("error reading frame body: %v", err)
	}

	env, err := packets.Decode(body)
	if err != nil {
		t.Fatalf("error decoding reply: %v", err)
	}
	return env
}

// expectSilence asserts that no frame arrives within a short window.
func (tc *testClient) expectSilence(t *testing.T) {
	t.Helper()
	_ = tc.remote.SetReadDeadline(time.Now().Add(50 * time.Millisecond))

	var b [1]byte
	if _, err := tc.remote.Read(b[:]); err == nil {
		t.Fatal("expected no reply, but a frame arrived")
	}
}

// login authenticates a fresh connection and returns its connection ID.
func (tc *testClient) login(t *testing.T, srv *Server, username, password string) int32 {
	t.Helper()
	tc.send(t, srv, 1, &packets.GameLoginRequest{
		Username: username,
		Password: password,
		Version:  packets.ClientVersion,
	})

	env := tc.recv(t)
	player, ok := env.Packet.(*packets.PlayerData)
	if !ok {
		t.Fatalf("expected PlayerData reply, got opcode %d", env.ID)
	}
	if player.CID < 0 {
		t.Fatalf("login failed with code %d", player.CID)
	}
	return player.CID
}

// enterLobby walks a logged-in client into the given VS lobby.
func (tc *testClient) enterLobby(t *testing.T, srv *Server, index int8) {
	t.Helper()
	tc.send(t, srv, 2, &packets.ModeChangeRequest{Mode: packets.ModeVS})
	if env := tc.recv(t); env.ID != packets.ModeChangeAckType {
		t.Fatalf("expected mode change ack, got opcode %d", env.ID)
	}
	tc.send(t, srv, 3, &packets.EnterLobbyRequest{Lobby: index})
	env := tc.recv(t)
	result, ok := env.Packet.(*packets.EnterLobbyResult)
	if !ok || result.Lobby != index {
		t.Fatalf("expected to enter lobby %d, got %+v", index, env.Packet)
	}
}

func TestGameLogin(t *testing.T) {
	srv := newTestServer(t)
	seedAccount(t, srv, "sora", "hunter2")

	tests := map[string]struct {
		request packets.GameLoginRequest
		code    packets.LoginResultCode
	}{
		"empty username": {
			packets.GameLoginRequest{Password: "x", Version: packets.ClientVersion},
			packets.LoginBadID,
		},
		"empty password": {
			packets.GameLoginRequest{Username: "sora", Version: packets.ClientVersion},
			packets.LoginBadPassword,
		},
		"wrong version": {
			packets.GameLoginRequest{Username: "sora", Password: "hunter2", Version: 955},
			packets.LoginBadVersion,
		},
		"unknown account": {
			packets.GameLoginRequest{Username: "nobody", Password: "hunter2", Version: packets.ClientVersion},
			packets.LoginInvalidAccount,
		},
		"wrong password": {
			packets.GameLoginRequest{Username: "sora", Password: "wrong", Version: packets.ClientVersion},
			packets.LoginBadPassword,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			tc := connect(t, srv)
			tc.send(t, srv, 1, &tt.request)
			env := tc.recv(t)
			player, ok := env.Packet.(*packets.PlayerData)
			if !ok {
				t.Fatalf("expected PlayerData reply, got opcode %d", env.ID)
			}
			if player.CID != int32(tt.code) {
				t.Errorf("result = %d, expected %d", player.CID, tt.code)
			}
		})
	}

	t.Run("success", func(t *testing.T) {
		tc := connect(t, srv)
		cid := tc.login(t, srv, "sora", "hunter2")
		if cid < cidRangeStart || cid > cidRangeEnd {
			t.Errorf("cid %d outside allocation range", cid)
		}
		if srv.PlayerCount() != 1 {
			t.Errorf("player count = %d, expected 1", srv.PlayerCount())
		}

		// The same account cannot log in twice.
		second := connect(t, srv)
		second.send(t, srv, 1, &packets.GameLoginRequest{
			Username: "sora", Password: "hunter2", Version: packets.ClientVersion,
		})
		env := second.recv(t)
		if code := env.Packet.(*packets.PlayerData).CID; code != int32(packets.LoginAlreadyOnline) {
			t.Errorf("second login result = %d, expected %d", code, packets.LoginAlreadyOnline)
		}
	})
}

func TestStageGating(t *testing.T) {
	srv := newTestServer(t)

	tc := connect(t, srv)
	// Room operations before authenticating are dropped without a reply
	// and without killing the connection.
	tc.send(t, srv, 1, &packets.EnterRoomRequest{Room: 0})
	tc.send(t, srv, 2, &packets.GameStartRequest{})
	tc.expectSilence(t)

	// Keep-alives work in any stage.
	tc.send(t, srv, 3, &packets.KeepAlive{Token: 7})
	env := tc.recv(t)
	if ack, ok := env.Packet.(*packets.KeepAliveAck); !ok || ack.Token != 7 {
		t.Fatalf("expected keep-alive ack with token 7, got %+v", env.Packet)
	}
}

func TestLobbyBrowsing(t *testing.T) {
	srv := newTestServer(t)
	seedAccount(t, srv, "sora", "hunter2")

	tc := connect(t, srv)
	tc.login(t, srv, "sora", "hunter2")

	tc.send(t, srv, 2, &packets.ModeChangeRequest{Mode: packets.ModeVS})
	tc.recv(t)

	tc.send(t, srv, 3, &packets.LobbyCountRequest{})
	env := tc.recv(t)
	if count := env.Packet.(*packets.LobbyCount).Count; count != 2 {
		t.Errorf("lobby count = %d, expected 2", count)
	}
	if env.PID != 3 {
		t.Errorf("reply pid = %d, expected the request's 3", env.PID)
	}

	tc.send(t, srv, 4, &packets.LobbyInfoRequest{Index: 0, Mode: packets.ModeVS})
	info := tc.recv(t).Packet.(*packets.LobbyInfo)
	if info.Num != 0 || info.MemberMax != 8 {
		t.Errorf("lobby info = %+v, expected lobby 0 with capacity 8", info)
	}

	tc.send(t, srv, 5, &packets.LobbyInfoRequest{Index: 9, Mode: packets.ModeVS})
	if info := tc.recv(t).Packet.(*packets.LobbyInfo); info.Num != -1 {
		t.Errorf("expected missing lobby to report -1, got %d", info.Num)
	}
}

func TestLobbyJoinAnnouncement(t *testing.T) {
	srv := newTestServer(t)
	seedAccount(t, srv, "sora", "hunter2")
	seedAccount(t, srv, "kooh", "hunter2")

	first := connect(t, srv)
	firstCID := first.login(t, srv, "sora", "hunter2")
	first.enterLobby(t, srv, 0)

	second := connect(t, srv)
	secondCID := second.login(t, srv, "kooh", "hunter2")
	second.enterLobby(t, srv, 0)

	// The first client hears about the arrival; the newcomer does not get
	// an announcement about itself.
	env := first.recv(t)
	announced, ok := env.Packet.(*packets.LobbyMember)
	if !ok {
		t.Fatalf("expected LobbyMember broadcast, got opcode %d", env.ID)
	}
	if announced.Member.CID != secondCID {
		t.Errorf("announced cid = %d, expected %d", announced.Member.CID, secondCID)
	}
	second.expectSilence(t)

	// Both show up in a member list, terminated by the end marker.
	second.send(t, srv, 9, &packets.LobbyMemberRequest{Mode: packets.ModeVS, Lobby: 0})
	seen := map[int32]bool{}
	for {
		env := second.recv(t)
		if env.PID != 9 {
			t.Fatalf("list reply pid = %d, expected 9", env.PID)
		}
		if env.ID == packets.MemberListEndType {
			break
		}
		seen[env.Packet.(*packets.LobbyMember).Member.CID] = true
	}
	if !seen[firstCID] || !seen[secondCID] {
		t.Errorf("member list %v missing cids %d, %d", seen, firstCID, secondCID)
	}
}

func TestRoomLifecycle(t *testing.T) {
	srv := newTestServer(t)
	seedAccount(t, srv, "sora", "hunter2")
	seedAccount(t, srv, "kooh", "hunter2")

	leader := connect(t, srv)
	leaderCID := leader.login(t, srv, "sora", "hunter2")
	leader.enterLobby(t, srv, 0)

	joiner := connect(t, srv)
	joinerCID := joiner.login(t, srv, "kooh", "hunter2")
	joiner.enterLobby(t, srv, 0)
	leader.recv(t) // join announcement

	// Create a passworded room.
	settings := packets.RoomSettings{
		Name:     "casual",
		Password: "secret",
		Stat:     packets.RoomStat{MemberMax: 4, Holes: 18},
	}
	leader.send(t, srv, 10, &packets.CreateRoomRequest{Settings: settings})
	created := leader.recv(t).Packet.(*packets.CreateRoomResult)
	if created.Room != 0 {
		t.Fatalf("created room = %d, expected 0", created.Room)
	}

	// The rest of the lobby hears about the new room.
	entry := joiner.recv(t).Packet.(*packets.RoomListEntry)
	if entry.Settings.Stat.Room != 0 || entry.Settings.Stat.Flag&packets.RoomFlagPassword == 0 {
		t.Errorf("room announcement = %+v, expected passworded room 0", entry.Settings.Stat)
	}

	// Wrong password is refused with the dedicated code.
	joiner.send(t, srv, 11, &packets.EnterRoomRequest{Room: 0, Password: "wrong"})
	if result := joiner.recv(t).Packet.(*packets.EnterRoomResult); result.Settings.Stat.Room != -3 {
		t.Fatalf("wrong password result = %d, expected -3", result.Settings.Stat.Room)
	}

	// Joining a room that does not exist is a plain failure.
	joiner.send(t, srv, 12, &packets.EnterRoomRequest{Room: 5})
	if result := joiner.recv(t).Packet.(*packets.EnterRoomResult); result.Settings.Stat.Room != -1 {
		t.Fatalf("missing room result = %d, expected -1", result.Settings.Stat.Room)
	}

	joiner.send(t, srv, 13, &packets.EnterRoomRequest{Room: 0, Password: "secret"})
	entered := joiner.recv(t).Packet.(*packets.EnterRoomResult)
	if entered.Settings.Stat.Room != 0 || entered.Settings.Stat.Member != 2 {
		t.Fatalf("enter result = %+v, expected room 0 with 2 members", entered.Settings.Stat)
	}
	arrival := leader.recv(t).Packet.(*packets.RoomMember)
	if arrival.Member.CID != joinerCID {
		t.Errorf("arrival announcement cid = %d, expected %d", arrival.Member.CID, joinerCID)
	}

	// When the leader leaves, leadership moves to the longest-seated player.
	leader.send(t, srv, 14, &packets.LeaveRoomRequest{})
	if result := leader.recv(t).Packet.(*packets.LeaveRoomResult); result.Result != packets.StatusOK {
		t.Fatalf("leave result = %d, expected ok", result.Result)
	}
	changed := joiner.recv(t).Packet.(*packets.OwnerChanged)
	if changed.CID != joinerCID {
		t.Errorf("new owner = %d, expected %d", changed.CID, joinerCID)
	}
	status := joiner.recv(t).Packet.(*packets.RoomStatus)
	if status.Stat.Member != 1 {
		t.Errorf("room status members = %d, expected 1", status.Stat.Member)
	}

	// The last member leaving deletes the room.
	joiner.send(t, srv, 15, &packets.LeaveRoomRequest{})
	joiner.recv(t)
	joiner.send(t, srv, 16, &packets.RoomListRequest{})
	joiner.expectSilence(t)
	_ = leaderCID
}

func TestRoundRelays(t *testing.T) {
	srv := newTestServer(t)
	seedAccount(t, srv, "sora", "hunter2")
	seedAccount(t, srv, "kooh", "hunter2")

	leader := connect(t, srv)
	leaderCID := leader.login(t, srv, "sora", "hunter2")
	leader.enterLobby(t, srv, 0)

	other := connect(t, srv)
	otherCID := other.login(t, srv, "kooh", "hunter2")
	other.enterLobby(t, srv, 0)
	leader.recv(t) // join announcement

	leader.send(t, srv, 10, &packets.CreateRoomRequest{
		Settings: packets.RoomSettings{Name: "round", Stat: packets.RoomStat{MemberMax: 2, Holes: 3}},
	})
	leader.recv(t)
	other.recv(t) // room announcement
	other.send(t, srv, 11, &packets.EnterRoomRequest{Room: 0})
	other.recv(t)
	leader.recv(t) // arrival announcement

	// Only the leader can start the round.
	other.send(t, srv, 12, &packets.GameStartRequest{})
	other.expectSilence(t)

	leader.send(t, srv, 12, &packets.GameStartRequest{})
	var starts []*packets.GameStart
	for _, tc := range []*testClient{leader, other} {
		start, ok := tc.recv(t).Packet.(*packets.GameStart)
		if !ok {
			t.Fatal("expected GameStart broadcast")
		}
		if start.Member != 2 || start.Holes != 3 {
			t.Fatalf("round setup = %+v, expected 2 players over 3 holes", start)
		}
		if start.CID[0] != leaderCID || start.CID[1] != otherCID || start.CID[2] != -1 {
			t.Fatalf("player slots = %v, expected [%d %d -1 ...]", start.CID[:3], leaderCID, otherCID)
		}
		starts = append(starts, start)
	}
	// Both players have to be dealt the exact same course conditions.
	if diff := deep.Equal(starts[0], starts[1]); diff != nil {
		t.Fatalf("round setups differ between players: %v", diff)
	}

	// A swing reaches the other player, stamped with the shooter's ID.
	leader.send(t, srv, 13, &packets.ShotData{Power: 230, Club: 1})
	sync, ok := other.recv(t).Packet.(*packets.ShotSync)
	if !ok || sync.CID != leaderCID || sync.Power != 230 {
		t.Fatalf("shot sync = %+v, expected power 230 from cid %d", sync, leaderCID)
	}
	leader.expectSilence(t)

	// Only the shooter may settle the ball.
	other.send(t, srv, 14, &packets.BallStop{Hole: 1, X: 10})
	other.expectSilence(t)
	leader.expectSilence(t)

	leader.send(t, srv, 15, &packets.BallStop{Hole: 1, X: 10})
	for _, tc := range []*testClient{leader, other} {
		stop, ok := tc.recv(t).Packet.(*packets.BallStopSync)
		if !ok || stop.CID != leaderCID || stop.X != 10 {
			t.Fatalf("ball stop sync = %+v, expected from cid %d", stop, leaderCID)
		}
	}

	// The ball has settled; a second stop is out of turn.
	leader.send(t, srv, 16, &packets.BallStop{Hole: 1})
	leader.expectSilence(t)
}

func TestPlayerStatusSpoofRejected(t *testing.T) {
	srv := newTestServer(t)
	seedAccount(t, srv, "sora", "hunter2")
	seedAccount(t, srv, "kooh", "hunter2")

	first := connect(t, srv)
	firstCID := first.login(t, srv, "sora", "hunter2")
	first.enterLobby(t, srv, 0)

	second := connect(t, srv)
	secondCID := second.login(t, srv, "kooh", "hunter2")
	second.enterLobby(t, srv, 0)
	first.recv(t) // join announcement

	// A status stamped with someone else's IDs is dropped.
	second.send(t, srv, 20, &packets.PlayerStatus{CID: firstCID, UID: 1, Stat: packets.StatReady})
	first.expectSilence(t)

	// A legitimate status reaches the rest of the lobby.
	sess := srv.sessionByCID(secondCID)
	second.send(t, srv, 21, &packets.PlayerStatus{CID: secondCID, UID: int32(sess.uid), Stat: packets.StatReady})
	status := first.recv(t).Packet.(*packets.PlayerStatus)
	if status.CID != secondCID || status.Stat != packets.StatReady {
		t.Errorf("status broadcast = %+v, expected ready from cid %d", status, secondCID)
	}
	second.expectSilence(t)
}

func TestDisconnectCleanup(t *testing.T) {
	srv := newTestServer(t)
	seedAccount(t, srv, "sora", "hunter2")
	seedAccount(t, srv, "kooh", "hunter2")

	leader := connect(t, srv)
	leaderCID := leader.login(t, srv, "sora", "hunter2")
	leader.enterLobby(t, srv, 0)

	joiner := connect(t, srv)
	joinerCID := joiner.login(t, srv, "kooh", "hunter2")
	joiner.enterLobby(t, srv, 0)
	leader.recv(t) // join announcement

	leader.send(t, srv, 10, &packets.CreateRoomRequest{
		Settings: packets.RoomSettings{Name: "doomed", Stat: packets.RoomStat{MemberMax: 4}},
	})
	leader.recv(t)
	joiner.recv(t) // room announcement
	joiner.send(t, srv, 11, &packets.EnterRoomRequest{Room: 0})
	joiner.recv(t)
	leader.recv(t) // arrival announcement

	srv.Disconnect(leader.c)

	// The survivor hears exactly one leadership change, one room status
	// update, and one lobby departure.
	changed := joiner.recv(t).Packet.(*packets.OwnerChanged)
	if changed.CID != joinerCID {
		t.Errorf("new owner = %d, expected %d", changed.CID, joinerCID)
	}
	status := joiner.recv(t).Packet.(*packets.RoomStatus)
	if status.Stat.Member != 1 {
		t.Errorf("room status members = %d, expected 1", status.Stat.Member)
	}
	departed := joiner.recv(t).Packet.(*packets.PlayerStatus)
	if departed.CID != leaderCID || departed.Stat&packets.StatExit == 0 {
		t.Errorf("departure status = %+v, expected cid %d with the exit bit", departed, leaderCID)
	}
	joiner.expectSilence(t)

	if srv.PlayerCount() != 1 {
		t.Errorf("player count after disconnect = %d, expected 1", srv.PlayerCount())
	}

	// The freed account can log straight back in.
	second := connect(t, srv)
	second.login(t, srv, "sora", "hunter2")

	// Disconnecting twice must not panic or double-free.
	srv.Disconnect(leader.c)
	joiner.expectSilence(t)
}

func TestConcurrentStatusAndMemberLists(t *testing.T) {
	srv := newTestServer(t)
	seedAccount(t, srv, "sora", "hunter2")
	seedAccount(t, srv, "kooh", "hunter2")

	first := connect(t, srv)
	firstCID := first.login(t, srv, "sora", "hunter2")
	first.enterLobby(t, srv, 0)

	second := connect(t, srv)
	second.login(t, srv, "kooh", "hunter2")
	second.enterLobby(t, srv, 0)

	// Both ends just soak up the broadcasts for the duration.
	_ = first.remote.SetReadDeadline(time.Time{})
	_ = second.remote.SetReadDeadline(time.Time{})
	go func() { _, _ = io.Copy(io.Discard, first.remote) }()
	go func() { _, _ = io.Copy(io.Discard, second.remote) }()

	uid := int32(srv.sessionByCID(firstCID).uid)

	// One connection rewrites its status while another walks the member
	// list that reads it.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			pkt := &packets.PlayerStatus{CID: firstCID, UID: uid, Stat: uint32(i)}
			if err := srv.Handle(context.Background(), first.c, packets.Marshal(int16(i+1), pkt)); err != nil {
				t.Errorf("status update %d failed: %v", i, err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			pkt := &packets.LobbyMemberRequest{Mode: packets.ModeVS, Lobby: 0}
			if err := srv.Handle(context.Background(), second.c, packets.Marshal(int16(i+1), pkt)); err != nil {
				t.Errorf("member list %d failed: %v", i, err)
				return
			}
		}
	}()
	wg.Wait()
}
