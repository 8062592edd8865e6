package login

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/splashsrv/splashsrv/internal/core"
	"github.com/splashsrv/splashsrv/internal/core/auth"
	"github.com/splashsrv/splashsrv/internal/core/client"
	"github.com/splashsrv/splashsrv/internal/core/data"
	"github.com/splashsrv/splashsrv/internal/packets"
)

// fakeOccupancy stands in for the game server when exercising the roster.
type fakeOccupancy struct {
	players int
	online  map[uint64]bool
}

func (f *fakeOccupancy) PlayerCount() int         { return f.players }
func (f *fakeOccupancy) IsOnline(uid uint64) bool { return f.online[uid] }

func newTestServer(t *testing.T, occupancy *fakeOccupancy) *Server {
	t.Helper()

	db, err := data.Initialize(filepath.Join(t.TempDir(), "test.db"), false)
	if err != nil {
		t.Fatalf("error initializing test database: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &core.Config{ExternalAddress: "203.0.113.5"}
	cfg.GameServer.Port = 20201
	cfg.GameServer.Number = 3
	cfg.GameServer.Name = "Splash 1"
	cfg.GameServer.Comment = "free play"
	cfg.GameServer.MaxPlayers = 200

	srv := &Server{Name: "LOGIN", Config: cfg, Logger: logger, DB: db, Occupancy: occupancy}
	if err := srv.Init(context.Background()); err != nil {
		t.Fatalf("error initializing server: %v", err)
	}
	return srv
}

func connect(t *testing.T, srv *Server) (*client.Client, net.Conn) {
	t.Helper()
	remote, local := net.Pipe()
	c := client.NewClient(local)
	srv.SetUpClient(c)
	t.Cleanup(func() {
		_ = c.Close()
		_ = remote.Close()
	})
	return c, remote
}

func recv(t *testing.T, remote net.Conn) packets.Envelope {
	t.Helper()
	_ = remote.SetReadDeadline(time.Now().Add(time.Second))

	var prefix [2]byte
	if _, err := io.ReadFull(remote, prefix[:]); err != nil {
		t.Fatalf("error reading frame prefix: %v", err)
	}
	body := make([]byte, binary.LittleEndian.Uint16(prefix[:]))
	if _, err := io.ReadFull(remote, body); err != nil {
		t.Fatalf("error reading frame body: %v", err)
	}

	env, err := packets.Decode(body)
	if err != nil {
		t.Fatalf("error decoding reply: %v", err)
	}
	return env
}

func TestHandleLogin(t *testing.T) {
	occupancy := &fakeOccupancy{online: map[uint64]bool{}}
	srv := newTestServer(t, occupancy)

	account, err := auth.CreateAccount(srv.DB, "sora", "hunter2", "Sora")
	if err != nil {
		t.Fatalf("error seeding account: %v", err)
	}
	if _, err := auth.CreateAccount(srv.DB, "banned", "hunter2", "Banned"); err != nil {
		t.Fatalf("error seeding account: %v", err)
	}
	if err := srv.DB.Model(&data.Account{}).Where("username = ?", "banned").
		Update("banned", true).Error; err != nil {
		t.Fatalf("error banning account: %v", err)
	}

	tests := map[string]struct {
		request  packets.LoginRequest
		online   bool
		expected packets.LoginResultCode
	}{
		"empty username": {
			request:  packets.LoginRequest{Password: "x", Version: packets.ClientVersion},
			expected: packets.LoginBadID,
		},
		"empty password": {
			request:  packets.LoginRequest{Username: "sora", Version: packets.ClientVersion},
			expected: packets.LoginBadPassword,
		},
		"bad version": {
			request:  packets.LoginRequest{Username: "sora", Password: "hunter2", Version: 955},
			expected: packets.LoginBadVersion,
		},
		"unknown account": {
			request:  packets.LoginRequest{Username: "ghost", Password: "hunter2", Version: packets.ClientVersion},
			expected: packets.LoginInvalidAccount,
		},
		"wrong password": {
			request:  packets.LoginRequest{Username: "sora", Password: "nope", Version: packets.ClientVersion},
			expected: packets.LoginBadPassword,
		},
		"banned account": {
			request:  packets.LoginRequest{Username: "banned", Password: "hunter2", Version: packets.ClientVersion},
			expected: packets.LoginBanned,
		},
		"already online": {
			request:  packets.LoginRequest{Username: "sora", Password: "hunter2", Version: packets.ClientVersion},
			online:   true,
			expected: packets.LoginAlreadyOnline,
		},
		"success": {
			request:  packets.LoginRequest{Username: "sora", Password: "hunter2", Version: packets.ClientVersion},
			expected: packets.LoginOK,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			occupancy.online[account.ID] = tt.online

			c, remote := connect(t, srv)
			if err := srv.Handle(context.Background(), c, packets.Marshal(7, &tt.request)); err != nil {
				t.Fatalf("Handle returned an error: %v", err)
			}

			env := recv(t, remote)
			result, ok := env.Packet.(*packets.LoginResult)
			if !ok {
				t.Fatalf("expected LoginResult, got opcode %d", env.ID)
			}
			if result.Result != tt.expected {
				t.Errorf("result = %d, expected %d", result.Result, tt.expected)
			}
			if env.PID != 7 {
				t.Errorf("reply pid = %d, expected the request's 7", env.PID)
			}

			if tt.expected == packets.LoginOK {
				if c.Account == nil || c.Account.Username != "sora" {
					t.Error("expected a successful login to attach the account to the client")
				}
			} else if c.Account != nil {
				t.Error("expected a failed login to leave the client unauthenticated")
			}
		})
	}
}

func TestHandleLoginStampsLastSession(t *testing.T) {
	srv := newTestServer(t, &fakeOccupancy{})
	if _, err := auth.CreateAccount(srv.DB, "sora", "hunter2", "Sora"); err != nil {
		t.Fatalf("error seeding account: %v", err)
	}

	c, remote := connect(t, srv)
	request := packets.LoginRequest{Username: "sora", Password: "hunter2", Version: packets.ClientVersion}
	if err := srv.Handle(context.Background(), c, packets.Marshal(1, &request)); err != nil {
		t.Fatalf("Handle returned an error: %v", err)
	}
	recv(t, remote)

	account, err := data.FindAccountByUsername(srv.DB, "sora")
	if err != nil {
		t.Fatalf("error reloading account: %v", err)
	}
	if time.Since(account.LastSession) > time.Minute {
		t.Errorf("last session = %v, expected it to be stamped on login", account.LastSession)
	}
}

func TestHandleServerList(t *testing.T) {
	occupancy := &fakeOccupancy{players: 42}
	srv := newTestServer(t, occupancy)
	if _, err := auth.CreateAccount(srv.DB, "sora", "hunter2", "Sora"); err != nil {
		t.Fatalf("error seeding account: %v", err)
	}

	t.Run("unauthenticated", func(t *testing.T) {
		c, remote := connect(t, srv)
		if err := srv.Handle(context.Background(), c, packets.Marshal(1, &packets.ServerListRequest{})); err != nil {
			t.Fatalf("Handle returned an error: %v", err)
		}

		_ = remote.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		var b [1]byte
		if _, err := remote.Read(b[:]); err == nil {
			t.Fatal("expected the request to be dropped before login")
		}
	})

	t.Run("authenticated", func(t *testing.T) {
		c, remote := connect(t, srv)
		login := packets.LoginRequest{Username: "sora", Password: "hunter2", Version: packets.ClientVersion}
		if err := srv.Handle(context.Background(), c, packets.Marshal(1, &login)); err != nil {
			t.Fatalf("Handle returned an error: %v", err)
		}
		recv(t, remote)

		if err := srv.Handle(context.Background(), c, packets.Marshal(8, &packets.ServerListRequest{})); err != nil {
			t.Fatalf("Handle returned an error: %v", err)
		}

		env := recv(t, remote)
		entry, ok := env.Packet.(*packets.ServerEntry)
		if !ok {
			t.Fatalf("expected ServerEntry, got opcode %d", env.ID)
		}
		if entry.Number != 3 || entry.Address != "203.0.113.5" || entry.Port != 20201 {
			t.Errorf("roster entry = %+v, expected server 3 at 203.0.113.5:20201", entry)
		}
		if entry.NowPlayers != 42 || entry.MaxPlayers != 200 {
			t.Errorf("occupancy = %d/%d, expected 42/200", entry.NowPlayers, entry.MaxPlayers)
		}
		if env.PID != 8 {
			t.Errorf("entry pid = %d, expected the request's 8", env.PID)
		}

		if end := recv(t, remote); end.ID != packets.ServerListEndType {
			t.Fatalf("expected the list terminator, got opcode %d", end.ID)
		}
	})
}

func TestRosterCaching(t *testing.T) {
	occupancy := &fakeOccupancy{players: 5}
	srv := newTestServer(t, occupancy)

	first := srv.roster()
	if first[0].NowPlayers != 5 {
		t.Fatalf("roster occupancy = %d, expected 5", first[0].NowPlayers)
	}

	// Within the cache window the stale count is served.
	occupancy.players = 9
	if cached := srv.roster(); cached[0].NowPlayers != 5 {
		t.Errorf("cached roster occupancy = %d, expected the stale 5", cached[0].NowPlayers)
	}

	srv.rosterCache.Delete(rosterCacheKey)
	if fresh := srv.roster(); fresh[0].NowPlayers != 9 {
		t.Errorf("rebuilt roster occupancy = %d, expected 9", fresh[0].NowPlayers)
	}
}
