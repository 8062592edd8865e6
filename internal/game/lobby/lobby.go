// Package lobby tracks the lobbies and rooms hosted by the game server.
//
// The registry owns a fixed set of lobbies per multiplayer mode; each lobby
// owns its rooms. Locking is hierarchical: a lobby's lock may be taken
// before one of its rooms' locks, never the other way around.
package lobby

import (
	"errors"
	"fmt"
	"sync"

	"github.com/splashsrv/splashsrv/internal/core/client"
	"github.com/splashsrv/splashsrv/internal/packets"
)

const (
	// Rooms are numbered 0 through 127; the room byte doubles as an error
	// code for negative values, so the high bit is never used.
	MaxRoomsPerLobby = 128

	// NoRoom is the room number reported for players idling in the lobby.
	NoRoom int8 = -1
)

var (
	ErrLobbyFull            = errors.New("lobby is full")
	ErrRoomFull             = errors.New("room is full")
	ErrRoomClosed           = errors.New("room no longer exists")
	ErrWrongPassword        = errors.New("wrong room password")
	ErrSpectatorsNotAllowed = errors.New("room does not allow spectators")
	ErrNotAMember           = errors.New("player is not in the room")
)

// Member is one player as seen by the lobby system. The identity fields are
// fixed for the life of the session; the status, team, and room fields
// change as the player moves around and are guarded by the member's own
// lock, since any connection's handler may read them while building member
// info packets.
type Member struct {
	CID     int32
	UID     int32
	Name    string
	Class   int8
	Element packets.Element
	Title   uint8
	Circle  int32

	// Client is the connection to send broadcasts through. Nil is tolerated
	// so that registry logic can be exercised without a socket.
	Client *client.Client

	mu      sync.Mutex
	stat    uint32
	team    bool
	roomNum int8
}

// NewMember builds a member idling outside any room.
func NewMember(cid, uid int32, name string, c *client.Client) *Member {
	return &Member{CID: cid, UID: uid, Name: name, Client: c, roomNum: NoRoom}
}

// Stat returns the member's status flags.
func (m *Member) Stat() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stat
}

// SetStat replaces the member's status flags.
func (m *Member) SetStat(stat uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stat = stat
}

// AddStat sets the given status bits on top of the current flags.
func (m *Member) AddStat(flags uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stat |= flags
}

// Team reports which side of a team split the member is on.
func (m *Member) Team() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.team
}

// SetTeam records which side of a team split the member is on.
func (m *Member) SetTeam(team bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.team = team
}

// Room returns the number of the room the member is seated in, or NoRoom.
func (m *Member) Room() int8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roomNum
}

func (m *Member) setRoom(number int8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roomNum = number
}

// Registry is the top level container for every lobby on the server.
type Registry struct {
	mu      sync.RWMutex
	lobbies map[packets.Mode][]*Lobby
}

// lobbyModes are the multiplayer modes that get their own lobby sets.
var lobbyModes = []packets.Mode{packets.ModeVS, packets.ModeCompetition}

// NewRegistry creates numLobbies lobbies holding up to capacity players each
// for every multiplayer mode.
func NewRegistry(numLobbies, capacity int) *Registry {
	r := &Registry{lobbies: make(map[packets.Mode][]*Lobby)}
	for _, mode := range lobbyModes {
		for i := 0; i < numLobbies; i++ {
			r.lobbies[mode] = append(r.lobbies[mode], &Lobby{
				num:      int8(i),
				mode:     mode,
				name:     fmt.Sprintf("Lobby %d", i+1),
				capacity: capacity,
				members:  make(map[int32]*Member),
				rooms:    make(map[int8]*Room),
			})
		}
	}
	return r
}

// Count returns the number of lobbies available for a mode.
func (r *Registry) Count(mode packets.Mode) int8 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int8(len(r.lobbies[mode]))
}

// Lobby returns the lobby with the given index for a mode.
func (r *Registry) Lobby(mode packets.Mode, index int8) (*Lobby, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.lobbies[mode]
	if index < 0 || int(index) >= len(set) {
		return nil, false
	}
	return set[index], true
}

// Lobby is a set of players browsing and hosting rooms for one mode.
type Lobby struct {
	num      int8
	mode     packets.Mode
	name     string
	capacity int

	mu      sync.RWMutex
	members map[int32]*Member
	rooms   map[int8]*Room
}

func (l *Lobby) Num() int8          { return l.num }
func (l *Lobby) Mode() packets.Mode { return l.mode }

// Join adds a member to the lobby, returning the members that were already
// present so the caller can announce the arrival to them.
func (l *Lobby) Join(m *Member) ([]*Member, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.members) >= l.capacity {
		return nil, ErrLobbyFull
	}

	others := make([]*Member, 0, len(l.members))
	for _, existing := range l.members {
		others = append(others, existing)
	}

	m.setRoom(NoRoom)
	l.members[m.CID] = m
	return others, nil
}

// Leave removes a member from the lobby, returning it if it was present.
func (l *Lobby) Leave(cid int32) *Member {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.members[cid]
	if !ok {
		return nil
	}
	delete(l.members, cid)
	return m
}

// Member returns the lobby member with the given connection ID.
func (l *Lobby) Member(cid int32) (*Member, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.members[cid]
	return m, ok
}

// Members returns a snapshot of everyone in the lobby.
func (l *Lobby) Members() []*Member {
	l.mu.RLock()
	defer l.mu.RUnlock()

	members := make([]*Member, 0, len(l.members))
	for _, m := range l.members {
		members = append(members, m)
	}
	return members
}

func (l *Lobby) MemberCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.members)
}

// Info describes the lobby for the selection screen.
func (l *Lobby) Info() packets.LobbyInfo {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return packets.LobbyInfo{
		Num:       l.num,
		MemberMax: int16(l.capacity),
		Member:    int16(len(l.members)),
		Name:      l.name,
		Mode:      l.mode,
	}
}

// CreateRoom opens a new room led by leader, claiming the lowest free room
// number. The leader is seated in the room before it becomes visible.
func (l *Lobby) CreateRoom(settings packets.RoomSettings, leader *Member) (*Room, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	number := int8(-1)
	for n := 0; n < MaxRoomsPerLobby; n++ {
		if _, taken := l.rooms[int8(n)]; !taken {
			number = int8(n)
			break
		}
	}
	if number < 0 {
		return nil, ErrRoomFull
	}

	settings.Mode = l.mode
	settings.Lobby = l.num
	settings.Stat.Room = number
	if settings.Password == "" {
		settings.Stat.Flag &^= packets.RoomFlagPassword
	} else {
		settings.Stat.Flag |= packets.RoomFlagPassword
	}

	room := &Room{
		number:     number,
		settings:   settings,
		players:    []*Member{leader},
		currentCID: -1,
	}
	leader.setRoom(number)
	l.rooms[number] = room
	return room, nil
}

// Room returns the room with the given number.
func (l *Lobby) Room(number int8) (*Room, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	room, ok := l.rooms[number]
	return room, ok
}

// Rooms returns the lobby's rooms ordered by room number.
func (l *Lobby) Rooms() []*Room {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rooms := make([]*Room, 0, len(l.rooms))
	for n := 0; n < MaxRoomsPerLobby; n++ {
		if room, ok := l.rooms[int8(n)]; ok {
			rooms = append(rooms, room)
		}
	}
	return rooms
}

// DeleteRoomIfEmpty removes the room from the lobby once its last occupant
// has left. The room is marked closed under its own lock so that a join
// racing with the delete loses cleanly.
func (l *Lobby) DeleteRoomIfEmpty(room *Room) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.closed || len(room.players) > 0 || len(room.watchers) > 0 {
		return false
	}

	room.closed = true
	delete(l.rooms, room.number)
	return true
}
