package lobby

import (
	"sync"

	"github.com/splashsrv/splashsrv/internal/packets"
)

// Room is a game room within a lobby. The leader is always the member who
// has been seated the longest; players[0] after every membership change.
type Room struct {
	number int8

	mu       sync.Mutex
	settings packets.RoomSettings
	players  []*Member
	watchers []*Member
	closed   bool
	inRound  bool
	// currentCID is the player whose shot is in flight, -1 between shots.
	currentCID int32
}

func (r *Room) Number() int8 { return r.number }

// Join seats a member in the room, or in the gallery when spectate is set.
func (r *Room) Join(m *Member, password string, spectate bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomClosed
	}
	if r.settings.Stat.Flag&packets.RoomFlagPassword != 0 && password != r.settings.Password {
		return ErrWrongPassword
	}

	if spectate {
		if r.settings.Stat.Flag&packets.RoomFlagSpectators == 0 {
			return ErrSpectatorsNotAllowed
		}
		r.watchers = append(r.watchers, m)
	} else {
		if len(r.players) >= int(r.settings.Stat.MemberMax) {
			return ErrRoomFull
		}
		r.players = append(r.players, m)
	}

	m.setRoom(r.number)
	return nil
}

// Leave removes a member from the room. It returns the new leader when
// leadership changed hands and whether the room is now empty; an empty room
// should be passed to Lobby.DeleteRoomIfEmpty.
func (r *Room) Leave(cid int32) (newLeader *Member, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	leaderLeft := len(r.players) > 0 && r.players[0].CID == cid

	for i, m := range r.players {
		if m.CID == cid {
			m.setRoom(NoRoom)
			r.players = append(r.players[:i], r.players[i+1:]...)
			break
		}
	}
	for i, m := range r.watchers {
		if m.CID == cid {
			m.setRoom(NoRoom)
			r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
			break
		}
	}

	if len(r.players) == 0 && len(r.watchers) == 0 {
		return nil, true
	}
	if leaderLeft && len(r.players) > 0 {
		return r.players[0], false
	}
	return nil, false
}

// Leader returns the member currently leading the room.
func (r *Room) Leader() *Member {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.players) == 0 {
		return nil
	}
	return r.players[0]
}

// TransferLeadership makes the player with the given connection ID the
// leader.
func (r *Room) TransferLeadership(cid int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, m := range r.players {
		if m.CID == cid {
			r.players = append(r.players[:i], r.players[i+1:]...)
			r.players = append([]*Member{m}, r.players...)
			return nil
		}
	}
	return ErrNotAMember
}

// Player returns the seated (non-spectating) member with the given
// connection ID.
func (r *Room) Player(cid int32) (*Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.players {
		if m.CID == cid {
			return m, true
		}
	}
	return nil, false
}

// Players returns the seated members in join order.
func (r *Room) Players() []*Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Member(nil), r.players...)
}

// Everyone returns the seated members followed by the spectators.
func (r *Room) Everyone() []*Member {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]*Member, 0, len(r.players)+len(r.watchers))
	all = append(all, r.players...)
	all = append(all, r.watchers...)
	return all
}

// Settings returns the room's settings with the occupancy fields of the
// embedded stat block filled in.
func (r *Room) Settings() packets.RoomSettings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settingsLocked()
}

func (r *Room) settingsLocked() packets.RoomSettings {
	settings := r.settings
	settings.Stat.Member = int8(len(r.players))
	settings.Stat.Watchers = int8(len(r.watchers))
	if r.inRound {
		settings.Stat.Flag |= packets.RoomFlagInRound
	}
	return settings
}

// Update replaces the room's settings, preserving the fields the lobby
// owns: room number, mode, and lobby index.
func (r *Room) Update(settings packets.RoomSettings) packets.RoomSettings {
	r.mu.Lock()
	defer r.mu.Unlock()

	settings.Mode = r.settings.Mode
	settings.Lobby = r.settings.Lobby
	settings.Stat.Room = r.number
	if settings.Password == "" {
		settings.Stat.Flag &^= packets.RoomFlagPassword
	} else {
		settings.Stat.Flag |= packets.RoomFlagPassword
	}

	r.settings = settings
	return r.settingsLocked()
}

// StartRound flags the room as in a round and returns the seated players in
// join order.
func (r *Room) StartRound() []*Member {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.inRound = true
	r.currentCID = -1
	return append([]*Member(nil), r.players...)
}

// EndRound clears the in-round flag.
func (r *Room) EndRound() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inRound = false
	r.currentCID = -1
}

// InRound reports whether the room has a round in progress.
func (r *Room) InRound() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inRound
}

// SetCurrentPlayer records whose shot is in flight.
func (r *Room) SetCurrentPlayer(cid int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentCID = cid
}

// CurrentPlayer returns the connection ID of the player whose shot is in
// flight, or -1.
func (r *Room) CurrentPlayer() int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentCID
}
