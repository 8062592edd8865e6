// Package game implements the GAME server: the endpoint clients connect to
// after picking a server from the roster. It owns the in-memory session,
// lobby, and room state.
package game

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/splashsrv/splashsrv/internal/core"
	"github.com/splashsrv/splashsrv/internal/core/client"
	"github.com/splashsrv/splashsrv/internal/core/debug"
	"github.com/splashsrv/splashsrv/internal/game/lobby"
	"github.com/splashsrv/splashsrv/internal/packets"
)

// Connection IDs are allocated from this range, skipping any still held by
// a live session.
const (
	cidRangeStart = 600
	cidRangeEnd   = 999
)

// Server is the GAME server implementation.
type Server struct {
	Name   string
	Config *core.Config
	Logger *logrus.Logger
	DB     *gorm.DB

	registry *lobby.Registry

	mu       sync.Mutex
	sessions map[string]*session // keyed by client tag
	byCID    map[int32]*session
	byUID    map[uint64]*session
	nextCID  int32
}

func (s *Server) Identifier() string {
	return s.Name
}

func (s *Server) Init(_ context.Context) error {
	numLobbies := s.Config.GameServer.NumLobbies
	if numLobbies <= 0 {
		numLobbies = 1
	}
	capacity := s.Config.GameServer.LobbyCapacity
	if capacity <= 0 {
		capacity = s.Config.GameServer.MaxPlayers
	}

	s.registry = lobby.NewRegistry(numLobbies, capacity)
	s.sessions = make(map[string]*session)
	s.byCID = make(map[int32]*session)
	s.byUID = make(map[uint64]*session)
	s.nextCID = cidRangeStart
	return nil
}

func (s *Server) SetUpClient(c *client.Client) {
	sess := &session{client: c, stage: stageUnauthenticated, mode: packets.ModeNone}

	s.mu.Lock()
	s.sessions[c.Tag] = sess
	s.mu.Unlock()
}

// PlayerCount returns the number of authenticated sessions, for the login
// server's roster.
func (s *Server) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byUID)
}

// IsOnline reports whether the account already has an authenticated session.
func (s *Server) IsOnline(accountID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, online := s.byUID[accountID]
	return online
}

// allocateCID claims the next free connection ID. It fails only when every
// ID in the range is held by a live session.
func (s *Server) allocateCID(sess *session) (int32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i <= cidRangeEnd-cidRangeStart; i++ {
		cid := s.nextCID
		s.nextCID++
		if s.nextCID > cidRangeEnd {
			s.nextCID = cidRangeStart
		}
		if _, live := s.byCID[cid]; !live {
			s.byCID[cid] = sess
			return cid, true
		}
	}
	return 0, false
}

func (s *Server) Handle(ctx context.Context, c *client.Client, frame []byte) error {
	env, err := packets.Decode(frame)
	if err != nil {
		if errors.Is(err, packets.ErrUnknownOpcode) {
			s.Logger.Infof("[%s] ignoring unknown packet %d from %s", s.Name, env.ID, c.IPAddr())
			return nil
		}
		return fmt.Errorf("malformed packet from %s: %w", c.IPAddr(), err)
	}

	if s.Config.Debugging.PacketLoggingEnabled {
		debug.LogPacket(s.Logger, s.Name, "recv", env)
	}

	s.mu.Lock()
	sess := s.sessions[c.Tag]
	s.mu.Unlock()
	if sess == nil {
		return fmt.Errorf("no session for connection %s", c.Tag)
	}

	entry, ok := dispatchTable[env.ID]
	if !ok {
		s.Logger.Infof("[%s] dropping unhandled packet %d from %s", s.Name, env.ID, c.IPAddr())
		return nil
	}
	if !entry.stages.allows(sess.currentStage()) {
		s.Logger.Infof("[%s] dropping packet %d from %s: not valid in stage %v",
			s.Name, env.ID, c.IPAddr(), sess.currentStage())
		return nil
	}

	return entry.handle(s, sess, env)
}

// Disconnect releases every piece of state held for the client's session.
// The frontend guarantees exactly one call per connection.
func (s *Server) Disconnect(c *client.Client) {
	s.mu.Lock()
	sess := s.sessions[c.Tag]
	delete(s.sessions, c.Tag)
	s.mu.Unlock()
	if sess == nil {
		return
	}

	s.leaveRoom(sess)
	s.leaveLobby(sess)

	sess.mu.Lock()
	cid, uid, authed := sess.cid, sess.uid, sess.stage != stageUnauthenticated
	sess.stage = stageTerminated
	sess.mu.Unlock()

	if authed {
		s.mu.Lock()
		delete(s.byCID, cid)
		delete(s.byUID, uid)
		s.mu.Unlock()
		s.Logger.Infof("[%s] session for cid %d ended", s.Name, cid)
	}
}

// broadcast sends a packet to every member except the one identified by
// exceptCID. Pass -1 to send to everyone.
func (s *Server) broadcast(members []*lobby.Member, exceptCID int32, pkt packets.Packet) {
	for _, m := range members {
		if m.CID == exceptCID || m.Client == nil {
			continue
		}
		if err := m.Client.Send(pkt); err != nil {
			s.Logger.Debugf("[%s] dropping broadcast to cid %d: %v", s.Name, m.CID, err)
		}
	}
}
