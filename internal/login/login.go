package login

import (
	"context"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/splashsrv/splashsrv/internal/core"
	"github.com/splashsrv/splashsrv/internal/core/auth"
	"github.com/splashsrv/splashsrv/internal/core/client"
	"github.com/splashsrv/splashsrv/internal/core/data"
	"github.com/splashsrv/splashsrv/internal/core/debug"
	"github.com/splashsrv/splashsrv/internal/packets"
)

const rosterCacheKey = "roster"

// GameServerStatus exposes the occupancy information the roster needs from
// the game server.
type GameServerStatus interface {
	// PlayerCount returns the number of players currently connected.
	PlayerCount() int
	// IsOnline reports whether the account already has a live session.
	IsOnline(accountID uint64) bool
}

// Server is the LOGIN server implementation. Clients connect to this server
// first; its main responsibility is to authenticate the client's
// username/password and present the game server roster so the client can
// pick a server to join.
type Server struct {
	Name      string
	Config    *core.Config
	Logger    *logrus.Logger
	DB        *gorm.DB
	Occupancy GameServerStatus

	// Roster occupancy is recomputed at most once per cache interval no
	// matter how many clients sit on the selection screen.
	rosterCache *gocache.Cache
}

func (s *Server) Identifier() string {
	return s.Name
}

func (s *Server) Init(_ context.Context) error {
	s.rosterCache = gocache.New(5*time.Second, time.Minute)
	return nil
}

func (s *Server) SetUpClient(c *client.Client) {}

func (s *Server) Disconnect(c *client.Client) {}

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

	switch pkt := env.Packet.(type) {
	case *packets.LoginRequest:
		return s.handleLogin(c, env.PID, pkt)
	case *packets.ServerListRequest:
		return s.handleServerList(c, env.PID)
	default:
		s.Logger.Infof("[%s] dropping unexpected packet %d from %s", s.Name, env.ID, c.IPAddr())
		return nil
	}
}

func (s *Server) handleLogin(c *client.Client, pid int16, pkt *packets.LoginRequest) error {
	// One authentication per connection; repeats are dropped.
	if c.Account != nil {
		s.Logger.Infof("[%s] dropping repeat login from %s", s.Name, c.IPAddr())
		return nil
	}

	result := s.checkCredentials(c, pkt)
	if err := c.SendWithPID(pid, &packets.LoginResult{Result: result}); err != nil {
		return err
	}

	if result == packets.LoginOK {
		s.Logger.Infof("[%s] authenticated %s (uid %d)", s.Name, c.Account.Username, c.Account.ID)
	} else {
		s.Logger.Infof("[%s] rejected login for %q from %s (code %d)", s.Name, pkt.Username, c.IPAddr(), result)
	}
	return nil
}

// checkCredentials validates a login attempt, setting the client's Account
// on success. The checks run in the order the client's dialog messages
// expect: blank fields first, then the protocol version, then the account
// itself.
func (s *Server) checkCredentials(c *client.Client, pkt *packets.LoginRequest) packets.LoginResultCode {
	if pkt.Username == "" {
		return packets.LoginBadID
	}
	if pkt.Password == "" {
		return packets.LoginBadPassword
	}
	if pkt.Version != packets.ClientVersion {
		return packets.LoginBadVersion
	}

	account, err := data.FindAccountByUsername(s.DB, pkt.Username)
	if err != nil {
		s.Logger.Warnf("[%s] error looking up account %q: %v", s.Name, pkt.Username, err)
		return packets.LoginInvalidAccount
	}
	if account == nil {
		return packets.LoginInvalidAccount
	}

	if _, err := auth.VerifyAccount(s.DB, pkt.Username, pkt.Password); err != nil {
		switch {
		case errors.Is(err, auth.ErrAccountBanned):
			return packets.LoginBanned
		case errors.Is(err, auth.ErrInvalidCredentials):
			return packets.LoginBadPassword
		default:
			s.Logger.Warnf("[%s] error verifying account %q: %v", s.Name, pkt.Username, err)
			return packets.LoginInvalidAccount
		}
	}

	if s.Occupancy.IsOnline(account.ID) {
		return packets.LoginAlreadyOnline
	}

	if err := data.UpdateLastSession(s.DB, account, time.Now()); err != nil {
		s.Logger.Warnf("[%s] error stamping last session for %q: %v", s.Name, pkt.Username, err)
	}

	c.Account = account
	return packets.LoginOK
}

func (s *Server) handleServerList(c *client.Client, pid int16) error {
	if c.Account == nil {
		s.Logger.Infof("[%s] dropping server list request from unauthenticated %s", s.Name, c.IPAddr())
		return nil
	}

	for _, entry := range s.roster() {
		entry := entry
		if err := c.SendWithPID(pid, &entry); err != nil {
			return err
		}
	}
	return c.SendWithPID(pid, &packets.ServerListEnd{})
}

// roster builds the list of selectable game servers, caching the result
// briefly since occupancy counting is the only part that changes.
func (s *Server) roster() []packets.ServerEntry {
	if cached, ok := s.rosterCache.Get(rosterCacheKey); ok {
		return cached.([]packets.ServerEntry)
	}

	gs := s.Config.GameServer
	entries := []packets.ServerEntry{
		{
			Number:     int16(gs.Number),
			Address:    s.Config.ExternalAddress,
			Port:       uint16(gs.Port),
			Name:       gs.Name,
			Comment:    gs.Comment,
			MaxPlayers: int16(gs.MaxPlayers),
			NowPlayers: int16(s.Occupancy.PlayerCount()),
		},
	}

	s.rosterCache.Set(rosterCacheKey, entries, gocache.DefaultExpiration)
	return entries
}
