package game

import (
	"sync"

	"github.com/splashsrv/splashsrv/internal/core/client"
	"github.com/splashsrv/splashsrv/internal/core/data"
	"github.com/splashsrv/splashsrv/internal/game/lobby"
	"github.com/splashsrv/splashsrv/internal/packets"
)

// stage is where a session sits in the connection lifecycle. Packets are
// only dispatched to handlers registered for the session's current stage.
type stage int

const (
	stageUnauthenticated stage = iota
	stageLobby
	stageInRoom
	stageInGame
	stageTerminated
)

func (st stage) String() string {
	switch st {
	case stageUnauthenticated:
		return "unauthenticated"
	case stageLobby:
		return "lobby"
	case stageInRoom:
		return "in-room"
	case stageInGame:
		return "in-game"
	case stageTerminated:
		return "terminated"
	}
	return "unknown"
}

// stageMask is a set of stages a handler accepts.
type stageMask uint8

const (
	maskUnauthenticated = stageMask(1 << stageUnauthenticated)
	maskLobby           = stageMask(1 << stageLobby)
	maskInRoom          = stageMask(1 << stageInRoom)
	maskInGame          = stageMask(1 << stageInGame)

	maskAuthenticated = maskLobby | maskInRoom | maskInGame
)

func (m stageMask) allows(st stage) bool {
	return st != stageTerminated && m&(1<<st) != 0
}

// session is the per-connection state for the game server. Fields are
// guarded by mu; handlers run on the connection's read goroutine but kicks
// and disconnects touch sessions from other goroutines.
type session struct {
	client *client.Client

	mu      sync.Mutex
	account *data.Account
	stage   stage
	cid     int32
	uid     uint64
	mode    packets.Mode
	lobby   *lobby.Lobby
	room    *lobby.Room
	member  *lobby.Member
	pingSeq int16
}

func (s *session) currentStage() stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

func (s *session) setStage(st stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != stageTerminated {
		s.stage = st
	}
}

func (s *session) currentLobby() *lobby.Lobby {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lobby
}

func (s *session) currentRoom() *lobby.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

func (s *session) currentCID() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cid
}

func (s *session) nextPingSeq() int16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingSeq++
	return s.pingSeq
}

// dispatchEntry pairs a handler with the stages it may run in.
type dispatchEntry struct {
	stages stageMask
	handle func(srv *Server, s *session, env packets.Envelope) error
}

// dispatchTable routes packets by opcode. Opcodes absent from this table
// (or arriving in the wrong stage) are logged and dropped; a client can
// never crash the server by sending something unexpected.
var dispatchTable = map[int16]dispatchEntry{
	packets.GameLoginRequestType:     {maskUnauthenticated, (*Server).handleGameLogin},
	packets.ModeChangeRequestType:    {maskLobby, (*Server).handleModeChange},
	packets.LobbyCountRequestType:    {maskLobby, (*Server).handleLobbyCount},
	packets.LobbyInfoRequestType:     {maskLobby, (*Server).handleLobbyInfo},
	packets.EnterLobbyRequestType:    {maskLobby, (*Server).handleEnterLobby},
	packets.CreateRoomRequestType:    {maskLobby, (*Server).handleCreateRoom},
	packets.RoomListRequestType:      {maskLobby, (*Server).handleRoomList},
	packets.EnterRoomRequestType:     {maskLobby, (*Server).handleEnterRoom},
	packets.RoomMemberRequestType:    {maskLobby | maskInRoom, (*Server).handleRoomMembers},
	packets.LobbyMemberRequestType:   {maskLobby | maskInRoom, (*Server).handleLobbyMembers},
	packets.LeaveRoomRequestType:     {maskInRoom | maskInGame, (*Server).handleLeaveRoom},
	packets.PlayerStatusType:         {maskAuthenticated, (*Server).handlePlayerStatus},
	packets.UpdateRoomRequestType:    {maskInRoom, (*Server).handleUpdateRoom},
	packets.GameStartRequestType:     {maskInRoom, (*Server).handleGameStart},
	packets.GameStartAckType:         {maskInGame, (*Server).handleGameStartAck},
	packets.ClubSelectType:           {maskInGame, (*Server).handleClubSelect},
	packets.ShotDirectionType:        {maskInGame, (*Server).handleShotDirection},
	packets.ShotDataType:             {maskInGame, (*Server).handleShotData},
	packets.LoadProgressType:         {maskInGame, (*Server).handleLoadProgress},
	packets.LoadDetailType:           {maskInGame, (*Server).handleLoadDetail},
	packets.BallPositionType:         {maskInGame, (*Server).handleBallPosition},
	packets.BallStopType:             {maskInGame, (*Server).handleBallStop},
	packets.TransferOwnerRequestType: {maskInRoom, (*Server).handleTransferOwner},
	packets.TransferOwnerAnswerType:  {maskInRoom, (*Server).handleTransferOwnerAnswer},
	packets.KickMemberRequestType:    {maskInRoom, (*Server).handleKickMember},
	packets.PingRequestType:          {maskAuthenticated, (*Server).handlePing},
	packets.KeepAliveType:            {maskUnauthenticated | maskAuthenticated, (*Server).handleKeepAlive},
}
