package game

import (
	"errors"
	"time"

	"github.com/splashsrv/splashsrv/internal/core/auth"
	"github.com/splashsrv/splashsrv/internal/core/data"
	"github.com/splashsrv/splashsrv/internal/game/lobby"
	"github.com/splashsrv/splashsrv/internal/packets"
)

func (srv *Server) handleGameLogin(s *session, env packets.Envelope) error {
	pkt := env.Packet.(*packets.GameLoginRequest)

	code, account := srv.checkGameCredentials(pkt)
	if code != packets.LoginOK {
		srv.Logger.Infof("[%s] rejected game login for %q from %s (code %d)",
			srv.Name, pkt.Username, s.client.IPAddr(), code)
		return s.client.SendWithPID(env.PID, &packets.PlayerData{CID: int32(code)})
	}

	cid, ok := srv.allocateCID(s)
	if !ok {
		srv.Logger.Warnf("[%s] connection ID space exhausted, rejecting %q", srv.Name, pkt.Username)
		return s.client.SendWithPID(env.PID, &packets.PlayerData{CID: int32(packets.LoginBadID)})
	}

	member := lobby.NewMember(cid, int32(account.ID), account.Name, s.client)
	member.Element = packets.Element(account.ID % 5)
	member.Circle = -1

	s.mu.Lock()
	s.account = account
	s.cid = cid
	s.uid = account.ID
	s.member = member
	s.stage = stageLobby
	s.mu.Unlock()

	srv.mu.Lock()
	srv.byUID[account.ID] = s
	srv.mu.Unlock()

	s.client.Account = account
	srv.Logger.Infof("[%s] %s online as cid %d", srv.Name, account.Username, cid)

	reg := account.RegistrationDate
	return s.client.SendWithPID(env.PID, &packets.PlayerData{
		CID:     cid,
		UID:     member.UID,
		Name:    account.Name,
		Element: member.Element,
		Year:    int16(reg.Year()),
		Month:   int8(reg.Month()),
		Day:     int8(reg.Day()),
	})
}

// checkGameCredentials re-validates the credentials the client already
// presented to the login server; the game server trusts nothing it did not
// verify itself.
func (srv *Server) checkGameCredentials(pkt *packets.GameLoginRequest) (packets.LoginResultCode, *data.Account) {
	if pkt.Username == "" {
		return packets.LoginBadID, nil
	}
	if pkt.Password == "" {
		return packets.LoginBadPassword, nil
	}
	if pkt.Version != packets.ClientVersion {
		return packets.LoginBadVersion, nil
	}

	account, err := data.FindAccountByUsername(srv.DB, pkt.Username)
	if err != nil {
		srv.Logger.Warnf("[%s] error looking up account %q: %v", srv.Name, pkt.Username, err)
		return packets.LoginInvalidAccount, nil
	}
	if account == nil {
		return packets.LoginInvalidAccount, nil
	}

	if _, err := auth.VerifyAccount(srv.DB, pkt.Username, pkt.Password); err != nil {
		switch {
		case errors.Is(err, auth.ErrAccountBanned):
			return packets.LoginBanned, nil
		case errors.Is(err, auth.ErrInvalidCredentials):
			return packets.LoginBadPassword, nil
		default:
			return packets.LoginInvalidAccount, nil
		}
	}

	if srv.IsOnline(account.ID) {
		return packets.LoginAlreadyOnline, nil
	}

	return packets.LoginOK, account
}

func (srv *Server) handleModeChange(s *session, env packets.Envelope) error {
	pkt := env.Packet.(*packets.ModeChangeRequest)

	// Switching modes always ejects the player from their current lobby.
	srv.leaveLobby(s)

	s.mu.Lock()
	s.mode = pkt.Mode
	s.mu.Unlock()

	return s.client.SendWithPID(env.PID, &packets.ModeChangeAck{Mode: pkt.Mode})
}

func (srv *Server) handleLobbyCount(s *session, env packets.Envelope) error {
	s.mu.Lock()
	mode := s.mode
	s.mu.Unlock()

	return s.client.SendWithPID(env.PID, &packets.LobbyCount{Count: srv.registry.Count(mode)})
}

func (srv *Server) handleLobbyInfo(s *session, env packets.Envelope) error {
	pkt := env.Packet.(*packets.LobbyInfoRequest)

	l, ok := srv.registry.Lobby(pkt.Mode, pkt.Index)
	if !ok {
		return s.client.SendWithPID(env.PID, &packets.LobbyInfo{Num: -1, Mode: pkt.Mode})
	}
	info := l.Info()
	return s.client.SendWithPID(env.PID, &info)
}

func (srv *Server) handleEnterLobby(s *session, env packets.Envelope) error {
	pkt := env.Packet.(*packets.EnterLobbyRequest)

	s.mu.Lock()
	mode, member := s.mode, s.member
	s.mu.Unlock()

	l, ok := srv.registry.Lobby(mode, pkt.Lobby)
	if !ok {
		return s.client.SendWithPID(env.PID, &packets.EnterLobbyResult{Lobby: -1})
	}

	// Moving between lobbies implies leaving the old one first.
	srv.leaveLobby(s)

	others, err := l.Join(member)
	if err != nil {
		return s.client.SendWithPID(env.PID, &packets.EnterLobbyResult{Lobby: -1})
	}

	s.mu.Lock()
	s.lobby = l
	s.mu.Unlock()

	if err := s.client.SendWithPID(env.PID, &packets.EnterLobbyResult{Lobby: l.Num()}); err != nil {
		return err
	}

	srv.broadcast(others, -1, &packets.LobbyMember{Member: lobbyMemberInfo(member, l)})
	return nil
}

func (srv *Server) handleCreateRoom(s *session, env packets.Envelope) error {
	pkt := env.Packet.(*packets.CreateRoomRequest)

	s.mu.Lock()
	l, member := s.lobby, s.member
	s.mu.Unlock()
	if l == nil {
		return s.client.SendWithPID(env.PID, &packets.CreateRoomResult{Room: -1})
	}

	settings := pkt.Settings
	if settings.Stat.MemberMax < 1 {
		settings.Stat.MemberMax = 1
	} else if int(settings.Stat.MemberMax) > maxRoundPlayers {
		settings.Stat.MemberMax = int8(maxRoundPlayers)
	}

	room, err := l.CreateRoom(settings, member)
	if err != nil {
		return s.client.SendWithPID(env.PID, &packets.CreateRoomResult{Room: -1})
	}

	s.mu.Lock()
	s.room = room
	s.stage = stageInRoom
	s.mu.Unlock()

	if err := s.client.SendWithPID(env.PID, &packets.CreateRoomResult{Room: room.Number()}); err != nil {
		return err
	}

	srv.broadcast(l.Members(), member.CID, &packets.RoomListEntry{Settings: room.Settings()})
	return nil
}

func (srv *Server) handleRoomList(s *session, env packets.Envelope) error {
	l := s.currentLobby()
	if l == nil {
		return nil
	}

	for _, room := range l.Rooms() {
		if err := s.client.SendWithPID(env.PID, &packets.RoomListEntry{Settings: room.Settings()}); err != nil {
			return err
		}
	}
	return nil
}

func (srv *Server) handleEnterRoom(s *session, env packets.Envelope) error {
	pkt := env.Packet.(*packets.EnterRoomRequest)

	s.mu.Lock()
	l, member := s.lobby, s.member
	s.mu.Unlock()
	if l == nil {
		return sendEnterRoomError(s, env.PID, -1)
	}

	room, ok := l.Room(pkt.Room)
	if !ok {
		return sendEnterRoomError(s, env.PID, -1)
	}

	if err := room.Join(member, pkt.Password, pkt.Spectate); err != nil {
		code := int8(-1)
		if errors.Is(err, lobby.ErrWrongPassword) {
			code = -3
		}
		return sendEnterRoomError(s, env.PID, code)
	}

	if pkt.Spectate {
		member.AddStat(packets.StatGallery)
	}

	s.mu.Lock()
	s.room = room
	s.stage = stageInRoom
	s.mu.Unlock()

	if err := s.client.SendWithPID(env.PID, &packets.EnterRoomResult{Settings: room.Settings()}); err != nil {
		return err
	}

	srv.broadcast(room.Everyone(), member.CID, &packets.RoomMember{Member: srv.roomMemberInfo(member, l)})
	return nil
}

// The error variant of the enter-room reply carries the failure code in the
// room number of an otherwise empty settings block.
func sendEnterRoomError(s *session, pid int16, code int8) error {
	return s.client.SendWithPID(pid, &packets.EnterRoomResult{
		Settings: packets.RoomSettings{Stat: packets.RoomStat{Room: code}},
	})
}

func (srv *Server) handleRoomMembers(s *session, env packets.Envelope) error {
	pkt := env.Packet.(*packets.RoomMemberRequest)

	l, ok := srv.registry.Lobby(pkt.Mode, pkt.Lobby)
	if !ok {
		return s.client.SendWithPID(env.PID, &packets.MemberListEnd{Result: packets.StatusErr})
	}
	room, ok := l.Room(pkt.Room)
	if !ok {
		return s.client.SendWithPID(env.PID, &packets.MemberListEnd{Result: packets.StatusErr})
	}

	for _, m := range room.Players() {
		if err := s.client.SendWithPID(env.PID, &packets.RoomMember{Member: srv.roomMemberInfo(m, l)}); err != nil {
			return err
		}
	}
	return s.client.SendWithPID(env.PID, &packets.MemberListEnd{Result: packets.StatusOK})
}

func (srv *Server) handleLobbyMembers(s *session, env packets.Envelope) error {
	pkt := env.Packet.(*packets.LobbyMemberRequest)

	l, ok := srv.registry.Lobby(pkt.Mode, pkt.Lobby)
	if !ok {
		return s.client.SendWithPID(env.PID, &packets.MemberListEnd{Result: packets.StatusErr})
	}

	for _, m := range l.Members() {
		if err := s.client.SendWithPID(env.PID, &packets.LobbyMember{Member: lobbyMemberInfo(m, l)}); err != nil {
			return err
		}
	}
	return s.client.SendWithPID(env.PID, &packets.MemberListEnd{Result: packets.StatusOK})
}

func (srv *Server) handleLeaveRoom(s *session, env packets.Envelope) error {
	srv.leaveRoom(s)
	s.setStage(stageLobby)
	return s.client.SendWithPID(env.PID, &packets.LeaveRoomResult{Result: packets.StatusOK})
}

func (srv *Server) handlePlayerStatus(s *session, env packets.Envelope) error {
	pkt := env.Packet.(*packets.PlayerStatus)

	s.mu.Lock()
	cid, uid, l, member := s.cid, s.uid, s.lobby, s.member
	s.mu.Unlock()

	// Clients may only announce their own status.
	if pkt.CID != cid || pkt.UID != int32(uid) {
		srv.Logger.Infof("[%s] dropping status spoofing cid %d from cid %d", srv.Name, pkt.CID, cid)
		return nil
	}
	if l == nil {
		return nil
	}

	member.SetStat(pkt.Stat)
	srv.broadcast(l.Members(), cid, pkt)
	return nil
}

func (srv *Server) handleUpdateRoom(s *session, env packets.Envelope) error {
	pkt := env.Packet.(*packets.UpdateRoomRequest)

	s.mu.Lock()
	cid, room := s.cid, s.room
	s.mu.Unlock()
	if room == nil {
		return s.client.SendWithPID(env.PID, &packets.UpdateRoomResult{Result: packets.StatusErr})
	}

	if leader := room.Leader(); leader == nil || leader.CID != cid {
		return s.client.SendWithPID(env.PID, &packets.UpdateRoomResult{Result: packets.StatusErr})
	}

	settings := room.Update(pkt.Settings)
	if err := s.client.SendWithPID(env.PID, &packets.UpdateRoomResult{Result: packets.StatusOK}); err != nil {
		return err
	}

	srv.broadcast(room.Everyone(), -1, &packets.RoomStatus{Stat: settings.Stat})
	return nil
}

func (srv *Server) handleTransferOwner(s *session, env packets.Envelope) error {
	pkt := env.Packet.(*packets.TransferOwnerRequest)

	s.mu.Lock()
	cid, room := s.cid, s.room
	s.mu.Unlock()
	if room == nil {
		return nil
	}

	if leader := room.Leader(); leader == nil || leader.CID != cid {
		srv.Logger.Infof("[%s] ignoring owner transfer from non-leader cid %d", srv.Name, cid)
		return nil
	}
	if err := room.TransferLeadership(pkt.CID); err != nil {
		srv.Logger.Infof("[%s] owner transfer to missing cid %d", srv.Name, pkt.CID)
		return nil
	}

	srv.broadcast(room.Everyone(), -1, &packets.OwnerChanged{CID: pkt.CID})
	return nil
}

func (srv *Server) handleTransferOwnerAnswer(s *session, env packets.Envelope) error {
	// The answer packet exists for client UI flow; the transfer itself has
	// already been applied.
	return nil
}

func (srv *Server) handleKickMember(s *session, env packets.Envelope) error {
	pkt := env.Packet.(*packets.KickMemberRequest)

	s.mu.Lock()
	cid, room := s.cid, s.room
	s.mu.Unlock()
	if room == nil {
		return s.client.SendWithPID(env.PID, &packets.KickMemberResult{Result: packets.StatusErr})
	}

	leader := room.Leader()
	if leader == nil || leader.CID != cid || pkt.CID == cid {
		return s.client.SendWithPID(env.PID, &packets.KickMemberResult{Result: packets.StatusErr})
	}
	if _, ok := room.Player(pkt.CID); !ok {
		return s.client.SendWithPID(env.PID, &packets.KickMemberResult{Result: packets.StatusErr})
	}

	// Snapshot before removal so the kicked player hears about it too.
	audience := room.Everyone()
	room.Leave(pkt.CID)

	if target := srv.sessionByCID(pkt.CID); target != nil {
		target.mu.Lock()
		target.room = nil
		if target.stage == stageInRoom || target.stage == stageInGame {
			target.stage = stageLobby
		}
		target.mu.Unlock()
	}

	srv.broadcast(audience, -1, &packets.MemberKicked{CID: pkt.CID})
	return s.client.SendWithPID(env.PID, &packets.KickMemberResult{Result: packets.StatusOK})
}

func (srv *Server) handlePing(s *session, env packets.Envelope) error {
	return s.client.SendWithPID(env.PID, &packets.PingReply{
		Time: time.Now().UnixMilli(),
		Seq:  s.nextPingSeq(),
	})
}

func (srv *Server) handleKeepAlive(s *session, env packets.Envelope) error {
	pkt := env.Packet.(*packets.KeepAlive)
	return s.client.SendWithPID(env.PID, &packets.KeepAliveAck{Token: pkt.Token})
}

func (srv *Server) sessionByCID(cid int32) *session {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return srv.byCID[cid]
}

// leaveLobby removes the session's member from its lobby and lets the rest
// of the lobby know they're gone.
func (srv *Server) leaveLobby(s *session) {
	s.mu.Lock()
	l, member := s.lobby, s.member
	s.lobby = nil
	s.mu.Unlock()
	if l == nil || member == nil {
		return
	}

	l.Leave(member.CID)
	srv.broadcast(l.Members(), member.CID, &packets.PlayerStatus{
		CID:  member.CID,
		UID:  member.UID,
		Stat: member.Stat() | packets.StatExit,
	})
}

// leaveRoom removes the session's member from its room, promoting a new
// leader or deleting the room as needed.
func (srv *Server) leaveRoom(s *session) {
	s.mu.Lock()
	room, l, member := s.room, s.lobby, s.member
	s.room = nil
	s.mu.Unlock()
	if room == nil || member == nil {
		return
	}

	newLeader, empty := room.Leave(member.CID)
	if empty {
		if l != nil {
			l.DeleteRoomIfEmpty(room)
		}
		return
	}

	if newLeader != nil {
		srv.broadcast(room.Everyone(), -1, &packets.OwnerChanged{CID: newLeader.CID})
	}
	srv.broadcast(room.Everyone(), -1, &packets.RoomStatus{Stat: room.Settings().Stat})
}

func (srv *Server) roomMemberInfo(m *lobby.Member, l *lobby.Lobby) packets.MemberInfo {
	return packets.MemberInfo{
		CID:          m.CID,
		UID:          m.UID,
		Stat:         uint16(m.Stat()),
		Team:         m.Team(),
		Mode:         l.Mode(),
		Lobby:        l.Num(),
		Room:         m.Room(),
		Class:        m.Class,
		Element:      m.Element,
		Title:        m.Title,
		ServerNumber: int8(srv.Config.GameServer.Number),
		Circle:       m.Circle,
		Name:         m.Name,
	}
}

func lobbyMemberInfo(m *lobby.Member, l *lobby.Lobby) packets.LobbyMemberInfo {
	return packets.LobbyMemberInfo{
		CID:     m.CID,
		UID:     m.UID,
		Stat:    uint16(m.Stat()),
		Team:    m.Team(),
		Mode:    l.Mode(),
		Lobby:   l.Num(),
		Room:    m.Room(),
		Class:   m.Class,
		Element: m.Element,
		Title:   m.Title,
		Circle:  m.Circle,
		Name:    m.Name,
	}
}
