package game

import (
	"math/rand"

	"github.com/splashsrv/splashsrv/internal/packets"
)

// maxRoundPlayers is the number of player slots in the round setup packet.
const maxRoundPlayers = 50

func (srv *Server) handleGameStart(s *session, env packets.Envelope) error {
	s.mu.Lock()
	cid, room := s.cid, s.room
	s.mu.Unlock()
	if room == nil {
		return nil
	}

	if leader := room.Leader(); leader == nil || leader.CID != cid {
		srv.Logger.Infof("[%s] ignoring game start from non-leader cid %d", srv.Name, cid)
		return nil
	}

	players := room.StartRound()
	settings := room.Settings()

	start := &packets.GameStart{
		Mode:      settings.Mode,
		Rule:      settings.Stat.Rules,
		Time:      uint8(settings.Stat.TimeLimit),
		Member:    int8(len(players)),
		MemberMax: settings.Stat.MemberMax,
		Course:    settings.Stat.Course,
		Season:    settings.Stat.Season,
		Holes:     settings.Stat.Holes,
	}
	for i := range start.CID {
		start.CID[i] = -1
	}
	for i, p := range players {
		if i >= maxRoundPlayers {
			break
		}
		start.CID[i] = p.CID
	}

	holes := int(settings.Stat.Holes)
	if holes <= 0 || holes > len(start.HoleNumbers) {
		holes = len(start.HoleNumbers)
	}
	for i := 0; i < holes; i++ {
		start.HoleNumbers[i] = int8(i + 1)
		start.WindDirection[i] = int8(rand.Intn(8))
		start.WindPower[i] = int8(rand.Intn(9))
		start.CupPosition[i] = int8(rand.Intn(6))
	}

	// Every seated player moves into the round; spectators just watch.
	for _, p := range players {
		if target := srv.sessionByCID(p.CID); target != nil {
			target.setStage(stageInGame)
		}
	}

	srv.broadcast(room.Everyone(), -1, start)
	return nil
}

func (srv *Server) handleGameStartAck(s *session, env packets.Envelope) error {
	// The ack is part of the client's loading flow; nothing to track yet.
	return nil
}

// relayToRoom forwards a packet to the sender's roommates. When includeSelf
// is set the sender gets a copy too.
func (srv *Server) relayToRoom(s *session, includeSelf bool, pkt packets.Packet) error {
	s.mu.Lock()
	cid, room := s.cid, s.room
	s.mu.Unlock()
	if room == nil {
		return nil
	}

	except := cid
	if includeSelf {
		except = -1
	}
	srv.broadcast(room.Everyone(), except, pkt)
	return nil
}

func (srv *Server) handleClubSelect(s *session, env packets.Envelope) error {
	pkt := env.Packet.(*packets.ClubSelect)
	return srv.relayToRoom(s, false, &packets.ClubSync{CID: s.currentCID(), Club: pkt.Club})
}

func (srv *Server) handleShotDirection(s *session, env packets.Envelope) error {
	pkt := env.Packet.(*packets.ShotDirection)
	return srv.relayToRoom(s, false, &packets.ShotDirectionSync{CID: s.currentCID(), Direction: pkt.Direction})
}

func (srv *Server) handleShotData(s *session, env packets.Envelope) error {
	pkt := env.Packet.(*packets.ShotData)
	cid := s.currentCID()

	// The shooter owns the ball until it stops.
	if room := s.currentRoom(); room != nil {
		room.SetCurrentPlayer(cid)
	}

	return srv.relayToRoom(s, false, &packets.ShotSync{
		Clock:     pkt.Clock,
		CID:       cid,
		Direction: pkt.Direction,
		Power:     pkt.Power,
		Impact:    pkt.Impact,
		HitX:      pkt.HitX,
		HitY:      pkt.HitY,
		Club:      pkt.Club,
	})
}

func (srv *Server) handleLoadProgress(s *session, env packets.Envelope) error {
	pkt := env.Packet.(*packets.LoadProgress)
	return srv.relayToRoom(s, false, &packets.LoadProgressSync{CID: s.currentCID(), Progress: pkt.Progress})
}

func (srv *Server) handleLoadDetail(s *session, env packets.Envelope) error {
	pkt := env.Packet.(*packets.LoadDetail)
	return srv.relayToRoom(s, false, &packets.LoadDetailSync{CID: s.currentCID(), Progress: pkt.Progress})
}

func (srv *Server) handleBallPosition(s *session, env packets.Envelope) error {
	pkt := env.Packet.(*packets.BallPosition)
	return srv.relayToRoom(s, false, &packets.BallPositionSync{
		CID:  s.currentCID(),
		Hole: pkt.Hole,
		Stat: pkt.Stat,
		X:    pkt.X,
		Y:    pkt.Y,
		Z:    pkt.Z,
	})
}

func (srv *Server) handleBallStop(s *session, env packets.Envelope) error {
	pkt := env.Packet.(*packets.BallStop)
	cid := s.currentCID()

	room := s.currentRoom()
	if room == nil {
		return nil
	}

	// Only the player whose shot is in flight may settle the ball.
	if room.CurrentPlayer() != cid {
		srv.Logger.Infof("[%s] dropping ball stop from cid %d out of turn", srv.Name, cid)
		return nil
	}
	room.SetCurrentPlayer(-1)

	// Everyone sees the rest position, the shooter included.
	return srv.relayToRoom(s, true, &packets.BallStopSync{
		CID:  cid,
		Hole: pkt.Hole,
		Stat: pkt.Stat,
		X:    pkt.X,
		Y:    pkt.Y,
		Z:    pkt.Z,
	})
}
