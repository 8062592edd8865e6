package main

import (
	"bufio"
	"encoding/binary"
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/gopacket"

	"github.com/splashsrv/splashsrv/internal/packets"
)

var dumper = spew.ConfigState{Indent: "  ", DisableCapacities: true, DisablePointerAddresses: true}

type sniffer struct {
	Writer      *bufio.Writer
	serverPorts map[uint16]bool

	// Frames can be split across (or share) TCP segments, so payload bytes
	// are buffered per flow until a full frame is available.
	streams map[string][]byte
}

func (s *sniffer) startReading(packetChan chan gopacket.Packet) {
	s.streams = make(map[string][]byte)

	for packet := range packetChan {
		transport := packet.TransportLayer()
		app := packet.ApplicationLayer()
		if transport == nil || app == nil {
			continue
		}

		flow := transport.TransportFlow()
		srcPort := binary.BigEndian.Uint16(flow.Src().Raw())
		clientPacket := s.serverPorts[binary.BigEndian.Uint16(flow.Dst().Raw())]

		s.handlePayload(flow.String(), srcPort, clientPacket, app.Payload())
	}
}

func (s *sniffer) handlePayload(flow string, srcPort uint16, clientPacket bool, data []byte) {
	buffer := append(s.streams[flow], data...)

	// Drain every complete frame currently sitting in the flow's buffer.
	for {
		if len(buffer) < 2 {
			break
		}
		frameSize := int(binary.LittleEndian.Uint16(buffer))
		if len(buffer) < 2+frameSize {
			break
		}

		s.emitFrame(srcPort, clientPacket, buffer[2:2+frameSize])
		buffer = buffer[2+frameSize:]
	}

	s.streams[flow] = buffer
}

func (s *sniffer) emitFrame(srcPort uint16, clientPacket bool, frame []byte) {
	direction := "server -> client"
	if clientPacket {
		direction = "client -> server"
	}

	env, err := packets.Decode(frame)
	if err != nil && env.ID == 0 {
		fmt.Fprintf(s.Writer, "[%s] undecodable frame from port %d: %v\n", direction, srcPort, err)
		s.Writer.Flush()
		return
	}

	fmt.Fprintf(s.Writer, "[%s] %s (%d) pid=%d\n", direction, getPacketName(env.ID), env.ID, env.PID)
	if env.Packet != nil {
		fmt.Fprint(s.Writer, dumper.Sdump(env.Packet))
	}
	s.Writer.Flush()
}
