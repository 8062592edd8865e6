// Packet layouts for the lobby and game protocol.
//
// Every packet body starts with a four byte header (opcode and sequence
// number, both little-endian int16) followed by an opcode-specific payload.
// On the wire each body is preceded by a two byte little-endian length
// prefix, which is handled by the transport rather than this package.
package packets

import (
	"errors"
	"fmt"
)

const (
	// HeaderSize is the length of the opcode/sequence header at the start
	// of every packet body.
	HeaderSize = 4
	// MaxFrameSize is the largest body length expressible in the two byte
	// frame prefix.
	MaxFrameSize = 0xFFFF
)

// ErrUnknownOpcode is returned by Decode for opcodes this server does not
// implement. The remote side is authoritative about the protocol, so an
// unknown opcode is not a connection-fatal condition; callers are expected
// to log and drop the packet.
var ErrUnknownOpcode = errors.New("unknown opcode")

// Packet is the interface implemented by every decoded packet type.
type Packet interface {
	// ID returns the opcode identifying this packet's layout.
	ID() int16

	encodeTo(w *writer)
	decodeFrom(r *reader)
}

// Envelope is a decoded packet along with its header fields. PID is a
// per-connection sequence number; replies to request/response opcodes are
// expected to echo the PID of the request.
type Envelope struct {
	ID  int16
	PID int16
	Packet
}

// Decode parses a complete packet body. The ID and PID of the envelope are
// populated even when the opcode is unknown so callers can log them.
func Decode(body []byte) (Envelope, error) {
	r := &reader{data: body}
	id := r.int16()
	pid := r.int16()
	if r.err != nil {
		return Envelope{}, fmt.Errorf("header: %w", ErrTruncated)
	}

	newPacket, ok := packetTypes[id]
	if !ok {
		return Envelope{ID: id, PID: pid}, fmt.Errorf("%w: %d", ErrUnknownOpcode, id)
	}

	packet := newPacket()
	packet.decodeFrom(r)
	if r.err != nil {
		return Envelope{ID: id, PID: pid}, fmt.Errorf("opcode %d: %w", id, r.err)
	}
	return Envelope{ID: id, PID: pid, Packet: packet}, nil
}

// Marshal serializes a packet into a complete body ready for framing.
func Marshal(pid int16, packet Packet) []byte {
	w := &writer{buf: make([]byte, 0, 64)}
	w.int16(packet.ID())
	w.int16(pid)
	packet.encodeTo(w)
	return w.buf
}

// packetTypes maps each implemented opcode to a constructor for its layout.
// Opcodes absent from this table decode to ErrUnknownOpcode.
var packetTypes = map[int16]func() Packet{
	LoginRequestType:           func() Packet { return &LoginRequest{} },
	LoginResultType:            func() Packet { return &LoginResult{} },
	ServerListRequestType:      func() Packet { return &ServerListRequest{} },
	ServerEntryType:            func() Packet { return &ServerEntry{} },
	ServerListEndType:          func() Packet { return &ServerListEnd{} },
	GameLoginRequestType:       func() Packet { return &GameLoginRequest{} },
	PlayerDataType:             func() Packet { return &PlayerData{} },
	ModeChangeRequestType:      func() Packet { return &ModeChangeRequest{} },
	ModeChangeAckType:          func() Packet { return &ModeChangeAck{} },
	LobbyCountRequestType:      func() Packet { return &LobbyCountRequest{} },
	LobbyCountType:             func() Packet { return &LobbyCount{} },
	LobbyInfoRequestType:       func() Packet { return &LobbyInfoRequest{} },
	LobbyInfoType:              func() Packet { return &LobbyInfo{} },
	EnterLobbyRequestType:      func() Packet { return &EnterLobbyRequest{} },
	EnterLobbyResultType:       func() Packet { return &EnterLobbyResult{} },
	CreateRoomRequestType:      func() Packet { return &CreateRoomRequest{} },
	CreateRoomResultType:       func() Packet { return &CreateRoomResult{} },
	RoomListRequestType:        func() Packet { return &RoomListRequest{} },
	RoomListEntryType:          func() Packet { return &RoomListEntry{} },
	EnterRoomRequestType:       func() Packet { return &EnterRoomRequest{} },
	EnterRoomResultType:        func() Packet { return &EnterRoomResult{} },
	RoomMemberRequestType:      func() Packet { return &RoomMemberRequest{} },
	RoomMemberType:             func() Packet { return &RoomMember{} },
	LeaveRoomRequestType:       func() Packet { return &LeaveRoomRequest{} },
	LeaveRoomResultType:        func() Packet { return &LeaveRoomResult{} },
	PlayerStatusType:           func() Packet { return &PlayerStatus{} },
	UpdateRoomRequestType:      func() Packet { return &UpdateRoomRequest{} },
	UpdateRoomResultType:       func() Packet { return &UpdateRoomResult{} },
	RoomStatusType:             func() Packet { return &RoomStatus{} },
	GameStartRequestType:       func() Packet { return &GameStartRequest{} },
	GameStartType:              func() Packet { return &GameStart{} },
	GameStartAckType:           func() Packet { return &GameStartAck{} },
	ClubSelectType:             func() Packet { return &ClubSelect{} },
	ClubSyncType:               func() Packet { return &ClubSync{} },
	ShotDirectionType:          func() Packet { return &ShotDirection{} },
	ShotDirectionSyncType:      func() Packet { return &ShotDirectionSync{} },
	ShotDataType:               func() Packet { return &ShotData{} },
	ShotSyncType:               func() Packet { return &ShotSync{} },
	LoadProgressType:           func() Packet { return &LoadProgress{} },
	LoadProgressSyncType:       func() Packet { return &LoadProgressSync{} },
	LoadDetailType:             func() Packet { return &LoadDetail{} },
	LoadDetailSyncType:         func() Packet { return &LoadDetailSync{} },
	BallPositionType:           func() Packet { return &BallPosition{} },
	BallPositionSyncType:       func() Packet { return &BallPositionSync{} },
	BallStopType:               func() Packet { return &BallStop{} },
	BallStopSyncType:           func() Packet { return &BallStopSync{} },
	LobbyMemberRequestType:     func() Packet { return &LobbyMemberRequest{} },
	LobbyMemberType:            func() Packet { return &LobbyMember{} },
	TransferOwnerRequestType:   func() Packet { return &TransferOwnerRequest{} },
	TransferOwnerAnswerType:    func() Packet { return &TransferOwnerAnswer{} },
	OwnerChangedType:           func() Packet { return &OwnerChanged{} },
	KickMemberRequestType:      func() Packet { return &KickMemberRequest{} },
	KickMemberResultType:       func() Packet { return &KickMemberResult{} },
	MemberKickedType:           func() Packet { return &MemberKicked{} },
	PingRequestType:            func() Packet { return &PingRequest{} },
	PingReplyType:              func() Packet { return &PingReply{} },
	KeepAliveType:              func() Packet { return &KeepAlive{} },
	KeepAliveAckType:           func() Packet { return &KeepAliveAck{} },
	MemberListEndType:          func() Packet { return &MemberListEnd{} },
}

// Status is a generic success/failure result used by several acks.
type Status int8

const (
	StatusOK  Status = 0
	StatusErr Status = -1
)

// Mode identifies which portion of the multiplayer flow a player is in.
// Values outside the named set are carried through untouched; the client
// decides what they mean.
type Mode int8

const (
	ModeNone        Mode = -1
	ModeMain        Mode = 0
	ModeVS          Mode = 1
	ModeCompetition Mode = 2
	ModeQuick       Mode = 3
	ModeSingle      Mode = 5
)

// Element is a player's assigned color group.
type Element int8

const (
	ElementNone   Element = -1
	ElementBlue   Element = 0
	ElementRed    Element = 1
	ElementGreen  Element = 2
	ElementYellow Element = 3
	ElementPink   Element = 4
)

// Player status flags carried by PlayerStatus packets.
const (
	StatReady   uint32 = 0x01
	StatExit    uint32 = 0x02
	StatGallery uint32 = 0x04
	StatRound   uint32 = 0x08
	StatAFK     uint32 = 0x10
	StatBusy    uint32 = 0x20
)

// Item is an item code. The category lives in the upper bits and an index
// within the category in the low 11 bits.
type Item uint32

// CountedItem packs an item code and a quantity into a single word.
type CountedItem uint32

// MakeCountedItem combines an item code with a count (low 10 bits).
func MakeCountedItem(item Item, count uint32) CountedItem {
	return CountedItem(uint32(item)<<10 | count&0x3FF)
}

func (c CountedItem) Item() Item    { return Item(c >> 10) }
func (c CountedItem) Count() uint32 { return uint32(c) & 0x3FF }
