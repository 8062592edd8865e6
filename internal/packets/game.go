// Packets exchanged with the game server.
package packets

// Opcodes handled by the game endpoint.
const (
	GameLoginRequestType     = 6
	PlayerDataType           = 7
	ModeChangeRequestType    = 8
	ModeChangeAckType        = 9
	LobbyCountRequestType    = 10
	LobbyCountType           = 11
	LobbyInfoRequestType     = 12
	LobbyInfoType            = 13
	EnterLobbyRequestType    = 14
	EnterLobbyResultType     = 15
	CreateRoomRequestType    = 16
	CreateRoomResultType     = 17
	RoomListRequestType      = 18
	RoomListEntryType        = 19
	EnterRoomRequestType     = 20
	EnterRoomResultType      = 21
	RoomMemberRequestType    = 22
	RoomMemberType           = 23
	LeaveRoomRequestType     = 24
	LeaveRoomResultType      = 25
	PlayerStatusType         = 26
	UpdateRoomRequestType    = 28
	UpdateRoomResultType     = 29
	RoomStatusType           = 30
	GameStartRequestType     = 31
	GameStartType            = 32
	ClubSelectType           = 33
	ClubSyncType             = 34
	ShotDirectionType        = 35
	ShotDirectionSyncType    = 36
	ShotDataType             = 37
	ShotSyncType             = 38
	LoadProgressType         = 44
	LoadProgressSyncType     = 45
	BallPositionType         = 46
	BallPositionSyncType     = 47
	LobbyMemberRequestType   = 87
	LobbyMemberType          = 88
	LoadDetailType           = 185
	LoadDetailSyncType       = 186
	GameStartAckType         = 187
	TransferOwnerRequestType = 216
	TransferOwnerAnswerType  = 217
	OwnerChangedType         = 218
	KickMemberRequestType    = 219
	KickMemberResultType     = 220
	MemberKickedType         = 221
	PingRequestType          = 229
	PingReplyType            = 230
	BallStopType             = 234
	BallStopSyncType         = 235
	KeepAliveType            = 250
	KeepAliveAckType         = 251
	MemberListEndType        = 307
)

// Room flag bits carried in RoomStat.Flag.
const (
	RoomFlagInRound    = 1
	RoomFlagSpectators = 2
	RoomFlagPassword   = 4
)

// GameLoginRequest re-sends the credentials when the client connects to a
// game server after being redirected by the login server.
type GameLoginRequest struct {
	Username string // 17 bytes ASCII
	Password string // 17 bytes ASCII
	Version  uint16
}

func (p *GameLoginRequest) ID() int16 { return GameLoginRequestType }

func (p *GameLoginRequest) encodeTo(w *writer) {
	w.astring(p.Username, 17)
	w.astring(p.Password, 17)
	w.uint16(p.Version)
}

func (p *GameLoginRequest) decodeFrom(r *reader) {
	p.Username = r.astring(17)
	p.Password = r.astring(17)
	p.Version = r.uint16()
}

// PlayerData answers a GameLoginRequest. On failure the CID field carries
// the (negative) LoginResultCode and the rest of the packet is zero.
//
// The four rank fields share one little-endian word, five bits each
// starting from bit 0; the top twelve bits are unused.
type PlayerData struct {
	CID              int32
	UID              int32
	CharacterID      int32
	Golfbag          [8]Item
	Holdbox          [8]Item
	Medals           [4][4]int16
	Awards           [20]int32
	RankScoreItemOn  int16
	RankScoreItemOff int16
	MasterPoints     int32
	Year             int16
	Month            int8
	Day              int8
	Name             string // 19 UTF-16 units
	Element          Element
	Class            int8
	RankItemOn       uint8 // 5 bits
	RankItemOff      uint8 // 5 bits
	BestRankItemOn   uint8 // 5 bits
	BestRankItemOff  uint8 // 5 bits
	Flags            uint32
	Debug            bool
}

func (p *PlayerData) ID() int16 { return PlayerDataType }

func (p *PlayerData) encodeTo(w *writer) {
	w.int32(p.CID)
	w.int32(p.UID)
	w.int32(p.CharacterID)
	for _, item := range p.Golfbag {
		w.uint32(uint32(item))
	}
	for _, item := range p.Holdbox {
		w.uint32(uint32(item))
	}
	for _, row := range p.Medals {
		for _, m := range row {
			w.int16(m)
		}
	}
	for _, a := range p.Awards {
		w.int32(a)
	}
	w.int16(p.RankScoreItemOn)
	w.int16(p.RankScoreItemOff)
	w.int32(p.MasterPoints)
	w.int16(p.Year)
	w.int8(p.Month)
	w.int8(p.Day)
	w.wstring(p.Name, 19)
	w.int8(int8(p.Element))
	w.int8(p.Class)

	var ranks uint32
	ranks = setBits(ranks, uint32(p.RankItemOn), 0, 5)
	ranks = setBits(ranks, uint32(p.RankItemOff), 5, 5)
	ranks = setBits(ranks, uint32(p.BestRankItemOn), 10, 5)
	ranks = setBits(ranks, uint32(p.BestRankItemOff), 15, 5)
	w.uint32(ranks)

	w.uint32(p.Flags)
	if p.Debug {
		w.uint8(1)
	} else {
		w.uint8(0)
	}
}

func (p *PlayerData) decodeFrom(r *reader) {
	p.CID = r.int32()
	p.UID = r.int32()
	p.CharacterID = r.int32()
	for i := range p.Golfbag {
		p.Golfbag[i] = Item(r.uint32())
	}
	for i := range p.Holdbox {
		p.Holdbox[i] = Item(r.uint32())
	}
	for i := range p.Medals {
		for j := range p.Medals[i] {
			p.Medals[i][j] = r.int16()
		}
	}
	for i := range p.Awards {
		p.Awards[i] = r.int32()
	}
	p.RankScoreItemOn = r.int16()
	p.RankScoreItemOff = r.int16()
	p.MasterPoints = r.int32()
	p.Year = r.int16()
	p.Month = r.int8()
	p.Day = r.int8()
	p.Name = r.wstring(19)
	p.Element = Element(r.int8())
	p.Class = r.int8()

	ranks := r.uint32()
	p.RankItemOn = uint8(getBits(ranks, 0, 5))
	p.RankItemOff = uint8(getBits(ranks, 5, 5))
	p.BestRankItemOn = uint8(getBits(ranks, 10, 5))
	p.BestRankItemOff = uint8(getBits(ranks, 15, 5))

	p.Flags = r.uint32()
	p.Debug = r.uint8() != 0
}

// ModeChangeRequest asks to move to a different part of the multiplayer flow.
type ModeChangeRequest struct {
	Mode Mode
}

func (p *ModeChangeRequest) ID() int16            { return ModeChangeRequestType }
func (p *ModeChangeRequest) encodeTo(w *writer)   { w.int8(int8(p.Mode)) }
func (p *ModeChangeRequest) decodeFrom(r *reader) { p.Mode = Mode(r.int8()) }

// ModeChangeAck confirms the mode the player is now in.
type ModeChangeAck struct {
	Mode Mode
}

func (p *ModeChangeAck) ID() int16            { return ModeChangeAckType }
func (p *ModeChangeAck) encodeTo(w *writer)   { w.int8(int8(p.Mode)) }
func (p *ModeChangeAck) decodeFrom(r *reader) { p.Mode = Mode(r.int8()) }

// LobbyCountRequest asks how many lobbies exist for the player's mode.
type LobbyCountRequest struct{}

func (p *LobbyCountRequest) ID() int16          { return LobbyCountRequestType }
func (p *LobbyCountRequest) encodeTo(*writer)   {}
func (p *LobbyCountRequest) decodeFrom(*reader) {}

// LobbyCount answers a LobbyCountRequest.
type LobbyCount struct {
	Count int8
}

func (p *LobbyCount) ID() int16            { return LobbyCountType }
func (p *LobbyCount) encodeTo(w *writer)   { w.int8(p.Count) }
func (p *LobbyCount) decodeFrom(r *reader) { p.Count = r.int8() }

// LobbyInfoRequest asks for the details of a single lobby.
type LobbyInfoRequest struct {
	Index int8
	Mode  Mode
}

func (p *LobbyInfoRequest) ID() int16 { return LobbyInfoRequestType }

func (p *LobbyInfoRequest) encodeTo(w *writer) {
	w.int8(p.Index)
	w.int8(int8(p.Mode))
}

func (p *LobbyInfoRequest) decodeFrom(r *reader) {
	p.Index = r.int8()
	p.Mode = Mode(r.int8())
}

// LobbyInfo describes a lobby for the selection screen.
type LobbyInfo struct {
	Num       int8
	MemberMax int16
	Member    int16
	Name      string // 17 UTF-16 units
	Reserved  [32]byte
	Mode      Mode
}

func (p *LobbyInfo) ID() int16 { return LobbyInfoType }

func (p *LobbyInfo) encodeTo(w *writer) {
	w.int8(p.Num)
	w.int16(p.MemberMax)
	w.int16(p.Member)
	w.wstring(p.Name, 17)
	w.bytes(p.Reserved[:])
	w.int8(int8(p.Mode))
}

func (p *LobbyInfo) decodeFrom(r *reader) {
	p.Num = r.int8()
	p.MemberMax = r.int16()
	p.Member = r.int16()
	p.Name = r.wstring(17)
	copy(p.Reserved[:], r.bytes(32))
	p.Mode = Mode(r.int8())
}

// EnterLobbyRequest asks to join a lobby by index.
type EnterLobbyRequest struct {
	Lobby int8
}

func (p *EnterLobbyRequest) ID() int16            { return EnterLobbyRequestType }
func (p *EnterLobbyRequest) encodeTo(w *writer)   { w.int8(p.Lobby) }
func (p *EnterLobbyRequest) decodeFrom(r *reader) { p.Lobby = r.int8() }

// EnterLobbyResult echoes the joined lobby index, or -1 if it was full.
type EnterLobbyResult struct {
	Lobby int8
}

func (p *EnterLobbyResult) ID() int16            { return EnterLobbyResultType }
func (p *EnterLobbyResult) encodeTo(w *writer)   { w.int8(p.Lobby) }
func (p *EnterLobbyResult) decodeFrom(r *reader) { p.Lobby = r.int8() }

// RoomStat is the packed room state block shared by several packets.
//
// The eight Limits values share one little-endian word, four bits each
// starting from bit 0. The remaining restriction fields share a second
// word: LimitA at bit 0, LimitB bits 1-7, LimitC bits 8-11, LimitD bit 12,
// LimitE bits 13-19, the rest unused.
type RoomStat struct {
	Room          int8
	Flag          int8
	MemberMax     int8
	Member        int8
	Watchers      int8
	Rules         int8
	TimeLimit     int8
	Course        int8
	Season        int8
	Holes         int8
	CourseSetting int8
	Limits        [8]uint8 // 4 bits each
	LimitA        bool
	LimitB        uint8 // 7 bits
	LimitC        uint8 // 4 bits
	LimitD        bool
	LimitE        uint8 // 7 bits
}

func (p *RoomStat) encodeTo(w *writer) {
	w.int8(p.Room)
	w.int8(p.Flag)
	w.int8(p.MemberMax)
	w.int8(p.Member)
	w.int8(p.Watchers)
	w.int8(p.Rules)
	w.int8(p.TimeLimit)
	w.int8(p.Course)
	w.int8(p.Season)
	w.int8(p.Holes)
	w.int8(p.CourseSetting)

	var limits uint32
	for i, l := range p.Limits {
		limits = setBits(limits, uint32(l), uint(i)*4, 4)
	}
	w.uint32(limits)

	var extra uint32
	extra = setFlag(extra, p.LimitA, 0)
	extra = setBits(extra, uint32(p.LimitB), 1, 7)
	extra = setBits(extra, uint32(p.LimitC), 8, 4)
	extra = setFlag(extra, p.LimitD, 12)
	extra = setBits(extra, uint32(p.LimitE), 13, 7)
	w.uint32(extra)
}

func (p *RoomStat) decodeFrom(r *reader) {
	p.Room = r.int8()
	p.Flag = r.int8()
	p.MemberMax = r.int8()
	p.Member = r.int8()
	p.Watchers = r.int8()
	p.Rules = r.int8()
	p.TimeLimit = r.int8()
	p.Course = r.int8()
	p.Season = r.int8()
	p.Holes = r.int8()
	p.CourseSetting = r.int8()

	limits := r.uint32()
	for i := range p.Limits {
		p.Limits[i] = uint8(getBits(limits, uint(i)*4, 4))
	}

	extra := r.uint32()
	p.LimitA = getFlag(extra, 0)
	p.LimitB = uint8(getBits(extra, 1, 7))
	p.LimitC = uint8(getBits(extra, 8, 4))
	p.LimitD = getFlag(extra, 12)
	p.LimitE = uint8(getBits(extra, 13, 7))
}

// RoomSettings is the full room description used when creating, listing,
// updating, and entering rooms.
type RoomSettings struct {
	Mode     Mode
	Lobby    int8
	Stat     RoomStat
	Name     string // 33 UTF-16 units
	Password string // 17 UTF-16 units
}

func (p *RoomSettings) encodeTo(w *writer) {
	w.int8(int8(p.Mode))
	w.int8(p.Lobby)
	p.Stat.encodeTo(w)
	w.wstring(p.Name, 33)
	w.wstring(p.Password, 17)
}

func (p *RoomSettings) decodeFrom(r *reader) {
	p.Mode = Mode(r.int8())
	p.Lobby = r.int8()
	p.Stat.decodeFrom(r)
	p.Name = r.wstring(33)
	p.Password = r.wstring(17)
}

// CreateRoomRequest asks to open a new room in the player's lobby.
type CreateRoomRequest struct {
	Settings RoomSettings
}

func (p *CreateRoomRequest) ID() int16            { return CreateRoomRequestType }
func (p *CreateRoomRequest) encodeTo(w *writer)   { p.Settings.encodeTo(w) }
func (p *CreateRoomRequest) decodeFrom(r *reader) { p.Settings.decodeFrom(r) }

// CreateRoomResult carries the allocated room number, or -1 on failure.
type CreateRoomResult struct {
	Room int8
}

func (p *CreateRoomResult) ID() int16            { return CreateRoomResultType }
func (p *CreateRoomResult) encodeTo(w *writer)   { w.int8(p.Room) }
func (p *CreateRoomResult) decodeFrom(r *reader) { p.Room = r.int8() }

// RoomListRequest asks for the rooms in the player's lobby.
type RoomListRequest struct{}

func (p *RoomListRequest) ID() int16          { return RoomListRequestType }
func (p *RoomListRequest) encodeTo(*writer)   {}
func (p *RoomListRequest) decodeFrom(*reader) {}

// RoomListEntry describes one room; the list is sent as a sequence of these.
type RoomListEntry struct {
	Settings RoomSettings
}

func (p *RoomListEntry) ID() int16            { return RoomListEntryType }
func (p *RoomListEntry) encodeTo(w *writer)   { p.Settings.encodeTo(w) }
func (p *RoomListEntry) decodeFrom(r *reader) { p.Settings.decodeFrom(r) }

// EnterRoomRequest asks to join a room. The spectate flag is bit 0 of a
// little-endian word.
type EnterRoomRequest struct {
	Room     int8
	Spectate bool
	Password string // 17 UTF-16 units
}

func (p *EnterRoomRequest) ID() int16 { return EnterRoomRequestType }

func (p *EnterRoomRequest) encodeTo(w *writer) {
	w.int8(p.Room)
	w.uint32(setFlag(0, p.Spectate, 0))
	w.wstring(p.Password, 17)
}

func (p *EnterRoomRequest) decodeFrom(r *reader) {
	p.Room = r.int8()
	p.Spectate = getFlag(r.uint32(), 0)
	p.Password = r.wstring(17)
}

// EnterRoomResult answers an EnterRoomRequest. On failure the room number
// in the embedded stat block carries a negative error code: -1 for
// not-found/full, -3 for a wrong password.
type EnterRoomResult struct {
	Settings RoomSettings
}

func (p *EnterRoomResult) ID() int16            { return EnterRoomResultType }
func (p *EnterRoomResult) encodeTo(w *writer)   { p.Settings.encodeTo(w) }
func (p *EnterRoomResult) decodeFrom(r *reader) { p.Settings.decodeFrom(r) }

// RoomMemberRequest asks for the member list of a room. The reply is a
// sequence of RoomMember packets echoing the request PID, closed by a
// MemberListEnd.
type RoomMemberRequest struct {
	Mode  Mode
	Lobby int8
	Room  int8
}

func (p *RoomMemberRequest) ID() int16 { return RoomMemberRequestType }

func (p *RoomMemberRequest) encodeTo(w *writer) {
	w.int8(int8(p.Mode))
	w.int8(p.Lobby)
	w.int8(p.Room)
}

func (p *RoomMemberRequest) decodeFrom(r *reader) {
	p.Mode = Mode(r.int8())
	p.Lobby = r.int8()
	p.Room = r.int8()
}

// MemberInfo describes one player to others in a room or lobby. The Team
// flag is bit 0 of a little-endian word.
type MemberInfo struct {
	CID          int32
	UID          int32
	Stat         uint16
	Team         bool
	Mode         Mode
	Lobby        int8
	Room         int8
	Class        int8
	Element      Element
	Title        uint8
	ServerNumber int8
	Circle       int32
	Name         string // 19 UTF-16 units
}

func (p *MemberInfo) encodeTo(w *writer) {
	w.int32(p.CID)
	w.int32(p.UID)
	w.uint16(p.Stat)
	w.uint32(setFlag(0, p.Team, 0))
	w.int8(int8(p.Mode))
	w.int8(p.Lobby)
	w.int8(p.Room)
	w.int8(p.Class)
	w.int8(int8(p.Element))
	w.uint8(p.Title)
	w.int8(p.ServerNumber)
	w.int32(p.Circle)
	w.wstring(p.Name, 19)
}

func (p *MemberInfo) decodeFrom(r *reader) {
	p.CID = r.int32()
	p.UID = r.int32()
	p.Stat = r.uint16()
	p.Team = getFlag(r.uint32(), 0)
	p.Mode = Mode(r.int8())
	p.Lobby = r.int8()
	p.Room = r.int8()
	p.Class = r.int8()
	p.Element = Element(r.int8())
	p.Title = r.uint8()
	p.ServerNumber = r.int8()
	p.Circle = r.int32()
	p.Name = r.wstring(19)
}

// RoomMember carries one entry of a room member list.
type RoomMember struct {
	Member MemberInfo
}

func (p *RoomMember) ID() int16            { return RoomMemberType }
func (p *RoomMember) encodeTo(w *writer)   { p.Member.encodeTo(w) }
func (p *RoomMember) decodeFrom(r *reader) { p.Member.decodeFrom(r) }

// LeaveRoomRequest asks to leave the current room.
type LeaveRoomRequest struct{}

func (p *LeaveRoomRequest) ID() int16          { return LeaveRoomRequestType }
func (p *LeaveRoomRequest) encodeTo(*writer)   {}
func (p *LeaveRoomRequest) decodeFrom(*reader) {}

// LeaveRoomResult answers a LeaveRoomRequest.
type LeaveRoomResult struct {
	Result Status
}

func (p *LeaveRoomResult) ID() int16            { return LeaveRoomResultType }
func (p *LeaveRoomResult) encodeTo(w *writer)   { w.int8(int8(p.Result)) }
func (p *LeaveRoomResult) decodeFrom(r *reader) { p.Result = Status(r.int8()) }

// PlayerStatus is sent by a client to update its status flags and relayed
// by the server to everyone who can see that player.
type PlayerStatus struct {
	CID  int32
	UID  int32
	Stat uint32
}

func (p *PlayerStatus) ID() int16 { return PlayerStatusType }

func (p *PlayerStatus) encodeTo(w *writer) {
	w.int32(p.CID)
	w.int32(p.UID)
	w.uint32(p.Stat)
}

func (p *PlayerStatus) decodeFrom(r *reader) {
	p.CID = r.int32()
	p.UID = r.int32()
	p.Stat = r.uint32()
}

// UpdateRoomRequest changes the settings of the room the player leads.
type UpdateRoomRequest struct {
	Settings RoomSettings
}

func (p *UpdateRoomRequest) ID() int16            { return UpdateRoomRequestType }
func (p *UpdateRoomRequest) encodeTo(w *writer)   { p.Settings.encodeTo(w) }
func (p *UpdateRoomRequest) decodeFrom(r *reader) { p.Settings.decodeFrom(r) }

// UpdateRoomResult answers an UpdateRoomRequest.
type UpdateRoomResult struct {
	Result Status
}

func (p *UpdateRoomResult) ID() int16            { return UpdateRoomResultType }
func (p *UpdateRoomResult) encodeTo(w *writer)   { w.int8(int8(p.Result)) }
func (p *UpdateRoomResult) decodeFrom(r *reader) { p.Result = Status(r.int8()) }

// RoomStatus broadcasts the current state of a room to its members.
type RoomStatus struct {
	Stat RoomStat
}

func (p *RoomStatus) ID() int16            { return RoomStatusType }
func (p *RoomStatus) encodeTo(w *writer)   { p.Stat.encodeTo(w) }
func (p *RoomStatus) decodeFrom(r *reader) { p.Stat.decodeFrom(r) }

// GameStartRequest is sent by the room leader to begin a round.
type GameStartRequest struct{}

func (p *GameStartRequest) ID() int16          { return GameStartRequestType }
func (p *GameStartRequest) encodeTo(*writer)   {}
func (p *GameStartRequest) decodeFrom(*reader) {}

// GameStart describes the round about to begin and is broadcast to every
// participant. Unused player slots hold CID -1.
type GameStart struct {
	Mode           Mode
	Rule           int8
	Time           uint8
	Member         int8
	MemberMax      int8
	Course         int8
	Season         int8
	Holes          int8
	HoleNumbers    [18]int8
	WindDirection  [18]int8
	WindPower      [18]int8
	Weather        [18]int8
	CupPosition    [18]int8
	CID            [50]int32
	Caddies        [50]int16
	CaddieReliance [50]int32
	Balls          [50]int32
	Holdbox        [50][8]CountedItem
}

func (p *GameStart) ID() int16 { return GameStartType }

func (p *GameStart) encodeTo(w *writer) {
	w.int8(int8(p.Mode))
	w.int8(p.Rule)
	w.uint8(p.Time)
	w.int8(p.Member)
	w.int8(p.MemberMax)
	w.int8(p.Course)
	w.int8(p.Season)
	w.int8(p.Holes)
	for _, arr := range [][18]int8{p.HoleNumbers, p.WindDirection, p.WindPower, p.Weather, p.CupPosition} {
		for _, v := range arr {
			w.int8(v)
		}
	}
	for _, v := range p.CID {
		w.int32(v)
	}
	for _, v := range p.Caddies {
		w.int16(v)
	}
	for _, v := range p.CaddieReliance {
		w.int32(v)
	}
	for _, v := range p.Balls {
		w.int32(v)
	}
	for i := range p.Holdbox {
		for _, item := range p.Holdbox[i] {
			w.uint32(uint32(item))
		}
	}
}

func (p *GameStart) decodeFrom(r *reader) {
	p.Mode = Mode(r.int8())
	p.Rule = r.int8()
	p.Time = r.uint8()
	p.Member = r.int8()
	p.MemberMax = r.int8()
	p.Course = r.int8()
	p.Season = r.int8()
	p.Holes = r.int8()
	for _, arr := range []*[18]int8{&p.HoleNumbers, &p.WindDirection, &p.WindPower, &p.Weather, &p.CupPosition} {
		for i := range arr {
			arr[i] = r.int8()
		}
	}
	for i := range p.CID {
		p.CID[i] = r.int32()
	}
	for i := range p.Caddies {
		p.Caddies[i] = r.int16()
	}
	for i := range p.CaddieReliance {
		p.CaddieReliance[i] = r.int32()
	}
	for i := range p.Balls {
		p.Balls[i] = r.int32()
	}
	for i := range p.Holdbox {
		for j := range p.Holdbox[i] {
			p.Holdbox[i][j] = CountedItem(r.uint32())
		}
	}
}

// GameStartAck closes the game start handshake.
type GameStartAck struct {
	Result Status
}

func (p *GameStartAck) ID() int16            { return GameStartAckType }
func (p *GameStartAck) encodeTo(w *writer)   { w.int8(int8(p.Result)) }
func (p *GameStartAck) decodeFrom(r *reader) { p.Result = Status(r.int8()) }

// ClubSelect reports the shooter's club choice.
type ClubSelect struct {
	Club int8
}

func (p *ClubSelect) ID() int16            { return ClubSelectType }
func (p *ClubSelect) encodeTo(w *writer)   { w.int8(p.Club) }
func (p *ClubSelect) decodeFrom(r *reader) { p.Club = r.int8() }

// ClubSync relays a club choice to the rest of the room.
type ClubSync struct {
	CID  int32
	Club int8
}

func (p *ClubSync) ID() int16 { return ClubSyncType }

func (p *ClubSync) encodeTo(w *writer) {
	w.int32(p.CID)
	w.int8(p.Club)
}

func (p *ClubSync) decodeFrom(r *reader) {
	p.CID = r.int32()
	p.Club = r.int8()
}

// ShotDirection reports the shooter's aim.
type ShotDirection struct {
	Direction float32
}

func (p *ShotDirection) ID() int16            { return ShotDirectionType }
func (p *ShotDirection) encodeTo(w *writer)   { w.float32(p.Direction) }
func (p *ShotDirection) decodeFrom(r *reader) { p.Direction = r.float32() }

// ShotDirectionSync relays aim to the rest of the room.
type ShotDirectionSync struct {
	CID       int32
	Direction float32
}

func (p *ShotDirectionSync) ID() int16 { return ShotDirectionSyncType }

func (p *ShotDirectionSync) encodeTo(w *writer) {
	w.int32(p.CID)
	w.float32(p.Direction)
}

func (p *ShotDirectionSync) decodeFrom(r *reader) {
	p.CID = r.int32()
	p.Direction = r.float32()
}

// ShotData reports a swing. The CID field is filled in by the server when
// relaying, not by the sender. Club -1 means a timeout, -2 a whiff.
type ShotData struct {
	Clock     uint64
	CID       int32
	Direction float32
	Power     int16
	Impact    int16
	HitX      int8
	HitY      int8
	Club      int8
}

func (p *ShotData) ID() int16 { return ShotDataType }

func (p *ShotData) encodeTo(w *writer) {
	w.uint64(p.Clock)
	w.int32(p.CID)
	w.float32(p.Direction)
	w.int16(p.Power)
	w.int16(p.Impact)
	w.int8(p.HitX)
	w.int8(p.HitY)
	w.int8(p.Club)
}

func (p *ShotData) decodeFrom(r *reader) {
	p.Clock = r.uint64()
	p.CID = r.int32()
	p.Direction = r.float32()
	p.Power = r.int16()
	p.Impact = r.int16()
	p.HitX = r.int8()
	p.HitY = r.int8()
	p.Club = r.int8()
}

// ShotSync relays a swing to the rest of the room.
type ShotSync struct {
	Clock     uint64
	CID       int32
	Direction float32
	Power     int16
	Impact    int16
	HitX      int8
	HitY      int8
	Club      int8
}

func (p *ShotSync) ID() int16 { return ShotSyncType }

func (p *ShotSync) encodeTo(w *writer) {
	w.uint64(p.Clock)
	w.int32(p.CID)
	w.float32(p.Direction)
	w.int16(p.Power)
	w.int16(p.Impact)
	w.int8(p.HitX)
	w.int8(p.HitY)
	w.int8(p.Club)
}

func (p *ShotSync) decodeFrom(r *reader) {
	p.Clock = r.uint64()
	p.CID = r.int32()
	p.Direction = r.float32()
	p.Power = r.int16()
	p.Impact = r.int16()
	p.HitX = r.int8()
	p.HitY = r.int8()
	p.Club = r.int8()
}

// LoadProgress reports whether the sender has finished loading the course.
type LoadProgress struct {
	Progress int8
}

func (p *LoadProgress) ID() int16            { return LoadProgressType }
func (p *LoadProgress) encodeTo(w *writer)   { w.int8(p.Progress) }
func (p *LoadProgress) decodeFrom(r *reader) { p.Progress = r.int8() }

// LoadProgressSync relays loading state to the rest of the room.
type LoadProgressSync struct {
	CID      int32
	Progress int8
}

func (p *LoadProgressSync) ID() int16 { return LoadProgressSyncType }

func (p *LoadProgressSync) encodeTo(w *writer) {
	w.int32(p.CID)
	w.int8(p.Progress)
}

func (p *LoadProgressSync) decodeFrom(r *reader) {
	p.CID = r.int32()
	p.Progress = r.int8()
}

// LoadDetail reports fine-grained loading progress.
type LoadDetail struct {
	Progress int8
}

func (p *LoadDetail) ID() int16            { return LoadDetailType }
func (p *LoadDetail) encodeTo(w *writer)   { w.int8(p.Progress) }
func (p *LoadDetail) decodeFrom(r *reader) { p.Progress = r.int8() }

// LoadDetailSync relays fine-grained loading progress to the room.
type LoadDetailSync struct {
	CID      int32
	Progress int8
}

func (p *LoadDetailSync) ID() int16 { return LoadDetailSyncType }

func (p *LoadDetailSync) encodeTo(w *writer) {
	w.int32(p.CID)
	w.int8(p.Progress)
}

func (p *LoadDetailSync) decodeFrom(r *reader) {
	p.CID = r.int32()
	p.Progress = r.int8()
}

// BallPosition reports the sender's ball in flight.
type BallPosition struct {
	CID  int32
	Hole int8
	Stat int8
	X    float32
	Y    float32
	Z    float32
}

func (p *BallPosition) ID() int16 { return BallPositionType }

func (p *BallPosition) encodeTo(w *writer) {
	w.int32(p.CID)
	w.int8(p.Hole)
	w.int8(p.Stat)
	w.float32(p.X)
	w.float32(p.Y)
	w.float32(p.Z)
}

func (p *BallPosition) decodeFrom(r *reader) {
	p.CID = r.int32()
	p.Hole = r.int8()
	p.Stat = r.int8()
	p.X = r.float32()
	p.Y = r.float32()
	p.Z = r.float32()
}

// BallPositionSync relays a ball position to the rest of the room.
type BallPositionSync struct {
	CID  int32
	Hole int8
	Stat int8
	X    float32
	Y    float32
	Z    float32
}

func (p *BallPositionSync) ID() int16 { return BallPositionSyncType }

func (p *BallPositionSync) encodeTo(w *writer) {
	w.int32(p.CID)
	w.int8(p.Hole)
	w.int8(p.Stat)
	w.float32(p.X)
	w.float32(p.Y)
	w.float32(p.Z)
}

func (p *BallPositionSync) decodeFrom(r *reader) {
	p.CID = r.int32()
	p.Hole = r.int8()
	p.Stat = r.int8()
	p.X = r.float32()
	p.Y = r.float32()
	p.Z = r.float32()
}

// BallStop reports where the current shooter's ball came to rest. Only the
// player whose shot is in flight may send it.
type BallStop struct {
	CID  int32
	Hole int8
	Stat int8
	X    float32
	Y    float32
	Z    float32
}

func (p *BallStop) ID() int16 { return BallStopType }

func (p *BallStop) encodeTo(w *writer) {
	w.int32(p.CID)
	w.int8(p.Hole)
	w.int8(p.Stat)
	w.float32(p.X)
	w.float32(p.Y)
	w.float32(p.Z)
}

func (p *BallStop) decodeFrom(r *reader) {
	p.CID = r.int32()
	p.Hole = r.int8()
	p.Stat = r.int8()
	p.X = r.float32()
	p.Y = r.float32()
	p.Z = r.float32()
}

// BallStopSync relays a rest position to everyone in the room, including
// the shooter.
type BallStopSync struct {
	CID  int32
	Hole int8
	Stat int8
	X    float32
	Y    float32
	Z    float32
}

func (p *BallStopSync) ID() int16 { return BallStopSyncType }

func (p *BallStopSync) encodeTo(w *writer) {
	w.int32(p.CID)
	w.int8(p.Hole)
	w.int8(p.Stat)
	w.float32(p.X)
	w.float32(p.Y)
	w.float32(p.Z)
}

func (p *BallStopSync) decodeFrom(r *reader) {
	p.CID = r.int32()
	p.Hole = r.int8()
	p.Stat = r.int8()
	p.X = r.float32()
	p.Y = r.float32()
	p.Z = r.float32()
}

// LobbyMemberRequest asks for the member list of a lobby. The reply is a
// sequence of LobbyMember packets echoing the request PID.
type LobbyMemberRequest struct {
	Mode  Mode
	Lobby int8
}

func (p *LobbyMemberRequest) ID() int16 { return LobbyMemberRequestType }

func (p *LobbyMemberRequest) encodeTo(w *writer) {
	w.int8(int8(p.Mode))
	w.int8(p.Lobby)
}

func (p *LobbyMemberRequest) decodeFrom(r *reader) {
	p.Mode = Mode(r.int8())
	p.Lobby = r.int8()
}

// LobbyMemberInfo is the lobby variant of MemberInfo: a shorter name field
// and no server number.
type LobbyMemberInfo struct {
	CID     int32
	UID     int32
	Stat    uint16
	Team    bool
	Mode    Mode
	Lobby   int8
	Room    int8
	Class   int8
	Element Element
	Title   uint8
	Circle  int32
	Name    string // 17 UTF-16 units
}

func (p *LobbyMemberInfo) encodeTo(w *writer) {
	w.int32(p.CID)
	w.int32(p.UID)
	w.uint16(p.Stat)
	w.uint32(setFlag(0, p.Team, 0))
	w.int8(int8(p.Mode))
	w.int8(p.Lobby)
	w.int8(p.Room)
	w.int8(p.Class)
	w.int8(int8(p.Element))
	w.uint8(p.Title)
	w.int32(p.Circle)
	w.wstring(p.Name, 17)
}

func (p *LobbyMemberInfo) decodeFrom(r *reader) {
	p.CID = r.int32()
	p.UID = r.int32()
	p.Stat = r.uint16()
	p.Team = getFlag(r.uint32(), 0)
	p.Mode = Mode(r.int8())
	p.Lobby = r.int8()
	p.Room = r.int8()
	p.Class = r.int8()
	p.Element = Element(r.int8())
	p.Title = r.uint8()
	p.Circle = r.int32()
	p.Name = r.wstring(17)
}

// LobbyMember carries one entry of a lobby member list.
type LobbyMember struct {
	Member LobbyMemberInfo
}

func (p *LobbyMember) ID() int16            { return LobbyMemberType }
func (p *LobbyMember) encodeTo(w *writer)   { p.Member.encodeTo(w) }
func (p *LobbyMember) decodeFrom(r *reader) { p.Member.decodeFrom(r) }

// TransferOwnerRequest asks the server to hand room leadership to another
// member.
type TransferOwnerRequest struct {
	CID int32
}

func (p *TransferOwnerRequest) ID() int16            { return TransferOwnerRequestType }
func (p *TransferOwnerRequest) encodeTo(w *writer)   { w.int32(p.CID) }
func (p *TransferOwnerRequest) decodeFrom(r *reader) { p.CID = r.int32() }

// TransferOwnerAnswer accepts or declines an offered transfer.
type TransferOwnerAnswer struct {
	Answer int8
}

func (p *TransferOwnerAnswer) ID() int16            { return TransferOwnerAnswerType }
func (p *TransferOwnerAnswer) encodeTo(w *writer)   { w.int8(p.Answer) }
func (p *TransferOwnerAnswer) decodeFrom(r *reader) { p.Answer = r.int8() }

// OwnerChanged announces the room's new leader to its members.
type OwnerChanged struct {
	CID int32
}

func (p *OwnerChanged) ID() int16            { return OwnerChangedType }
func (p *OwnerChanged) encodeTo(w *writer)   { w.int32(p.CID) }
func (p *OwnerChanged) decodeFrom(r *reader) { p.CID = r.int32() }

// KickMemberRequest asks the server to remove a member from the room. Only
// the leader may send it.
type KickMemberRequest struct {
	CID int32
}

func (p *KickMemberRequest) ID() int16            { return KickMemberRequestType }
func (p *KickMemberRequest) encodeTo(w *writer)   { w.int32(p.CID) }
func (p *KickMemberRequest) decodeFrom(r *reader) { p.CID = r.int32() }

// KickMemberResult answers a KickMemberRequest.
type KickMemberResult struct {
	Result Status
}

func (p *KickMemberResult) ID() int16            { return KickMemberResultType }
func (p *KickMemberResult) encodeTo(w *writer)   { w.int8(int8(p.Result)) }
func (p *KickMemberResult) decodeFrom(r *reader) { p.Result = Status(r.int8()) }

// MemberKicked tells a room (and the kicked player) who was removed.
type MemberKicked struct {
	CID int32
}

func (p *MemberKicked) ID() int16            { return MemberKickedType }
func (p *MemberKicked) encodeTo(w *writer)   { w.int32(p.CID) }
func (p *MemberKicked) decodeFrom(r *reader) { p.CID = r.int32() }

// PingRequest is the client's periodic liveness probe.
type PingRequest struct{}

func (p *PingRequest) ID() int16          { return PingRequestType }
func (p *PingRequest) encodeTo(*writer)   {}
func (p *PingRequest) decodeFrom(*reader) {}

// PingReply answers a PingRequest with the server clock.
type PingReply struct {
	Time int64
	Seq  int16
}

func (p *PingReply) ID() int16 { return PingReplyType }

func (p *PingReply) encodeTo(w *writer) {
	w.int64(p.Time)
	w.int16(p.Seq)
}

func (p *PingReply) decodeFrom(r *reader) {
	p.Time = r.int64()
	p.Seq = r.int16()
}

// KeepAlive is the disconnect-check ping; the token is echoed back.
type KeepAlive struct {
	Token int32
}

func (p *KeepAlive) ID() int16            { return KeepAliveType }
func (p *KeepAlive) encodeTo(w *writer)   { w.int32(p.Token) }
func (p *KeepAlive) decodeFrom(r *reader) { p.Token = r.int32() }

// KeepAliveAck answers a KeepAlive.
type KeepAliveAck struct {
	Token int32
}

func (p *KeepAliveAck) ID() int16            { return KeepAliveAckType }
func (p *KeepAliveAck) encodeTo(w *writer)   { w.int32(p.Token) }
func (p *KeepAliveAck) decodeFrom(r *reader) { p.Token = r.int32() }

// MemberListEnd closes a member list reply; the client stays on its
// loading screen until it arrives.
type MemberListEnd struct {
	Result Status
}

func (p *MemberListEnd) ID() int16            { return MemberListEndType }
func (p *MemberListEnd) encodeTo(w *writer)   { w.int8(int8(p.Result)) }
func (p *MemberListEnd) decodeFrom(r *reader) { p.Result = Status(r.int8()) }
