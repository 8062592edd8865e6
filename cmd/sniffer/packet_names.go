package main

import "github.com/splashsrv/splashsrv/internal/packets"

// Janky (and simple) method of including the names of the packets as the
// server defines them. Whenever new packet types are defined they must also
// be added here in order for the sniffer to show the name correctly.
var packetNames = map[int16]string{
	packets.LoginRequestType:         "LoginRequestType",
	packets.LoginResultType:          "LoginResultType",
	packets.ServerListRequestType:    "ServerListRequestType",
	packets.ServerEntryType:          "ServerEntryType",
	packets.ServerListEndType:        "ServerListEndType",
	packets.GameLoginRequestType:     "GameLoginRequestType",
	packets.PlayerDataType:           "PlayerDataType",
	packets.ModeChangeRequestType:    "ModeChangeRequestType",
	packets.ModeChangeAckType:        "ModeChangeAckType",
	packets.LobbyCountRequestType:    "LobbyCountRequestType",
	packets.LobbyCountType:           "LobbyCountType",
	packets.LobbyInfoRequestType:     "LobbyInfoRequestType",
	packets.LobbyInfoType:            "LobbyInfoType",
	packets.EnterLobbyRequestType:    "EnterLobbyRequestType",
	packets.EnterLobbyResultType:     "EnterLobbyResultType",
	packets.CreateRoomRequestType:    "CreateRoomRequestType",
	packets.CreateRoomResultType:     "CreateRoomResultType",
	packets.RoomListRequestType:      "RoomListRequestType",
	packets.RoomListEntryType:        "RoomListEntryType",
	packets.EnterRoomRequestType:     "EnterRoomRequestType",
	packets.EnterRoomResultType:      "EnterRoomResultType",
	packets.RoomMemberRequestType:    "RoomMemberRequestType",
	packets.RoomMemberType:           "RoomMemberType",
	packets.LeaveRoomRequestType:     "LeaveRoomRequestType",
	packets.LeaveRoomResultType:      "LeaveRoomResultType",
	packets.PlayerStatusType:         "PlayerStatusType",
	packets.UpdateRoomRequestType:    "UpdateRoomRequestType",
	packets.UpdateRoomResultType:     "UpdateRoomResultType",
	packets.RoomStatusType:           "RoomStatusType",
	packets.GameStartRequestType:     "GameStartRequestType",
	packets.GameStartType:            "GameStartType",
	packets.ClubSelectType:           "ClubSelectType",
	packets.ClubSyncType:             "ClubSyncType",
	packets.ShotDirectionType:        "ShotDirectionType",
	packets.ShotDirectionSyncType:    "ShotDirectionSyncType",
	packets.ShotDataType:             "ShotDataType",
	packets.ShotSyncType:             "ShotSyncType",
	packets.LoadProgressType:         "LoadProgressType",
	packets.LoadProgressSyncType:     "LoadProgressSyncType",
	packets.BallPositionType:         "BallPositionType",
	packets.BallPositionSyncType:     "BallPositionSyncType",
	packets.LobbyMemberRequestType:   "LobbyMemberRequestType",
	packets.LobbyMemberType:          "LobbyMemberType",
	packets.LoadDetailType:           "LoadDetailType",
	packets.LoadDetailSyncType:       "LoadDetailSyncType",
	packets.GameStartAckType:         "GameStartAckType",
	packets.TransferOwnerRequestType: "TransferOwnerRequestType",
	packets.TransferOwnerAnswerType:  "TransferOwnerAnswerType",
	packets.OwnerChangedType:         "OwnerChangedType",
	packets.KickMemberRequestType:    "KickMemberRequestType",
	packets.KickMemberResultType:     "KickMemberResultType",
	packets.MemberKickedType:         "MemberKickedType",
	packets.PingRequestType:          "PingRequestType",
	packets.PingReplyType:            "PingReplyType",
	packets.BallStopType:             "BallStopType",
	packets.BallStopSyncType:         "BallStopSyncType",
	packets.KeepAliveType:            "KeepAliveType",
	packets.KeepAliveAckType:         "KeepAliveAckType",
	packets.MemberListEndType:        "MemberListEndType",
}

func getPacketName(packetType int16) string {
	if name, ok := packetNames[packetType]; ok {
		return name
	}
	return "?"
}
