package wire

// Event names exchanged over the session channel. The client-to-server set
// mirrors what the lobby and game screens emit; the server-to-client set is
// what the reconciliation engine subscribes to.
const (
	// client -> server
	EventCreateRoom = "create-room"
	EventJoinRoom   = "join-room"
	EventClaimSeat  = "claim-seat"
	EventLeaveSeat  = "leave-seat"
	EventMove       = "move"
	EventUpdateFEN  = "update-fen"
	EventLeaveRoom  = "leave-room"
	EventGetRooms   = "get-rooms"

	// server -> client
	EventRoomJoined  = "room-joined"
	EventRoomUpdated = "room-updated"
	EventSeatClaimed = "seat-claimed"
	EventSeatLeft    = "seat-left"
	EventResetGame   = "reset-game"
	EventError       = "error"
	EventRoomsList   = "rooms-list"
)
