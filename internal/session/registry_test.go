package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/TeaChoco/react-chess-ai/pkg/wire"
)

type testEvent struct {
	name string
	data any
}

type testConn struct {
	id     string
	events chan testEvent
}

func attach(t *testing.T, reg *Registry, id string) *testConn {
	t.Helper()
	c := &testConn{id: id, events: make(chan testEvent, 64)}
	reg.Dispatch(Attach{ConnID: id, Send: func(event string, data any) {
		select {
		case c.events <- testEvent{name: event, data: data}:
		default:
			t.Errorf("conn %s: event buffer full dropping %s", id, event)
		}
	}})
	return c
}

// await skips events until one matching name arrives; tests never hang on a
// missing broadcast.
func (c *testConn) await(t *testing.T, name string) testEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-c.events:
			if ev.name == name {
				return ev
			}
		case <-deadline:
			t.Fatalf("conn %s: timed out waiting for %s", c.id, name)
			return testEvent{}
		}
	}
}

func (c *testConn) awaitNone(t *testing.T, name string, within time.Duration) {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case ev := <-c.events:
			if ev.name == name {
				t.Fatalf("conn %s: expected no %s, got %+v", c.id, name, ev.data)
			}
		case <-deadline:
			return
		}
	}
}

func (c *testConn) drain() {
	for {
		select {
		case <-c.events:
		default:
			return
		}
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewRegistry(ctx, nil)
}

func inspect(t *testing.T, reg *Registry) View {
	t.Helper()
	reply := make(chan View, 1)
	reg.Dispatch(Inspect{Reply: reply})
	select {
	case v := <-reply:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for inspect reply")
		return View{}
	}
}

func inspectRoom(t *testing.T, reg *Registry, code string) *wire.RoomState {
	t.Helper()
	reply := make(chan *wire.RoomState, 1)
	reg.Dispatch(InspectRoom{Code: code, Reply: reply})
	select {
	case st := <-reply:
		return st
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for room inspect reply")
		return nil
	}
}

func createRoom(t *testing.T, reg *Registry, c *testConn, name string, public bool) wire.RoomJoined {
	t.Helper()
	reg.Dispatch(CreateRoom{ConnID: c.id, Name: name, Public: public})
	joined, ok := c.await(t, wire.EventRoomJoined).data.(wire.RoomJoined)
	if !ok {
		t.Fatalf("room-joined payload has wrong type")
	}
	return joined
}

func TestCreateRoom_CreatorStartsAsSpectator(t *testing.T) {
	reg := newTestRegistry(t)
	x := attach(t, reg, "conn-x")

	joined := createRoom(t, reg, x, "Alice", true)

	if !joined.IsSpectator || joined.MyColor != nil {
		t.Fatalf("creator must start as spectator, got %+v", joined)
	}
	if joined.WhitePlayer != nil || joined.BlackPlayer != nil {
		t.Fatalf("new room must have empty seats")
	}
	if len(joined.Spectators) != 1 || joined.Spectators[0].Name != "Alice" {
		t.Fatalf("creator missing from spectators: %+v", joined.Spectators)
	}
	if joined.FEN != StartFEN {
		t.Fatalf("new room FEN = %q, want start position", joined.FEN)
	}

	if len(joined.RoomID) != codeLength {
		t.Fatalf("room code %q has wrong length", joined.RoomID)
	}
	for _, ch := range joined.RoomID {
		if !strings.ContainsRune(codeAlphabet, ch) {
			t.Fatalf("room code %q uses %q outside the alphabet", joined.RoomID, ch)
		}
	}
}

func TestGetRooms_PublicRoomListedWithZeroPlayers(t *testing.T) {
	reg := newTestRegistry(t)
	x := attach(t, reg, "conn-x")
	joined := createRoom(t, reg, x, "Alice", true)

	x.drain()
	reg.Dispatch(GetRooms{ConnID: x.id})
	list, ok := x.await(t, wire.EventRoomsList).data.([]wire.RoomInfo)
	if !ok {
		t.Fatalf("rooms-list payload has wrong type")
	}
	if len(list) != 1 {
		t.Fatalf("want one public room, got %d", len(list))
	}
	if list[0].ID != joined.RoomID || list[0].Players != 0 || list[0].Spectators != 1 {
		t.Fatalf("unexpected lobby entry: %+v", list[0])
	}
}

func TestGetRooms_FiltersPrivateRooms(t *testing.T) {
	reg := newTestRegistry(t)
	x := attach(t, reg, "conn-x")
	createRoom(t, reg, x, "Alice", false)

	x.drain()
	reg.Dispatch(GetRooms{ConnID: x.id})
	list := x.await(t, wire.EventRoomsList).data.([]wire.RoomInfo)
	if len(list) != 0 {
		t.Fatalf("private room leaked into lobby list: %+v", list)
	}
}

func TestClaimSeat_BroadcastsSeatedName(t *testing.T) {
	reg := newTestRegistry(t)
	x := attach(t, reg, "conn-x")
	createRoom(t, reg, x, "Alice", true)

	reg.Dispatch(ClaimSeat{ConnID: x.id, Color: wire.White})

	claimed := x.await(t, wire.EventSeatClaimed).data.(wire.SeatClaimed)
	if claimed.Color != wire.White {
		t.Fatalf("seat-claimed color = %q, want w", claimed.Color)
	}
	updated := x.await(t, wire.EventRoomUpdated).data.(wire.RoomState)
	if updated.WhitePlayer == nil || updated.WhitePlayer.Name != "Alice" {
		t.Fatalf("room-updated missing white player: %+v", updated)
	}
	if len(updated.Spectators) != 0 {
		t.Fatalf("seated participant still listed as spectator")
	}
}

func TestClaimSeat_SeatUniqueness(t *testing.T) {
	reg := newTestRegistry(t)
	x := attach(t, reg, "conn-x")
	y := attach(t, reg, "conn-y")
	joined := createRoom(t, reg, x, "Alice", true)
	reg.Dispatch(JoinRoom{ConnID: y.id, Code: joined.RoomID, Name: "Bob"})
	y.await(t, wire.EventRoomJoined)

	reg.Dispatch(ClaimSeat{ConnID: x.id, Color: wire.White})
	x.await(t, wire.EventSeatClaimed)

	reg.Dispatch(ClaimSeat{ConnID: y.id, Color: wire.White})
	msg := y.await(t, wire.EventError).data.(string)
	if msg != "White seat is taken" {
		t.Fatalf("error = %q", msg)
	}

	st := inspectRoom(t, reg, joined.RoomID)
	if st.WhitePlayer.Name != "Alice" {
		t.Fatalf("white seat changed hands: %+v", st.WhitePlayer)
	}
}

func TestClaimSeat_RejectsSecondSeatWhileSeated(t *testing.T) {
	reg := newTestRegistry(t)
	x := attach(t, reg, "conn-x")
	createRoom(t, reg, x, "Alice", true)

	reg.Dispatch(ClaimSeat{ConnID: x.id, Color: wire.White})
	x.await(t, wire.EventSeatClaimed)

	reg.Dispatch(ClaimSeat{ConnID: x.id, Color: wire.Black})
	msg := x.await(t, wire.EventError).data.(string)
	if msg != "You are already seated. Stand up first." {
		t.Fatalf("error = %q", msg)
	}
}

func TestJoinRoom_UnknownCode(t *testing.T) {
	reg := newTestRegistry(t)
	y := attach(t, reg, "conn-y")

	reg.Dispatch(JoinRoom{ConnID: y.id, Code: "ZZZZZZ", Name: "Bob"})
	msg := y.await(t, wire.EventError).data.(string)
	if msg != "Room not found" {
		t.Fatalf("error = %q", msg)
	}
}

func TestJoinRoom_NameCollision(t *testing.T) {
	reg := newTestRegistry(t)
	x := attach(t, reg, "conn-x")
	y := attach(t, reg, "conn-y")
	joined := createRoom(t, reg, x, "Alice", true)

	reg.Dispatch(JoinRoom{ConnID: y.id, Code: joined.RoomID, Name: "Alice"})
	msg := y.await(t, wire.EventError).data.(string)
	if msg != "Name is already taken in this room" {
		t.Fatalf("error = %q", msg)
	}

	st := inspectRoom(t, reg, joined.RoomID)
	if len(st.Spectators) != 1 {
		t.Fatalf("failed join must not change room state: %+v", st.Spectators)
	}
}

func TestMove_RelayedToEveryoneButSender(t *testing.T) {
	reg := newTestRegistry(t)
	x := attach(t, reg, "conn-x")
	y := attach(t, reg, "conn-y")
	z := attach(t, reg, "conn-z")
	joined := createRoom(t, reg, x, "Alice", true)
	reg.Dispatch(JoinRoom{ConnID: y.id, Code: joined.RoomID, Name: "Bob"})
	reg.Dispatch(JoinRoom{ConnID: z.id, Code: joined.RoomID, Name: "Carol"})
	reg.Dispatch(ClaimSeat{ConnID: x.id, Color: wire.White})
	reg.Dispatch(ClaimSeat{ConnID: y.id, Color: wire.Black})
	y.await(t, wire.EventSeatClaimed)

	x.drain()
	reg.Dispatch(RelayMove{ConnID: x.id, Move: wire.Move{From: "e2", To: "e4"}})

	got := y.await(t, wire.EventMove).data.(wire.Move)
	if got.From != "e2" || got.To != "e4" {
		t.Fatalf("opponent received %+v", got)
	}
	spec := z.await(t, wire.EventMove).data.(wire.Move)
	if spec.From != "e2" || spec.To != "e4" {
		t.Fatalf("spectator received %+v", spec)
	}
	x.awaitNone(t, wire.EventMove, 100*time.Millisecond)
}

func TestMove_FromSpectatorDroppedSilently(t *testing.T) {
	reg := newTestRegistry(t)
	x := attach(t, reg, "conn-x")
	z := attach(t, reg, "conn-z")
	joined := createRoom(t, reg, x, "Alice", true)
	reg.Dispatch(JoinRoom{ConnID: z.id, Code: joined.RoomID, Name: "Carol"})
	reg.Dispatch(ClaimSeat{ConnID: x.id, Color: wire.White})
	x.await(t, wire.EventSeatClaimed)
	x.drain()
	z.drain()

	reg.Dispatch(RelayMove{ConnID: z.id, Move: wire.Move{From: "e2", To: "e4"}})

	x.awaitNone(t, wire.EventMove, 100*time.Millisecond)
	z.awaitNone(t, wire.EventError, 100*time.Millisecond)
}

func TestUpdateFEN_OnlySeatedSendersApply(t *testing.T) {
	reg := newTestRegistry(t)
	x := attach(t, reg, "conn-x")
	z := attach(t, reg, "conn-z")
	joined := createRoom(t, reg, x, "Alice", true)
	reg.Dispatch(JoinRoom{ConnID: z.id, Code: joined.RoomID, Name: "Carol"})
	reg.Dispatch(ClaimSeat{ConnID: x.id, Color: wire.White})
	x.await(t, wire.EventSeatClaimed)

	const afterE4 = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"
	reg.Dispatch(UpdateFEN{ConnID: z.id, FEN: "garbage"})
	reg.Dispatch(UpdateFEN{ConnID: x.id, FEN: afterE4})

	st := inspectRoom(t, reg, joined.RoomID)
	if st.FEN != afterE4 {
		t.Fatalf("room FEN = %q, want seated sender's update", st.FEN)
	}
}

func TestLeaveSeat_ResetsBoardAndBroadcasts(t *testing.T) {
	reg := newTestRegistry(t)
	x := attach(t, reg, "conn-x")
	y := attach(t, reg, "conn-y")
	joined := createRoom(t, reg, x, "Alice", true)
	reg.Dispatch(JoinRoom{ConnID: y.id, Code: joined.RoomID, Name: "Bob"})
	reg.Dispatch(ClaimSeat{ConnID: x.id, Color: wire.White})
	reg.Dispatch(UpdateFEN{ConnID: x.id, FEN: "mid-game"})
	x.await(t, wire.EventSeatClaimed)
	x.drain()
	y.drain()

	reg.Dispatch(LeaveSeat{ConnID: x.id})

	y.await(t, wire.EventResetGame)
	x.await(t, wire.EventSeatLeft)
	updated := y.await(t, wire.EventRoomUpdated).data.(wire.RoomState)
	if updated.WhitePlayer != nil {
		t.Fatalf("seat not vacated: %+v", updated.WhitePlayer)
	}
	if updated.FEN != StartFEN {
		t.Fatalf("board not reset, FEN = %q", updated.FEN)
	}
	if len(updated.Spectators) != 2 {
		t.Fatalf("former occupant must rejoin spectators: %+v", updated.Spectators)
	}
}

func TestLeaveSeat_IdempotentWhenUnseated(t *testing.T) {
	reg := newTestRegistry(t)
	x := attach(t, reg, "conn-x")
	createRoom(t, reg, x, "Alice", true)
	x.drain()

	reg.Dispatch(LeaveSeat{ConnID: x.id})
	reg.Dispatch(LeaveSeat{ConnID: x.id})

	x.awaitNone(t, wire.EventError, 100*time.Millisecond)
	x.awaitNone(t, wire.EventSeatLeft, 50*time.Millisecond)
	x.awaitNone(t, wire.EventResetGame, 50*time.Millisecond)
}

func TestDisconnect_SeatedParticipantResetsGame(t *testing.T) {
	reg := newTestRegistry(t)
	x := attach(t, reg, "conn-x")
	y := attach(t, reg, "conn-y")
	joined := createRoom(t, reg, x, "Alice", true)
	reg.Dispatch(JoinRoom{ConnID: y.id, Code: joined.RoomID, Name: "Bob"})
	reg.Dispatch(ClaimSeat{ConnID: x.id, Color: wire.White})
	reg.Dispatch(ClaimSeat{ConnID: y.id, Color: wire.Black})
	y.await(t, wire.EventSeatClaimed)
	x.drain()

	reg.Dispatch(Detach{ConnID: y.id})

	x.await(t, wire.EventResetGame)
	updated := x.await(t, wire.EventRoomUpdated).data.(wire.RoomState)
	if updated.BlackPlayer != nil {
		t.Fatalf("dropped participant still seated: %+v", updated.BlackPlayer)
	}
	if updated.FEN != StartFEN {
		t.Fatalf("board not reset after disconnect, FEN = %q", updated.FEN)
	}
}

func TestLeaveRoom_DestroysRoomWhenEmpty(t *testing.T) {
	reg := newTestRegistry(t)
	x := attach(t, reg, "conn-x")
	y := attach(t, reg, "conn-y")
	joined := createRoom(t, reg, x, "Alice", true)
	reg.Dispatch(JoinRoom{ConnID: y.id, Code: joined.RoomID, Name: "Bob"})
	y.await(t, wire.EventRoomJoined)

	if v := inspect(t, reg); v.Rooms != 1 {
		t.Fatalf("rooms = %d, want 1", v.Rooms)
	}

	reg.Dispatch(LeaveRoom{ConnID: x.id})
	if st := inspectRoom(t, reg, joined.RoomID); st == nil || len(st.Spectators) != 1 {
		t.Fatalf("room must survive with one member left: %+v", st)
	}

	reg.Dispatch(LeaveRoom{ConnID: y.id})
	if v := inspect(t, reg); v.Rooms != 0 {
		t.Fatalf("rooms = %d after last departure, want 0", v.Rooms)
	}
	if st := inspectRoom(t, reg, joined.RoomID); st != nil {
		t.Fatalf("destroyed room still inspectable: %+v", st)
	}
}

func TestMembershipCount_MatchesJoinsMinusLeaves(t *testing.T) {
	reg := newTestRegistry(t)
	x := attach(t, reg, "conn-x")
	joined := createRoom(t, reg, x, "P0", true)

	conns := []*testConn{x}
	for _, name := range []string{"P1", "P2", "P3"} {
		c := attach(t, reg, "conn-"+name)
		reg.Dispatch(JoinRoom{ConnID: c.id, Code: joined.RoomID, Name: name})
		c.await(t, wire.EventRoomJoined)
		conns = append(conns, c)
	}
	reg.Dispatch(ClaimSeat{ConnID: conns[1].id, Color: wire.White})
	conns[1].await(t, wire.EventSeatClaimed)

	st := inspectRoom(t, reg, joined.RoomID)
	seated := 0
	if st.WhitePlayer != nil {
		seated++
	}
	if st.BlackPlayer != nil {
		seated++
	}
	if got := seated + len(st.Spectators); got != 4 {
		t.Fatalf("membership = %d, want 4", got)
	}

	reg.Dispatch(LeaveRoom{ConnID: conns[2].id})
	reg.Dispatch(LeaveRoom{ConnID: conns[1].id})
	st = inspectRoom(t, reg, joined.RoomID)
	if st.WhitePlayer != nil || len(st.Spectators) != 2 {
		t.Fatalf("membership after two departures: %+v", st)
	}
}

func TestGenerateCode_StaysInsideAlphabet(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateCode()
		if err != nil {
			t.Fatalf("generateCode: %v", err)
		}
		if len(code) != codeLength {
			t.Fatalf("code %q has length %d", code, len(code))
		}
		for _, ch := range code {
			if !strings.ContainsRune(codeAlphabet, ch) {
				t.Fatalf("code %q uses %q outside the alphabet", code, ch)
			}
		}
	}
}

func TestJoinRoom_LeavesPreviousRoomFirst(t *testing.T) {
	reg := newTestRegistry(t)
	x := attach(t, reg, "conn-x")
	y := attach(t, reg, "conn-y")
	first := createRoom(t, reg, x, "Alice", false)
	second := createRoom(t, reg, y, "Bob", false)

	reg.Dispatch(JoinRoom{ConnID: x.id, Code: second.RoomID, Name: "Alice"})
	joined, ok := x.await(t, wire.EventRoomJoined).data.(wire.RoomJoined)
	if !ok {
		t.Fatalf("room-joined payload has wrong type")
	}
	if joined.RoomID != second.RoomID {
		t.Fatalf("joined %q, want %q", joined.RoomID, second.RoomID)
	}

	// Alice was the only member of her old room, so it must be gone.
	if st := inspectRoom(t, reg, first.RoomID); st != nil {
		t.Fatalf("old room still exists after its last member moved: %+v", st)
	}

	reg.Dispatch(Detach{ConnID: x.id})
	reg.Dispatch(Detach{ConnID: y.id})
	if v := inspect(t, reg); v.Rooms != 0 {
		t.Fatalf("want 0 rooms after all members detached, got %d", v.Rooms)
	}
}

func TestCreateRoom_LeavesPreviousRoomFirst(t *testing.T) {
	reg := newTestRegistry(t)
	x := attach(t, reg, "conn-x")
	y := attach(t, reg, "conn-y")
	shared := createRoom(t, reg, y, "Bob", false)
	reg.Dispatch(JoinRoom{ConnID: x.id, Code: shared.RoomID, Name: "Alice"})
	x.await(t, wire.EventRoomJoined)
	y.drain()

	createRoom(t, reg, x, "Alice", false)

	updated, ok := y.await(t, wire.EventRoomUpdated).data.(wire.RoomState)
	if !ok {
		t.Fatalf("room-updated payload has wrong type")
	}
	for _, sp := range updated.Spectators {
		if sp.Name == "Alice" {
			t.Fatalf("old room still lists the mover: %+v", updated.Spectators)
		}
	}
	if v := inspect(t, reg); v.Rooms != 2 {
		t.Fatalf("want 2 rooms, got %d", v.Rooms)
	}
}

func TestJoinRoom_CodeIsCaseInsensitive(t *testing.T) {
	reg := newTestRegistry(t)
	x := attach(t, reg, "conn-x")
	y := attach(t, reg, "conn-y")
	created := createRoom(t, reg, x, "Alice", false)

	reg.Dispatch(JoinRoom{ConnID: y.id, Code: "  " + strings.ToLower(created.RoomID) + " ", Name: "Bob"})
	joined, ok := y.await(t, wire.EventRoomJoined).data.(wire.RoomJoined)
	if !ok {
		t.Fatalf("room-joined payload has wrong type")
	}
	if joined.RoomID != created.RoomID {
		t.Fatalf("joined %q, want %q", joined.RoomID, created.RoomID)
	}
}

func TestJoinRoom_SameRoomResendsSnapshotWithoutChurn(t *testing.T) {
	reg := newTestRegistry(t)
	x := attach(t, reg, "conn-x")
	created := createRoom(t, reg, x, "Alice", false)

	reg.Dispatch(JoinRoom{ConnID: x.id, Code: created.RoomID, Name: "Alice"})
	joined, ok := x.await(t, wire.EventRoomJoined).data.(wire.RoomJoined)
	if !ok {
		t.Fatalf("room-joined payload has wrong type")
	}
	if len(joined.Spectators) != 1 {
		t.Fatalf("rejoin must not duplicate membership: %+v", joined.Spectators)
	}
	if st := inspectRoom(t, reg, created.RoomID); st == nil {
		t.Fatalf("room must survive a rejoin by its only member")
	}
}
