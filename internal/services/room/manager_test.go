package room

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/legionlabs/spacefight-server/internal/dependencies/mocks"
	"github.com/legionlabs/spacefight-server/internal/model"
	"github.com/legionlabs/spacefight-server/internal/storage/memory"
	"github.com/legionlabs/spacefight-server/internal/testutil"
)

// capturedEvent records a single notification fired by the manager.
type capturedEvent struct {
	Type   string
	To     model.PlayerID
	Code   model.RoomCode
	Player model.PlayerID
	Reason model.LeaveReason
	Ready  bool
	Record model.MatchRecord
}

// fakeEvents captures notifications in firing order.
type fakeEvents struct {
	events []capturedEvent
}

func (f *fakeEvents) PeerJoined(to model.PlayerID, room *model.Room, joined model.Slot) {
	f.events = append(f.events, capturedEvent{Type: "peer_joined", To: to, Code: room.Code, Player: joined.Player})
}

func (f *fakeEvents) PeerLeft(to model.PlayerID, code model.RoomCode, reason model.LeaveReason) {
	f.events = append(f.events, capturedEvent{Type: "peer_left", To: to, Code: code, Reason: reason})
}

func (f *fakeEvents) PeerReady(to model.PlayerID, code model.RoomCode, player model.PlayerID, ready bool) {
	f.events = append(f.events, capturedEvent{Type: "peer_ready", To: to, Code: code, Player: player, Ready: ready})
}

func (f *fakeEvents) GameEnded(to model.PlayerID, record model.MatchRecord) {
	f.events = append(f.events, capturedEvent{Type: "game_ended", To: to, Code: record.RoomCode, Record: record})
}

func (f *fakeEvents) ofType(t string) []capturedEvent {
	var out []capturedEvent
	for _, e := range f.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// fakeRecorder captures match records.
type fakeRecorder struct {
	records []model.MatchRecord
}

func (f *fakeRecorder) Record(record model.MatchRecord) {
	f.records = append(f.records, record)
}

type ManagerSuite struct {
	suite.Suite
	storage  *memory.Storage
	clock    *mocks.MockClock
	random   *mocks.MockRandom
	events   *fakeEvents
	recorder *fakeRecorder
	manager  *Manager
	ctx      context.Context
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.events = &fakeEvents{}
	s.recorder = &fakeRecorder{}
	s.manager = NewManager(s.storage, s.clock, s.random, s.events, s.recorder, testutil.NopLogger())
	s.ctx = context.Background()
}

// createActiveRoom sets up a room with host-1 and guest-1 paired.
func (s *ManagerSuite) createActiveRoom(code string) *model.Room {
	s.random.QueueString(code)
	_, err := s.manager.CreateRoom(s.ctx, "host-1", "Host", model.ModeVersus, "normal")
	s.Require().NoError(err)
	room, _, err := s.manager.JoinRoom(s.ctx, model.RoomCode(code), "guest-1", "Guest")
	s.Require().NoError(err)
	return room
}

// CreateRoom tests

func (s *ManagerSuite) TestCreateRoomSucceeds() {
	s.random.QueueString("ABC234")

	room, err := s.manager.CreateRoom(s.ctx, "host-1", "Host", model.ModeCoop, "hard")
	s.Require().NoError(err)

	s.Equal(model.RoomCode("ABC234"), room.Code)
	s.Equal(model.ModeCoop, room.Mode)
	s.Equal("hard", room.Difficulty)
	s.Equal(model.RoomWaiting, room.Status)
	s.Require().Len(room.Slots, 1)
	s.Equal(1, room.Slots[0].Number)
	s.Equal(model.PlayerID("host-1"), room.Slots[0].Player)
}

func (s *ManagerSuite) TestCreateRoomIndexesHost() {
	s.random.QueueString("ABC234")
	_, err := s.manager.CreateRoom(s.ctx, "host-1", "Host", model.ModeCoop, "")
	s.Require().NoError(err)

	code, err := s.manager.RoomFor(s.ctx, "host-1")
	s.Require().NoError(err)
	s.Equal(model.RoomCode("ABC234"), code)
}

func (s *ManagerSuite) TestCreateRoomWhileInRoom() {
	s.random.QueueString("ABC234", "DEF567")
	_, err := s.manager.CreateRoom(s.ctx, "host-1", "Host", model.ModeCoop, "")
	s.Require().NoError(err)

	_, err = s.manager.CreateRoom(s.ctx, "host-1", "Host", model.ModeCoop, "")
	s.ErrorIs(err, model.ErrAlreadyInRoom)
}

func (s *ManagerSuite) TestCreateRoomRetriesOnCodeCollision() {
	s.random.QueueString("ABC234")
	_, err := s.manager.CreateRoom(s.ctx, "host-1", "Host", model.ModeCoop, "")
	s.Require().NoError(err)

	// First candidate collides with the live room, second is fresh.
	s.random.QueueString("ABC234", "DEF567")
	room, err := s.manager.CreateRoom(s.ctx, "host-2", "Other", model.ModeCoop, "")
	s.Require().NoError(err)
	s.Equal(model.RoomCode("DEF567"), room.Code)
}

func (s *ManagerSuite) TestConcurrentCreatesDrawingSameCode() {
	// Both creators may draw AAAA11; the loser serializes behind the
	// winner's save and retries with BBBB22. Neither room may overwrite
	// the other.
	s.random.QueueString("AAAA11", "AAAA11", "BBBB22")

	rooms := make(chan *model.Room, 2)
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, host := range []model.PlayerID{"host-a", "host-b"} {
		wg.Add(1)
		go func(host model.PlayerID) {
			defer wg.Done()
			room, err := s.manager.CreateRoom(s.ctx, host, string(host), model.ModeCoop, "")
			if err != nil {
				errs <- err
				return
			}
			rooms <- room
		}(host)
	}
	wg.Wait()
	close(rooms)
	close(errs)

	for err := range errs {
		s.Require().NoError(err)
	}

	codes := map[model.RoomCode]bool{}
	for room := range rooms {
		codes[room.Code] = true
	}
	s.Len(codes, 2)

	// Each host's index points at a room that actually holds them.
	for _, host := range []model.PlayerID{"host-a", "host-b"} {
		code, err := s.manager.RoomFor(s.ctx, host)
		s.Require().NoError(err)
		room, err := s.manager.GetRoom(s.ctx, code)
		s.Require().NoError(err)
		s.NotNil(room.SlotOf(host))
	}
}

func (s *ManagerSuite) TestCreateRoomCodeSpaceExhausted() {
	s.random.QueueString("ABC234")
	_, err := s.manager.CreateRoom(s.ctx, "host-1", "Host", model.ModeCoop, "")
	s.Require().NoError(err)

	// Every attempt collides.
	for i := 0; i < codeAttempts; i++ {
		s.random.QueueString("ABC234")
	}
	_, err = s.manager.CreateRoom(s.ctx, "host-2", "Other", model.ModeCoop, "")
	s.ErrorIs(err, model.ErrCodeSpaceExhausted)
}

// JoinRoom tests

func (s *ManagerSuite) TestJoinRoomActivates() {
	s.random.QueueString("ABC234")
	_, err := s.manager.CreateRoom(s.ctx, "host-1", "Host", model.ModeVersus, "")
	s.Require().NoError(err)

	room, slot, err := s.manager.JoinRoom(s.ctx, "ABC234", "guest-1", "Guest")
	s.Require().NoError(err)

	s.Equal(2, slot)
	s.Equal(model.RoomActive, room.Status)
	s.Require().Len(room.Slots, 2)

	code, err := s.manager.RoomFor(s.ctx, "guest-1")
	s.Require().NoError(err)
	s.Equal(model.RoomCode("ABC234"), code)
}

func (s *ManagerSuite) TestJoinRoomNotifiesHost() {
	s.createActiveRoom("ABC234")

	joined := s.events.ofType("peer_joined")
	s.Require().Len(joined, 1)
	s.Equal(model.PlayerID("host-1"), joined[0].To)
	s.Equal(model.PlayerID("guest-1"), joined[0].Player)
}

func (s *ManagerSuite) TestJoinRoomNotFound() {
	_, _, err := s.manager.JoinRoom(s.ctx, "NOPE", "guest-1", "Guest")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *ManagerSuite) TestJoinActiveRoomIsFull() {
	s.createActiveRoom("ABC234")

	_, _, err := s.manager.JoinRoom(s.ctx, "ABC234", "third-1", "Third")
	s.ErrorIs(err, model.ErrRoomFull)
}

func (s *ManagerSuite) TestConcurrentJoinsFillLastSlot() {
	s.random.QueueString("ABC234")
	_, err := s.manager.CreateRoom(s.ctx, "host-1", "Host", model.ModeVersus, "")
	s.Require().NoError(err)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, guest := range []model.PlayerID{"guest-1", "guest-2"} {
		wg.Add(1)
		go func(guest model.PlayerID) {
			defer wg.Done()
			_, _, err := s.manager.JoinRoom(s.ctx, "ABC234", guest, string(guest))
			errs <- err
		}(guest)
	}
	wg.Wait()
	close(errs)

	var succeeded, full int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, model.ErrRoomFull):
			full++
		default:
			s.Require().NoError(err)
		}
	}
	s.Equal(1, succeeded)
	s.Equal(1, full)

	room, err := s.manager.GetRoom(s.ctx, "ABC234")
	s.Require().NoError(err)
	s.Equal(model.RoomActive, room.Status)
	s.Len(room.Slots, 2)
}

func (s *ManagerSuite) TestJoinWhileInRoom() {
	s.random.QueueString("ABC234", "DEF567")
	_, err := s.manager.CreateRoom(s.ctx, "host-1", "Host", model.ModeVersus, "")
	s.Require().NoError(err)
	_, err = s.manager.CreateRoom(s.ctx, "host-2", "Other", model.ModeVersus, "")
	s.Require().NoError(err)

	_, _, err = s.manager.JoinRoom(s.ctx, "DEF567", "host-1", "Host")
	s.ErrorIs(err, model.ErrAlreadyInRoom)
}

// LeaveRoom tests

func (s *ManagerSuite) TestLeaveWaitingRoomEndsIt() {
	s.random.QueueString("ABC234")
	_, err := s.manager.CreateRoom(s.ctx, "host-1", "Host", model.ModeCoop, "")
	s.Require().NoError(err)

	s.Require().NoError(s.manager.LeaveRoom(s.ctx, "ABC234", "host-1", model.LeaveExplicit))

	_, err = s.manager.GetRoom(s.ctx, "ABC234")
	s.ErrorIs(err, model.ErrRoomNotFound)

	code, err := s.manager.RoomFor(s.ctx, "host-1")
	s.Require().NoError(err)
	s.Equal(model.RoomCode(""), code)

	// No one to notify, nothing to record.
	s.Empty(s.events.ofType("peer_left"))
	s.Empty(s.recorder.records)
}

func (s *ManagerSuite) TestLeaveActiveRoomAbandonsIt() {
	s.createActiveRoom("ABC234")

	s.Require().NoError(s.manager.LeaveRoom(s.ctx, "ABC234", "guest-1", model.LeaveExplicit))

	room, err := s.manager.GetRoom(s.ctx, "ABC234")
	s.Require().NoError(err)
	s.Equal(model.RoomAbandoned, room.Status)
	s.Require().Len(room.Slots, 1)
	s.Equal(model.PlayerID("host-1"), room.Slots[0].Player)

	left := s.events.ofType("peer_left")
	s.Require().Len(left, 1)
	s.Equal(model.PlayerID("host-1"), left[0].To)
	s.Equal(model.LeaveExplicit, left[0].Reason)
}

func (s *ManagerSuite) TestLeaveActiveRoomRecordsAbandonment() {
	s.createActiveRoom("ABC234")
	s.clock.Advance(5 * time.Minute)

	s.Require().NoError(s.manager.LeaveRoom(s.ctx, "ABC234", "guest-1", model.LeaveTimeout))

	s.Require().Len(s.recorder.records, 1)
	record := s.recorder.records[0]
	s.Equal(model.RoomCode("ABC234"), record.RoomCode)
	s.Equal(model.RoomAbandoned, record.Outcome)
	s.ElementsMatch([]model.PlayerID{"host-1", "guest-1"}, record.Players)
	s.Equal(model.PlayerID(""), record.Winner)
}

func (s *ManagerSuite) TestLastLeaverEndsAbandonedRoom() {
	s.createActiveRoom("ABC234")

	s.Require().NoError(s.manager.LeaveRoom(s.ctx, "ABC234", "guest-1", model.LeaveExplicit))
	s.Require().NoError(s.manager.LeaveRoom(s.ctx, "ABC234", "host-1", model.LeaveExplicit))

	_, err := s.manager.GetRoom(s.ctx, "ABC234")
	s.ErrorIs(err, model.ErrRoomNotFound)

	// Only the first leave notifies and records.
	s.Len(s.events.ofType("peer_left"), 1)
	s.Len(s.recorder.records, 1)
}

func (s *ManagerSuite) TestLeaveRoomNotInRoom() {
	s.createActiveRoom("ABC234")

	err := s.manager.LeaveRoom(s.ctx, "ABC234", "stranger", model.LeaveExplicit)
	s.ErrorIs(err, model.ErrNotInRoom)
}

func (s *ManagerSuite) TestCodeReusableAfterRoomEnds() {
	s.random.QueueString("ABC234")
	_, err := s.manager.CreateRoom(s.ctx, "host-1", "Host", model.ModeCoop, "")
	s.Require().NoError(err)
	s.Require().NoError(s.manager.LeaveRoom(s.ctx, "ABC234", "host-1", model.LeaveExplicit))

	s.random.QueueString("ABC234")
	room, err := s.manager.CreateRoom(s.ctx, "host-2", "Other", model.ModeCoop, "")
	s.Require().NoError(err)
	s.Equal(model.RoomCode("ABC234"), room.Code)
}

// SetReady tests

func (s *ManagerSuite) TestSetReadyNotifiesPeer() {
	s.createActiveRoom("ABC234")

	room, err := s.manager.SetReady(s.ctx, "ABC234", "guest-1", true)
	s.Require().NoError(err)
	s.True(room.SlotOf("guest-1").Ready)

	ready := s.events.ofType("peer_ready")
	s.Require().Len(ready, 1)
	s.Equal(model.PlayerID("host-1"), ready[0].To)
	s.Equal(model.PlayerID("guest-1"), ready[0].Player)
	s.True(ready[0].Ready)
}

func (s *ManagerSuite) TestSetReadyNotInRoom() {
	s.createActiveRoom("ABC234")

	_, err := s.manager.SetReady(s.ctx, "ABC234", "stranger", true)
	s.ErrorIs(err, model.ErrNotInRoom)
}

// EndGame tests

func (s *ManagerSuite) TestEndGameRecordsAndNotifiesBoth() {
	s.createActiveRoom("ABC234")
	s.clock.Advance(10 * time.Minute)

	scores := map[model.PlayerID]int{"host-1": 4200, "guest-1": 3100}
	err := s.manager.EndGame(s.ctx, "ABC234", "host-1", "host-1", scores)
	s.Require().NoError(err)

	s.Require().Len(s.recorder.records, 1)
	record := s.recorder.records[0]
	s.Equal(model.RoomEnded, record.Outcome)
	s.Equal(model.PlayerID("host-1"), record.Winner)
	s.Equal(scores, record.Scores)
	s.Equal(10*time.Minute, record.EndedAt.Sub(record.StartedAt))

	ended := s.events.ofType("game_ended")
	s.Require().Len(ended, 2)
	targets := []model.PlayerID{ended[0].To, ended[1].To}
	s.ElementsMatch([]model.PlayerID{"host-1", "guest-1"}, targets)
}

func (s *ManagerSuite) TestEndGameFreesRoomAndIndexes() {
	s.createActiveRoom("ABC234")

	s.Require().NoError(s.manager.EndGame(s.ctx, "ABC234", "host-1", "", nil))

	_, err := s.manager.GetRoom(s.ctx, "ABC234")
	s.ErrorIs(err, model.ErrRoomNotFound)

	for _, p := range []model.PlayerID{"host-1", "guest-1"} {
		code, err := s.manager.RoomFor(s.ctx, p)
		s.Require().NoError(err)
		s.Equal(model.RoomCode(""), code)
	}
}

func (s *ManagerSuite) TestEndGameRequiresActiveRoom() {
	s.random.QueueString("ABC234")
	_, err := s.manager.CreateRoom(s.ctx, "host-1", "Host", model.ModeVersus, "")
	s.Require().NoError(err)

	err = s.manager.EndGame(s.ctx, "ABC234", "host-1", "", nil)
	s.ErrorIs(err, model.ErrRoomNotActive)
}

func (s *ManagerSuite) TestEndGameRequiresMembership() {
	s.createActiveRoom("ABC234")

	err := s.manager.EndGame(s.ctx, "ABC234", "stranger", "", nil)
	s.ErrorIs(err, model.ErrNotInRoom)
}
