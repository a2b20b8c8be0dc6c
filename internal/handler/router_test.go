package handler_test

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/legionlabs/spacefight-server/internal/factory"
	"github.com/legionlabs/spacefight-server/internal/model"
	"github.com/legionlabs/spacefight-server/internal/ws"
)

// RouterSuite exercises the full message path: router dispatch, the
// services behind it, and notifier delivery back onto client buffers.
// Clients are constructed without a network connection; their send
// buffers are read directly.
type RouterSuite struct {
	suite.Suite
	app *factory.TestApp
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.app = factory.NewTestApp()
	go s.app.Hub.Run()
}

func (s *RouterSuite) connect(id string) *ws.Client {
	client := ws.NewClient(id, s.app.Hub, nil)
	s.app.Hub.Register <- client
	s.Require().Eventually(func() bool {
		return s.app.Hub.ByID(id) != nil
	}, time.Second, time.Millisecond)
	return client
}

// hello binds a connection to an identity and consumes the connected reply.
func (s *RouterSuite) hello(client *ws.Client, playerID, name string) {
	s.send(client, ws.TypeHello, map[string]string{
		"player_id":   playerID,
		"player_name": name,
	})
	msg := s.recv(client)
	s.Require().Equal(ws.TypeConnected, msg.Type)
}

func (s *RouterSuite) send(client *ws.Client, msgType string, payload any) {
	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		s.Require().NoError(err)
		data = raw
	}
	raw, err := json.Marshal(ws.Message{Type: msgType, Data: data})
	s.Require().NoError(err)
	s.app.Router.HandleMessage(&ws.ClientMessage{Client: client, Data: raw})
}

func (s *RouterSuite) recv(client *ws.Client) ws.Message {
	select {
	case data := <-client.Send:
		var msg ws.Message
		s.Require().NoError(json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		s.Require().FailNow("no message received")
		return ws.Message{}
	}
}

func (s *RouterSuite) recvOfType(client *ws.Client, msgType string) ws.Message {
	msg := s.recv(client)
	s.Require().Equal(msgType, msg.Type, "unexpected message: %s", msg.Data)
	return msg
}

func (s *RouterSuite) expectSilence(client *ws.Client) {
	select {
	case data := <-client.Send:
		s.Require().FailNow(fmt.Sprintf("unexpected message: %s", data))
	case <-time.After(50 * time.Millisecond):
	}
}

func (s *RouterSuite) decode(msg ws.Message, out any) {
	s.Require().NoError(json.Unmarshal(msg.Data, out))
}

// pairViaRoom binds both clients and joins c2 into c1's room.
func (s *RouterSuite) pairViaRoom(c1, c2 *ws.Client, code string) {
	s.hello(c1, "p1", "Alice")
	s.hello(c2, "p2", "Bob")

	s.app.MockRandom.QueueString(code)
	s.send(c1, ws.TypeCreateRoom, map[string]string{"mode": "versus"})
	s.recvOfType(c1, ws.TypeRoomCreated)

	s.send(c2, ws.TypeJoinRoom, map[string]string{"room_code": code})
	s.recvOfType(c2, ws.TypeRoomJoined)
	s.recvOfType(c1, ws.TypePeerJoined)
}

// Hello tests

func (s *RouterSuite) TestHelloMintsIdentity() {
	c1 := s.connect("conn-1")

	s.send(c1, ws.TypeHello, map[string]string{"player_name": "Alice"})
	msg := s.recvOfType(c1, ws.TypeConnected)

	var payload struct {
		PlayerID   string `json:"player_id"`
		PlayerName string `json:"player_name"`
	}
	s.decode(msg, &payload)
	s.NotEmpty(payload.PlayerID)
	s.Equal("Alice", payload.PlayerName)
}

func (s *RouterSuite) TestHelloKeepsPresentedIdentity() {
	c1 := s.connect("conn-1")

	s.send(c1, ws.TypeHello, map[string]string{"player_id": "p1", "player_name": "Alice"})
	msg := s.recvOfType(c1, ws.TypeConnected)

	var payload struct {
		PlayerID string `json:"player_id"`
	}
	s.decode(msg, &payload)
	s.Equal("p1", payload.PlayerID)
}

func (s *RouterSuite) TestHelloDuplicateIdentityRejected() {
	c1 := s.connect("conn-1")
	c2 := s.connect("conn-2")
	s.hello(c1, "p1", "Alice")

	s.send(c2, ws.TypeHello, map[string]string{"player_id": "p1", "player_name": "Alice"})
	msg := s.recvOfType(c2, ws.TypeError)

	var payload ws.ErrorMessage
	s.decode(msg, &payload)
	s.Equal("DUPLICATE_BINDING", payload.Code)
}

func (s *RouterSuite) TestMessageBeforeHelloRejected() {
	c1 := s.connect("conn-1")

	s.send(c1, ws.TypeCreateRoom, map[string]string{"mode": "coop"})
	msg := s.recvOfType(c1, ws.TypeError)

	var payload ws.ErrorMessage
	s.decode(msg, &payload)
	s.Equal("UNAUTHORIZED", payload.Code)
}

func (s *RouterSuite) TestUnknownTypeRejected() {
	c1 := s.connect("conn-1")
	s.hello(c1, "p1", "Alice")

	s.send(c1, "warp_drive", map[string]string{})
	msg := s.recvOfType(c1, ws.TypeError)

	var payload ws.ErrorMessage
	s.decode(msg, &payload)
	s.Equal("INVALID_REQUEST", payload.Code)
}

func (s *RouterSuite) TestMalformedJSONRejected() {
	c1 := s.connect("conn-1")

	s.app.Router.HandleMessage(&ws.ClientMessage{Client: c1, Data: []byte("{nope")})
	msg := s.recvOfType(c1, ws.TypeError)

	var payload ws.ErrorMessage
	s.decode(msg, &payload)
	s.Equal("INVALID_REQUEST", payload.Code)
}

func (s *RouterSuite) TestHeartbeatIsSilent() {
	c1 := s.connect("conn-1")
	s.hello(c1, "p1", "Alice")

	s.send(c1, ws.TypeHeartbeat, nil)
	s.expectSilence(c1)
}

// Room flow tests

func (s *RouterSuite) TestCreateAndJoinFlow() {
	c1 := s.connect("conn-1")
	c2 := s.connect("conn-2")
	s.hello(c1, "p1", "Alice")
	s.hello(c2, "p2", "Bob")

	s.app.MockRandom.QueueString("ABC234")
	s.send(c1, ws.TypeCreateRoom, map[string]string{"mode": "versus", "difficulty": "hard"})
	created := s.recvOfType(c1, ws.TypeRoomCreated)

	var createdPayload struct {
		RoomCode string `json:"room_code"`
		Slot     int    `json:"slot"`
	}
	s.decode(created, &createdPayload)
	s.Equal("ABC234", createdPayload.RoomCode)
	s.Equal(1, createdPayload.Slot)

	s.send(c2, ws.TypeJoinRoom, map[string]string{"room_code": "ABC234"})
	joined := s.recvOfType(c2, ws.TypeRoomJoined)

	var joinedPayload struct {
		Slot int `json:"slot"`
		Room struct {
			Status string `json:"status"`
		} `json:"room"`
	}
	s.decode(joined, &joinedPayload)
	s.Equal(2, joinedPayload.Slot)
	s.Equal("active", joinedPayload.Room.Status)

	peerJoined := s.recvOfType(c1, ws.TypePeerJoined)
	var peerPayload struct {
		Peer struct {
			PlayerID string `json:"player_id"`
			Name     string `json:"name"`
		} `json:"peer"`
	}
	s.decode(peerJoined, &peerPayload)
	s.Equal("p2", peerPayload.Peer.PlayerID)
	s.Equal("Bob", peerPayload.Peer.Name)
}

func (s *RouterSuite) TestJoinMissingRoom() {
	c1 := s.connect("conn-1")
	s.hello(c1, "p1", "Alice")

	s.send(c1, ws.TypeJoinRoom, map[string]string{"room_code": "NOPE"})
	msg := s.recvOfType(c1, ws.TypeError)

	var payload ws.ErrorMessage
	s.decode(msg, &payload)
	s.Equal("ROOM_NOT_FOUND", payload.Code)
}

func (s *RouterSuite) TestCreateRoomBadMode() {
	c1 := s.connect("conn-1")
	s.hello(c1, "p1", "Alice")

	s.send(c1, ws.TypeCreateRoom, map[string]string{"mode": "battle-royale"})
	msg := s.recvOfType(c1, ws.TypeError)

	var payload ws.ErrorMessage
	s.decode(msg, &payload)
	s.Equal("INVALID_REQUEST", payload.Code)
}

func (s *RouterSuite) TestLeaveNotifiesPeer() {
	c1 := s.connect("conn-1")
	c2 := s.connect("conn-2")
	s.pairViaRoom(c1, c2, "ABC234")

	s.send(c2, ws.TypeLeaveRoom, map[string]string{"room_code": "ABC234"})

	left := s.recvOfType(c1, ws.TypePeerLeft)
	var payload struct {
		Reason string `json:"reason"`
	}
	s.decode(left, &payload)
	s.Equal("explicit", payload.Reason)
}

func (s *RouterSuite) TestReadyNotifiesPeer() {
	c1 := s.connect("conn-1")
	c2 := s.connect("conn-2")
	s.pairViaRoom(c1, c2, "ABC234")

	s.send(c2, ws.TypeReady, map[string]any{"room_code": "ABC234", "ready": true})

	ready := s.recvOfType(c1, ws.TypePeerReady)
	var payload struct {
		PlayerID string `json:"player_id"`
		Ready    bool   `json:"ready"`
	}
	s.decode(ready, &payload)
	s.Equal("p2", payload.PlayerID)
	s.True(payload.Ready)
}

// Gameplay relay tests

func (s *RouterSuite) TestGameplayEventReachesPeerOnly() {
	c1 := s.connect("conn-1")
	c2 := s.connect("conn-2")
	s.pairViaRoom(c1, c2, "ABC234")

	s.send(c1, ws.TypePlayerState, map[string]any{
		"room_code": "ABC234",
		"x":         120,
		"y":         340,
	})

	update := s.recvOfType(c2, ws.TypeOpponentUpdate)
	var event model.RelayedEvent
	s.decode(update, &event)
	s.Equal(model.EventPosition, event.Kind)
	s.Equal(model.PlayerID("p1"), event.Origin)

	var inner struct {
		X int `json:"x"`
	}
	s.Require().NoError(json.Unmarshal(event.Payload, &inner))
	s.Equal(120, inner.X)

	s.expectSilence(c1)
}

func (s *RouterSuite) TestEventKindsMapFromMessageTypes() {
	c1 := s.connect("conn-1")
	c2 := s.connect("conn-2")
	s.pairViaRoom(c1, c2, "ABC234")

	cases := map[string]model.EventKind{
		ws.TypePlayerShoot:   model.EventShoot,
		ws.TypePlayerHit:     model.EventHit,
		ws.TypeSendHazard:    model.EventHazard,
		ws.TypePlayerDied:    model.EventDied,
		ws.TypePlayerRespawn: model.EventRespawn,
		ws.TypeSpawnEnemy:    model.EventEnemySpawn,
		ws.TypeSpawnBoss:     model.EventBossSpawn,
		ws.TypeBossDamage:    model.EventBossDamage,
		ws.TypeBossDefeated:  model.EventBossDefeated,
		ws.TypeRoundEnd:      model.EventRoundEnd,
	}
	for msgType, kind := range cases {
		s.send(c1, msgType, map[string]any{"room_code": "ABC234"})
		update := s.recvOfType(c2, ws.TypeOpponentUpdate)
		var event model.RelayedEvent
		s.decode(update, &event)
		s.Equal(kind, event.Kind)
	}
}

func (s *RouterSuite) TestGameplayOutsideRoomRejected() {
	c1 := s.connect("conn-1")
	s.hello(c1, "p1", "Alice")

	s.send(c1, ws.TypePlayerState, map[string]any{"room_code": "NOPE"})
	msg := s.recvOfType(c1, ws.TypeError)

	var payload ws.ErrorMessage
	s.decode(msg, &payload)
	s.Equal("ROOM_NOT_FOUND", payload.Code)
}

func (s *RouterSuite) TestChatIsTruncated() {
	c1 := s.connect("conn-1")
	c2 := s.connect("conn-2")
	s.pairViaRoom(c1, c2, "ABC234")

	long := strings.Repeat("x", 150)
	s.send(c1, ws.TypeChat, map[string]string{"room_code": "ABC234", "message": long})

	update := s.recvOfType(c2, ws.TypeOpponentUpdate)
	var event model.RelayedEvent
	s.decode(update, &event)
	s.Equal(model.EventChat, event.Kind)

	var chat struct {
		Message string `json:"message"`
	}
	s.Require().NoError(json.Unmarshal(event.Payload, &chat))
	s.Len(chat.Message, 100)
}

// Matchmaking tests

func (s *RouterSuite) TestMatchmakingPairsTwoClients() {
	c1 := s.connect("conn-1")
	c2 := s.connect("conn-2")
	s.hello(c1, "p1", "Alice")
	s.hello(c2, "p2", "Bob")

	s.app.MockRandom.QueueString("ABC234")

	s.send(c1, ws.TypeEnqueueMatch, map[string]string{"mode": "coop"})
	s.recvOfType(c1, ws.TypeMatchQueued)

	s.send(c2, ws.TypeEnqueueMatch, map[string]string{"mode": "coop"})

	found1 := s.recvOfType(c1, ws.TypeMatchFound)
	var payload struct {
		RoomCode string `json:"room_code"`
	}
	s.decode(found1, &payload)
	s.Equal("ABC234", payload.RoomCode)

	// Pairing fires inside the enqueue, so the second player sees
	// match_found ahead of their own acknowledgment.
	s.recvOfType(c2, ws.TypeMatchFound)
	s.recvOfType(c2, ws.TypeMatchQueued)
}

func (s *RouterSuite) TestEnqueueTwiceRejected() {
	c1 := s.connect("conn-1")
	s.hello(c1, "p1", "Alice")

	s.send(c1, ws.TypeEnqueueMatch, map[string]string{"mode": "coop"})
	s.recvOfType(c1, ws.TypeMatchQueued)

	s.send(c1, ws.TypeEnqueueMatch, map[string]string{"mode": "coop"})
	msg := s.recvOfType(c1, ws.TypeError)

	var payload ws.ErrorMessage
	s.decode(msg, &payload)
	s.Equal("ALREADY_QUEUED", payload.Code)
}

func (s *RouterSuite) TestCancelMatchIsSilentNoop() {
	c1 := s.connect("conn-1")
	s.hello(c1, "p1", "Alice")

	s.send(c1, ws.TypeCancelMatch, nil)
	s.expectSilence(c1)
}

// End game tests

func (s *RouterSuite) TestEndGameDeliversGameOverToBoth() {
	c1 := s.connect("conn-1")
	c2 := s.connect("conn-2")
	s.pairViaRoom(c1, c2, "ABC234")

	s.send(c1, ws.TypeEndGame, map[string]any{
		"room_code": "ABC234",
		"winner_id": "p1",
		"scores":    map[string]int{"p1": 4200, "p2": 3100},
	})

	for _, c := range []*ws.Client{c1, c2} {
		over := s.recvOfType(c, ws.TypeGameOver)
		var payload struct {
			Outcome string `json:"outcome"`
			Winner  string `json:"winner_id"`
		}
		s.decode(over, &payload)
		s.Equal("ended", payload.Outcome)
		s.Equal("p1", payload.Winner)
	}
}

func (s *RouterSuite) TestSecondEndGameIsSilent() {
	c1 := s.connect("conn-1")
	c2 := s.connect("conn-2")
	s.pairViaRoom(c1, c2, "ABC234")

	s.send(c1, ws.TypeEndGame, map[string]any{"room_code": "ABC234"})
	s.recvOfType(c1, ws.TypeGameOver)
	s.recvOfType(c2, ws.TypeGameOver)

	// The peer's duplicate end_game races the first; it is dropped,
	// not surfaced as an error.
	s.send(c2, ws.TypeEndGame, map[string]any{"room_code": "ABC234"})
	s.expectSilence(c2)
}

// Disconnect tests

func (s *RouterSuite) TestDisconnectNotifiesPeer() {
	c1 := s.connect("conn-1")
	c2 := s.connect("conn-2")
	s.pairViaRoom(c1, c2, "ABC234")

	s.app.Router.HandleDisconnect(c2)

	left := s.recvOfType(c1, ws.TypePeerLeft)
	var payload struct {
		Reason string `json:"reason"`
	}
	s.decode(left, &payload)
	s.Equal("explicit", payload.Reason)
}

func (s *RouterSuite) TestDisconnectFreesIdentityForRebind() {
	c1 := s.connect("conn-1")
	s.hello(c1, "p1", "Alice")

	s.app.Router.HandleDisconnect(c1)

	c2 := s.connect("conn-2")
	s.hello(c2, "p1", "Alice")
}
