package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/petitbac/go/internal/game"
)

type frame struct {
	Action game.EventName  `json:"action"`
	Data   json.RawMessage `json:"data"`
}

func newTestService(t *testing.T, results ResultsProvider) (*Service, *httptest.Server) {
	t.Helper()

	logger := zerolog.Nop()
	service := NewService(DefaultConfig(), game.Options{
		Clock:  clockwork.NewFakeClock(),
		Logger: &logger,
	}, results)
	server := httptest.NewServer(service.Handler())

	t.Cleanup(func() {
		server.Close()
		service.Stop()
	})
	return service, server
}

func dial(t *testing.T, server *httptest.Server, slug string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/" + slug
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, action ClientAction, data any) {
	t.Helper()

	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(ClientMessage{Action: action, Data: raw}))
}

// readUntil reads frames until one named action arrives.
func readUntil(t *testing.T, conn *websocket.Conn, action game.EventName) frame {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var f frame
		require.NoError(t, conn.ReadJSON(&f), "waiting for %s", action)
		if f.Action == action {
			return f
		}
	}
}

func joinedPlayer(t *testing.T, f frame) game.PlayerView {
	t.Helper()

	var payload game.PlayerJoinPayload
	require.NoError(t, json.Unmarshal(f.Data, &payload))
	return payload.Player
}

func TestGateway_JoinStartAndDisconnect(t *testing.T) {
	service, server := newTestService(t, nil)

	alice, bob := uuid.New(), uuid.New()

	aliceConn := dial(t, server, "room")
	send(t, aliceConn, ActionJoin, JoinData{UUID: alice, Pseudonym: "  Alice "})

	self := joinedPlayer(t, readUntil(t, aliceConn, game.EventPlayerJoin))
	assert.Equal(t, alice, self.UUID)
	assert.Equal(t, "Alice", self.Pseudonym)
	assert.True(t, self.Master)
	readUntil(t, aliceConn, game.EventConfigUpdated)

	bobConn := dial(t, server, "room")
	send(t, bobConn, ActionJoin, JoinData{UUID: bob, Pseudonym: "Bob"})

	other := joinedPlayer(t, readUntil(t, aliceConn, game.EventPlayerJoin))
	assert.Equal(t, bob, other.UUID)
	assert.False(t, other.Master)

	// Only the master may start.
	send(t, bobConn, ActionStart, nil)
	send(t, aliceConn, ActionStart, nil)

	for _, conn := range []*websocket.Conn{aliceConn, bobConn} {
		var started game.RoundStartedPayload
		require.NoError(t, json.Unmarshal(readUntil(t, conn, game.EventRoundStarted).Data, &started))
		assert.Equal(t, 1, started.Turn)
		assert.Len(t, started.Letter, 1)
	}

	require.NoError(t, bobConn.Close())

	var left game.PlayerLeftPayload
	require.NoError(t, json.Unmarshal(readUntil(t, aliceConn, game.EventPlayerLeft).Data, &left))
	assert.Equal(t, bob, left.Player.UUID)

	session, err := service.Registry().Get("room")
	require.NoError(t, err)
	summary, err := session.Summary()
	require.NoError(t, err)
	assert.Equal(t, game.PhaseRoundAnswers, summary.Phase)
	assert.Equal(t, 1, summary.OnlinePlayers)
	assert.Equal(t, 2, summary.TotalPlayers)
}

func TestGateway_IntentsBeforeJoinAreIgnored(t *testing.T) {
	service, server := newTestService(t, nil)

	alice := uuid.New()
	aliceConn := dial(t, server, "lobby")
	send(t, aliceConn, ActionJoin, JoinData{UUID: alice, Pseudonym: "Alice"})
	readUntil(t, aliceConn, game.EventConfigUpdated)

	stranger := dial(t, server, "lobby")
	require.NoError(t, stranger.WriteMessage(websocket.TextMessage, []byte("not json")))
	send(t, stranger, ActionStart, nil)
	send(t, stranger, ActionJoin, JoinData{UUID: uuid.New(), Pseudonym: "   "})

	session, err := service.Registry().Get("lobby")
	require.NoError(t, err)

	// Summary is processed after everything already queued by the session.
	assert.Never(t, func() bool {
		summary, err := session.Summary()
		return err != nil || summary.Phase != game.PhaseConfig || summary.TotalPlayers != 1
	}, 300*time.Millisecond, 20*time.Millisecond)
}

func TestGateway_LeaveUnbindsConnection(t *testing.T) {
	service, server := newTestService(t, nil)

	alice, bob := uuid.New(), uuid.New()
	aliceConn := dial(t, server, "room")
	send(t, aliceConn, ActionJoin, JoinData{UUID: alice, Pseudonym: "Alice"})
	readUntil(t, aliceConn, game.EventConfigUpdated)

	bobConn := dial(t, server, "room")
	send(t, bobConn, ActionJoin, JoinData{UUID: bob, Pseudonym: "Bob"})
	readUntil(t, bobConn, game.EventConfigUpdated)

	send(t, bobConn, ActionLeave, nil)
	readUntil(t, aliceConn, game.EventPlayerLeft)

	// Bob's connection is no longer bound: its intents go nowhere.
	send(t, bobConn, ActionSubmitAnswers, SubmitAnswersData{Answers: map[string]any{"Pays": "France"}})

	session, err := service.Registry().Get("room")
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		summary, err := session.Summary()
		return err == nil && summary.TotalPlayers == 1
	}, time.Second, 10*time.Millisecond)
}

func TestGateway_StatsTrackOpenSockets(t *testing.T) {
	service, server := newTestService(t, nil)

	conn := dial(t, server, "short-lived")
	send(t, conn, ActionJoin, JoinData{UUID: uuid.New(), Pseudonym: "Alice"})
	readUntil(t, conn, game.EventConfigUpdated)
	require.Equal(t, 1, service.Registry().Len())

	assert.Eventually(t, func() bool {
		return service.Stats().TotalConnections == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		return service.Stats().TotalConnections == 0
	}, time.Second, 10*time.Millisecond)
}

func TestConnectionManager_SendToUnknownConnection(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig(), nil)

	assert.NotPanics(t, func() {
		cm.Send("missing", game.Event{Name: game.EventRoundEnded, Payload: game.RoundEndedPayload{}})
	})
	assert.Equal(t, 0, cm.Stats().TotalConnections)
}

func TestGateway_StatsSlugIsAnOrdinarySession(t *testing.T) {
	service, server := newTestService(t, nil)

	conn := dial(t, server, "stats")
	send(t, conn, ActionJoin, JoinData{UUID: uuid.New(), Pseudonym: "Alice"})
	readUntil(t, conn, game.EventConfigUpdated)

	_, err := service.Registry().Get("stats")
	require.NoError(t, err)

	resp, body := get(t, server, "/api/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats ConnectionStats
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, 1, stats.TotalConnections)
	assert.Equal(t, map[string]int{"stats": 1}, stats.Sessions)
}
