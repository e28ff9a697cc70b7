package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSocketUpgrader(t *testing.T) {
	t.Run("check origin allows any origin", func(t *testing.T) {
		allowed := upgrader.CheckOrigin(&http.Request{
			Header: http.Header{"Origin": []string{"http://example.com"}},
		})
		assert.True(t, allowed)
	})

	t.Run("buffer sizes", func(t *testing.T) {
		assert.Equal(t, 1024, upgrader.ReadBufferSize)
		assert.Equal(t, 1024, upgrader.WriteBufferSize)
	})
}

func TestProgressWebSocketHandler_StreamsEventsUntilDone(t *testing.T) {
	events := make(chan IterationEvent, 2)
	events <- IterationEvent{Type: "iteration", Iteration: 1, ExpLoss: 0.9}
	events <- IterationEvent{Type: "iteration", Iteration: 2, Done: true}
	close(events)

	run := stubEventRunner{events: events}
	server := &Server{run: run}

	ts := httptest.NewServer(http.HandlerFunc(server.progressWebSocketHandler))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var first, second IterationEvent
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))

	assert.Equal(t, 1, first.Iteration)
	assert.Equal(t, 2, second.Iteration)
	assert.True(t, second.Done)
}

type stubEventRunner struct {
	events chan IterationEvent
}

func (r stubEventRunner) Status() RunStatus { return RunStatus{} }

func (r stubEventRunner) Subscribe() (<-chan IterationEvent, func()) {
	return r.events, func() {}
}
