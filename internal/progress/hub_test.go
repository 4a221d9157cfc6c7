package progress

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lehigh-university-libraries/cardpress/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func dial(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?session=" + sessionID
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	return ws
}

func readEvent(t *testing.T, ws *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev Event
	require.NoError(t, ws.ReadJSON(&ev))
	return ev
}

func waitSubscribers(t *testing.T, hub *Hub, sessionID string, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.Subscribers(sessionID) == n
	}, 5*time.Second, 10*time.Millisecond)
}

func newServer(hub *Hub) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session"))
	}))
}

func TestHubStreamsSessionEvents(t *testing.T) {
	hub := NewHub()
	srv := newServer(hub)
	defer srv.Close()

	a := dial(t, srv, "a")
	b := dial(t, srv, "b")
	waitSubscribers(t, hub, "a", 1)
	waitSubscribers(t, hub, "b", 1)

	report := hub.Reporter("a")
	report(models.Progress{Total: 2, Processed: 1, Percentage: 50, CurrentCard: "1/2"})
	hub.Publish(Event{Type: EventDone, SessionID: "b", File: "x.zip"})

	ev := readEvent(t, a)
	assert.Equal(t, EventProgress, ev.Type)
	require.NotNil(t, ev.Progress)
	assert.Equal(t, "1/2", ev.Progress.CurrentCard)
	assert.Equal(t, 50, ev.Progress.Percentage)

	ev = readEvent(t, b)
	assert.Equal(t, EventDone, ev.Type)
	assert.Equal(t, "x.zip", ev.File)

	require.NoError(t, a.Close())
	require.NoError(t, b.Close())
	waitSubscribers(t, hub, "a", 0)
	waitSubscribers(t, hub, "b", 0)
}

func TestHubReplaysLastEventOnJoin(t *testing.T) {
	hub := NewHub()
	srv := newServer(hub)
	defer srv.Close()

	hub.Publish(Event{Type: EventError, SessionID: "s", Message: "boom"})

	ws := dial(t, srv, "s")
	ev := readEvent(t, ws)
	assert.Equal(t, EventError, ev.Type)
	assert.Equal(t, "boom", ev.Message)

	last, ok := hub.Last("s")
	require.True(t, ok)
	assert.Equal(t, "boom", last.Message)

	require.NoError(t, ws.Close())
	waitSubscribers(t, hub, "s", 0)
}

func TestHubForget(t *testing.T) {
	hub := NewHub()
	srv := newServer(hub)
	defer srv.Close()

	ws := dial(t, srv, "gone")
	waitSubscribers(t, hub, "gone", 1)
	hub.Publish(Event{Type: EventProgress, SessionID: "gone"})
	_ = readEvent(t, ws)

	hub.Forget("gone")
	_, ok := hub.Last("gone")
	assert.False(t, ok)

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := ws.ReadMessage()
	assert.Error(t, err)
	ws.Close()
}

func TestHubPublishDoesNotWaitOnStalledSubscriber(t *testing.T) {
	hub := NewHub()
	srv := newServer(hub)
	defer srv.Close()

	stalled := dial(t, srv, "slow")
	defer stalled.Close()
	live := dial(t, srv, "fast")
	defer live.Close()
	waitSubscribers(t, hub, "slow", 1)
	waitSubscribers(t, hub, "fast", 1)

	// nothing reads from the stalled connection, so its socket buffers fill
	payload := strings.Repeat("x", 64<<10)
	start := time.Now()
	for range 400 {
		hub.Publish(Event{Type: EventProgress, SessionID: "slow", Message: payload})
	}
	assert.Less(t, time.Since(start), time.Second)

	hub.Publish(Event{Type: EventDone, SessionID: "fast", File: "cards.zip"})
	ev := readEvent(t, live)
	assert.Equal(t, EventDone, ev.Type)

	waitSubscribers(t, hub, "slow", 0)
	last, ok := hub.Last("slow")
	require.True(t, ok)
	assert.Equal(t, payload, last.Message)
}
