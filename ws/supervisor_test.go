package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

// A leaked retry timer or read loop that outlives Disconnect is the
// failure class these tests guard against.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/golang/glog.(*loggingT).flushDaemon"),
		goleak.IgnoreTopFunction("github.com/golang/glog.(*fileSink).flushDaemon"),
	)
}

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsServer runs handler per accepted connection and records the query
// string (the connect token) of every attempt.
type wsServer struct {
	ts *httptest.Server

	mu     sync.Mutex
	tokens []string
}

func newWSServer(t *testing.T, handler func(conn *websocket.Conn)) *wsServer {
	t.Helper()
	s := &wsServer{}
	s.ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.tokens = append(s.tokens, r.URL.RawQuery)
		s.mu.Unlock()

		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		handler(conn)
	}))
	t.Cleanup(s.ts.Close)
	return s
}

func (s *wsServer) url() string {
	return "ws" + strings.TrimPrefix(s.ts.URL, "http")
}

func (s *wsServer) seenTokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tokens...)
}

// holdOpen keeps the connection up until the client closes it.
func holdOpen(conn *websocket.Conn) {
	defer conn.Close()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func newTestSupervisor(endpoint string, retryDelay time.Duration) *Supervisor {
	return NewSupervisor(Config{
		Endpoint:   endpoint,
		Channels:   []ChannelConf{{Name: "chat", Path: "/chat"}},
		RetryDelay: retryDelay,
	})
}

// waitEvent discards events until one of the wanted kind arrives.
func waitEvent(t *testing.T, sup *Supervisor, kind EventKind) Event {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-sup.Events():
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", kind)
			return Event{}
		}
	}
}

func TestConnectWithoutToken(t *testing.T) {
	sup := newTestSupervisor("ws://127.0.0.1:1", time.Hour)
	assert.ErrorIs(t, sup.Connect(""), ErrNotAuthenticated)
	assert.Equal(t, StateIdle, sup.State("chat"))
}

func TestConnectReceiveSend(t *testing.T) {
	frames := make(chan []byte, 1)
	srv := newWSServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"hello":"world"}`))
		if _, data, err := conn.ReadMessage(); err == nil {
			frames <- data
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	sup := newTestSupervisor(srv.url(), time.Hour)
	defer sup.Disconnect()

	assert.NoError(t, sup.Connect("tok-1"))
	waitEvent(t, sup, EventOpen)
	assert.True(t, sup.Connected("chat"))
	assert.Equal(t, StateOpen, sup.State("chat"))

	ev := waitEvent(t, sup, EventMessage)
	assert.Equal(t, "chat", ev.Channel)
	assert.JSONEq(t, `{"hello":"world"}`, string(ev.Data))

	assert.NoError(t, sup.Send("chat", []byte(`ping`)))
	select {
	case data := <-frames:
		assert.Equal(t, "ping", string(data))
	case <-time.After(3 * time.Second):
		t.Fatal("server did not receive the sent frame")
	}

	assert.Equal(t, []string{"tok-1"}, srv.seenTokens())
}

func TestSendWhileDown(t *testing.T) {
	sup := newTestSupervisor("ws://127.0.0.1:1", time.Hour)
	assert.Error(t, sup.Send("chat", []byte(`x`)))
	assert.Error(t, sup.Send("nope", []byte(`x`)))
}

func TestReconnectAfterClose(t *testing.T) {
	var n int
	var mu sync.Mutex
	srv := newWSServer(t, func(conn *websocket.Conn) {
		mu.Lock()
		n++
		first := n == 1
		mu.Unlock()
		if first {
			// Drop the first connection to force a reconnect.
			conn.Close()
			return
		}
		holdOpen(conn)
	})

	sup := newTestSupervisor(srv.url(), 20*time.Millisecond)
	defer sup.Disconnect()

	assert.NoError(t, sup.Connect("tok-1"))
	waitEvent(t, sup, EventOpen)
	waitEvent(t, sup, EventClosed)
	assert.False(t, sup.Connected("chat"))

	// Exactly one retry was scheduled; it lands on the second accept.
	waitEvent(t, sup, EventOpen)
	assert.True(t, sup.Connected("chat"))
	assert.Equal(t, []string{"tok-1", "tok-1"}, srv.seenTokens())
}

func TestDisconnectPreventsScheduledRetry(t *testing.T) {
	srv := newWSServer(t, func(conn *websocket.Conn) {
		conn.Close()
	})

	sup := newTestSupervisor(srv.url(), 100*time.Millisecond)
	assert.NoError(t, sup.Connect("tok-1"))
	waitEvent(t, sup, EventClosed)

	// Disconnect before the retry fires; the attempt must not happen.
	sup.Disconnect()
	assert.Equal(t, StateIdle, sup.State("chat"))

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, StateIdle, sup.State("chat"))
	assert.Len(t, srv.seenTokens(), 1)
}

func TestDisconnectIdempotent(t *testing.T) {
	srv := newWSServer(t, func(conn *websocket.Conn) {
		holdOpen(conn)
	})

	sup := newTestSupervisor(srv.url(), time.Hour)
	assert.NoError(t, sup.Connect("tok-1"))
	waitEvent(t, sup, EventOpen)

	sup.Disconnect()
	sup.Disconnect()
	sup.Disconnect()
	assert.Equal(t, StateIdle, sup.State("chat"))
}

func TestNoRetryWhileDisconnected(t *testing.T) {
	sup := newTestSupervisor("ws://127.0.0.1:1", time.Hour)
	sup.Disconnect()
	assert.Equal(t, StateIdle, sup.State("chat"))
}

func TestRotateReconnectsUnderNewToken(t *testing.T) {
	srv := newWSServer(t, func(conn *websocket.Conn) {
		holdOpen(conn)
	})

	sup := newTestSupervisor(srv.url(), time.Hour)
	defer sup.Disconnect()

	assert.NoError(t, sup.Connect("tok-1"))
	waitEvent(t, sup, EventOpen)

	sup.Rotate("tok-2")
	waitEvent(t, sup, EventOpen)
	assert.True(t, sup.Connected("chat"))
	assert.Equal(t, []string{"tok-1", "tok-2"}, srv.seenTokens())
}

func TestRotateEmptyTokenDisconnects(t *testing.T) {
	srv := newWSServer(t, func(conn *websocket.Conn) {
		holdOpen(conn)
	})

	sup := newTestSupervisor(srv.url(), time.Hour)
	assert.NoError(t, sup.Connect("tok-1"))
	waitEvent(t, sup, EventOpen)

	sup.Rotate("")
	assert.Equal(t, StateIdle, sup.State("chat"))
	assert.Len(t, srv.seenTokens(), 1)
}

func TestChannelsFailIndependently(t *testing.T) {
	dropStatus := make(chan struct{})
	srv := &wsServer{}
	srv.ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		isStatus := r.URL.Path == "/chat/onlineStatus"
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if isStatus {
			<-dropStatus
			conn.Close()
			return
		}
		holdOpen(conn)
	}))
	defer srv.ts.Close()

	sup := NewSupervisor(Config{
		Endpoint: srv.url(),
		Channels: []ChannelConf{
			{Name: "chat", Path: "/chat"},
			{Name: "status", Path: "/chat/onlineStatus"},
		},
		RetryDelay: time.Hour,
	})
	defer sup.Disconnect()

	assert.NoError(t, sup.Connect("tok-1"))
	waitEvent(t, sup, EventOpen)
	waitEvent(t, sup, EventOpen)

	// Drop the status connection server side; the sibling must stay open.
	close(dropStatus)
	ev := waitEvent(t, sup, EventClosed)
	assert.Equal(t, "status", ev.Channel)
	assert.True(t, sup.Connected("chat"))
	assert.False(t, sup.Connected("status"))
}
