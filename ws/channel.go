package ws

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 3 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = 20 * time.Second

	// Time allowed to read the next frame or pong from the peer.
	pongWait = 25 * time.Second

	// websocket max message size to read.
	readLimit = 4096
)

// Channel is one logical bidirectional event stream to the server,
// independently dialed and independently reconnected. All instances
// share one implementation parameterized by name and URL path; the
// supervisor owns the registry and the token.
type Channel struct {
	name string
	path string
	sup  *Supervisor

	mu         sync.Mutex
	state      State
	conn       *websocket.Conn
	quit       chan struct{}
	retry      *time.Timer
	retryCount int

	// gen invalidates callbacks from superseded connections: every dial
	// and every teardown bumps it, and a read loop or dial whose
	// generation is stale must not touch channel state.
	gen int

	// gorilla conns allow one concurrent writer; sends and pings share
	// this lock.
	writeMu sync.Mutex
}

func (ch *Channel) String() string {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return fmt.Sprintf("channel{name: %s, state: %s, retries: %d}", ch.name, ch.state, ch.retryCount)
}

// State returns the current lifecycle state.
func (ch *Channel) State() State {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.state
}

// connect moves an Idle or Closed channel to Connecting and dials in the
// background. Already connecting or open channels are left alone.
func (ch *Channel) connect(token string) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.state == StateConnecting || ch.state == StateOpen {
		return
	}
	ch.cancelRetryLocked()
	ch.startLocked(token)
}

// startLocked transitions to Connecting under ch.mu and spawns the dial.
func (ch *Channel) startLocked(token string) {
	ch.state = StateConnecting
	ch.gen++
	go ch.dial(ch.gen, token)
}

func (ch *Channel) connectURL(token string) string {
	return ch.sup.endpoint + ch.path + "?" + url.QueryEscape(token)
}

func (ch *Channel) dial(gen int, token string) {
	conn, resp, err := ch.sup.dialer.Dial(ch.connectURL(token), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		glog.Errorf("dial(): channel %s: %v", ch.name, err)
		metricErrors.WithLabelValues(ch.name).Inc()
		ch.transportClosed(gen)
		return
	}

	ch.mu.Lock()
	if gen != ch.gen {
		ch.mu.Unlock()
		conn.Close()
		return
	}
	ch.conn = conn
	ch.state = StateOpen
	ch.retryCount = 0
	quit := make(chan struct{})
	ch.quit = quit
	ch.mu.Unlock()

	glog.Infof("dial(): channel %s: connected", ch.name)
	ch.sup.emit(Event{Channel: ch.name, Kind: EventOpen})

	go ch.readLoop(gen, conn)
	go ch.pingLoop(conn, quit)
}

// readLoop delivers inbound frames in transport arrival order until the
// connection fails, then reports the closure.
func (ch *Channel) readLoop(gen int, conn *websocket.Conn) {
	conn.SetReadLimit(readLimit)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			glog.Errorf("readLoop(): channel %s: read error: %v", ch.name, err)
			metricErrors.WithLabelValues(ch.name).Inc()
			break
		}
		glog.V(5).Infof("readLoop(): channel %s: inbound frame: %s", ch.name, data)
		metricEvents.WithLabelValues(ch.name).Inc()
		ch.sup.emit(Event{Channel: ch.name, Kind: EventMessage, Data: data})
	}

	ch.transportClosed(gen)
}

func (ch *Channel) pingLoop(conn *websocket.Conn, quit <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			ch.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			ch.writeMu.Unlock()
			if err != nil {
				// The read loop observes the same failure and drives the
				// Closed transition.
				glog.V(5).Infof("pingLoop(): channel %s: write error: %v", ch.name, err)
				return
			}
		}
	}
}

// transportClosed resolves any transport failure through the Closed
// state and, when reconnection is still allowed, schedules exactly one
// retry. Stale generations are ignored, so a failed dial and a failed
// read of the same connection cannot both act.
func (ch *Channel) transportClosed(gen int) {
	ch.mu.Lock()
	if gen != ch.gen {
		ch.mu.Unlock()
		return
	}
	ch.gen++
	ch.closeQuitLocked()
	if ch.conn != nil {
		ch.conn.Close()
		ch.conn = nil
	}
	ch.state = StateClosed

	if ch.sup.reconnectAllowed() {
		ch.retryCount++
		metricReconnects.WithLabelValues(ch.name).Inc()
		delay := ch.sup.retryDelay
		ch.retry = time.AfterFunc(delay, ch.retryFire)
		glog.Warningf("transportClosed(): channel %s: closed, retry %d in %s", ch.name, ch.retryCount, delay)
	} else {
		glog.Warningf("transportClosed(): channel %s: closed, reconnect disabled", ch.name)
	}
	ch.mu.Unlock()

	ch.sup.emit(Event{Channel: ch.name, Kind: EventClosed})
}

// retryFire runs from the retry timer. Disconnect may have raced the
// timer; both the token check and the state check keep a late firing
// from resurrecting a torn-down channel.
func (ch *Channel) retryFire() {
	token, ok := ch.sup.tokenIfAllowed()
	if !ok {
		return
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.state != StateClosed {
		return
	}
	ch.retry = nil
	ch.startLocked(token)
}

// stop is the explicit-disconnect transition: cancel any pending retry,
// close the transport and settle in Idle. Safe to call in any state.
func (ch *Channel) stop() {
	ch.mu.Lock()
	ch.cancelRetryLocked()
	ch.gen++
	ch.closeQuitLocked()
	conn := ch.conn
	ch.conn = nil
	ch.state = StateIdle
	ch.retryCount = 0
	ch.mu.Unlock()

	if conn != nil {
		ch.writeMu.Lock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
		ch.writeMu.Unlock()
		conn.Close()
	}
	glog.V(5).Infof("stop(): channel %s: idle", ch.name)
}

func (ch *Channel) closeQuitLocked() {
	if ch.quit != nil {
		close(ch.quit)
		ch.quit = nil
	}
}

func (ch *Channel) cancelRetryLocked() {
	if ch.retry != nil {
		ch.retry.Stop()
		ch.retry = nil
	}
}

// send frames one text message on an open channel.
func (ch *Channel) send(payload []byte) error {
	ch.mu.Lock()
	conn := ch.conn
	open := ch.state == StateOpen
	ch.mu.Unlock()
	if !open || conn == nil {
		return fmt.Errorf("channel %s is not open", ch.name)
	}

	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, payload)
}
