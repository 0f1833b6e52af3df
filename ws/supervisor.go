// Package ws maintains the client's long-lived websocket channels: one
// generic Channel implementation dialed N times under one Supervisor,
// bound to the current session token, each reconnecting independently.
package ws

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
)

// DefaultRetryDelay is the fixed delay before a closed channel redials.
const DefaultRetryDelay = 3 * time.Second

// ErrNotAuthenticated is returned when a connect is attempted without a
// session token. Channels stay Idle until a token is observed.
var ErrNotAuthenticated = errors.New("not authenticated: no session token")

// ChannelConf names one logical stream and its URL path suffix.
type ChannelConf struct {
	Name string
	Path string
}

// Config configures a Supervisor.
type Config struct {
	// Endpoint is the websocket base URL, e.g. ws://127.0.0.1:8000.
	Endpoint string

	// Channels registers the logical streams to maintain.
	Channels []ChannelConf

	// RetryDelay overrides DefaultRetryDelay when positive.
	RetryDelay time.Duration

	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// EventBuffer sizes the event stream, default 64.
	EventBuffer int
}

// Supervisor owns the set of named channels, binds them to the current
// token and applies the reconnect policy to each independently. One
// channel failing never blocks or restarts its siblings.
type Supervisor struct {
	endpoint   string
	retryDelay time.Duration
	dialer     *websocket.Dialer
	events     chan Event

	mu        sync.RWMutex
	token     string
	reconnect bool
	channels  map[string]*Channel
	order     []string
}

// NewSupervisor creates the supervisor with all channels Idle. Nothing
// connects until Connect or Rotate observes a token.
func NewSupervisor(conf Config) *Supervisor {
	retryDelay := conf.RetryDelay
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	dialer := conf.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	bufSize := conf.EventBuffer
	if bufSize <= 0 {
		bufSize = 64
	}

	s := &Supervisor{
		endpoint:   conf.Endpoint,
		retryDelay: retryDelay,
		dialer:     dialer,
		events:     make(chan Event, bufSize),
		channels:   make(map[string]*Channel),
	}
	for _, cc := range conf.Channels {
		s.channels[cc.Name] = &Channel{name: cc.Name, path: cc.Path, sup: s}
		s.order = append(s.order, cc.Name)
	}
	return s
}

// Events returns the ordered event stream shared by all channels. Within
// one channel, events preserve transport arrival order; across channels
// there is no ordering guarantee.
func (s *Supervisor) Events() <-chan Event {
	return s.events
}

// Connect binds every registered channel to token and starts dialing.
// Without a token nothing is attempted and ErrNotAuthenticated is
// returned.
func (s *Supervisor) Connect(token string) error {
	if token == "" {
		return ErrNotAuthenticated
	}

	s.mu.Lock()
	s.token = token
	s.reconnect = true
	chans := s.ordered()
	s.mu.Unlock()

	glog.Infof("Connect(): connecting %d channels", len(chans))
	for _, ch := range chans {
		ch.connect(token)
	}
	return nil
}

// Disconnect disables reconnection, closes every open or connecting
// channel and clears the token. Repeated calls are no-ops beyond the
// first.
func (s *Supervisor) Disconnect() {
	s.mu.Lock()
	if !s.reconnect && s.token == "" {
		s.mu.Unlock()
		return
	}
	s.token = ""
	s.reconnect = false
	chans := s.ordered()
	s.mu.Unlock()

	glog.Infof("Disconnect(): closing %d channels", len(chans))
	for _, ch := range chans {
		ch.stop()
	}
}

// Rotate tears every channel down and re-establishes it under the new
// token. An empty token behaves as Disconnect: the credential was
// cleared.
func (s *Supervisor) Rotate(token string) {
	if token == "" {
		s.Disconnect()
		return
	}

	s.mu.Lock()
	s.token = token
	s.reconnect = true
	chans := s.ordered()
	s.mu.Unlock()

	glog.Infof("Rotate(): reconnecting %d channels under new token", len(chans))
	for _, ch := range chans {
		ch.stop()
		ch.connect(token)
	}
}

// Send frames one text message on the named channel.
func (s *Supervisor) Send(name string, payload []byte) error {
	ch := s.channel(name)
	if ch == nil {
		return fmt.Errorf("unknown channel: %s", name)
	}
	return ch.send(payload)
}

// Connected reports whether the named channel is Open. Unknown names
// report false.
func (s *Supervisor) Connected(name string) bool {
	return s.State(name) == StateOpen
}

// State returns the named channel's lifecycle state, StateIdle for
// unknown names.
func (s *Supervisor) State(name string) State {
	ch := s.channel(name)
	if ch == nil {
		return StateIdle
	}
	return ch.State()
}

func (s *Supervisor) channel(name string) *Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.channels[name]
}

// ordered returns the channels in registration order; callers must hold
// s.mu.
func (s *Supervisor) ordered() []*Channel {
	out := make([]*Channel, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.channels[name])
	}
	return out
}

func (s *Supervisor) reconnectAllowed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reconnect && s.token != ""
}

func (s *Supervisor) tokenIfAllowed() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.reconnect || s.token == "" {
		return "", false
	}
	return s.token, true
}

// emit never blocks: a stalled consumer drops events instead of wedging
// the read loops.
func (s *Supervisor) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		glog.Warningf("emit(): event stream full, dropping %s event for channel %s", ev.Kind, ev.Channel)
	}
}
