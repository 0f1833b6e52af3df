// Package presence maintains the online-user set fed by the status
// channel.
package presence

import (
	"encoding/json"
	"sync"

	"github.com/golang/glog"
)

// snapshot is the wire shape of one presence event: the full replacement
// list of currently online user ids.
type snapshot struct {
	OnlineUsersId []string `json:"onlineUsersId"`
}

// Tracker holds the most recent presence snapshot. Each valid payload
// replaces the set wholesale; the set is never a union of history. A
// single writer (the event dispatch loop) calls Apply; queries are safe
// from any goroutine.
type Tracker struct {
	mu     sync.RWMutex
	online map[string]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{online: make(map[string]struct{})}
}

// Apply consumes one raw payload from the status channel. Malformed
// payloads are logged and dropped; the previous snapshot stays in place.
func (t *Tracker) Apply(raw []byte) {
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		glog.Errorf("Apply(): error parse presence snapshot: %v", err)
		return
	}

	online := make(map[string]struct{}, len(snap.OnlineUsersId))
	for _, uid := range snap.OnlineUsersId {
		online[uid] = struct{}{}
	}

	t.mu.Lock()
	t.online = online
	t.mu.Unlock()

	glog.V(5).Infof("Apply(): presence snapshot, %d users online", len(online))
}

// IsOnline reports membership in the most recent snapshot.
func (t *Tracker) IsOnline(uid string) bool {
	t.mu.RLock()
	_, ok := t.online[uid]
	t.mu.RUnlock()
	return ok
}

// Snapshot returns the current online set for the UI boundary.
func (t *Tracker) Snapshot() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.online))
	for uid := range t.online {
		out = append(out, uid)
	}
	return out
}
