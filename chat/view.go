package chat

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultPollInterval is the degraded-mode history poll period used
// while the chat channel is down.
const DefaultPollInterval = 5 * time.Second

// UnknownName is the placeholder for senders and reply targets that
// cannot be resolved from locally available state.
const UnknownName = "Unknown"

// Backend is the slice of the HTTP boundary a view consumes. The full
// boundary lives in the api package.
type Backend interface {
	Users(ctx context.Context) ([]User, error)
	History(ctx context.Context, chatId string) ([]Message, error)
	PinnedMessages(ctx context.Context, chatId string) ([]Message, error)
	PinMessage(ctx context.Context, chatId, msgId string) error
}

// HistoryCache persists the last fetched history per chat so a reopened
// client has something to show before the first fetch completes.
type HistoryCache interface {
	Put(chatId string, msgs []Message) error
	Get(chatId string) ([]Message, bool, error)
}

// ViewConfig tunes a View.
type ViewConfig struct {
	// PollInterval overrides DefaultPollInterval when positive.
	PollInterval time.Duration

	// Cache is optional; nil disables local history caching.
	Cache HistoryCache

	// Connected reports the live state of the chat channel. Required.
	Connected func() bool
}

// DateGroup is one calendar-date bucket of messages.
type DateGroup struct {
	Date     string // local date, 2006-01-02
	Messages []Message
}

// ReplyPreview is the resolved quote rendered above a reply.
type ReplyPreview struct {
	Name    string
	Content string
}

// View derives the projections of one conversation the rendering layer
// consumes: date grouping, reply previews, sender names, pins. It also
// owns degraded-mode history polling while the chat channel is down.
// Switching conversations discards the View along with its Conversation;
// state is never merged across chats.
type View struct {
	conv    *Conversation
	backend Backend
	conf    ViewConfig

	mu      sync.Mutex
	users   map[string]User
	pinned  []Message
	polling bool
}

// NewView wraps a reconciled Conversation with its derived projections.
func NewView(conv *Conversation, backend Backend, conf ViewConfig) *View {
	if conf.PollInterval <= 0 {
		conf.PollInterval = DefaultPollInterval
	}
	return &View{
		conv:    conv,
		backend: backend,
		conf:    conf,
		users:   make(map[string]User),
	}
}

// Conversation returns the underlying reconciler.
func (v *View) Conversation() *Conversation {
	return v.conv
}

// Open primes the view: cached history first if available, then the
// first fetch of history, user directory and pins. Fetch failures leave
// the cached state in place; live events and polling catch up later.
func (v *View) Open(ctx context.Context) error {
	if v.conf.Cache != nil {
		if cached, ok, err := v.conf.Cache.Get(v.conv.Id()); err != nil {
			glog.Errorf("Open(): chat %s: cache read error: %v", v.conv.Id(), err)
		} else if ok {
			v.conv.LoadHistory(cached)
			glog.V(5).Infof("Open(): chat %s: primed %d cached messages", v.conv.Id(), len(cached))
		}
	}

	if err := v.RefreshUsers(ctx); err != nil {
		glog.Errorf("Open(): chat %s: users fetch error: %v", v.conv.Id(), err)
	}
	if err := v.RefreshPins(ctx); err != nil {
		glog.Errorf("Open(): chat %s: pins fetch error: %v", v.conv.Id(), err)
	}
	return v.RefreshHistory(ctx)
}

// RefreshHistory fetches the server history and replaces the sequence
// wholesale, then updates the cache.
func (v *View) RefreshHistory(ctx context.Context) error {
	history, err := v.backend.History(ctx, v.conv.Id())
	if err != nil {
		return err
	}
	v.conv.LoadHistory(history)

	if v.conf.Cache != nil {
		if err := v.conf.Cache.Put(v.conv.Id(), history); err != nil {
			glog.Errorf("RefreshHistory(): chat %s: cache write error: %v", v.conv.Id(), err)
		}
	}
	return nil
}

// RefreshUsers reloads the user directory snapshot used for sender and
// reply-name resolution.
func (v *View) RefreshUsers(ctx context.Context) error {
	users, err := v.backend.Users(ctx)
	if err != nil {
		return err
	}
	byId := make(map[string]User, len(users))
	for _, u := range users {
		byId[u.Uid] = u
	}
	v.mu.Lock()
	v.users = byId
	v.mu.Unlock()
	return nil
}

// SenderName resolves a user id against the directory snapshot.
func (v *View) SenderName(ownerId string) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if u, ok := v.users[ownerId]; ok {
		return u.Name
	}
	return UnknownName
}

// GroupByDate partitions the sequence into calendar-date buckets in the
// viewer's location. Bucket order is the order each date is first
// encountered and within-bucket order is arrival order; both lean on the
// reconciler keeping the sequence in arrival order, no independent sort
// happens here.
func (v *View) GroupByDate(loc *time.Location) []DateGroup {
	if loc == nil {
		loc = time.Local
	}

	var groups []DateGroup
	index := make(map[string]int)
	for _, m := range v.conv.Messages() {
		date := m.Timestamp.In(loc).Format("2006-01-02")
		i, ok := index[date]
		if !ok {
			i = len(groups)
			index[date] = i
			groups = append(groups, DateGroup{Date: date})
		}
		groups[i].Messages = append(groups[i].Messages, m)
	}
	return groups
}

// ResolveReply resolves the quoted message of a reply by id lookup in the
// current sequence. A target that is not loaded degrades to the Unknown
// placeholder instead of failing; ok is false only when m is not a reply
// at all.
func (v *View) ResolveReply(m Message) (ReplyPreview, bool) {
	if m.ReplyTo == "" {
		return ReplyPreview{}, false
	}
	for _, have := range v.conv.Messages() {
		if have.Id == m.ReplyTo {
			name := have.Name
			if name == "" {
				name = v.SenderName(have.OwnerId)
			}
			return ReplyPreview{Name: name, Content: have.Content}, true
		}
	}
	return ReplyPreview{Name: UnknownName}, true
}

// Pinned returns the current pinned-message snapshots.
func (v *View) Pinned() []Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Message, len(v.pinned))
	copy(out, v.pinned)
	return out
}

// RefreshPins reloads the pinned set from the boundary.
func (v *View) RefreshPins(ctx context.Context) error {
	pinned, err := v.backend.PinnedMessages(ctx, v.conv.Id())
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.pinned = pinned
	v.mu.Unlock()
	return nil
}

// Pin marks a message pinned at the boundary and refreshes the local
// set. Local state is fetch driven, there is no optimistic pin.
func (v *View) Pin(ctx context.Context, msgId string) error {
	if err := v.backend.PinMessage(ctx, v.conv.Id(), msgId); err != nil {
		return err
	}
	return v.RefreshPins(ctx)
}

// RunPolling re-issues the history load every PollInterval while the
// chat channel is down, as a degraded-mode substitute for live events.
// It returns as soon as the channel reports connected or ctx is
// cancelled, and refuses to run twice concurrently, so callers may start
// it on every channel-closed event.
func (v *View) RunPolling(ctx context.Context) {
	v.mu.Lock()
	if v.polling {
		v.mu.Unlock()
		return
	}
	v.polling = true
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		v.polling = false
		v.mu.Unlock()
		glog.V(5).Infof("RunPolling(): chat %s: exited", v.conv.Id())
	}()

	ticker := time.NewTicker(v.conf.PollInterval)
	defer ticker.Stop()

	glog.Infof("RunPolling(): chat %s: channel down, polling every %s", v.conv.Id(), v.conf.PollInterval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if v.conf.Connected() {
				return
			}
			if err := v.RefreshHistory(ctx); err != nil {
				glog.Errorf("RunPolling(): chat %s: history fetch error: %v", v.conv.Id(), err)
			}
		}
	}
}
