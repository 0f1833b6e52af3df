package chat

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/pborman/uuid"
)

// DefaultMatchWindow bounds the timestamp distance between a provisional
// entry and the server echo that confirms it. The echo carries a
// server-assigned timestamp close to, but never equal to, the local send
// time, so exact matching is impossible.
const DefaultMatchWindow = time.Second

// Sender transmits one framed text payload on the chat channel.
type Sender interface {
	Send(payload []byte) error
}

// Config tunes a Conversation.
type Config struct {
	// MatchWindow overrides DefaultMatchWindow when positive.
	MatchWindow time.Duration
}

// Conversation holds the reconciled message sequence of one chat, direct
// or group. It merges three sources into a single id-unique list kept in
// arrival order: bulk history loads, live inbound events and locally
// created provisional entries.
type Conversation struct {
	mu sync.Mutex

	id        string
	ownerId   string
	ownerName string
	window    time.Duration
	sender    Sender

	msgs []Message
}

// NewConversation creates the reconciler for one chat id. ownerId and
// ownerName identify the local user for provisional entries.
func NewConversation(chatId, ownerId, ownerName string, sender Sender, conf Config) *Conversation {
	window := conf.MatchWindow
	if window <= 0 {
		window = DefaultMatchWindow
	}
	return &Conversation{
		id:        chatId,
		ownerId:   ownerId,
		ownerName: ownerName,
		window:    window,
		sender:    sender,
	}
}

// Id returns the conversation id this reconciler multiplexes on.
func (c *Conversation) Id() string {
	return c.id
}

// Messages returns a copy of the current sequence, in arrival order.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.msgs))
	copy(out, c.msgs)
	return out
}

// LoadHistory replaces the sequence wholesale with a server-ordered
// history page. Entries without an id get one synthesized from the chat
// id and position; such ids are marked synthetic and never dedup a live
// event, since the server may later push the same message with its real
// id.
func (c *Conversation) LoadHistory(history []Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	msgs := make([]Message, len(history))
	for i, m := range history {
		if m.Id == "" {
			m.Id = fmt.Sprintf("%s-%d", c.id, i)
			m.synthetic = true
		}
		if m.ChatId == "" {
			m.ChatId = c.id
		}
		if m.Timestamp.IsZero() {
			m.Timestamp = time.Now()
		}
		msgs[i] = m
	}
	c.msgs = msgs

	glog.V(5).Infof("LoadHistory(): chat %s: loaded %d messages", c.id, len(msgs))
}

// Send transmits content to the server and appends a provisional entry
// with a client-generated id for immediate display. replyTo may be empty.
// The entry stays provisional until the server echo promotes it in
// ApplyEvent.
func (c *Conversation) Send(content, replyTo string) (Message, error) {
	now := time.Now()
	out := &outboundMsg{
		ChatId:    c.id,
		Content:   content,
		Timestamp: now,
		ReplyTo:   replyTo,
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return Message{}, fmt.Errorf("error marshal outbound message: %v", err)
	}
	if err := c.sender.Send(payload); err != nil {
		return Message{}, err
	}

	m := Message{
		Id:          uuid.New(),
		OwnerId:     c.ownerId,
		ChatId:      c.id,
		Content:     content,
		Timestamp:   now,
		Name:        c.ownerName,
		ReplyTo:     replyTo,
		provisional: true,
	}

	c.mu.Lock()
	c.msgs = append(c.msgs, m)
	c.mu.Unlock()

	glog.V(5).Infof("Send(): chat %s: provisional message %s", c.id, m.Id)
	return m, nil
}

// ApplyEvent reconciles one live inbound event against the sequence.
// Invalid events and events for other chats are dropped; duplicates by
// authoritative id are discarded; otherwise at most one provisional entry
// is promoted in place, or the event is appended at the end.
func (c *Conversation) ApplyEvent(raw []byte) {
	m, err := decodeInbound(raw)
	if err != nil {
		glog.Warningf("ApplyEvent(): chat %s: drop event: %v", c.id, err)
		return
	}

	if m.ChatId != c.id {
		glog.V(5).Infof("ApplyEvent(): chat %s: ignore event for chat %s", c.id, m.ChatId)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Dedup by authoritative id. Synthetic history ids do not count: they
	// were minted locally and colliding with them would drop a real
	// message.
	if m.Id != "" {
		for _, have := range c.msgs {
			if !have.synthetic && have.Id == m.Id {
				glog.V(5).Infof("ApplyEvent(): chat %s: duplicate id %s", c.id, m.Id)
				return
			}
		}
	}

	if m.Id == "" {
		m.Id = uuid.New()
	}

	// Promote a provisional match in place. Content, owner and a bounded
	// timestamp distance identify the echo of a message this client sent.
	// The break guarantees at most one entry is ever mutated.
	for i, have := range c.msgs {
		if have.provisional && have.Content == m.Content && have.OwnerId == m.OwnerId &&
			absDuration(have.Timestamp.Sub(m.Timestamp)) < c.window {
			if m.Name == "" {
				m.Name = have.Name
			}
			c.msgs[i] = m
			glog.V(5).Infof("ApplyEvent(): chat %s: promoted %s -> %s", c.id, have.Id, m.Id)
			return
		}
	}

	c.msgs = append(c.msgs, m)
	glog.V(5).Infof("ApplyEvent(): chat %s: appended %s", c.id, m.Id)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
