package chat

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message is one chat message, both the wire shape and the in-memory
// entry held by a Conversation.
type Message struct {
	Id        string    `json:"id,omitempty"`
	OwnerId   string    `json:"ownerId"`
	ChatId    string    `json:"chatId"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Name      string    `json:"name,omitempty"`
	ReplyTo   string    `json:"replyTo,omitempty"`

	// provisional marks a locally created entry that has not been
	// confirmed by the server yet. Its Id is client generated and never
	// matches the authoritative id.
	provisional bool

	// synthetic marks an id minted during history load for an entry the
	// server returned without one. Synthetic ids must not dedup live
	// events.
	synthetic bool
}

// Provisional reports whether the entry is still awaiting server
// confirmation. Composition UIs use this to render pending state.
func (m Message) Provisional() bool {
	return m.provisional
}

// User is one entry of the user directory.
type User struct {
	Uid    string `json:"uid"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// outboundMsg is the single framed payload sent per message. The server
// assigns the id and echoes the full message back on the same channel.
type outboundMsg struct {
	ChatId    string    `json:"chatId"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	ReplyTo   string    `json:"replyTo,omitempty"`
}

// decodeInbound parses and validates a live chat event. Required fields
// are content, ownerId, timestamp and chatId; anything else is optional.
func decodeInbound(raw []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return Message{}, fmt.Errorf("error unmarshal chat event: %v", err)
	}

	var missing []string
	if m.Content == "" {
		missing = append(missing, "content")
	}
	if m.OwnerId == "" {
		missing = append(missing, "ownerId")
	}
	if m.Timestamp.IsZero() {
		missing = append(missing, "timestamp")
	}
	if m.ChatId == "" {
		missing = append(missing, "chatId")
	}
	if len(missing) > 0 {
		return Message{}, fmt.Errorf("invalid chat event, missing fields: %v", missing)
	}
	return m, nil
}
