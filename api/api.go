// Package api is the consumed HTTP boundary: user directory, chat id
// resolution, history pages, pins and groups. The synchronization core
// treats it as request/response only; live updates arrive over the ws
// channels.
package api

import (
	"context"

	"github.com/Wiroonpuri/chatsync/chat"
)

// Group is one group chat as listed by the backend.
type Group struct {
	Id          string   `json:"id"`
	ChatName    string   `json:"chatName"`
	AllowedUser []string `json:"allowedUser"`
}

// IBackend is the full boundary surface. chat.Backend is the subset a
// conversation view consumes.
type IBackend interface {
	// Users fetches the user directory.
	Users(ctx context.Context) ([]chat.User, error)

	// PrivateChatID resolves the conversation id for a direct-message
	// peer.
	PrivateChatID(ctx context.Context, peerId string) (string, error)

	// History fetches the server-ordered message history of a chat.
	History(ctx context.Context, chatId string) ([]chat.Message, error)

	// PinnedMessages fetches the pinned set of a chat.
	PinnedMessages(ctx context.Context, chatId string) ([]chat.Message, error)

	// PinMessage marks one message pinned.
	PinMessage(ctx context.Context, chatId, msgId string) error

	// Groups lists all group chats.
	Groups(ctx context.Context) ([]Group, error)

	// CreateGroup creates a group chat with the given members.
	CreateGroup(ctx context.Context, name string, members []string) (Group, error)

	// JoinGroup adds the current user to a group.
	JoinGroup(ctx context.Context, groupId string) error
}
