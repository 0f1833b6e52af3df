package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/golang/glog"

	"github.com/Wiroonpuri/chatsync/chat"
)

const requestTimeout = 10 * time.Second

// TokenSource supplies the bearer token per request, so a rotated
// credential is picked up without rebuilding the client.
type TokenSource func() string

// Client is the net/http implementation of IBackend.
type Client struct {
	baseURL string
	token   TokenSource
	httpc   *http.Client
}

// NewClient creates the boundary client. baseURL has no trailing slash,
// e.g. http://127.0.0.1:8000.
func NewClient(baseURL string, token TokenSource) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpc:   &http.Client{Timeout: requestTimeout},
	}
}

var _ IBackend = (*Client)(nil)

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error marshal request body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, msg)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: error decode response: %v", method, path, err)
	}
	return nil
}

func (c *Client) Users(ctx context.Context) ([]chat.User, error) {
	var users []chat.User
	if err := c.do(ctx, http.MethodGet, "/user", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) PrivateChatID(ctx context.Context, peerId string) (string, error) {
	var resp struct {
		ChatId string `json:"chatId"`
	}
	path := "/chat/private/" + url.PathEscape(peerId)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	if resp.ChatId == "" {
		return "", fmt.Errorf("GET %s: empty chatId in response", path)
	}
	return resp.ChatId, nil
}

func (c *Client) History(ctx context.Context, chatId string) ([]chat.Message, error) {
	var msgs []chat.Message
	if err := c.do(ctx, http.MethodGet, "/chat/history/"+url.PathEscape(chatId), nil, &msgs); err != nil {
		return nil, err
	}
	glog.V(5).Infof("History(): chat %s: fetched %d messages", chatId, len(msgs))
	return msgs, nil
}

func (c *Client) PinnedMessages(ctx context.Context, chatId string) ([]chat.Message, error) {
	var msgs []chat.Message
	if err := c.do(ctx, http.MethodGet, "/chat/pinned/"+url.PathEscape(chatId), nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (c *Client) PinMessage(ctx context.Context, chatId, msgId string) error {
	path := "/chat/pinned/" + url.PathEscape(chatId) + "/" + url.PathEscape(msgId)
	return c.do(ctx, http.MethodPatch, path, nil, nil)
}

func (c *Client) Groups(ctx context.Context) ([]Group, error) {
	var groups []Group
	if err := c.do(ctx, http.MethodGet, "/chat/group", nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (c *Client) CreateGroup(ctx context.Context, name string, members []string) (Group, error) {
	req := map[string]interface{}{
		"chatName":    name,
		"allowedUser": members,
	}
	var group Group
	if err := c.do(ctx, http.MethodPost, "/chat/group", req, &group); err != nil {
		return Group{}, err
	}
	return group, nil
}

func (c *Client) JoinGroup(ctx context.Context, groupId string) error {
	path := "/chat/group/" + url.PathEscape(groupId) + "/join"
	return c.do(ctx, http.MethodPost, path, nil, nil)
}
