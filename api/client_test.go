package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	ts := httptest.NewServer(handler)
	return NewClient(ts.URL, func() string { return "tok-1" }), ts
}

func TestUsersSendsBearerToken(t *testing.T) {
	c, ts := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/user", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]map[string]string{
			{"uid": "u1", "name": "alice"},
			{"uid": "u2", "name": "bob"},
		})
	})
	defer ts.Close()

	users, err := c.Users(context.Background())
	assert.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, "u1", users[0].Uid)
	assert.Equal(t, "bob", users[1].Name)
}

func TestPrivateChatID(t *testing.T) {
	c, ts := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/private/u2", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"chatId": "c9"})
	})
	defer ts.Close()

	id, err := c.PrivateChatID(context.Background(), "u2")
	assert.NoError(t, err)
	assert.Equal(t, "c9", id)
}

func TestPrivateChatIDEmptyResponse(t *testing.T) {
	c, ts := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	})
	defer ts.Close()

	_, err := c.PrivateChatID(context.Background(), "u2")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "empty chatId")
}

func TestHistory(t *testing.T) {
	c, ts := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/history/c1", r.URL.Path)
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": "m1", "ownerId": "u1", "chatId": "c1", "content": "hi",
				"timestamp": "2026-08-30T12:00:00Z"},
		})
	})
	defer ts.Close()

	msgs, err := c.History(context.Background(), "c1")
	assert.NoError(t, err)
	assert.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Content)
}

func TestPinMessageUsesPatch(t *testing.T) {
	var gotMethod, gotPath string
	c, ts := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})
	defer ts.Close()

	assert.NoError(t, c.PinMessage(context.Background(), "c1", "m1"))
	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "/chat/pinned/c1/m1", gotPath)
}

func TestCreateGroupBody(t *testing.T) {
	c, ts := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/group", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "team", body["chatName"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "g1", "chatName": "team", "allowedUser": []string{"u1", "u2"},
		})
	})
	defer ts.Close()

	group, err := c.CreateGroup(context.Background(), "team", []string{"u1", "u2"})
	assert.NoError(t, err)
	assert.Equal(t, "g1", group.Id)
	assert.Equal(t, []string{"u1", "u2"}, group.AllowedUser)
}

func TestJoinGroup(t *testing.T) {
	var gotPath string
	c, ts := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
	})
	defer ts.Close()

	assert.NoError(t, c.JoinGroup(context.Background(), "g1"))
	assert.Equal(t, "/chat/group/g1/join", gotPath)
}

func TestErrorStatusSurfacesBody(t *testing.T) {
	c, ts := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "token expired", http.StatusUnauthorized)
	})
	defer ts.Close()

	_, err := c.Users(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "token expired")
}

func TestNoTokenOmitsHeader(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]map[string]string{})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, func() string { return "" })
	_, err := c.Users(context.Background())
	assert.NoError(t, err)
}
