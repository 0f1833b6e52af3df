package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Wiroonpuri/chatsync/chat"
)

func openTestCache(t *testing.T) *History {
	t.Helper()
	h, err := Open(filepath.Join(t.TempDir(), "history.db"))
	assert.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func TestPutGetRoundtrip(t *testing.T) {
	h := openTestCache(t)

	in := []chat.Message{
		{Id: "m1", OwnerId: "u1", ChatId: "c1", Content: "hi",
			Timestamp: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)},
		{Id: "m2", OwnerId: "u2", ChatId: "c1", Content: "hello",
			Timestamp: time.Date(2026, 8, 30, 12, 0, 5, 0, time.UTC)},
	}
	assert.NoError(t, h.Put("c1", in))

	out, ok, err := h.Get("c1")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, out, 2)
	assert.Equal(t, "m1", out[0].Id)
	assert.Equal(t, "hello", out[1].Content)
	assert.True(t, in[0].Timestamp.Equal(out[0].Timestamp))
}

func TestGetMissing(t *testing.T) {
	h := openTestCache(t)

	msgs, ok, err := h.Get("nope")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, msgs)
}

func TestPutReplaces(t *testing.T) {
	h := openTestCache(t)

	assert.NoError(t, h.Put("c1", []chat.Message{{Id: "m1", Content: "old"}}))
	assert.NoError(t, h.Put("c1", []chat.Message{
		{Id: "m2", Content: "new"},
		{Id: "m3", Content: "newer"},
	}))

	out, ok, err := h.Get("c1")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, out, 2)
	assert.Equal(t, "m2", out[0].Id)
}

func TestEmptyHistoryIsAnEntry(t *testing.T) {
	h := openTestCache(t)

	// A conversation with no messages yet is still a known state,
	// distinct from never fetched.
	assert.NoError(t, h.Put("c1", nil))
	_, ok, err := h.Get("c1")
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestDelete(t *testing.T) {
	h := openTestCache(t)

	assert.NoError(t, h.Put("c1", []chat.Message{{Id: "m1"}}))
	assert.NoError(t, h.Delete("c1"))

	_, ok, err := h.Get("c1")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	h, err := Open(path)
	assert.NoError(t, err)
	assert.NoError(t, h.Put("c1", []chat.Message{{Id: "m1", Content: "hi"}}))
	assert.NoError(t, h.Close())

	h, err = Open(path)
	assert.NoError(t, err)
	defer h.Close()

	out, ok, err := h.Get("c1")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hi", out[0].Content)
}
