// Package cache persists the last fetched history per conversation in a
// local bbolt file, so a reopened client can render the previous state
// before the first fetch completes and while offline.
package cache

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/Wiroonpuri/chatsync/chat"
)

var bucketHistory = []byte("history")

// History is the bbolt-backed chat.HistoryCache implementation. One
// key per conversation id, value = JSON message slice as fetched.
type History struct {
	db *bbolt.DB
}

// Open creates or opens the cache file.
func Open(path string) (*History, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("error open cache file `%s`: %v", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketHistory)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &History{db: db}, nil
}

// Put stores the fetched history of one conversation, replacing any
// previous entry.
func (h *History) Put(chatId string, msgs []chat.Message) error {
	value, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("error marshal history for chat %s: %v", chatId, err)
	}
	return h.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketHistory).Put([]byte(chatId), value)
	})
}

// Get loads the cached history of one conversation. ok is false when no
// entry exists.
func (h *History) Get(chatId string) ([]chat.Message, bool, error) {
	var msgs []chat.Message
	var found bool
	err := h.db.View(func(tx *bbolt.Tx) error {
		value := tx.Bucket(bucketHistory).Get([]byte(chatId))
		if value == nil {
			return nil
		}
		found = true
		return json.Unmarshal(value, &msgs)
	})
	if err != nil {
		return nil, false, err
	}
	return msgs, found, nil
}

// Delete removes the cached history of one conversation.
func (h *History) Delete(chatId string) error {
	return h.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketHistory).Delete([]byte(chatId))
	})
}

// Close closes the underlying file.
func (h *History) Close() error {
	return h.db.Close()
}
