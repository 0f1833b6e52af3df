package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeSupervisor struct {
	calls []string
}

func (f *fakeSupervisor) Rotate(token string) {
	f.calls = append(f.calls, "rotate:"+token)
}

func (f *fakeSupervisor) Disconnect() {
	f.calls = append(f.calls, "disconnect")
}

func TestApplyNewToken(t *testing.T) {
	sup := &fakeSupervisor{}
	store := NewStore()
	b := NewBinding(store, sup)

	b.Apply("tok-1")
	assert.Equal(t, "tok-1", store.Token())
	assert.True(t, store.Authenticated())
	assert.Equal(t, []string{"rotate:tok-1"}, sup.calls)
}

func TestApplyUnchangedTokenIsNoop(t *testing.T) {
	sup := &fakeSupervisor{}
	b := NewBinding(NewStore(), sup)

	b.Apply("tok-1")
	b.Apply("tok-1")
	assert.Equal(t, []string{"rotate:tok-1"}, sup.calls)
}

func TestApplyRotation(t *testing.T) {
	sup := &fakeSupervisor{}
	store := NewStore()
	b := NewBinding(store, sup)

	b.Apply("tok-1")
	b.Apply("tok-2")
	assert.Equal(t, "tok-2", store.Token())
	assert.Equal(t, []string{"rotate:tok-1", "rotate:tok-2"}, sup.calls)
}

func TestApplyClearedCredential(t *testing.T) {
	sup := &fakeSupervisor{}
	store := NewStore()
	b := NewBinding(store, sup)

	b.Apply("tok-1")
	b.Apply("")
	assert.False(t, store.Authenticated())
	assert.Equal(t, []string{"rotate:tok-1", "disconnect"}, sup.calls)

	// Still absent: nothing more to do.
	b.Apply("")
	assert.Equal(t, []string{"rotate:tok-1", "disconnect"}, sup.calls)
}

func TestRunConsumesUpdates(t *testing.T) {
	sup := &fakeSupervisor{}
	store := NewStore()
	b := NewBinding(store, sup)

	updates := make(chan string)
	done := make(chan struct{})
	go func() {
		b.Run(context.Background(), updates)
		close(done)
	}()

	updates <- "tok-1"
	updates <- ""
	close(updates)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("binding did not exit on closed updates channel")
	}
	assert.Equal(t, []string{"rotate:tok-1", "disconnect"}, sup.calls)
}
