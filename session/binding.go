package session

import (
	"context"

	"github.com/golang/glog"
)

// Supervisor is the slice of the connection supervisor the binding
// drives.
type Supervisor interface {
	Rotate(token string)
	Disconnect()
}

// Binding observes credential-store changes and translates them into
// connect, rotate and disconnect transitions. The credential store
// itself is external; its change signal is modeled as a channel of token
// values (empty = cleared).
type Binding struct {
	store *Store
	sup   Supervisor
}

func NewBinding(store *Store, sup Supervisor) *Binding {
	return &Binding{store: store, sup: sup}
}

// Apply processes one observed credential value. Unchanged values are
// no-ops; a new non-empty token rotates every channel under it; a
// cleared credential behaves as explicit disconnect.
func (b *Binding) Apply(token string) {
	if token == b.store.Token() {
		return
	}

	b.store.set(token)
	if token == "" {
		glog.Infof("Apply(): credential cleared, disconnecting")
		b.sup.Disconnect()
		return
	}

	glog.Infof("Apply(): credential changed, rotating channels")
	b.sup.Rotate(token)
}

// Run consumes credential updates until the channel closes or ctx is
// cancelled.
func (b *Binding) Run(ctx context.Context, updates <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case token, ok := <-updates:
			if !ok {
				return
			}
			b.Apply(token)
		}
	}
}
