package repository

import (
	"context"
	"sync"
)

// Collection names a store collection whose writes are announced on the feed
type Collection string

const (
	CollectionCatalog Collection = "products"
	CollectionOrders  Collection = "offline_orders"
)

// Change announces a committed write to one tenant's rows in a collection
type Change struct {
	Collection Collection
	TenantID   string
}

type Listener func(ctx context.Context, change Change)

// ChangeFeed fans committed-write notifications out to in-process listeners.
// Publish runs listeners on the caller's goroutine, after the write committed.
type ChangeFeed struct {
	mu        sync.RWMutex
	listeners map[int]Listener
	next      int
}

func NewChangeFeed() *ChangeFeed {
	return &ChangeFeed{listeners: make(map[int]Listener)}
}

// Subscribe registers l and returns a func that removes it again
func (f *ChangeFeed) Subscribe(l Listener) func() {
	f.mu.Lock()
	id := f.next
	f.next++
	f.listeners[id] = l
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

func (f *ChangeFeed) Publish(ctx context.Context, change Change) {
	if f == nil {
		return
	}
	f.mu.RLock()
	ls := make([]Listener, 0, len(f.listeners))
	for _, l := range f.listeners {
		ls = append(ls, l)
	}
	f.mu.RUnlock()

	for _, l := range ls {
		l(ctx, change)
	}
}
