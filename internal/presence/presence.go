// Package presence tracks which usernames currently hold at least one
// open connection. The hub pushes the distinct online set to clients on
// every connect and disconnect.
package presence

import (
	"context"
	"sort"
	"sync"
)

// Tracker counts live connections per username. A username is online
// while it has at least one connection.
type Tracker interface {
	Connect(ctx context.Context, username string) error
	Disconnect(ctx context.Context, username string) error
	Online(ctx context.Context) ([]string, error)
}

// MemoryTracker is the default single-process tracker.
type MemoryTracker struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{counts: make(map[string]int)}
}

func (t *MemoryTracker) Connect(_ context.Context, username string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[username]++
	return nil
}

func (t *MemoryTracker) Disconnect(_ context.Context, username string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.counts[username] <= 1 {
		delete(t.counts, username)
	} else {
		t.counts[username]--
	}
	return nil
}

func (t *MemoryTracker) Online(_ context.Context) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	users := make([]string, 0, len(t.counts))
	for username := range t.counts {
		users = append(users, username)
	}
	sort.Strings(users)
	return users, nil
}
