package presence

import (
	"context"
	"reflect"
	"testing"
)

func TestMemoryTracker(t *testing.T) {
	ctx := context.Background()
	tr := NewMemoryTracker()

	tr.Connect(ctx, "alice")
	tr.Connect(ctx, "bob")
	// Second connection of the same user does not duplicate the entry.
	tr.Connect(ctx, "alice")

	users, err := tr.Online(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(users, []string{"alice", "bob"}) {
		t.Fatalf("expected [alice bob], got %v", users)
	}

	// alice still has one open connection.
	tr.Disconnect(ctx, "alice")
	users, _ = tr.Online(ctx)
	if !reflect.DeepEqual(users, []string{"alice", "bob"}) {
		t.Fatalf("expected [alice bob], got %v", users)
	}

	tr.Disconnect(ctx, "alice")
	users, _ = tr.Online(ctx)
	if !reflect.DeepEqual(users, []string{"bob"}) {
		t.Fatalf("expected [bob], got %v", users)
	}
}

func TestMemoryTrackerDisconnectUnknown(t *testing.T) {
	ctx := context.Background()
	tr := NewMemoryTracker()

	if err := tr.Disconnect(ctx, "ghost"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	users, _ := tr.Online(ctx)
	if len(users) != 0 {
		t.Fatalf("expected empty online set, got %v", users)
	}
}
