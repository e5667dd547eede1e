package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/fieldbot/pkg/adapters/memory"
	"github.com/aretw0/fieldbot/pkg/domain"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		uid := fmt.Sprintf("user-%d", i)
		_, _ = mgr.Update(ctx, uid, func(context.Context, *domain.Session) error { return nil })
	}

	lockCount := len(mgr.locks)
	t.Logf("Sessions Created: %d, Locks Remaining: %d", count, lockCount)

	if lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after updates", lockCount)
	}
}
