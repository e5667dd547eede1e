package memory

import (
	"context"
	"sync"

	"github.com/aretw0/fieldbot/pkg/domain"
)

// DefaultAuditCapacity bounds the in-memory audit log.
const DefaultAuditCapacity = 1000

// AuditLog implements ports.AuditSink as a bounded ring kept in memory.
type AuditLog struct {
	mu       sync.Mutex
	entries  []domain.AuditEntry
	capacity int
}

// NewAuditLog creates an audit log holding at most capacity entries.
// A non-positive capacity selects DefaultAuditCapacity.
func NewAuditLog(capacity int) *AuditLog {
	if capacity <= 0 {
		capacity = DefaultAuditCapacity
	}
	return &AuditLog{capacity: capacity}
}

// Record appends the entry, dropping the oldest one when full.
func (a *AuditLog) Record(ctx context.Context, entry domain.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.entries) >= a.capacity {
		a.entries = append(a.entries[:0], a.entries[1:]...)
	}
	a.entries = append(a.entries, entry)
	return nil
}

// Entries returns the recorded entries, oldest first.
func (a *AuditLog) Entries() []domain.AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.AuditEntry, len(a.entries))
	copy(out, a.entries)
	return out
}
