// Package repository implements audit trail persistence for the in-memory, PostgreSQL
// and MySQL backends. No repository exposes an update or delete operation.
package repository

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	auditDomain "github.com/allisson/medledger/internal/audit/domain"
	"github.com/allisson/medledger/internal/database"
	apperrors "github.com/allisson/medledger/internal/errors"
)

// MemoryAuditEntryRepository keeps the audit trail in process. A positive capacity
// bounds the number of entries; further writes return ErrStorageExhausted.
type MemoryAuditEntryRepository struct {
	tail     sync.Mutex
	mu       sync.RWMutex
	entries  []auditDomain.AuditEntry
	capacity int
}

// NewMemoryAuditEntryRepository creates an in-memory audit repository. A capacity of
// zero means unbounded.
func NewMemoryAuditEntryRepository(capacity int) *MemoryAuditEntryRepository {
	return &MemoryAuditEntryRepository{capacity: capacity}
}

// Create appends the entry.
func (m *MemoryAuditEntryRepository) Create(ctx context.Context, entry *auditDomain.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.capacity > 0 && len(m.entries) >= m.capacity {
		return apperrors.Wrap(apperrors.ErrStorageExhausted, "audit trail capacity reached")
	}

	stored := *entry
	stored.Detail = maps.Clone(entry.Detail)
	stored.Signature = append([]byte(nil), entry.Signature...)
	m.entries = append(m.entries, stored)

	entryID := entry.ID
	database.OnRollback(ctx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		m.entries = slices.DeleteFunc(m.entries, func(e auditDomain.AuditEntry) bool { return e.ID == entryID })
	})

	return nil
}

// ListByArtifact returns up to limit entries for the artifact with a timestamp after
// the given one, in timestamp order.
func (m *MemoryAuditEntryRepository) ListByArtifact(
	_ context.Context,
	artifactID string,
	after time.Time,
	limit int,
) ([]*auditDomain.AuditEntry, error) {
	return m.list(after, limit, func(e *auditDomain.AuditEntry) bool {
		return e.TargetArtifactID == artifactID
	}), nil
}

// ListByActor returns up to limit entries for the actor with a timestamp after the
// given one, in timestamp order.
func (m *MemoryAuditEntryRepository) ListByActor(
	_ context.Context,
	actorID string,
	after time.Time,
	limit int,
) ([]*auditDomain.AuditEntry, error) {
	return m.list(after, limit, func(e *auditDomain.AuditEntry) bool {
		return e.ActorID == actorID
	}), nil
}

// LockTail blocks other writers sharing this repository until release is called and
// returns the timestamp of the last entry, or the zero time.
func (m *MemoryAuditEntryRepository) LockTail(_ context.Context) (time.Time, func(), error) {
	m.tail.Lock()

	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.entries) == 0 {
		return time.Time{}, m.tail.Unlock, nil
	}
	return m.entries[len(m.entries)-1].Timestamp, m.tail.Unlock, nil
}

func (m *MemoryAuditEntryRepository) list(
	after time.Time,
	limit int,
	match func(*auditDomain.AuditEntry) bool,
) []*auditDomain.AuditEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*auditDomain.AuditEntry, 0)
	for i := range m.entries {
		if len(result) >= limit {
			break
		}
		e := &m.entries[i]
		if !e.Timestamp.After(after) || !match(e) {
			continue
		}
		entry := *e
		entry.Detail = maps.Clone(e.Detail)
		entry.Signature = append([]byte(nil), e.Signature...)
		result = append(result, &entry)
	}
	return result
}
