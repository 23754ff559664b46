// Package repository implements emergency access record persistence for the in-memory,
// PostgreSQL and MySQL backends.
package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/medledger/internal/database"
	emergencyDomain "github.com/allisson/medledger/internal/emergency/domain"
)

// MemoryEmergencyRepository keeps emergency access records in process.
type MemoryEmergencyRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*emergencyDomain.EmergencyAccessRecord
	order   []uuid.UUID
}

// NewMemoryEmergencyRepository creates an empty in-memory emergency repository.
func NewMemoryEmergencyRepository() *MemoryEmergencyRepository {
	return &MemoryEmergencyRepository{records: make(map[uuid.UUID]*emergencyDomain.EmergencyAccessRecord)}
}

// Create stores a new record.
func (m *MemoryEmergencyRepository) Create(ctx context.Context, record *emergencyDomain.EmergencyAccessRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[record.ID] = copyRecord(record)
	m.order = append(m.order, record.ID)

	recordID := record.ID
	database.OnRollback(ctx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		delete(m.records, recordID)
		m.order = slices.DeleteFunc(m.order, func(id uuid.UUID) bool { return id == recordID })
	})

	return nil
}

// Get returns the record. Returns ErrRecordNotFound if it does not exist.
func (m *MemoryEmergencyRepository) Get(
	_ context.Context,
	recordID uuid.UUID,
) (*emergencyDomain.EmergencyAccessRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.records[recordID]
	if !ok {
		return nil, emergencyDomain.ErrRecordNotFound
	}
	return copyRecord(record), nil
}

// ListActiveByArtifact returns the artifact's records expiring after now, most recent first.
func (m *MemoryEmergencyRepository) ListActiveByArtifact(
	_ context.Context,
	artifactID string,
	now time.Time,
) ([]*emergencyDomain.EmergencyAccessRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*emergencyDomain.EmergencyAccessRecord, 0)
	for i := len(m.order) - 1; i >= 0; i-- {
		record := m.records[m.order[i]]
		if record.ArtifactID == artifactID && record.IsActive(now) {
			result = append(result, copyRecord(record))
		}
	}
	return result, nil
}

// MarkRedeemed records the redemption time. Returns ErrCodeAlreadyRedeemed if the code
// was already used.
func (m *MemoryEmergencyRepository) MarkRedeemed(ctx context.Context, recordID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[recordID]
	if !ok {
		return emergencyDomain.ErrRecordNotFound
	}
	if record.IsRedeemed() {
		return emergencyDomain.ErrCodeAlreadyRedeemed
	}
	record.RedeemedAt = &at

	database.OnRollback(ctx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		if record, ok := m.records[recordID]; ok {
			record.RedeemedAt = nil
		}
	})

	return nil
}

func copyRecord(record *emergencyDomain.EmergencyAccessRecord) *emergencyDomain.EmergencyAccessRecord {
	copied := *record
	if record.RedeemedAt != nil {
		at := *record.RedeemedAt
		copied.RedeemedAt = &at
	}
	return &copied
}
