// Package repository implements access grant persistence for the in-memory, PostgreSQL
// and MySQL backends.
package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/allisson/medledger/internal/database"
	grantDomain "github.com/allisson/medledger/internal/grant/domain"
)

// MemoryGrantRepository keeps access grants in process, in issue order.
type MemoryGrantRepository struct {
	mu     sync.RWMutex
	grants map[uuid.UUID]*grantDomain.AccessGrant
	order  []uuid.UUID
}

// NewMemoryGrantRepository creates an empty in-memory grant repository.
func NewMemoryGrantRepository() *MemoryGrantRepository {
	return &MemoryGrantRepository{grants: make(map[uuid.UUID]*grantDomain.AccessGrant)}
}

// Create stores a new grant.
func (m *MemoryGrantRepository) Create(ctx context.Context, grant *grantDomain.AccessGrant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *grant
	m.grants[grant.ID] = &stored
	m.order = append(m.order, grant.ID)

	grantID := grant.ID
	database.OnRollback(ctx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		delete(m.grants, grantID)
		m.order = slices.DeleteFunc(m.order, func(id uuid.UUID) bool { return id == grantID })
	})

	return nil
}

// Get returns the grant. Returns ErrGrantNotFound if it does not exist.
func (m *MemoryGrantRepository) Get(_ context.Context, grantID uuid.UUID) (*grantDomain.AccessGrant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	grant, ok := m.grants[grantID]
	if !ok {
		return nil, grantDomain.ErrGrantNotFound
	}
	result := *grant
	return &result, nil
}

// UpdateStatus sets the stored status of a grant.
func (m *MemoryGrantRepository) UpdateStatus(
	ctx context.Context,
	grantID uuid.UUID,
	status grantDomain.Status,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	grant, ok := m.grants[grantID]
	if !ok {
		return grantDomain.ErrGrantNotFound
	}
	previous := grant.Status
	grant.Status = status

	database.OnRollback(ctx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		if grant, ok := m.grants[grantID]; ok {
			grant.Status = previous
		}
	})

	return nil
}

// ListActiveByPair returns the pair's grants whose stored status is active.
func (m *MemoryGrantRepository) ListActiveByPair(
	_ context.Context,
	artifactID, granteeID string,
) ([]*grantDomain.AccessGrant, error) {
	return m.filter(func(g *grantDomain.AccessGrant) bool {
		return g.ArtifactID == artifactID && g.GranteeID == granteeID && g.Status == grantDomain.StatusActive
	}), nil
}

// ListByArtifact returns every grant of the artifact in issue order.
func (m *MemoryGrantRepository) ListByArtifact(
	_ context.Context,
	artifactID string,
) ([]*grantDomain.AccessGrant, error) {
	return m.filter(func(g *grantDomain.AccessGrant) bool {
		return g.ArtifactID == artifactID
	}), nil
}

func (m *MemoryGrantRepository) filter(match func(*grantDomain.AccessGrant) bool) []*grantDomain.AccessGrant {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*grantDomain.AccessGrant, 0)
	for _, id := range m.order {
		grant := m.grants[id]
		if match(grant) {
			copied := *grant
			result = append(result, &copied)
		}
	}
	return result
}
