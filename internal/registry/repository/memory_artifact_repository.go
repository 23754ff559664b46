// Package repository implements artifact metadata persistence for the in-memory,
// PostgreSQL and MySQL backends.
package repository

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/allisson/medledger/internal/database"
	registryDomain "github.com/allisson/medledger/internal/registry/domain"
)

// MemoryArtifactRepository keeps artifact metadata in process with an owner index.
type MemoryArtifactRepository struct {
	mu        sync.RWMutex
	artifacts map[string]registryDomain.ArtifactMetadata
	byOwner   map[string][]string
	order     []string
}

// NewMemoryArtifactRepository creates an empty in-memory artifact repository.
func NewMemoryArtifactRepository() *MemoryArtifactRepository {
	return &MemoryArtifactRepository{
		artifacts: make(map[string]registryDomain.ArtifactMetadata),
		byOwner:   make(map[string][]string),
	}
}

// Create stores new metadata. Returns ErrDuplicateArtifact if the id exists.
func (m *MemoryArtifactRepository) Create(ctx context.Context, metadata *registryDomain.ArtifactMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.artifacts[metadata.ArtifactID]; ok {
		return registryDomain.ErrDuplicateArtifact
	}

	m.artifacts[metadata.ArtifactID] = *metadata
	m.byOwner[metadata.OwnerID] = append(m.byOwner[metadata.OwnerID], metadata.ArtifactID)
	m.order = append(m.order, metadata.ArtifactID)

	artifactID, ownerID := metadata.ArtifactID, metadata.OwnerID
	database.OnRollback(ctx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		delete(m.artifacts, artifactID)
		m.byOwner[ownerID] = slices.DeleteFunc(m.byOwner[ownerID], func(id string) bool { return id == artifactID })
		m.order = slices.DeleteFunc(m.order, func(id string) bool { return id == artifactID })
	})

	return nil
}

// Get returns the metadata of an artifact. Returns ErrUnknownArtifact if not found.
func (m *MemoryArtifactRepository) Get(
	_ context.Context,
	artifactID string,
) (*registryDomain.ArtifactMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	metadata, ok := m.artifacts[artifactID]
	if !ok {
		return nil, registryDomain.ErrUnknownArtifact
	}
	return &metadata, nil
}

// UpdateFingerprint advances the artifact's current fingerprint.
func (m *MemoryArtifactRepository) UpdateFingerprint(ctx context.Context, artifactID, fingerprint string) error {
	return m.update(ctx, artifactID, func(metadata *registryDomain.ArtifactMetadata) {
		metadata.CurrentFingerprint = fingerprint
	})
}

// SetVerified sets the artifact's verified flag.
func (m *MemoryArtifactRepository) SetVerified(ctx context.Context, artifactID string, verified bool) error {
	return m.update(ctx, artifactID, func(metadata *registryDomain.ArtifactMetadata) {
		metadata.Verified = verified
	})
}

func (m *MemoryArtifactRepository) update(
	ctx context.Context,
	artifactID string,
	apply func(*registryDomain.ArtifactMetadata),
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	previous, ok := m.artifacts[artifactID]
	if !ok {
		return registryDomain.ErrUnknownArtifact
	}
	metadata := previous
	apply(&metadata)
	m.artifacts[artifactID] = metadata

	database.OnRollback(ctx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		if _, ok := m.artifacts[artifactID]; ok {
			m.artifacts[artifactID] = previous
		}
	})

	return nil
}

// ListByOwner returns the owner's artifacts ordered by artifact id.
func (m *MemoryArtifactRepository) ListByOwner(
	_ context.Context,
	ownerID string,
) ([]*registryDomain.ArtifactMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := append([]string(nil), m.byOwner[ownerID]...)
	sort.Strings(ids)

	result := make([]*registryDomain.ArtifactMetadata, 0, len(ids))
	for _, id := range ids {
		metadata := m.artifacts[id]
		result = append(result, &metadata)
	}
	return result, nil
}

// List returns a page of artifacts in mint order.
func (m *MemoryArtifactRepository) List(
	_ context.Context,
	offset, limit int,
) ([]*registryDomain.ArtifactMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*registryDomain.ArtifactMetadata, 0)
	if offset >= len(m.order) {
		return result, nil
	}

	end := min(offset+limit, len(m.order))
	for _, id := range m.order[offset:end] {
		metadata := m.artifacts[id]
		result = append(result, &metadata)
	}
	return result, nil
}
