// Package repository implements block persistence for the in-memory, PostgreSQL and
// MySQL backends.
package repository

import (
	"context"
	"sync"

	"github.com/allisson/medledger/internal/database"
	ledgerDomain "github.com/allisson/medledger/internal/ledger/domain"
	registryDomain "github.com/allisson/medledger/internal/registry/domain"
)

// MemoryBlockRepository keeps the global append-only block sequence in process.
// Returned blocks are copies; stored blocks are never mutated.
type MemoryBlockRepository struct {
	mu         sync.RWMutex
	blocks     []ledgerDomain.Block
	byArtifact map[string][]int
}

// NewMemoryBlockRepository creates an empty in-memory block repository.
func NewMemoryBlockRepository() *MemoryBlockRepository {
	return &MemoryBlockRepository{byArtifact: make(map[string][]int)}
}

// Append stores the block and assigns the next global sequence number. A rolled back
// block leaves a gap in the sequence, as a database sequence would.
func (m *MemoryBlockRepository) Append(ctx context.Context, block *ledgerDomain.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	block.SequenceNumber = int64(len(m.blocks) + 1)
	m.blocks = append(m.blocks, *block)
	m.byArtifact[block.ArtifactID] = append(m.byArtifact[block.ArtifactID], len(m.blocks)-1)

	artifactID := block.ArtifactID
	database.OnRollback(ctx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		idx := m.byArtifact[artifactID]
		if len(idx) <= 1 {
			delete(m.byArtifact, artifactID)
			return
		}
		m.byArtifact[artifactID] = idx[:len(idx)-1]
	})

	return nil
}

// Latest returns the most recently appended block of the artifact.
// Returns ErrUnknownArtifact if the artifact has no block.
func (m *MemoryBlockRepository) Latest(_ context.Context, artifactID string) (*ledgerDomain.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx := m.byArtifact[artifactID]
	if len(idx) == 0 {
		return nil, registryDomain.ErrUnknownArtifact
	}

	block := m.blocks[idx[len(idx)-1]]
	return &block, nil
}

// ListByArtifact returns the artifact's blocks in append order, or an empty slice.
func (m *MemoryBlockRepository) ListByArtifact(
	_ context.Context,
	artifactID string,
) ([]*ledgerDomain.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx := m.byArtifact[artifactID]
	blocks := make([]*ledgerDomain.Block, 0, len(idx))
	for _, i := range idx {
		block := m.blocks[i]
		blocks = append(blocks, &block)
	}

	return blocks, nil
}

// Tamper overwrites a stored block's payload digest. It exists so integrity tests can
// simulate storage corruption; production code never calls it.
func (m *MemoryBlockRepository) Tamper(sequenceNumber int64, payloadDigest string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := int(sequenceNumber) - 1
	if i < 0 || i >= len(m.blocks) {
		return false
	}
	m.blocks[i].PayloadDigest = payloadDigest
	return true
}
