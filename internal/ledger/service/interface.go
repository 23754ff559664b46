// Package service provides the pure hashing primitives behind the ledger's tamper evidence.
package service

import (
	"time"

	ledgerDomain "github.com/allisson/medledger/internal/ledger/domain"
)

// HashChain computes block fingerprints and checks chain integrity. Implementations are
// pure and deterministic; they never block and hold no state.
type HashChain interface {
	// Digest returns the hex SHA-256 digest of a record payload.
	Digest(payload []byte) string

	// Fingerprint commits to a block's content and its predecessor.
	Fingerprint(
		artifactID string,
		payloadDigest string,
		createdAt time.Time,
		previous ledgerDomain.Fingerprint,
	) ledgerDomain.Fingerprint

	// VerifyChain recomputes each block's fingerprint and checks linkage in order.
	// Returns nil for a valid chain or an *IntegrityError for the first offending block.
	VerifyChain(blocks []*ledgerDomain.Block) error
}
