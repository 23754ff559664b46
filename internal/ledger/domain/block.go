// Package domain defines the ledger entities: blocks, fingerprints and chain verification results.
package domain

import (
	"strings"
	"time"
)

// Fingerprint is the hex-encoded SHA-256 commitment to a block's content and chain position.
type Fingerprint string

// GenesisSentinel is the previous fingerprint of every artifact's first block.
var GenesisSentinel = Fingerprint(strings.Repeat("0", 64))

// Block is one immutable ledger entry describing a mint or record-update event.
// Blocks are never mutated or deleted after append. SequenceNumber is the global
// append order across all artifacts and is assigned by the repository.
type Block struct {
	SequenceNumber      int64
	ArtifactID          string
	OwnerID             string
	PayloadDigest       string
	BlockFingerprint    Fingerprint
	CreatedAt           time.Time
	PreviousFingerprint Fingerprint
}

// IsGenesis reports whether the block opens its artifact's chain.
func (b *Block) IsGenesis() bool {
	return b.PreviousFingerprint == GenesisSentinel
}

// VerificationResult summarizes a chain check for one artifact.
// FailedSequence and Reason are set only when IsValid is false for a known artifact.
type VerificationResult struct {
	ArtifactID        string
	IsValid           bool
	LatestFingerprint Fingerprint
	MintedAt          time.Time
	BlockCount        int
	FailedSequence    int64
	Reason            string
}
