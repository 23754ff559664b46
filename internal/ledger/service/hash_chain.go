package service

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"

	ledgerDomain "github.com/allisson/medledger/internal/ledger/domain"
)

type hashChain struct{}

// NewHashChain creates a SHA-256 HashChain.
func NewHashChain() HashChain {
	return &hashChain{}
}

// Digest returns the hex SHA-256 digest of payload.
func (h *hashChain) Digest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Fingerprint hashes the canonical encoding of the block fields.
// Format: artifact_id || payload_digest || created_at || previous_fingerprint
// Variable-length fields are length-prefixed so distinct inputs never share an encoding.
func (h *hashChain) Fingerprint(
	artifactID string,
	payloadDigest string,
	createdAt time.Time,
	previous ledgerDomain.Fingerprint,
) ledgerDomain.Fingerprint {
	buf := make([]byte, 0, 4+len(artifactID)+4+len(payloadDigest)+8+4+len(previous))

	buf = appendLengthPrefixed(buf, []byte(artifactID))
	buf = appendLengthPrefixed(buf, []byte(payloadDigest))
	buf = binary.BigEndian.AppendUint64(buf, uint64(createdAt.UnixNano()))
	buf = appendLengthPrefixed(buf, []byte(previous))

	sum := sha256.Sum256(buf)
	return ledgerDomain.Fingerprint(hex.EncodeToString(sum[:]))
}

// VerifyChain checks blocks of a single artifact in append order.
func (h *hashChain) VerifyChain(blocks []*ledgerDomain.Block) error {
	if len(blocks) == 0 {
		return nil
	}

	artifactID := blocks[0].ArtifactID
	expectedPrevious := ledgerDomain.GenesisSentinel
	var lastSequence int64

	for i, block := range blocks {
		fail := func(reason string) error {
			return &ledgerDomain.IntegrityError{
				ArtifactID:     artifactID,
				SequenceNumber: block.SequenceNumber,
				Reason:         reason,
			}
		}

		if block.ArtifactID != artifactID {
			return fail("block belongs to artifact " + block.ArtifactID)
		}
		if i > 0 && block.SequenceNumber <= lastSequence {
			return fail("sequence number out of order")
		}
		if block.PreviousFingerprint != expectedPrevious {
			return fail("previous fingerprint does not match preceding block")
		}

		recomputed := h.Fingerprint(
			block.ArtifactID,
			block.PayloadDigest,
			block.CreatedAt,
			block.PreviousFingerprint,
		)
		if recomputed != block.BlockFingerprint {
			return fail("block fingerprint does not match its content")
		}

		expectedPrevious = block.BlockFingerprint
		lastSequence = block.SequenceNumber
	}

	return nil
}

// appendLengthPrefixed adds a 4-byte big-endian length prefix followed by data.
func appendLengthPrefixed(buf []byte, data []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(data)))
	return append(buf, data...)
}
