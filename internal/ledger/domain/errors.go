package domain

import (
	"fmt"

	"github.com/allisson/medledger/internal/errors"
)

// Ledger errors.
var (
	// ErrChainIntegrityViolation indicates a recomputed fingerprint or link does not match.
	ErrChainIntegrityViolation = errors.Wrap(errors.ErrIntegrity, "chain integrity violation")

	// ErrWritesHalted indicates the artifact is quarantined after an integrity violation
	// and accepts no new blocks until its chain is confirmed.
	ErrWritesHalted = errors.Wrap(ErrChainIntegrityViolation, "writes halted pending verification")

	// ErrEmptyPayload indicates a record update without content.
	ErrEmptyPayload = errors.Wrap(errors.ErrInvalidInput, "payload must not be empty")
)

// IntegrityError points at the first block whose fingerprint or link does not verify.
type IntegrityError struct {
	ArtifactID     string
	SequenceNumber int64
	Reason         string
}

// Error implements error.
func (e *IntegrityError) Error() string {
	return fmt.Sprintf(
		"chain integrity violation: artifact %s block %d: %s",
		e.ArtifactID,
		e.SequenceNumber,
		e.Reason,
	)
}

// Unwrap exposes ErrChainIntegrityViolation to errors.Is.
func (e *IntegrityError) Unwrap() error {
	return ErrChainIntegrityViolation
}
