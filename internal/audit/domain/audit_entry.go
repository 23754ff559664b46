// Package domain defines the audit trail entities: append-only entries describing every
// state change and authorization decision in the system.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/medledger/internal/errors"
)

// Action names the operation an audit entry describes.
type Action string

const (
	ActionMint                  Action = "mint"
	ActionRecordUpdate          Action = "record_update"
	ActionGrant                 Action = "grant"
	ActionRevoke                Action = "revoke"
	ActionEmergencyAccess       Action = "emergency_access"
	ActionEmergencyCodeRedeemed Action = "emergency_code_redeemed"
	ActionEmergencyCodeRejected Action = "emergency_code_rejected"
	ActionAccessGranted         Action = "access_granted"
	ActionAccessDenied          Action = "access_denied"
	ActionIntegrityViolation    Action = "integrity_violation"
	ActionIntegrityConfirmed    Action = "integrity_confirmed"
)

// AuditEntry is one immutable line of the audit trail. Entries are ordered by Timestamp,
// which is strictly increasing in insertion order. TargetArtifactID and
// LinkedFingerprint are empty when the action has no artifact or block.
type AuditEntry struct {
	ID                uuid.UUID
	Timestamp         time.Time
	ActorID           string
	Action            Action
	TargetArtifactID  string
	Detail            map[string]string
	LinkedFingerprint string
	Signature         []byte
	IsSigned          bool
}

// VerificationReport summarizes a signature check over a set of audit entries.
type VerificationReport struct {
	TotalChecked   int
	SignedCount    int
	UnsignedCount  int
	ValidCount     int
	InvalidEntries []uuid.UUID
}

// Valid reports whether no signed entry failed verification.
func (r *VerificationReport) Valid() bool {
	return len(r.InvalidEntries) == 0
}

// Audit errors.
var (
	// ErrSignatureInvalid indicates an entry's signature does not match its content.
	ErrSignatureInvalid = errors.Wrap(errors.ErrIntegrity, "audit entry signature invalid")

	// ErrSigningKeyMissing indicates verification was requested without a signing key.
	ErrSigningKeyMissing = errors.Wrap(errors.ErrInvalidInput, "audit signing key not configured")
)
