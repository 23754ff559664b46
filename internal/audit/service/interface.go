// Package service provides cryptographic signing of audit entries.
package service

import auditDomain "github.com/allisson/medledger/internal/audit/domain"

// AuditSigner signs and verifies audit entries with a key derived from the configured
// audit signing secret.
type AuditSigner interface {
	// Sign returns the HMAC-SHA256 signature of the entry's canonical form.
	Sign(key []byte, entry *auditDomain.AuditEntry) ([]byte, error)

	// Verify returns ErrSignatureInvalid if the entry's signature does not match.
	Verify(key []byte, entry *auditDomain.AuditEntry) error
}
