// Package domain defines time-bounded access grants between an institution and an artifact.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/medledger/internal/errors"
)

// Status is the stored lifecycle state of a grant.
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
	StatusExpired Status = "expired"
)

// AccessGrant authorizes GranteeID to access ArtifactID until ExpiresAt. For a given
// (ArtifactID, GranteeID) pair at most one grant is active and unexpired at any instant.
// A stored active grant whose ExpiresAt has passed is expired; the transition is applied
// lazily on read.
type AccessGrant struct {
	ID         uuid.UUID
	ArtifactID string
	GranteeID  string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Status     Status
}

// EffectiveStatus returns the status with lazy expiry applied at now.
func (g *AccessGrant) EffectiveStatus(now time.Time) Status {
	if g.Status == StatusActive && !now.Before(g.ExpiresAt) {
		return StatusExpired
	}
	return g.Status
}

// IsActive reports whether the grant authorizes access at now.
func (g *AccessGrant) IsActive(now time.Time) bool {
	return g.EffectiveStatus(now) == StatusActive
}

// Grant errors.
var (
	// ErrGrantNotFound indicates no grant exists with the given id.
	ErrGrantNotFound = errors.Wrap(errors.ErrNotFound, "grant not found")

	// ErrInvalidDuration indicates a non-positive or missing grant duration.
	ErrInvalidDuration = errors.Wrap(errors.ErrInvalidInput, "grant duration must be a positive number of days")
)
