// Package http adapts access authorization to gin for the external request layer.
package http

import (
	"context"

	accessDomain "github.com/allisson/medledger/internal/access/domain"
)

// decisionKey is a context key type for storing access decisions.
type decisionKey struct{}

// WithDecision stores the allow decision in the context.
func WithDecision(ctx context.Context, decision *accessDomain.Decision) context.Context {
	return context.WithValue(ctx, decisionKey{}, decision)
}

// GetDecision retrieves the access decision from the context.
// Returns (decision, true) if present, or (nil, false) if RequireAccess did not run.
func GetDecision(ctx context.Context) (*accessDomain.Decision, bool) {
	decision, ok := ctx.Value(decisionKey{}).(*accessDomain.Decision)
	return decision, ok
}
