package usecase

import (
	"context"
	"strings"

	accessDomain "github.com/allisson/medledger/internal/access/domain"
	auditDomain "github.com/allisson/medledger/internal/audit/domain"
	apperrors "github.com/allisson/medledger/internal/errors"
)

type accessUseCase struct {
	grants    GrantChecker
	emergency EmergencyLookup
	audit     AuditRecorder
}

// NewAccessUseCase creates an AccessUseCase.
func NewAccessUseCase(grants GrantChecker, emergency EmergencyLookup, audit AuditRecorder) AccessUseCase {
	return &accessUseCase{
		grants:    grants,
		emergency: emergency,
		audit:     audit,
	}
}

func (a *accessUseCase) Authorize(
	ctx context.Context,
	request *accessDomain.Request,
) (*accessDomain.Decision, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	decision, err := a.decide(ctx, request)
	if err != nil {
		return nil, err
	}

	if err := a.record(ctx, request, request.ActorID, decision); err != nil {
		return nil, err
	}
	return decision, nil
}

func (a *accessUseCase) Reject(
	ctx context.Context,
	request *accessDomain.Request,
	reason string,
) (*accessDomain.Decision, error) {
	actorID := request.ActorID
	if strings.TrimSpace(actorID) == "" {
		actorID = accessDomain.AnonymousActorID
	}

	decision := &accessDomain.Decision{Path: accessDomain.PathNone, Reason: reason}
	if err := a.record(ctx, request, actorID, decision); err != nil {
		return nil, err
	}
	return decision, nil
}

func (a *accessUseCase) record(
	ctx context.Context,
	request *accessDomain.Request,
	actorID string,
	decision *accessDomain.Decision,
) error {
	action := auditDomain.ActionAccessDenied
	if decision.Allowed {
		action = auditDomain.ActionAccessGranted
	}

	detail := map[string]string{
		"path":   string(decision.Path),
		"reason": decision.Reason,
	}
	if request.EmergencyRecordID != nil {
		detail["emergency_record_id"] = request.EmergencyRecordID.String()
	}
	if request.RequestID != "" {
		detail["request_id"] = request.RequestID
	}

	return a.audit.Record(ctx, &auditDomain.AuditEntry{
		ActorID:          actorID,
		Action:           action,
		TargetArtifactID: request.ArtifactID,
		Detail:           detail,
	})
}

func (a *accessUseCase) decide(
	ctx context.Context,
	request *accessDomain.Request,
) (*accessDomain.Decision, error) {
	allowed, err := a.grants.CheckAccess(ctx, request.ArtifactID, request.ActorID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to check grant")
	}
	if allowed {
		return &accessDomain.Decision{Allowed: true, Path: accessDomain.PathGrant, Reason: "active grant"}, nil
	}

	if request.EmergencyRecordID == nil {
		return &accessDomain.Decision{Path: accessDomain.PathNone, Reason: "no active grant"}, nil
	}

	records, err := a.emergency.ActiveGrantsFor(ctx, request.ArtifactID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to check emergency access")
	}
	for _, record := range records {
		if record.ID == *request.EmergencyRecordID {
			return &accessDomain.Decision{
				Allowed: true,
				Path:    accessDomain.PathEmergency,
				Reason:  "active emergency access",
			}, nil
		}
	}

	return &accessDomain.Decision{
		Path:   accessDomain.PathNone,
		Reason: "no active grant or emergency access for this artifact",
	}, nil
}
