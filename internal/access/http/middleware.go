package http

import (
	"fmt"
	"log/slog"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	accessDomain "github.com/allisson/medledger/internal/access/domain"
	accessUseCase "github.com/allisson/medledger/internal/access/usecase"
	apperrors "github.com/allisson/medledger/internal/errors"
	"github.com/allisson/medledger/internal/httputil"
)

const (
	// ActorIDHeader carries the identity of the institution or person making the request.
	ActorIDHeader = "X-Actor-ID"

	// EmergencyAccessHeader carries the id of an emergency access record.
	EmergencyAccessHeader = "X-Emergency-Access-ID"
)

// RequireAccess authorizes every request against the artifact named by the route
// parameter artifactParam.
//
// The middleware:
// 1. Reads the actor from X-Actor-ID and the optional emergency record from X-Emergency-Access-ID
// 2. Calls AccessUseCase.Authorize, which audits the decision with the request id
// 3. Stores the allow decision in the request context for handlers (see GetDecision)
//
// Requests rejected before evaluation are audited through AccessUseCase.Reject.
//
// Error handling:
//   - Missing X-Actor-ID → 401 Unauthorized, audited as the anonymous actor
//   - Malformed X-Emergency-Access-ID → 400 Bad Request
//   - Denied → 403 Forbidden
//   - Other errors → mapped by httputil.HandleErrorGin
//
// Usage:
//
//	router.Use(requestid.New())
//	router.GET("/v1/artifacts/:artifact_id/chain",
//	    RequireAccess(accessUseCase, "artifact_id", logger),
//	    handler)
func RequireAccess(
	useCase accessUseCase.AccessUseCase,
	artifactParam string,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := &accessDomain.Request{
			ArtifactID: c.Param(artifactParam),
			ActorID:    c.GetHeader(ActorIDHeader),
			RequestID:  requestid.Get(c),
		}

		if request.ActorID == "" {
			logger.Debug("access denied: missing actor header")
			if _, err := useCase.Reject(c.Request.Context(), request, "missing actor"); err != nil {
				httputil.HandleErrorGin(c, err, logger)
				c.Abort()
				return
			}
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		if raw := c.GetHeader(EmergencyAccessHeader); raw != "" {
			recordID, err := uuid.Parse(raw)
			if err != nil {
				if _, err := useCase.Reject(c.Request.Context(), request, "malformed emergency access id"); err != nil {
					httputil.HandleErrorGin(c, err, logger)
					c.Abort()
					return
				}
				httputil.HandleBadRequestGin(c, fmt.Errorf("invalid %s header", EmergencyAccessHeader), logger)
				c.Abort()
				return
			}
			request.EmergencyRecordID = &recordID
		}

		decision, err := useCase.Authorize(c.Request.Context(), request)
		if err != nil {
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		if !decision.Allowed {
			logger.Debug("access denied",
				slog.String("artifact_id", request.ArtifactID),
				slog.String("actor_id", request.ActorID),
				slog.String("reason", decision.Reason))
			httputil.HandleErrorGin(c, apperrors.ErrForbidden, nil)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(WithDecision(c.Request.Context(), decision))

		logger.Debug("access allowed",
			slog.String("artifact_id", request.ArtifactID),
			slog.String("actor_id", request.ActorID),
			slog.String("path", string(decision.Path)))

		c.Next()
	}
}
