package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	auditDomain "github.com/allisson/medledger/internal/audit/domain"
	"github.com/allisson/medledger/internal/database"
	apperrors "github.com/allisson/medledger/internal/errors"
)

// auditTailLockKey identifies the transaction-scoped advisory lock that serializes
// audit writers across instances.
const auditTailLockKey int64 = 0x6d65646c65646772

// PostgreSQLAuditEntryRepository implements audit trail persistence for PostgreSQL.
// Uses native UUID and JSONB types with transaction support via database.GetTx().
type PostgreSQLAuditEntryRepository struct {
	db *sql.DB
}

// Create inserts the entry. Nil detail is stored as NULL.
func (p *PostgreSQLAuditEntryRepository) Create(ctx context.Context, entry *auditDomain.AuditEntry) error {
	querier := database.GetTx(ctx, p.db)

	detail, err := marshalDetail(entry.Detail)
	if err != nil {
		return err
	}

	query := `INSERT INTO audit_entries (id, occurred_at, actor_id, action, target_artifact_id, detail, linked_fingerprint, signature, is_signed)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = querier.ExecContext(
		ctx,
		query,
		entry.ID,
		entry.Timestamp,
		entry.ActorID,
		string(entry.Action),
		entry.TargetArtifactID,
		detail,
		entry.LinkedFingerprint,
		entry.Signature,
		entry.IsSigned,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit entry")
	}

	return nil
}

// ListByArtifact returns a page of the artifact's entries after the given timestamp.
func (p *PostgreSQLAuditEntryRepository) ListByArtifact(
	ctx context.Context,
	artifactID string,
	after time.Time,
	limit int,
) ([]*auditDomain.AuditEntry, error) {
	query := `SELECT id, occurred_at, actor_id, action, target_artifact_id, detail, linked_fingerprint, signature, is_signed
			  FROM audit_entries
			  WHERE target_artifact_id = $1 AND occurred_at > $2
			  ORDER BY occurred_at ASC
			  LIMIT $3`

	return p.query(ctx, query, artifactID, after, limit)
}

// ListByActor returns a page of the actor's entries after the given timestamp.
func (p *PostgreSQLAuditEntryRepository) ListByActor(
	ctx context.Context,
	actorID string,
	after time.Time,
	limit int,
) ([]*auditDomain.AuditEntry, error) {
	query := `SELECT id, occurred_at, actor_id, action, target_artifact_id, detail, linked_fingerprint, signature, is_signed
			  FROM audit_entries
			  WHERE actor_id = $1 AND occurred_at > $2
			  ORDER BY occurred_at ASC
			  LIMIT $3`

	return p.query(ctx, query, actorID, after, limit)
}

// LockTail takes an advisory lock held until the enclosing transaction ends and returns
// the newest entry timestamp, or the zero time for an empty trail. Called outside a
// transaction the lock is released as soon as the statement completes.
func (p *PostgreSQLAuditEntryRepository) LockTail(ctx context.Context) (time.Time, func(), error) {
	querier := database.GetTx(ctx, p.db)

	if _, err := querier.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, auditTailLockKey); err != nil {
		return time.Time{}, noRelease, apperrors.Wrap(err, "failed to lock audit trail")
	}

	var latest sql.NullTime
	if err := querier.QueryRowContext(ctx, `SELECT MAX(occurred_at) FROM audit_entries`).Scan(&latest); err != nil {
		return time.Time{}, noRelease, apperrors.Wrap(err, "failed to get latest audit timestamp")
	}
	if !latest.Valid {
		return time.Time{}, noRelease, nil
	}
	return latest.Time.UTC(), noRelease, nil
}

func (p *PostgreSQLAuditEntryRepository) query(
	ctx context.Context,
	query string,
	args ...any,
) ([]*auditDomain.AuditEntry, error) {
	querier := database.GetTx(ctx, p.db)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit entries")
	}
	defer func() {
		_ = rows.Close()
	}()

	entries := make([]*auditDomain.AuditEntry, 0)
	for rows.Next() {
		var entry auditDomain.AuditEntry
		var action string
		var detail []byte

		err := rows.Scan(
			&entry.ID,
			&entry.Timestamp,
			&entry.ActorID,
			&action,
			&entry.TargetArtifactID,
			&detail,
			&entry.LinkedFingerprint,
			&entry.Signature,
			&entry.IsSigned,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit entry")
		}

		entry.Action = auditDomain.Action(action)
		entry.Timestamp = entry.Timestamp.UTC()
		if entry.Detail, err = unmarshalDetail(detail); err != nil {
			return nil, err
		}

		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit entries")
	}

	return entries, nil
}

// NewPostgreSQLAuditEntryRepository creates a new PostgreSQL audit entry repository.
func NewPostgreSQLAuditEntryRepository(db *sql.DB) *PostgreSQLAuditEntryRepository {
	return &PostgreSQLAuditEntryRepository{db: db}
}

// noRelease is the release of SQL tail locks, which end with their transaction.
func noRelease() {}

func marshalDetail(detail map[string]string) ([]byte, error) {
	if detail == nil {
		return nil, nil
	}
	data, err := json.Marshal(detail)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal audit entry detail")
	}
	return data, nil
}

func unmarshalDetail(data []byte) (map[string]string, error) {
	if data == nil {
		return nil, nil
	}
	var detail map[string]string
	if err := json.Unmarshal(data, &detail); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal audit entry detail")
	}
	return detail, nil
}
