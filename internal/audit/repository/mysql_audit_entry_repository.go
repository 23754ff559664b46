package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/medledger/internal/audit/domain"
	"github.com/allisson/medledger/internal/database"
	apperrors "github.com/allisson/medledger/internal/errors"
)

// MySQLAuditEntryRepository implements audit trail persistence for MySQL.
// Uses BINARY(16) for UUID storage with transaction support via database.GetTx().
type MySQLAuditEntryRepository struct {
	db *sql.DB
}

// Create inserts the entry. Nil detail is stored as NULL.
func (m *MySQLAuditEntryRepository) Create(ctx context.Context, entry *auditDomain.AuditEntry) error {
	querier := database.GetTx(ctx, m.db)

	id, err := entry.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit entry id")
	}

	detail, err := marshalDetail(entry.Detail)
	if err != nil {
		return err
	}

	query := `INSERT INTO audit_entries (id, occurred_at, actor_id, action, target_artifact_id, detail, linked_fingerprint, signature, is_signed)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
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
func (m *MySQLAuditEntryRepository) ListByArtifact(
	ctx context.Context,
	artifactID string,
	after time.Time,
	limit int,
) ([]*auditDomain.AuditEntry, error) {
	query := `SELECT id, occurred_at, actor_id, action, target_artifact_id, detail, linked_fingerprint, signature, is_signed
			  FROM audit_entries
			  WHERE target_artifact_id = ? AND occurred_at > ?
			  ORDER BY occurred_at ASC
			  LIMIT ?`

	return m.query(ctx, query, artifactID, after, limit)
}

// ListByActor returns a page of the actor's entries after the given timestamp.
func (m *MySQLAuditEntryRepository) ListByActor(
	ctx context.Context,
	actorID string,
	after time.Time,
	limit int,
) ([]*auditDomain.AuditEntry, error) {
	query := `SELECT id, occurred_at, actor_id, action, target_artifact_id, detail, linked_fingerprint, signature, is_signed
			  FROM audit_entries
			  WHERE actor_id = ? AND occurred_at > ?
			  ORDER BY occurred_at ASC
			  LIMIT ?`

	return m.query(ctx, query, actorID, after, limit)
}

// LockTail locks the newest entry of the occurred_at index until the enclosing
// transaction ends and returns its timestamp, or the zero time for an empty trail.
// InnoDB next-key locking makes concurrent tail writers wait on each other.
func (m *MySQLAuditEntryRepository) LockTail(ctx context.Context) (time.Time, func(), error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT occurred_at FROM audit_entries ORDER BY occurred_at DESC LIMIT 1 FOR UPDATE`

	var latest time.Time
	err := querier.QueryRowContext(ctx, query).Scan(&latest)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, noRelease, nil
	}
	if err != nil {
		return time.Time{}, noRelease, apperrors.Wrap(err, "failed to lock audit trail")
	}
	return latest.UTC(), noRelease, nil
}

func (m *MySQLAuditEntryRepository) query(
	ctx context.Context,
	query string,
	args ...any,
) ([]*auditDomain.AuditEntry, error) {
	querier := database.GetTx(ctx, m.db)

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
		var id []byte
		var action string
		var detail []byte

		err := rows.Scan(
			&id,
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

		if entry.ID, err = uuid.FromBytes(id); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal audit entry id")
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

// NewMySQLAuditEntryRepository creates a new MySQL audit entry repository.
func NewMySQLAuditEntryRepository(db *sql.DB) *MySQLAuditEntryRepository {
	return &MySQLAuditEntryRepository{db: db}
}
