package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/medledger/internal/database"
	emergencyDomain "github.com/allisson/medledger/internal/emergency/domain"
	apperrors "github.com/allisson/medledger/internal/errors"
)

// MySQLEmergencyRepository implements emergency access record persistence for MySQL.
// Uses BINARY(16) for UUID storage.
type MySQLEmergencyRepository struct {
	db *sql.DB
}

// Create inserts a new record.
func (m *MySQLEmergencyRepository) Create(
	ctx context.Context,
	record *emergencyDomain.EmergencyAccessRecord,
) error {
	querier := database.GetTx(ctx, m.db)

	id, err := record.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal emergency access record id")
	}

	query := `INSERT INTO emergency_access_records (id, artifact_id, requested_by, reason, issued_at, expires_at, code_hash, redeemed_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		record.ArtifactID,
		record.RequestedBy,
		record.Reason,
		record.IssuedAt,
		record.ExpiresAt,
		record.CodeHash,
		record.RedeemedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create emergency access record")
	}

	return nil
}

// Get retrieves a record by id. Returns ErrRecordNotFound if not found.
func (m *MySQLEmergencyRepository) Get(
	ctx context.Context,
	recordID uuid.UUID,
) (*emergencyDomain.EmergencyAccessRecord, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := recordID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal emergency access record id")
	}

	query := `SELECT id, artifact_id, requested_by, reason, issued_at, expires_at, code_hash, redeemed_at
			  FROM emergency_access_records
			  WHERE id = ?`

	record, err := scanRecord(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, emergencyDomain.ErrRecordNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get emergency access record")
	}

	return record, nil
}

// ListActiveByArtifact returns the artifact's records expiring after now, most recent first.
func (m *MySQLEmergencyRepository) ListActiveByArtifact(
	ctx context.Context,
	artifactID string,
	now time.Time,
) ([]*emergencyDomain.EmergencyAccessRecord, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, artifact_id, requested_by, reason, issued_at, expires_at, code_hash, redeemed_at
			  FROM emergency_access_records
			  WHERE artifact_id = ? AND expires_at > ?
			  ORDER BY issued_at DESC, id DESC`

	rows, err := querier.QueryContext(ctx, query, artifactID, now)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list emergency access records")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanRecords(rows)
}

// MarkRedeemed sets redeemed_at once. Returns ErrCodeAlreadyRedeemed when the record
// exists but was already redeemed.
func (m *MySQLEmergencyRepository) MarkRedeemed(ctx context.Context, recordID uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, m.db)

	id, err := recordID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal emergency access record id")
	}

	query := `UPDATE emergency_access_records SET redeemed_at = ? WHERE id = ? AND redeemed_at IS NULL`

	result, err := querier.ExecContext(ctx, query, at, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to redeem emergency access code")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return emergencyDomain.ErrCodeAlreadyRedeemed
	}

	return nil
}

// NewMySQLEmergencyRepository creates a new MySQL emergency repository.
func NewMySQLEmergencyRepository(db *sql.DB) *MySQLEmergencyRepository {
	return &MySQLEmergencyRepository{db: db}
}
