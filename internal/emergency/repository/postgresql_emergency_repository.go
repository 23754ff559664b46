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

// PostgreSQLEmergencyRepository implements emergency access record persistence for PostgreSQL.
type PostgreSQLEmergencyRepository struct {
	db *sql.DB
}

// Create inserts a new record.
func (p *PostgreSQLEmergencyRepository) Create(
	ctx context.Context,
	record *emergencyDomain.EmergencyAccessRecord,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO emergency_access_records (id, artifact_id, requested_by, reason, issued_at, expires_at, code_hash, redeemed_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := querier.ExecContext(
		ctx,
		query,
		record.ID,
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
func (p *PostgreSQLEmergencyRepository) Get(
	ctx context.Context,
	recordID uuid.UUID,
) (*emergencyDomain.EmergencyAccessRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, artifact_id, requested_by, reason, issued_at, expires_at, code_hash, redeemed_at
			  FROM emergency_access_records
			  WHERE id = $1`

	record, err := scanRecord(querier.QueryRowContext(ctx, query, recordID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, emergencyDomain.ErrRecordNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get emergency access record")
	}

	return record, nil
}

// ListActiveByArtifact returns the artifact's records expiring after now, most recent first.
func (p *PostgreSQLEmergencyRepository) ListActiveByArtifact(
	ctx context.Context,
	artifactID string,
	now time.Time,
) ([]*emergencyDomain.EmergencyAccessRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, artifact_id, requested_by, reason, issued_at, expires_at, code_hash, redeemed_at
			  FROM emergency_access_records
			  WHERE artifact_id = $1 AND expires_at > $2
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
func (p *PostgreSQLEmergencyRepository) MarkRedeemed(ctx context.Context, recordID uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE emergency_access_records SET redeemed_at = $1 WHERE id = $2 AND redeemed_at IS NULL`

	result, err := querier.ExecContext(ctx, query, at, recordID)
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

// NewPostgreSQLEmergencyRepository creates a new PostgreSQL emergency repository.
func NewPostgreSQLEmergencyRepository(db *sql.DB) *PostgreSQLEmergencyRepository {
	return &PostgreSQLEmergencyRepository{db: db}
}
