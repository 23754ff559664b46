package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/medledger/internal/database"
	apperrors "github.com/allisson/medledger/internal/errors"
	grantDomain "github.com/allisson/medledger/internal/grant/domain"
)

// MySQLGrantRepository implements access grant persistence for MySQL.
// Uses BINARY(16) for UUID storage.
type MySQLGrantRepository struct {
	db *sql.DB
}

// Create inserts a new grant.
func (m *MySQLGrantRepository) Create(ctx context.Context, grant *grantDomain.AccessGrant) error {
	querier := database.GetTx(ctx, m.db)

	id, err := grant.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal grant id")
	}

	query := `INSERT INTO access_grants (id, artifact_id, grantee_id, issued_at, expires_at, status)
			  VALUES (?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		grant.ArtifactID,
		grant.GranteeID,
		grant.IssuedAt,
		grant.ExpiresAt,
		string(grant.Status),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create grant")
	}

	return nil
}

// Get retrieves a grant by id. Returns ErrGrantNotFound if not found.
func (m *MySQLGrantRepository) Get(ctx context.Context, grantID uuid.UUID) (*grantDomain.AccessGrant, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := grantID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal grant id")
	}

	query := `SELECT id, artifact_id, grantee_id, issued_at, expires_at, status
			  FROM access_grants
			  WHERE id = ?`

	grant, err := scanGrant(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, grantDomain.ErrGrantNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get grant")
	}

	return grant, nil
}

// UpdateStatus sets the stored status of a grant. Callers only change the status of
// grants they have just read, so a zero-row update means the grant does not exist.
func (m *MySQLGrantRepository) UpdateStatus(
	ctx context.Context,
	grantID uuid.UUID,
	status grantDomain.Status,
) error {
	querier := database.GetTx(ctx, m.db)

	id, err := grantID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal grant id")
	}

	query := `UPDATE access_grants SET status = ? WHERE id = ?`

	result, err := querier.ExecContext(ctx, query, string(status), id)
	if err != nil {
		return apperrors.Wrap(err, "failed to update grant status")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return grantDomain.ErrGrantNotFound
	}

	return nil
}

// ListActiveByPair returns the pair's grants whose stored status is active.
func (m *MySQLGrantRepository) ListActiveByPair(
	ctx context.Context,
	artifactID, granteeID string,
) ([]*grantDomain.AccessGrant, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, artifact_id, grantee_id, issued_at, expires_at, status
			  FROM access_grants
			  WHERE artifact_id = ? AND grantee_id = ? AND status = 'active'
			  ORDER BY issued_at ASC, id ASC`

	rows, err := querier.QueryContext(ctx, query, artifactID, granteeID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list active grants")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanGrants(rows)
}

// ListByArtifact returns every grant of the artifact in issue order.
func (m *MySQLGrantRepository) ListByArtifact(
	ctx context.Context,
	artifactID string,
) ([]*grantDomain.AccessGrant, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, artifact_id, grantee_id, issued_at, expires_at, status
			  FROM access_grants
			  WHERE artifact_id = ?
			  ORDER BY issued_at ASC, id ASC`

	rows, err := querier.QueryContext(ctx, query, artifactID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list grants")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanGrants(rows)
}

// NewMySQLGrantRepository creates a new MySQL grant repository.
func NewMySQLGrantRepository(db *sql.DB) *MySQLGrantRepository {
	return &MySQLGrantRepository{db: db}
}
