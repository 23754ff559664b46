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

// PostgreSQLGrantRepository implements access grant persistence for PostgreSQL.
type PostgreSQLGrantRepository struct {
	db *sql.DB
}

// Create inserts a new grant.
func (p *PostgreSQLGrantRepository) Create(ctx context.Context, grant *grantDomain.AccessGrant) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO access_grants (id, artifact_id, grantee_id, issued_at, expires_at, status)
			  VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := querier.ExecContext(
		ctx,
		query,
		grant.ID,
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
func (p *PostgreSQLGrantRepository) Get(ctx context.Context, grantID uuid.UUID) (*grantDomain.AccessGrant, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, artifact_id, grantee_id, issued_at, expires_at, status
			  FROM access_grants
			  WHERE id = $1`

	grant, err := scanGrant(querier.QueryRowContext(ctx, query, grantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, grantDomain.ErrGrantNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get grant")
	}

	return grant, nil
}

// UpdateStatus sets the stored status of a grant.
func (p *PostgreSQLGrantRepository) UpdateStatus(
	ctx context.Context,
	grantID uuid.UUID,
	status grantDomain.Status,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE access_grants SET status = $1 WHERE id = $2`

	result, err := querier.ExecContext(ctx, query, string(status), grantID)
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
func (p *PostgreSQLGrantRepository) ListActiveByPair(
	ctx context.Context,
	artifactID, granteeID string,
) ([]*grantDomain.AccessGrant, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, artifact_id, grantee_id, issued_at, expires_at, status
			  FROM access_grants
			  WHERE artifact_id = $1 AND grantee_id = $2 AND status = 'active'
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
func (p *PostgreSQLGrantRepository) ListByArtifact(
	ctx context.Context,
	artifactID string,
) ([]*grantDomain.AccessGrant, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, artifact_id, grantee_id, issued_at, expires_at, status
			  FROM access_grants
			  WHERE artifact_id = $1
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

// NewPostgreSQLGrantRepository creates a new PostgreSQL grant repository.
func NewPostgreSQLGrantRepository(db *sql.DB) *PostgreSQLGrantRepository {
	return &PostgreSQLGrantRepository{db: db}
}
