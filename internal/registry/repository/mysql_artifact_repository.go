package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/allisson/medledger/internal/database"
	apperrors "github.com/allisson/medledger/internal/errors"
	registryDomain "github.com/allisson/medledger/internal/registry/domain"
)

// MySQLArtifactRepository implements artifact metadata persistence for MySQL.
// Writes join the caller's transaction via database.GetTx().
type MySQLArtifactRepository struct {
	db *sql.DB
}

// Create inserts new metadata. Returns ErrDuplicateArtifact on primary key conflict.
func (m *MySQLArtifactRepository) Create(ctx context.Context, metadata *registryDomain.ArtifactMetadata) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO artifacts (artifact_id, owner_id, issuing_institution_id, classification, minted_at, current_fingerprint, verified)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		metadata.ArtifactID,
		metadata.OwnerID,
		metadata.IssuingInstitutionID,
		string(metadata.Classification),
		metadata.MintedAt,
		metadata.CurrentFingerprint,
		metadata.Verified,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return registryDomain.ErrDuplicateArtifact
		}
		return apperrors.Wrap(err, "failed to create artifact")
	}

	return nil
}

// Get retrieves metadata by artifact id. Returns ErrUnknownArtifact if not found.
func (m *MySQLArtifactRepository) Get(
	ctx context.Context,
	artifactID string,
) (*registryDomain.ArtifactMetadata, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT artifact_id, owner_id, issuing_institution_id, classification, minted_at, current_fingerprint, verified
			  FROM artifacts
			  WHERE artifact_id = ?`

	metadata, err := scanArtifact(querier.QueryRowContext(ctx, query, artifactID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, registryDomain.ErrUnknownArtifact
		}
		return nil, apperrors.Wrap(err, "failed to get artifact")
	}

	return metadata, nil
}

// UpdateFingerprint advances the current fingerprint in place.
func (m *MySQLArtifactRepository) UpdateFingerprint(ctx context.Context, artifactID, fingerprint string) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE artifacts SET current_fingerprint = ? WHERE artifact_id = ?`

	result, err := querier.ExecContext(ctx, query, fingerprint, artifactID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update artifact fingerprint")
	}

	return m.requireFound(ctx, result, artifactID)
}

// SetVerified sets the verified flag in place.
func (m *MySQLArtifactRepository) SetVerified(ctx context.Context, artifactID string, verified bool) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE artifacts SET verified = ? WHERE artifact_id = ?`

	result, err := querier.ExecContext(ctx, query, verified, artifactID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update artifact verification")
	}

	return m.requireFound(ctx, result, artifactID)
}

// ListByOwner returns the owner's artifacts ordered by artifact id.
func (m *MySQLArtifactRepository) ListByOwner(
	ctx context.Context,
	ownerID string,
) ([]*registryDomain.ArtifactMetadata, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT artifact_id, owner_id, issuing_institution_id, classification, minted_at, current_fingerprint, verified
			  FROM artifacts
			  WHERE owner_id = ?
			  ORDER BY artifact_id ASC`

	rows, err := querier.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list artifacts by owner")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanArtifacts(rows)
}

// List returns a page of artifacts in mint order.
func (m *MySQLArtifactRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*registryDomain.ArtifactMetadata, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT artifact_id, owner_id, issuing_institution_id, classification, minted_at, current_fingerprint, verified
			  FROM artifacts
			  ORDER BY minted_at ASC, artifact_id ASC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list artifacts")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanArtifacts(rows)
}

// NewMySQLArtifactRepository creates a new MySQL artifact repository.
func NewMySQLArtifactRepository(db *sql.DB) *MySQLArtifactRepository {
	return &MySQLArtifactRepository{db: db}
}

// requireFound treats a zero-row update as success when the artifact exists, since
// MySQL reports unchanged rows as unaffected.
func (m *MySQLArtifactRepository) requireFound(ctx context.Context, result sql.Result, artifactID string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if affected > 0 {
		return nil
	}

	querier := database.GetTx(ctx, m.db)

	var exists int
	err = querier.QueryRowContext(ctx, `SELECT 1 FROM artifacts WHERE artifact_id = ?`, artifactID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return registryDomain.ErrUnknownArtifact
		}
		return apperrors.Wrap(err, "failed to check artifact")
	}
	return nil
}
