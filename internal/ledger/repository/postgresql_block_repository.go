package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/allisson/medledger/internal/database"
	apperrors "github.com/allisson/medledger/internal/errors"
	ledgerDomain "github.com/allisson/medledger/internal/ledger/domain"
	registryDomain "github.com/allisson/medledger/internal/registry/domain"
)

// PostgreSQLBlockRepository implements block persistence for PostgreSQL. The global
// sequence number comes from a BIGSERIAL column.
type PostgreSQLBlockRepository struct {
	db *sql.DB
}

// Append inserts the block and sets its SequenceNumber from the generated key.
// A second block linked to the same predecessor violates the unique
// (artifact_id, previous_fingerprint) index and returns ErrConflict.
func (p *PostgreSQLBlockRepository) Append(ctx context.Context, block *ledgerDomain.Block) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO blocks (artifact_id, owner_id, payload_digest, block_fingerprint, previous_fingerprint, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING sequence_number`

	err := querier.QueryRowContext(
		ctx,
		query,
		block.ArtifactID,
		block.OwnerID,
		block.PayloadDigest,
		string(block.BlockFingerprint),
		string(block.PreviousFingerprint),
		block.CreatedAt,
	).Scan(&block.SequenceNumber)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "block predecessor already extended")
		}
		return apperrors.Wrap(err, "failed to append block")
	}

	return nil
}

// Latest returns the artifact's block with the highest sequence number.
func (p *PostgreSQLBlockRepository) Latest(ctx context.Context, artifactID string) (*ledgerDomain.Block, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT sequence_number, artifact_id, owner_id, payload_digest, block_fingerprint, previous_fingerprint, created_at
			  FROM blocks
			  WHERE artifact_id = $1
			  ORDER BY sequence_number DESC
			  LIMIT 1`

	block, err := scanBlock(querier.QueryRowContext(ctx, query, artifactID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, registryDomain.ErrUnknownArtifact
		}
		return nil, apperrors.Wrap(err, "failed to get latest block")
	}

	return block, nil
}

// ListByArtifact returns the artifact's blocks ordered by sequence number.
func (p *PostgreSQLBlockRepository) ListByArtifact(
	ctx context.Context,
	artifactID string,
) ([]*ledgerDomain.Block, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT sequence_number, artifact_id, owner_id, payload_digest, block_fingerprint, previous_fingerprint, created_at
			  FROM blocks
			  WHERE artifact_id = $1
			  ORDER BY sequence_number ASC`

	rows, err := querier.QueryContext(ctx, query, artifactID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list blocks")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanBlocks(rows)
}

// NewPostgreSQLBlockRepository creates a new PostgreSQL block repository.
func NewPostgreSQLBlockRepository(db *sql.DB) *PostgreSQLBlockRepository {
	return &PostgreSQLBlockRepository{db: db}
}
