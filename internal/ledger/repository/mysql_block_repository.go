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

// MySQLBlockRepository implements block persistence for MySQL. The global sequence
// number comes from an AUTO_INCREMENT column.
type MySQLBlockRepository struct {
	db *sql.DB
}

// Append inserts the block and sets its SequenceNumber from LAST_INSERT_ID().
func (m *MySQLBlockRepository) Append(ctx context.Context, block *ledgerDomain.Block) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO blocks (artifact_id, owner_id, payload_digest, block_fingerprint, previous_fingerprint, created_at)
			  VALUES (?, ?, ?, ?, ?, ?)`

	result, err := querier.ExecContext(
		ctx,
		query,
		block.ArtifactID,
		block.OwnerID,
		block.PayloadDigest,
		string(block.BlockFingerprint),
		string(block.PreviousFingerprint),
		block.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "block predecessor already extended")
		}
		return apperrors.Wrap(err, "failed to append block")
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return apperrors.Wrap(err, "failed to read block sequence number")
	}
	block.SequenceNumber = seq

	return nil
}

// Latest returns the artifact's block with the highest sequence number.
func (m *MySQLBlockRepository) Latest(ctx context.Context, artifactID string) (*ledgerDomain.Block, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT sequence_number, artifact_id, owner_id, payload_digest, block_fingerprint, previous_fingerprint, created_at
			  FROM blocks
			  WHERE artifact_id = ?
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
func (m *MySQLBlockRepository) ListByArtifact(
	ctx context.Context,
	artifactID string,
) ([]*ledgerDomain.Block, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT sequence_number, artifact_id, owner_id, payload_digest, block_fingerprint, previous_fingerprint, created_at
			  FROM blocks
			  WHERE artifact_id = ?
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

// NewMySQLBlockRepository creates a new MySQL block repository.
func NewMySQLBlockRepository(db *sql.DB) *MySQLBlockRepository {
	return &MySQLBlockRepository{db: db}
}
