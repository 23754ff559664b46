package repository

import (
	"database/sql"

	apperrors "github.com/allisson/medledger/internal/errors"
	ledgerDomain "github.com/allisson/medledger/internal/ledger/domain"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBlock(row rowScanner) (*ledgerDomain.Block, error) {
	var block ledgerDomain.Block
	var fingerprint, previous string

	err := row.Scan(
		&block.SequenceNumber,
		&block.ArtifactID,
		&block.OwnerID,
		&block.PayloadDigest,
		&fingerprint,
		&previous,
		&block.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	block.BlockFingerprint = ledgerDomain.Fingerprint(fingerprint)
	block.PreviousFingerprint = ledgerDomain.Fingerprint(previous)
	block.CreatedAt = block.CreatedAt.UTC()

	return &block, nil
}

func scanBlocks(rows *sql.Rows) ([]*ledgerDomain.Block, error) {
	blocks := make([]*ledgerDomain.Block, 0)
	for rows.Next() {
		block, err := scanBlock(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan block")
		}
		blocks = append(blocks, block)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate blocks")
	}

	return blocks, nil
}
