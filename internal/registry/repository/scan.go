package repository

import (
	"database/sql"

	apperrors "github.com/allisson/medledger/internal/errors"
	registryDomain "github.com/allisson/medledger/internal/registry/domain"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row rowScanner) (*registryDomain.ArtifactMetadata, error) {
	var metadata registryDomain.ArtifactMetadata
	var classification string

	err := row.Scan(
		&metadata.ArtifactID,
		&metadata.OwnerID,
		&metadata.IssuingInstitutionID,
		&classification,
		&metadata.MintedAt,
		&metadata.CurrentFingerprint,
		&metadata.Verified,
	)
	if err != nil {
		return nil, err
	}

	metadata.Classification = registryDomain.Classification(classification)
	metadata.MintedAt = metadata.MintedAt.UTC()

	return &metadata, nil
}

func scanArtifacts(rows *sql.Rows) ([]*registryDomain.ArtifactMetadata, error) {
	artifacts := make([]*registryDomain.ArtifactMetadata, 0)
	for rows.Next() {
		metadata, err := scanArtifact(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan artifact")
		}
		artifacts = append(artifacts, metadata)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate artifacts")
	}

	return artifacts, nil
}

// requireAffected maps a zero-row update to ErrUnknownArtifact.
func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return registryDomain.ErrUnknownArtifact
	}
	return nil
}
