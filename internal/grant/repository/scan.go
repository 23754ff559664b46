package repository

import (
	"database/sql"

	apperrors "github.com/allisson/medledger/internal/errors"
	grantDomain "github.com/allisson/medledger/internal/grant/domain"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// scanGrant reads one grant row. uuid.UUID scans both native UUID and BINARY(16) columns.
func scanGrant(row rowScanner) (*grantDomain.AccessGrant, error) {
	var grant grantDomain.AccessGrant
	var status string

	err := row.Scan(
		&grant.ID,
		&grant.ArtifactID,
		&grant.GranteeID,
		&grant.IssuedAt,
		&grant.ExpiresAt,
		&status,
	)
	if err != nil {
		return nil, err
	}

	grant.Status = grantDomain.Status(status)
	grant.IssuedAt = grant.IssuedAt.UTC()
	grant.ExpiresAt = grant.ExpiresAt.UTC()

	return &grant, nil
}

func scanGrants(rows *sql.Rows) ([]*grantDomain.AccessGrant, error) {
	grants := make([]*grantDomain.AccessGrant, 0)
	for rows.Next() {
		grant, err := scanGrant(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan grant")
		}
		grants = append(grants, grant)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate grants")
	}

	return grants, nil
}
