package repository

import (
	"database/sql"

	emergencyDomain "github.com/allisson/medledger/internal/emergency/domain"
	apperrors "github.com/allisson/medledger/internal/errors"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*emergencyDomain.EmergencyAccessRecord, error) {
	var record emergencyDomain.EmergencyAccessRecord
	var redeemedAt sql.NullTime

	err := row.Scan(
		&record.ID,
		&record.ArtifactID,
		&record.RequestedBy,
		&record.Reason,
		&record.IssuedAt,
		&record.ExpiresAt,
		&record.CodeHash,
		&redeemedAt,
	)
	if err != nil {
		return nil, err
	}

	record.IssuedAt = record.IssuedAt.UTC()
	record.ExpiresAt = record.ExpiresAt.UTC()
	if redeemedAt.Valid {
		at := redeemedAt.Time.UTC()
		record.RedeemedAt = &at
	}

	return &record, nil
}

func scanRecords(rows *sql.Rows) ([]*emergencyDomain.EmergencyAccessRecord, error) {
	records := make([]*emergencyDomain.EmergencyAccessRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan emergency access record")
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate emergency access records")
	}

	return records, nil
}
