package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/medledger/internal/errors"
	ledgerDomain "github.com/allisson/medledger/internal/ledger/domain"
	registryDomain "github.com/allisson/medledger/internal/registry/domain"
)

var blockColumns = []string{
	"sequence_number",
	"artifact_id",
	"owner_id",
	"payload_digest",
	"block_fingerprint",
	"previous_fingerprint",
	"created_at",
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestPostgreSQLBlockRepository_Append(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLBlockRepository(db)
		block := newBlock("A1", ledgerDomain.GenesisSentinel, "fp-0")

		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO blocks")).
			WithArgs("A1", "P1", "digest-fp-0", "fp-0", string(ledgerDomain.GenesisSentinel), block.CreatedAt).
			WillReturnRows(sqlmock.NewRows([]string{"sequence_number"}).AddRow(42))

		require.NoError(t, repo.Append(ctx, block))
		assert.Equal(t, int64(42), block.SequenceNumber)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DuplicatePredecessor", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLBlockRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO blocks")).
			WillReturnError(&pq.Error{Code: "23505"})

		err := repo.Append(ctx, newBlock("A1", ledgerDomain.GenesisSentinel, "fp-0"))
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("DatabaseError", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLBlockRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO blocks")).
			WillReturnError(errors.New("connection reset"))

		err := repo.Append(ctx, newBlock("A1", ledgerDomain.GenesisSentinel, "fp-0"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to append block")
	})
}

func TestPostgreSQLBlockRepository_Latest(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLBlockRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("ORDER BY sequence_number DESC")).
			WithArgs("A1").
			WillReturnRows(sqlmock.NewRows(blockColumns).
				AddRow(7, "A1", "P1", "digest", "fp-1", "fp-0", createdAt))

		block, err := repo.Latest(ctx, "A1")
		require.NoError(t, err)
		assert.Equal(t, int64(7), block.SequenceNumber)
		assert.Equal(t, ledgerDomain.Fingerprint("fp-1"), block.BlockFingerprint)
		assert.Equal(t, ledgerDomain.Fingerprint("fp-0"), block.PreviousFingerprint)
		assert.True(t, createdAt.Equal(block.CreatedAt))
	})

	t.Run("UnknownArtifact", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLBlockRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("ORDER BY sequence_number DESC")).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(blockColumns))

		block, err := repo.Latest(ctx, "missing")
		assert.Nil(t, block)
		assert.ErrorIs(t, err, registryDomain.ErrUnknownArtifact)
	})
}

func TestPostgreSQLBlockRepository_ListByArtifact(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	db, mock := newMockDB(t)
	repo := NewPostgreSQLBlockRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY sequence_number ASC")).
		WithArgs("A1").
		WillReturnRows(sqlmock.NewRows(blockColumns).
			AddRow(1, "A1", "P1", "d0", "fp-0", string(ledgerDomain.GenesisSentinel), createdAt).
			AddRow(3, "A1", "P1", "d1", "fp-1", "fp-0", createdAt.Add(time.Second)))

	blocks, err := repo.ListByArtifact(ctx, "A1")
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.True(t, blocks[0].IsGenesis())
	assert.Equal(t, blocks[0].BlockFingerprint, blocks[1].PreviousFingerprint)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLBlockRepository_Append(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLBlockRepository(db)
		block := newBlock("A1", ledgerDomain.GenesisSentinel, "fp-0")

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO blocks")).
			WithArgs("A1", "P1", "digest-fp-0", "fp-0", string(ledgerDomain.GenesisSentinel), block.CreatedAt).
			WillReturnResult(sqlmock.NewResult(9, 1))

		require.NoError(t, repo.Append(ctx, block))
		assert.Equal(t, int64(9), block.SequenceNumber)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DuplicatePredecessor", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLBlockRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO blocks")).
			WillReturnError(&mysql.MySQLError{Number: 1062})

		err := repo.Append(ctx, newBlock("A1", ledgerDomain.GenesisSentinel, "fp-0"))
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})
}

func TestMySQLBlockRepository_Latest(t *testing.T) {
	ctx := context.Background()

	db, mock := newMockDB(t)
	repo := NewMySQLBlockRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY sequence_number DESC")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	block, err := repo.Latest(ctx, "missing")
	assert.Nil(t, block)
	assert.ErrorIs(t, err, registryDomain.ErrUnknownArtifact)
}

func TestMySQLBlockRepository_ListByArtifact(t *testing.T) {
	ctx := context.Background()

	db, mock := newMockDB(t)
	repo := NewMySQLBlockRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY sequence_number ASC")).
		WithArgs("A1").
		WillReturnRows(sqlmock.NewRows(blockColumns))

	blocks, err := repo.ListByArtifact(ctx, "A1")
	require.NoError(t, err)
	assert.Empty(t, blocks)
}
