package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"iter"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/medledger/internal/audit/domain"
)

func TestRunAudit(t *testing.T) {
	ctx := context.Background()

	container, _ := newTestContainer(t)
	mintArtifact(t, container, "A1")
	ledger, err := container.LedgerUseCase()
	require.NoError(t, err)
	for _, payload := range []string{"dx:flu", "rx:rest", "dx:recovered"} {
		_, err = ledger.AppendRecord(ctx, "A1", []byte(payload), "clinic-1")
		require.NoError(t, err)
	}
	audit, err := container.AuditUseCase()
	require.NoError(t, err)

	t.Run("by-artifact-text", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, RunAudit(ctx, audit, &out, "A1", "", FormatText))

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 4)
		require.Contains(t, lines[0], "mint")
		require.Contains(t, lines[0], "owner_id=patient-1")
		require.Contains(t, lines[3], "record_update")
	})

	t.Run("by-actor-json", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, RunAudit(ctx, audit, &out, "", "clinic-1", FormatJSON))

		var result []auditEntryOutput
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		require.Len(t, result, 4)
		for i := 1; i < len(result); i++ {
			require.Less(t, result[i-1].Timestamp, result[i].Timestamp)
		}
		require.True(t, result[0].IsSigned)
	})

	t.Run("no-entries-json", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, RunAudit(ctx, audit, &out, "missing", "", FormatJSON))
		require.JSONEq(t, `[]`, out.String())
	})

	t.Run("requires-one-target", func(t *testing.T) {
		require.Error(t, RunAudit(ctx, audit, &bytes.Buffer{}, "", "", FormatText))
		require.Error(t, RunAudit(ctx, audit, &bytes.Buffer{}, "A1", "clinic-1", FormatText))
	})

	t.Run("query-error", func(t *testing.T) {
		failing := &mockAuditUseCase{}
		var seq iter.Seq2[*auditDomain.AuditEntry, error] = func(yield func(*auditDomain.AuditEntry, error) bool) {
			yield(nil, errors.New("storage down"))
		}
		failing.On("QueryByArtifact", ctx, "A1").Return(seq)

		err := RunAudit(ctx, failing, &bytes.Buffer{}, "A1", "", FormatText)
		require.Error(t, err)
		require.Contains(t, err.Error(), "storage down")
		failing.AssertExpectations(t)
	})
}

func TestRunVerifyAudit(t *testing.T) {
	ctx := context.Background()
	logger := discardLogger()

	t.Run("valid", func(t *testing.T) {
		container, _ := newTestContainer(t)
		mintArtifact(t, container, "A1")
		audit, err := container.AuditUseCase()
		require.NoError(t, err)

		var out bytes.Buffer
		require.NoError(t, RunVerifyAudit(ctx, audit, logger, &out, "A1", FormatJSON))

		var result map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		require.Equal(t, float64(1), result["total_checked"])
		require.Equal(t, true, result["valid"])
	})

	t.Run("invalid-signature", func(t *testing.T) {
		invalidID := uuid.New()
		audit := &mockAuditUseCase{}
		audit.On("VerifyByArtifact", ctx, "A1").Return(&auditDomain.VerificationReport{
			TotalChecked:   3,
			SignedCount:    3,
			ValidCount:     2,
			InvalidEntries: []uuid.UUID{invalidID},
		}, nil)

		var out bytes.Buffer
		err := RunVerifyAudit(ctx, audit, logger, &out, "A1", FormatText)
		require.ErrorIs(t, err, auditDomain.ErrSignatureInvalid)
		require.Contains(t, out.String(), "INVALID:    "+invalidID.String())
		audit.AssertExpectations(t)
	})

	t.Run("signing-key-missing", func(t *testing.T) {
		audit := &mockAuditUseCase{}
		audit.On("VerifyByArtifact", ctx, "A1").Return(nil, auditDomain.ErrSigningKeyMissing)

		err := RunVerifyAudit(ctx, audit, logger, &bytes.Buffer{}, "A1", FormatText)
		require.ErrorIs(t, err, auditDomain.ErrSigningKeyMissing)
	})
}

func TestFormatDetail(t *testing.T) {
	require.Equal(t, "", formatDetail(nil))
	require.Equal(t, "a=1 b=2", formatDetail(map[string]string{"b": "2", "a": "1"}))
}
