package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/medledger/internal/audit/domain"
	auditRepository "github.com/allisson/medledger/internal/audit/repository"
	auditService "github.com/allisson/medledger/internal/audit/service"
	auditUseCase "github.com/allisson/medledger/internal/audit/usecase"
	"github.com/allisson/medledger/internal/clock"
	"github.com/allisson/medledger/internal/database"
	emergencyDomain "github.com/allisson/medledger/internal/emergency/domain"
	"github.com/allisson/medledger/internal/emergency/repository"
	"github.com/allisson/medledger/internal/emergency/service"
	apperrors "github.com/allisson/medledger/internal/errors"
	"github.com/allisson/medledger/internal/locker"
)

var now = time.Date(2026, 8, 1, 3, 0, 0, 0, time.UTC)

// fakeCodeService issues a fixed code so tests skip Argon2id.
type fakeCodeService struct {
	code string
	err  error
}

func (f *fakeCodeService) GenerateCode() (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	return f.code, "hash:" + f.code, nil
}

func (f *fakeCodeService) CompareCode(plainCode, codeHash string) bool {
	return codeHash == "hash:"+plainCode
}

type MockAuditRecorder struct {
	mock.Mock
}

func (m *MockAuditRecorder) Record(ctx context.Context, entry *auditDomain.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

type fixture struct {
	uc    EmergencyUseCase
	clock *clock.Mock
	audit auditUseCase.AuditUseCase
	repo  *repository.MemoryEmergencyRepository
}

func newFixture(t *testing.T, codes service.CodeService) *fixture {
	t.Helper()

	clk := clock.NewMock(now)
	audit := auditUseCase.NewAuditUseCase(
		database.NewMemoryTxManager(),
		auditRepository.NewMemoryAuditEntryRepository(0),
		auditService.NewAuditSigner(),
		clk,
		auditUseCase.Config{},
	)
	repo := repository.NewMemoryEmergencyRepository()
	uc := NewEmergencyUseCase(
		database.NewMemoryTxManager(),
		locker.New(time.Second),
		repo,
		codes,
		audit,
		clk,
		0,
	)
	return &fixture{uc: uc, clock: clk, audit: audit, repo: repo}
}

func (f *fixture) request(t *testing.T, artifactID string) *emergencyDomain.RequestAccessOutput {
	t.Helper()
	output, err := f.uc.RequestAccess(context.Background(), &emergencyDomain.RequestAccessInput{
		ArtifactID:  artifactID,
		RequestedBy: "medic7",
		Reason:      "unconscious patient",
	})
	require.NoError(t, err)
	return output
}

func (f *fixture) auditEntries(t *testing.T, artifactID string) []*auditDomain.AuditEntry {
	t.Helper()
	entries := make([]*auditDomain.AuditEntry, 0)
	for entry, err := range f.audit.QueryByArtifact(context.Background(), artifactID) {
		require.NoError(t, err)
		entries = append(entries, entry)
	}
	return entries
}

func TestEmergencyUseCase_RequestAccess(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_ActiveUntilExpiry", func(t *testing.T) {
		f := newFixture(t, &fakeCodeService{code: "ABCDEFGHJKMNPQRS"})

		output := f.request(t, "A2")
		assert.Equal(t, "ABCDEFGHJKMNPQRS", output.PlainCode)
		assert.Equal(t, "A2", output.Record.ArtifactID)
		assert.Equal(t, "medic7", output.Record.RequestedBy)
		assert.Equal(t, "unconscious patient", output.Record.Reason)
		assert.Equal(t, now, output.Record.IssuedAt)
		assert.Equal(t, now.Add(30*time.Minute), output.Record.ExpiresAt)
		assert.NotEqual(t, output.PlainCode, output.Record.CodeHash)

		active, err := f.uc.IsActive(ctx, output.Record.ID)
		require.NoError(t, err)
		assert.True(t, active)

		f.clock.Advance(31 * time.Minute)

		active, err = f.uc.IsActive(ctx, output.Record.ID)
		require.NoError(t, err)
		assert.False(t, active)
	})

	t.Run("Success_ExpiryBoundaryIsExclusive", func(t *testing.T) {
		f := newFixture(t, &fakeCodeService{code: "CODE"})
		output := f.request(t, "A2")

		f.clock.Set(output.Record.ExpiresAt)

		active, err := f.uc.IsActive(ctx, output.Record.ID)
		require.NoError(t, err)
		assert.False(t, active)
	})

	t.Run("Success_WritesOneAuditEntry", func(t *testing.T) {
		f := newFixture(t, &fakeCodeService{code: "CODE"})
		output := f.request(t, "A2")

		entries := f.auditEntries(t, "A2")
		require.Len(t, entries, 1)
		assert.Equal(t, auditDomain.ActionEmergencyAccess, entries[0].Action)
		assert.Equal(t, "medic7", entries[0].ActorID)
		assert.Equal(t, output.Record.ID.String(), entries[0].Detail["record_id"])
		assert.Equal(t, "unconscious patient", entries[0].Detail["reason"])
	})

	t.Run("Success_UnmintedArtifact", func(t *testing.T) {
		f := newFixture(t, &fakeCodeService{code: "CODE"})
		output := f.request(t, "NEVER-MINTED")
		assert.Equal(t, "NEVER-MINTED", output.Record.ArtifactID)
	})

	t.Run("Error_BlankReason", func(t *testing.T) {
		f := newFixture(t, &fakeCodeService{code: "CODE"})

		_, err := f.uc.RequestAccess(ctx, &emergencyDomain.RequestAccessInput{
			ArtifactID:  "A2",
			RequestedBy: "medic7",
			Reason:      "   ",
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Empty(t, f.auditEntries(t, "A2"))
	})

	t.Run("Error_AuditFailureLeavesNoRecord", func(t *testing.T) {
		clk := clock.NewMock(now)
		repo := repository.NewMemoryEmergencyRepository()
		audit := &MockAuditRecorder{}
		audit.On("Record", mock.Anything, mock.Anything).Return(apperrors.ErrStorageExhausted).Once()

		uc := NewEmergencyUseCase(
			database.NewMemoryTxManager(),
			locker.New(time.Second),
			repo,
			&fakeCodeService{code: "CODE"},
			audit,
			clk,
			time.Hour,
		)

		_, err := uc.RequestAccess(ctx, &emergencyDomain.RequestAccessInput{
			ArtifactID:  "A2",
			RequestedBy: "medic7",
			Reason:      "unconscious patient",
		})
		assert.ErrorIs(t, err, apperrors.ErrStorageExhausted)

		records, err := repo.ListActiveByArtifact(ctx, "A2", now)
		require.NoError(t, err)
		assert.Empty(t, records)
		audit.AssertExpectations(t)
	})

	t.Run("Error_CodeGeneration", func(t *testing.T) {
		f := newFixture(t, &fakeCodeService{err: errors.New("entropy")})

		_, err := f.uc.RequestAccess(ctx, &emergencyDomain.RequestAccessInput{
			ArtifactID:  "A2",
			RequestedBy: "medic7",
			Reason:      "unconscious patient",
		})
		assert.Error(t, err)
	})
}

func TestEmergencyUseCase_IsActive(t *testing.T) {
	f := newFixture(t, &fakeCodeService{code: "CODE"})

	_, err := f.uc.IsActive(context.Background(), uuid.Must(uuid.NewV7()))
	assert.ErrorIs(t, err, emergencyDomain.ErrRecordNotFound)
}

func TestEmergencyUseCase_ActiveGrantsFor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &fakeCodeService{code: "CODE"})

	first := f.request(t, "A2")
	f.clock.Advance(10 * time.Minute)
	second := f.request(t, "A2")
	f.request(t, "A3")

	records, err := f.uc.ActiveGrantsFor(ctx, "A2")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, second.Record.ID, records[0].ID)
	assert.Equal(t, first.Record.ID, records[1].ID)

	f.clock.Advance(25 * time.Minute)

	records, err = f.uc.ActiveGrantsFor(ctx, "A2")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, second.Record.ID, records[0].ID)

	records, err = f.uc.ActiveGrantsFor(ctx, "UNKNOWN")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestEmergencyUseCase_Redeem(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t, &fakeCodeService{code: "CODE"})
		output := f.request(t, "A2")
		f.clock.Advance(time.Minute)

		record, err := f.uc.Redeem(ctx, output.Record.ID, "CODE")
		require.NoError(t, err)
		require.NotNil(t, record.RedeemedAt)
		assert.Equal(t, now.Add(time.Minute), *record.RedeemedAt)

		entries := f.auditEntries(t, "A2")
		require.Len(t, entries, 2)
		assert.Equal(t, auditDomain.ActionEmergencyCodeRedeemed, entries[1].Action)
	})

	t.Run("Error_Reuse", func(t *testing.T) {
		f := newFixture(t, &fakeCodeService{code: "CODE"})
		output := f.request(t, "A2")

		_, err := f.uc.Redeem(ctx, output.Record.ID, "CODE")
		require.NoError(t, err)

		_, err = f.uc.Redeem(ctx, output.Record.ID, "CODE")
		assert.ErrorIs(t, err, emergencyDomain.ErrCodeAlreadyRedeemed)

		entries := f.auditEntries(t, "A2")
		require.Len(t, entries, 3)
		assert.Equal(t, auditDomain.ActionEmergencyCodeRejected, entries[2].Action)
		assert.Equal(t, "already_redeemed", entries[2].Detail["reason"])
	})

	t.Run("Error_WrongCode", func(t *testing.T) {
		f := newFixture(t, &fakeCodeService{code: "CODE"})
		output := f.request(t, "A2")

		_, err := f.uc.Redeem(ctx, output.Record.ID, "WRONG")
		assert.ErrorIs(t, err, emergencyDomain.ErrCodeInvalid)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

		entries := f.auditEntries(t, "A2")
		require.Len(t, entries, 2)
		assert.Equal(t, "invalid_code", entries[1].Detail["reason"])

		// A failed attempt does not consume the code.
		_, err = f.uc.Redeem(ctx, output.Record.ID, "CODE")
		assert.NoError(t, err)
	})

	t.Run("Error_Expired", func(t *testing.T) {
		f := newFixture(t, &fakeCodeService{code: "CODE"})
		output := f.request(t, "A2")
		f.clock.Advance(31 * time.Minute)

		_, err := f.uc.Redeem(ctx, output.Record.ID, "CODE")
		assert.ErrorIs(t, err, emergencyDomain.ErrRecordExpired)

		entries := f.auditEntries(t, "A2")
		require.Len(t, entries, 2)
		assert.Equal(t, "expired", entries[1].Detail["reason"])
	})

	t.Run("Error_UnknownRecord", func(t *testing.T) {
		f := newFixture(t, &fakeCodeService{code: "CODE"})

		_, err := f.uc.Redeem(ctx, uuid.Must(uuid.NewV7()), "CODE")
		assert.ErrorIs(t, err, emergencyDomain.ErrRecordNotFound)
	})

	t.Run("Success_RealCodeService", func(t *testing.T) {
		f := newFixture(t, service.NewCodeService())
		output := f.request(t, "A2")
		assert.Len(t, output.PlainCode, 16)

		_, err := f.uc.Redeem(ctx, output.Record.ID, output.PlainCode)
		assert.NoError(t, err)
	})
}

type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

func (m *mockBusinessMetrics) RecordIntegrityCheck(ctx context.Context, valid bool) {
	m.Called(ctx, valid)
}

func (m *mockBusinessMetrics) RecordAuthorization(ctx context.Context, allowed bool, path string) {
	m.Called(ctx, allowed, path)
}

func TestEmergencyUseCaseWithMetrics(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &fakeCodeService{code: "CODE"})
	mockMetrics := &mockBusinessMetrics{}
	uc := NewEmergencyUseCaseWithMetrics(f.uc, mockMetrics)

	t.Run("RequestAccess success", func(t *testing.T) {
		mockMetrics.On("RecordOperation", ctx, "emergency", "emergency_request", "success").Return().Once()
		mockMetrics.On("RecordDuration", ctx, "emergency", "emergency_request", mock.AnythingOfType("time.Duration"), "success").
			Return().
			Once()

		output, err := uc.RequestAccess(ctx, &emergencyDomain.RequestAccessInput{
			ArtifactID:  "A2",
			RequestedBy: "medic7",
			Reason:      "unconscious patient",
		})
		require.NoError(t, err)
		assert.Equal(t, "CODE", output.PlainCode)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("Redeem error", func(t *testing.T) {
		mockMetrics.On("RecordOperation", ctx, "emergency", "emergency_redeem", "error").Return().Once()
		mockMetrics.On("RecordDuration", ctx, "emergency", "emergency_redeem", mock.AnythingOfType("time.Duration"), "error").
			Return().
			Once()

		_, err := uc.Redeem(ctx, uuid.Must(uuid.NewV7()), "CODE")
		assert.Error(t, err)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("ActiveGrantsFor success", func(t *testing.T) {
		mockMetrics.On("RecordOperation", ctx, "emergency", "emergency_list", "success").Return().Once()
		mockMetrics.On("RecordDuration", ctx, "emergency", "emergency_list", mock.AnythingOfType("time.Duration"), "success").
			Return().
			Once()

		records, err := uc.ActiveGrantsFor(ctx, "A2")
		require.NoError(t, err)
		assert.Len(t, records, 1)
		mockMetrics.AssertExpectations(t)
	})
}
