package usecase

import (
	"context"
	"errors"
	"sync"
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
	apperrors "github.com/allisson/medledger/internal/errors"
	grantDomain "github.com/allisson/medledger/internal/grant/domain"
	"github.com/allisson/medledger/internal/grant/repository"
	"github.com/allisson/medledger/internal/locker"
	"github.com/allisson/medledger/internal/metrics"
	registryDomain "github.com/allisson/medledger/internal/registry/domain"
	registryRepository "github.com/allisson/medledger/internal/registry/repository"
)

var now = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

type MockGrantRepository struct {
	mock.Mock
}

func (m *MockGrantRepository) Create(ctx context.Context, grant *grantDomain.AccessGrant) error {
	args := m.Called(ctx, grant)
	return args.Error(0)
}

func (m *MockGrantRepository) Get(ctx context.Context, grantID uuid.UUID) (*grantDomain.AccessGrant, error) {
	args := m.Called(ctx, grantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*grantDomain.AccessGrant), args.Error(1)
}

func (m *MockGrantRepository) UpdateStatus(ctx context.Context, grantID uuid.UUID, status grantDomain.Status) error {
	args := m.Called(ctx, grantID, status)
	return args.Error(0)
}

func (m *MockGrantRepository) ListActiveByPair(
	ctx context.Context,
	artifactID, granteeID string,
) ([]*grantDomain.AccessGrant, error) {
	args := m.Called(ctx, artifactID, granteeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*grantDomain.AccessGrant), args.Error(1)
}

func (m *MockGrantRepository) ListByArtifact(
	ctx context.Context,
	artifactID string,
) ([]*grantDomain.AccessGrant, error) {
	args := m.Called(ctx, artifactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*grantDomain.AccessGrant), args.Error(1)
}

type fixture struct {
	uc    GrantUseCase
	clock *clock.Mock
	audit auditUseCase.AuditUseCase
}

func newFixture(t *testing.T, artifactIDs ...string) *fixture {
	t.Helper()

	clk := clock.NewMock(now)
	artifacts := registryRepository.NewMemoryArtifactRepository()
	for _, id := range artifactIDs {
		require.NoError(t, artifacts.Create(context.Background(), &registryDomain.ArtifactMetadata{
			ArtifactID: id,
			OwnerID:    "P1",
			Verified:   true,
		}))
	}
	audit := auditUseCase.NewAuditUseCase(
		database.NewMemoryTxManager(),
		auditRepository.NewMemoryAuditEntryRepository(0),
		auditService.NewAuditSigner(),
		clk,
		auditUseCase.Config{},
	)

	uc := NewGrantUseCase(
		database.NewMemoryTxManager(),
		locker.New(time.Second),
		repository.NewMemoryGrantRepository(),
		artifacts,
		audit,
		clk,
	)
	return &fixture{uc: uc, clock: clk, audit: audit}
}

func (f *fixture) grant(t *testing.T, artifactID, granteeID string, days int) *grantDomain.AccessGrant {
	t.Helper()
	grant, err := f.uc.Grant(context.Background(), &grantDomain.GrantInput{
		ArtifactID:   artifactID,
		GranteeID:    granteeID,
		DurationDays: days,
		ActorID:      "P1",
	})
	require.NoError(t, err)
	return grant
}

func (f *fixture) auditActions(t *testing.T, artifactID string) []auditDomain.Action {
	t.Helper()
	actions := make([]auditDomain.Action, 0)
	for entry, err := range f.audit.QueryByArtifact(context.Background(), artifactID) {
		require.NoError(t, err)
		actions = append(actions, entry.Action)
	}
	return actions
}

func TestGrantUseCase_Grant(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t, "A1")

		grant := f.grant(t, "A1", "HOSP1", 30)

		assert.Equal(t, grantDomain.StatusActive, grant.Status)
		assert.Equal(t, now, grant.IssuedAt)
		assert.Equal(t, now.Add(30*24*time.Hour), grant.ExpiresAt)
		assert.Equal(t, []auditDomain.Action{auditDomain.ActionGrant}, f.auditActions(t, "A1"))
	})

	t.Run("SupersedesPriorGrant", func(t *testing.T) {
		f := newFixture(t, "A1")

		first := f.grant(t, "A1", "HOSP1", 30)
		second := f.grant(t, "A1", "HOSP1", 7)

		gotFirst, err := f.uc.Get(ctx, first.ID)
		require.NoError(t, err)
		gotSecond, err := f.uc.Get(ctx, second.ID)
		require.NoError(t, err)

		assert.Equal(t, grantDomain.StatusRevoked, gotFirst.Status)
		assert.Equal(t, grantDomain.StatusActive, gotSecond.Status)

		ok, err := f.uc.CheckAccess(ctx, "A1", "HOSP1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("ExactlyOneActiveAfterManyGrants", func(t *testing.T) {
		f := newFixture(t, "A1")

		var last *grantDomain.AccessGrant
		for i := 1; i <= 5; i++ {
			last = f.grant(t, "A1", "HOSP1", i)
			f.clock.Advance(time.Minute)
		}

		grants, err := f.uc.ListByArtifact(ctx, "A1")
		require.NoError(t, err)
		require.Len(t, grants, 5)

		active := 0
		for _, g := range grants {
			if g.Status == grantDomain.StatusActive {
				active++
				assert.Equal(t, last.ID, g.ID)
			}
		}
		assert.Equal(t, 1, active)
	})

	t.Run("SupersededExpiredGrantIsMarkedExpired", func(t *testing.T) {
		f := newFixture(t, "A1")

		first := f.grant(t, "A1", "HOSP1", 1)
		f.clock.Advance(48 * time.Hour)
		f.grant(t, "A1", "HOSP1", 1)

		got, err := f.uc.Get(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, grantDomain.StatusExpired, got.Status)
	})

	t.Run("DifferentGranteesCoexist", func(t *testing.T) {
		f := newFixture(t, "A1")

		f.grant(t, "A1", "HOSP1", 30)
		f.grant(t, "A1", "HOSP2", 30)

		for _, grantee := range []string{"HOSP1", "HOSP2"} {
			ok, err := f.uc.CheckAccess(ctx, "A1", grantee)
			require.NoError(t, err)
			assert.True(t, ok, grantee)
		}
	})

	t.Run("Error_InvalidDuration", func(t *testing.T) {
		f := newFixture(t, "A1")

		for _, days := range []int{0, -1} {
			_, err := f.uc.Grant(ctx, &grantDomain.GrantInput{
				ArtifactID:   "A1",
				GranteeID:    "HOSP1",
				DurationDays: days,
				ActorID:      "P1",
			})
			assert.ErrorIs(t, err, grantDomain.ErrInvalidDuration)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		}
		assert.Empty(t, f.auditActions(t, "A1"))
	})

	t.Run("Error_UnknownArtifact", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.uc.Grant(ctx, &grantDomain.GrantInput{
			ArtifactID:   "A9",
			GranteeID:    "HOSP1",
			DurationDays: 30,
			ActorID:      "P1",
		})
		assert.ErrorIs(t, err, registryDomain.ErrUnknownArtifact)
	})

	t.Run("Error_Repository", func(t *testing.T) {
		repo := &MockGrantRepository{}
		artifacts := registryRepository.NewMemoryArtifactRepository()
		require.NoError(t, artifacts.Create(ctx, &registryDomain.ArtifactMetadata{ArtifactID: "A1", OwnerID: "P1"}))
		uc := NewGrantUseCase(
			database.NewMemoryTxManager(),
			locker.New(time.Second),
			repo,
			artifacts,
			nil,
			clock.NewMock(now),
		)

		repo.On("ListActiveByPair", mock.Anything, "A1", "HOSP1").Return(nil, errors.New("db down")).Once()

		_, err := uc.Grant(ctx, &grantDomain.GrantInput{
			ArtifactID:   "A1",
			GranteeID:    "HOSP1",
			DurationDays: 30,
			ActorID:      "P1",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to list active grants")
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestGrantUseCase_CheckAccess(t *testing.T) {
	ctx := context.Background()

	t.Run("LazyExpiry", func(t *testing.T) {
		f := newFixture(t, "A1")
		grant := f.grant(t, "A1", "HOSP1", 1)

		ok, err := f.uc.CheckAccess(ctx, "A1", "HOSP1")
		require.NoError(t, err)
		assert.True(t, ok)

		f.clock.Advance(48 * time.Hour)

		ok, err = f.uc.CheckAccess(ctx, "A1", "HOSP1")
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := f.uc.Get(ctx, grant.ID)
		require.NoError(t, err)
		assert.Equal(t, grantDomain.StatusExpired, got.Status)
	})

	t.Run("ExpiresExactlyAtBoundary", func(t *testing.T) {
		f := newFixture(t, "A1")
		f.grant(t, "A1", "HOSP1", 1)

		f.clock.Advance(24*time.Hour - time.Microsecond)
		ok, err := f.uc.CheckAccess(ctx, "A1", "HOSP1")
		require.NoError(t, err)
		assert.True(t, ok)

		f.clock.Advance(time.Microsecond)
		ok, err = f.uc.CheckAccess(ctx, "A1", "HOSP1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("NoGrant", func(t *testing.T) {
		f := newFixture(t, "A1")

		ok, err := f.uc.CheckAccess(ctx, "A1", "HOSP1")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestGrantUseCase_Revoke(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t, "A1")
		grant := f.grant(t, "A1", "HOSP1", 30)

		require.NoError(t, f.uc.Revoke(ctx, grant.ID, "P1"))

		ok, err := f.uc.CheckAccess(ctx, "A1", "HOSP1")
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := f.uc.Get(ctx, grant.ID)
		require.NoError(t, err)
		assert.Equal(t, grantDomain.StatusRevoked, got.Status)
	})

	t.Run("IdempotentAndAlwaysAudited", func(t *testing.T) {
		f := newFixture(t, "A1")
		grant := f.grant(t, "A1", "HOSP1", 30)

		require.NoError(t, f.uc.Revoke(ctx, grant.ID, "P1"))
		require.NoError(t, f.uc.Revoke(ctx, grant.ID, "P1"))

		assert.Equal(t,
			[]auditDomain.Action{auditDomain.ActionGrant, auditDomain.ActionRevoke, auditDomain.ActionRevoke},
			f.auditActions(t, "A1"),
		)

		var last *auditDomain.AuditEntry
		for entry, err := range f.audit.QueryByArtifact(ctx, "A1") {
			require.NoError(t, err)
			last = entry
		}
		assert.Equal(t, "no_effect", last.Detail["outcome"])
		assert.Equal(t, "revoked", last.Detail["prior_status"])
	})

	t.Run("ExpiredGrantSucceedsWithoutEffect", func(t *testing.T) {
		f := newFixture(t, "A1")
		grant := f.grant(t, "A1", "HOSP1", 1)
		f.clock.Advance(48 * time.Hour)

		require.NoError(t, f.uc.Revoke(ctx, grant.ID, "P1"))

		got, err := f.uc.Get(ctx, grant.ID)
		require.NoError(t, err)
		assert.Equal(t, grantDomain.StatusExpired, got.Status)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		f := newFixture(t, "A1")

		err := f.uc.Revoke(ctx, uuid.Must(uuid.NewV7()), "P1")
		assert.ErrorIs(t, err, grantDomain.ErrGrantNotFound)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("Error_MissingActor", func(t *testing.T) {
		f := newFixture(t, "A1")
		grant := f.grant(t, "A1", "HOSP1", 30)

		err := f.uc.Revoke(ctx, grant.ID, " ")
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestGrantUseCase_ConcurrentGrantsKeepOneActive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "A1")

	var wg sync.WaitGroup
	for range 20 {
		wg.Go(func() {
			_, err := f.uc.Grant(ctx, &grantDomain.GrantInput{
				ArtifactID:   "A1",
				GranteeID:    "HOSP1",
				DurationDays: 30,
				ActorID:      "P1",
			})
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	grants, err := f.uc.ListByArtifact(ctx, "A1")
	require.NoError(t, err)
	require.Len(t, grants, 20)

	active := 0
	for _, g := range grants {
		if g.Status == grantDomain.StatusActive {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestGrantUseCaseWithMetrics(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "A1")
	uc := NewGrantUseCaseWithMetrics(f.uc, metrics.NewNoOpBusinessMetrics())

	grant, err := uc.Grant(ctx, &grantDomain.GrantInput{
		ArtifactID:   "A1",
		GranteeID:    "HOSP1",
		DurationDays: 30,
		ActorID:      "P1",
	})
	require.NoError(t, err)

	ok, err := uc.CheckAccess(ctx, "A1", "HOSP1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, uc.Revoke(ctx, grant.ID, "P1"))

	got, err := uc.Get(ctx, grant.ID)
	require.NoError(t, err)
	assert.Equal(t, grantDomain.StatusRevoked, got.Status)

	grants, err := uc.ListByArtifact(ctx, "A1")
	require.NoError(t, err)
	assert.Len(t, grants, 1)
}
