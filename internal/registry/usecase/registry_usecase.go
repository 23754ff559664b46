package usecase

import (
	"context"

	apperrors "github.com/allisson/medledger/internal/errors"
	registryDomain "github.com/allisson/medledger/internal/registry/domain"
)

type registryUseCase struct {
	artifactRepo ArtifactRepository
}

func (r *registryUseCase) Register(ctx context.Context, metadata *registryDomain.ArtifactMetadata) error {
	if metadata.Classification == "" {
		metadata.Classification = registryDomain.ClassificationGeneral
	}
	if err := registryDomain.ValidateClassification(metadata.Classification); err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
	}

	if err := r.artifactRepo.Create(ctx, metadata); err != nil {
		return err
	}
	return nil
}

func (r *registryUseCase) UpdateFingerprint(ctx context.Context, artifactID, fingerprint string) error {
	if err := r.artifactRepo.UpdateFingerprint(ctx, artifactID, fingerprint); err != nil {
		return apperrors.Wrap(err, "failed to update artifact fingerprint")
	}
	return nil
}

func (r *registryUseCase) SetVerified(ctx context.Context, artifactID string, verified bool) error {
	if err := r.artifactRepo.SetVerified(ctx, artifactID, verified); err != nil {
		return apperrors.Wrap(err, "failed to update artifact verification")
	}
	return nil
}

func (r *registryUseCase) Get(ctx context.Context, artifactID string) (*registryDomain.ArtifactMetadata, error) {
	return r.artifactRepo.Get(ctx, artifactID)
}

func (r *registryUseCase) FindByOwner(
	ctx context.Context,
	ownerID string,
) ([]*registryDomain.ArtifactMetadata, error) {
	artifacts, err := r.artifactRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to find artifacts by owner")
	}
	return artifacts, nil
}

func (r *registryUseCase) List(
	ctx context.Context,
	offset, limit int,
) ([]*registryDomain.ArtifactMetadata, error) {
	if offset < 0 || limit <= 0 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "offset must be >= 0 and limit > 0")
	}

	artifacts, err := r.artifactRepo.List(ctx, offset, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list artifacts")
	}
	return artifacts, nil
}

// NewRegistryUseCase creates a RegistryUseCase backed by the given repository.
func NewRegistryUseCase(artifactRepo ArtifactRepository) RegistryUseCase {
	return &registryUseCase{artifactRepo: artifactRepo}
}
