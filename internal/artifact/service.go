package artifact

import (
	"context"
	"errors"
	"fmt"

	"github.com/artifold/service/internal/media"
)

// repository is the persistence surface the service needs.
type repository interface {
	GetByID(ctx context.Context, id int64) (*Artifact, error)
	MediaKeys(ctx context.Context, artifactID int64) ([]string, error)
	SetVisibility(ctx context.Context, artifactID int64, visibility string) error
}

// promoter moves media between the private and public roots.
type promoter interface {
	PublishOne(ctx context.Context, baseKey string) error
	DeletePublicCopies(ctx context.Context, baseKey string) error
}

var _ repository = (*Repository)(nil)
var _ promoter = (*media.Promoter)(nil)

// PublishResult reports the outcome of a publish or unpublish.
type PublishResult struct {
	ArtifactID int64  `json:"artifactId"`
	Visibility string `json:"visibility"`
	MediaCount int    `json:"mediaCount"`
}

// Service contains the publish/unpublish business logic.
type Service struct {
	repo     repository
	promoter promoter
}

// NewService creates a new artifact Service.
func NewService(repo repository, promoter promoter) *Service {
	return &Service{repo: repo, promoter: promoter}
}

// Publish promotes every media item attached to the artifact to the public
// root, in persisted sort order, and only then flips the artifact public.
// A failure partway leaves visibility untouched; the whole call is idempotent
// and safe to retry, since already-promoted media are re-copied as no-ops.
func (s *Service) Publish(ctx context.Context, actorID string, artifactID int64) (*PublishResult, error) {
	a, err := s.repo.GetByID(ctx, artifactID)
	if err != nil {
		return nil, err
	}
	if a.OwnerID != actorID {
		return nil, fmt.Errorf("%w: artifact belongs to another user", media.ErrForbidden)
	}

	keys, err := s.repo.MediaKeys(ctx, artifactID)
	if err != nil {
		return nil, err
	}

	for _, baseKey := range keys {
		if err := s.promoter.PublishOne(ctx, baseKey); err != nil {
			return nil, fmt.Errorf("publish media %q: %w", baseKey, err)
		}
	}

	if err := s.repo.SetVisibility(ctx, artifactID, VisibilityPublic); err != nil {
		return nil, err
	}

	return &PublishResult{ArtifactID: artifactID, Visibility: VisibilityPublic, MediaCount: len(keys)}, nil
}

// Unpublish deletes the public copies of every attached media item and flips
// the artifact back to private. Private originals and renditions are never
// touched, so a later publish restores the public set byte-identically.
func (s *Service) Unpublish(ctx context.Context, actorID string, artifactID int64) (*PublishResult, error) {
	a, err := s.repo.GetByID(ctx, artifactID)
	if err != nil {
		return nil, err
	}
	if a.OwnerID != actorID {
		return nil, fmt.Errorf("%w: artifact belongs to another user", media.ErrForbidden)
	}

	keys, err := s.repo.MediaKeys(ctx, artifactID)
	if err != nil {
		return nil, err
	}

	for _, baseKey := range keys {
		if err := s.promoter.DeletePublicCopies(ctx, baseKey); err != nil {
			return nil, fmt.Errorf("unpublish media %q: %w", baseKey, err)
		}
	}

	if err := s.repo.SetVisibility(ctx, artifactID, VisibilityPrivate); err != nil {
		return nil, err
	}

	return &PublishResult{ArtifactID: artifactID, Visibility: VisibilityPrivate, MediaCount: len(keys)}, nil
}

// IsNotFound returns true when the error indicates a missing artifact.
func (s *Service) IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
