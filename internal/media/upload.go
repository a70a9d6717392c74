package media

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/artifold/service/internal/storage"
)

// Scope names the owning-entity kind of an upload.
type Scope string

const (
	// ScopeArtifact attaches the upload to an artifact.
	ScopeArtifact Scope = "artifact"
	// ScopeSection attaches the upload to a workflow section.
	ScopeSection Scope = "section"
	// ScopeProfile is a user-scoped upload not bound to any entity yet.
	ScopeProfile Scope = "profile"
)

// Limits are the per-category declared-size ceilings.
type Limits struct {
	MaxImageBytes int64
	MaxAudioBytes int64
}

// EntityOwners resolves the owning user of entity-scoped upload targets.
// One method per owning-entity type that can cite a base key.
type EntityOwners interface {
	ArtifactOwner(ctx context.Context, artifactID int64) (string, error)
	WorkflowOwner(ctx context.Context, workflowID int64) (string, error)
}

// PresignRequest is a client's declared upload intent.
type PresignRequest struct {
	Scope      Scope
	ArtifactID int64
	WorkflowID int64
	SectionID  int64
	Ext        string
	Bytes      int64
}

// PresignResult carries the issued key and write credential.
type PresignResult struct {
	BaseKey     string `json:"baseKey"`
	PutURL      string `json:"putUrl"`
	ContentType string `json:"contentType"`
}

// UploadService validates upload intents, issues presigned write credentials,
// and deletes private uploads a client abandons.
//
// Presign deliberately writes nothing to the database: the issued key exists
// in no index until a later save persists it, which is what the orphan sweep
// reconciles.
type UploadService struct {
	store      storage.Storage
	paths      Paths
	limits     Limits
	presignTTL time.Duration
	owners     EntityOwners
}

// NewUploadService creates an UploadService.
func NewUploadService(store storage.Storage, paths Paths, limits Limits, presignTTL time.Duration, owners EntityOwners) *UploadService {
	return &UploadService{
		store:      store,
		paths:      paths,
		limits:     limits,
		presignTTL: presignTTL,
		owners:     owners,
	}
}

// Presign validates the declared upload and returns a fresh base key plus a
// presigned PUT URL scoped to exactly that key's private location, with the
// content type signed in.
func (s *UploadService) Presign(ctx context.Context, actorID string, req PresignRequest) (*PresignResult, error) {
	ext := strings.ToLower(req.Ext)

	if !IsImageExt(ext) && !IsAudioExt(ext) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMediaType, ext)
	}

	max := s.limits.MaxAudioBytes
	if IsImageExt(ext) {
		max = s.limits.MaxImageBytes
	}
	if req.Bytes > max {
		return nil, fmt.Errorf("%w: %d bytes over %d ceiling", ErrPayloadTooLarge, req.Bytes, max)
	}

	instanceID := uuid.NewString()

	var baseKey string
	switch req.Scope {
	case ScopeArtifact:
		if req.ArtifactID <= 0 {
			return nil, fmt.Errorf("%w: artifact scope requires artifactId", ErrInvalidRequest)
		}
		baseKey = MakeArtifactKey(req.ArtifactID, instanceID, ext)
	case ScopeSection:
		if req.WorkflowID <= 0 || req.SectionID <= 0 {
			return nil, fmt.Errorf("%w: section scope requires workflowId and sectionId", ErrInvalidRequest)
		}
		baseKey = MakeSectionKey(req.WorkflowID, req.SectionID, instanceID, ext)
	case ScopeProfile:
		baseKey = MakeUserKey(actorID, string(req.Scope), instanceID, ext)
	default:
		return nil, fmt.Errorf("%w: unknown scope %q", ErrInvalidRequest, req.Scope)
	}

	contentType := MIMEFromExt(ext)

	putURL, err := s.store.PresignPut(ctx, s.paths.Private(baseKey), contentType, s.presignTTL)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}

	return &PresignResult{BaseKey: baseKey, PutURL: putURL, ContentType: contentType}, nil
}

// DeleteUpload removes the private original and any renditions for a key the
// client is abandoning (e.g. an attachment removed before the form was
// saved). The actor must own the key: for user-scoped keys ownership is
// embedded in the key itself, for entity-scoped keys it is looked up from the
// target entity. Only the private root is touched.
func (s *UploadService) DeleteUpload(ctx context.Context, actorID, baseKey string) error {
	if err := s.authorizeKey(ctx, actorID, baseKey); err != nil {
		return err
	}

	privateOriginal := s.paths.Private(baseKey)
	keys := make([]string, 0, len(VariantWidths)+1)
	for _, name := range derivedSet(baseKey) {
		keys = append(keys, SiblingKey(privateOriginal, name))
	}

	if err := s.store.RemoveBatch(ctx, keys); err != nil {
		return fmt.Errorf("delete upload %q: %w", baseKey, err)
	}
	return nil
}

// authorizeKey verifies actorID owns baseKey.
func (s *UploadService) authorizeKey(ctx context.Context, actorID, baseKey string) error {
	if !isCanonicalKey(baseKey) {
		return fmt.Errorf("%w: malformed key %q", ErrInvalidRequest, baseKey)
	}
	if !IsOriginal(baseKey) {
		return fmt.Errorf("%w: %q is not an original key", ErrInvalidRequest, baseKey)
	}

	parts := strings.Split(baseKey, "/")
	switch parts[0] {
	case "user":
		ownerID, ok := OwnerFromKey(baseKey)
		if !ok {
			return fmt.Errorf("%w: malformed key %q", ErrInvalidRequest, baseKey)
		}
		if ownerID != actorID {
			return fmt.Errorf("%w: key belongs to another user", ErrForbidden)
		}
		return nil
	case "artifact":
		if len(parts) < 2 {
			return fmt.Errorf("%w: malformed key %q", ErrInvalidRequest, baseKey)
		}
		artifactID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return fmt.Errorf("%w: malformed key %q", ErrInvalidRequest, baseKey)
		}
		ownerID, err := s.owners.ArtifactOwner(ctx, artifactID)
		if err != nil {
			return fmt.Errorf("resolve artifact %d owner: %w", artifactID, err)
		}
		if ownerID != actorID {
			return fmt.Errorf("%w: artifact belongs to another user", ErrForbidden)
		}
		return nil
	case "workflow":
		if len(parts) < 4 || parts[2] != "section" {
			return fmt.Errorf("%w: malformed key %q", ErrInvalidRequest, baseKey)
		}
		workflowID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return fmt.Errorf("%w: malformed key %q", ErrInvalidRequest, baseKey)
		}
		ownerID, err := s.owners.WorkflowOwner(ctx, workflowID)
		if err != nil {
			return fmt.Errorf("resolve workflow %d owner: %w", workflowID, err)
		}
		if ownerID != actorID {
			return fmt.Errorf("%w: workflow belongs to another user", ErrForbidden)
		}
		return nil
	default:
		return fmt.Errorf("%w: malformed key %q", ErrInvalidRequest, baseKey)
	}
}
