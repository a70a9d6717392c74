package media

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOwners maps entity ids to owning user ids.
type fakeOwners struct {
	artifacts map[int64]string
	workflows map[int64]string
}

func (f *fakeOwners) ArtifactOwner(_ context.Context, id int64) (string, error) {
	owner, ok := f.artifacts[id]
	if !ok {
		return "", fmt.Errorf("artifact %d not found", id)
	}
	return owner, nil
}

func (f *fakeOwners) WorkflowOwner(_ context.Context, id int64) (string, error) {
	owner, ok := f.workflows[id]
	if !ok {
		return "", fmt.Errorf("workflow %d not found", id)
	}
	return owner, nil
}

func newUploadFixture(store *memStore) *UploadService {
	return NewUploadService(store,
		Paths{PrivatePrefix: "private/", PublicPrefix: "public/"},
		Limits{MaxImageBytes: 10_000_000, MaxAudioBytes: 50_000_000},
		5*time.Minute,
		&fakeOwners{
			artifacts: map[int64]string{42: "u-1"},
			workflows: map[int64]string{7: "u-1"},
		})
}

func TestPresignArtifactScope(t *testing.T) {
	store := newMemStore()
	svc := newUploadFixture(store)

	result, err := svc.Presign(context.Background(), "u-1", PresignRequest{
		Scope: ScopeArtifact, ArtifactID: 42, Ext: "png", Bytes: 500_000,
	})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^artifact/42/media/[0-9a-f-]{36}/original\.png$`), result.BaseKey)
	assert.Contains(t, result.PutURL, "private/"+result.BaseKey)
	assert.Equal(t, "image/png", result.ContentType)

	// Presign must leave the store untouched beyond the credential itself.
	assert.Equal(t, 1, store.count("presign"))
	assert.Equal(t, 0, store.count("put"))
}

func TestPresignSectionScope(t *testing.T) {
	svc := newUploadFixture(newMemStore())

	result, err := svc.Presign(context.Background(), "u-1", PresignRequest{
		Scope: ScopeSection, WorkflowID: 7, SectionID: 3, Ext: "JPG", Bytes: 1000,
	})
	require.NoError(t, err)
	assert.Regexp(t, `^workflow/7/section/3/media/[0-9a-f-]{36}/original\.jpg$`, result.BaseKey)
	assert.Equal(t, "image/jpeg", result.ContentType)
}

func TestPresignProfileScopeEmbedsActor(t *testing.T) {
	svc := newUploadFixture(newMemStore())

	result, err := svc.Presign(context.Background(), "u-9", PresignRequest{
		Scope: ScopeProfile, Ext: "mp3", Bytes: 1000,
	})
	require.NoError(t, err)
	assert.Regexp(t, `^user/u-9/uploads/profile/media/[0-9a-f-]{36}/original\.mp3$`, result.BaseKey)
	assert.Equal(t, "audio/mpeg", result.ContentType)
}

func TestPresignRejectsUnsupportedExtension(t *testing.T) {
	svc := newUploadFixture(newMemStore())

	for _, ext := range []string{"gif", "exe", "svg", ""} {
		_, err := svc.Presign(context.Background(), "u-1", PresignRequest{
			Scope: ScopeArtifact, ArtifactID: 42, Ext: ext, Bytes: 100,
		})
		assert.ErrorIs(t, err, ErrUnsupportedMediaType, "ext %q", ext)
	}
}

func TestPresignEnforcesSizeCeilings(t *testing.T) {
	svc := newUploadFixture(newMemStore())
	ctx := context.Background()

	_, err := svc.Presign(ctx, "u-1", PresignRequest{Scope: ScopeArtifact, ArtifactID: 42, Ext: "png", Bytes: 10_000_001})
	assert.ErrorIs(t, err, ErrPayloadTooLarge)

	_, err = svc.Presign(ctx, "u-1", PresignRequest{Scope: ScopeArtifact, ArtifactID: 42, Ext: "png", Bytes: 10_000_000})
	assert.NoError(t, err)

	// Audio gets the larger ceiling.
	_, err = svc.Presign(ctx, "u-1", PresignRequest{Scope: ScopeProfile, Ext: "wav", Bytes: 50_000_000})
	assert.NoError(t, err)

	_, err = svc.Presign(ctx, "u-1", PresignRequest{Scope: ScopeProfile, Ext: "wav", Bytes: 50_000_001})
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestPresignRequiresTargetIDs(t *testing.T) {
	svc := newUploadFixture(newMemStore())
	ctx := context.Background()

	_, err := svc.Presign(ctx, "u-1", PresignRequest{Scope: ScopeArtifact, Ext: "png", Bytes: 100})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Presign(ctx, "u-1", PresignRequest{Scope: ScopeSection, WorkflowID: 7, Ext: "png", Bytes: 100})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Presign(ctx, "u-1", PresignRequest{Scope: "poster", Ext: "png", Bytes: 100})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestDeleteUploadUserScoped(t *testing.T) {
	store := newMemStore()
	svc := newUploadFixture(store)

	baseKey := "user/u-1/uploads/profile/media/abc/original.png"
	now := time.Now()
	store.seed("private/"+baseKey, []byte("orig"), now)
	store.seed("private/user/u-1/uploads/profile/media/abc/w320.jpg", []byte("v"), now)

	require.NoError(t, svc.DeleteUpload(context.Background(), "u-1", baseKey))

	assert.Empty(t, store.keysWithPrefix("private/user/u-1/"))
}

func TestDeleteUploadForbiddenForOtherUser(t *testing.T) {
	store := newMemStore()
	svc := newUploadFixture(store)

	baseKey := "user/u-1/uploads/profile/media/abc/original.png"
	store.seed("private/"+baseKey, []byte("orig"), time.Now())

	err := svc.DeleteUpload(context.Background(), "u-2", baseKey)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.True(t, store.has("private/"+baseKey))
}

func TestDeleteUploadEntityScopedOwnership(t *testing.T) {
	store := newMemStore()
	svc := newUploadFixture(store)
	ctx := context.Background()

	baseKey := "artifact/42/media/abc/original.png"
	store.seed("private/"+baseKey, []byte("orig"), time.Now())

	// artifact 42 is owned by u-1 in the fixture
	assert.ErrorIs(t, svc.DeleteUpload(ctx, "u-2", baseKey), ErrForbidden)
	require.NoError(t, svc.DeleteUpload(ctx, "u-1", baseKey))
	assert.False(t, store.has("private/"+baseKey))

	sectionKey := "workflow/7/section/3/media/def/original.jpg"
	store.seed("private/"+sectionKey, []byte("orig"), time.Now())
	assert.ErrorIs(t, svc.DeleteUpload(ctx, "u-2", sectionKey), ErrForbidden)
	require.NoError(t, svc.DeleteUpload(ctx, "u-1", sectionKey))
}

func TestDeleteUploadRejectsTraversalKeys(t *testing.T) {
	store := newMemStore()
	svc := newUploadFixture(store)
	ctx := context.Background()

	// Another user's original; artifact 99 is not owned by u-1.
	victim := "private/artifact/99/media/abc/original.png"
	store.seed(victim, []byte("orig"), time.Now())

	for _, key := range []string{
		"user/u-1/../../artifact/99/media/abc/original.png",
		"user/u-1/uploads/profile/media/../../../../../artifact/99/media/abc/original.png",
		"../artifact/99/media/abc/original.png",
		"user/u-1/./uploads/profile/media/abc/original.png",
		"user//u-1/uploads/profile/media/abc/original.png",
		"/user/u-1/uploads/profile/media/abc/original.png",
	} {
		assert.ErrorIs(t, svc.DeleteUpload(ctx, "u-1", key), ErrInvalidRequest, "key %q", key)
	}

	assert.True(t, store.has(victim))
	assert.Equal(t, 0, store.count("remove"))
}

func TestDeleteUploadRejectsMalformedKeys(t *testing.T) {
	svc := newUploadFixture(newMemStore())
	ctx := context.Background()

	for _, key := range []string{
		"artifact/42/media/abc/w800.jpg", // rendition, not an original
		"artifact/notanumber/media/abc/original.png",
		"workflow/7/media/abc/original.png", // missing section segment
		"bucket/42/media/abc/original.png",
		"",
	} {
		assert.ErrorIs(t, svc.DeleteUpload(ctx, "u-1", key), ErrInvalidRequest, "key %q", key)
	}
}
