package media

import (
	"context"
	"fmt"

	"github.com/artifold/service/internal/storage"
)

// Promoter moves an asset's private original and renditions into the public
// root at publish time, and retracts the public copies at unpublish. Private
// objects are never touched by unpublish.
type Promoter struct {
	store   storage.Storage
	paths   Paths
	deriver *Deriver
}

// NewPromoter creates a Promoter.
func NewPromoter(store storage.Storage, paths Paths, deriver *Deriver) *Promoter {
	return &Promoter{store: store, paths: paths, deriver: deriver}
}

// PublishOne promotes a single base key:
//
//  1. require the private original to exist (ErrSourceMissing otherwise —
//     a referenced key without bytes is an integrity violation, not a skip),
//  2. for images, complete the rendition set,
//  3. server-side copy the original and every existing rendition to the
//     public root.
//
// Every step is idempotent; re-running after a partial failure converges.
func (p *Promoter) PublishOne(ctx context.Context, baseKey string) error {
	ext := ExtOf(baseKey)
	if !IsImageExt(ext) && !IsAudioExt(ext) {
		return fmt.Errorf("%w: %q", ErrUnsupportedMediaType, ext)
	}

	privateOriginal := p.paths.Private(baseKey)

	exists, err := p.store.Stat(ctx, privateOriginal)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrSourceMissing, baseKey)
	}

	if IsImageExt(ext) {
		if err := p.deriver.EnsureVariants(ctx, privateOriginal); err != nil {
			return err
		}
	}

	publicOriginal := p.paths.Public(baseKey)
	for _, name := range derivedSet(baseKey) {
		src := SiblingKey(privateOriginal, name)
		dst := SiblingKey(publicOriginal, name)

		// An absent rendition is legitimate (audio has none); only a copy
		// of something that exists is attempted.
		exists, err := p.store.Stat(ctx, src)
		if err != nil {
			return err
		}
		if !exists {
			continue
		}
		if err := p.store.Copy(ctx, src, dst); err != nil {
			return err
		}
	}

	return nil
}

// DeletePublicCopies removes the public original and renditions for baseKey
// in one batched delete. Keys that were never promoted are tolerated.
func (p *Promoter) DeletePublicCopies(ctx context.Context, baseKey string) error {
	publicOriginal := p.paths.Public(baseKey)

	keys := make([]string, 0, len(VariantWidths)+1)
	for _, name := range derivedSet(baseKey) {
		keys = append(keys, SiblingKey(publicOriginal, name))
	}
	return p.store.RemoveBatch(ctx, keys)
}
