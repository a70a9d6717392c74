package media

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // register webp decoding for image sources

	"github.com/artifold/service/internal/storage"
)

// Rendition filenames never change for a given key, so clients may cache them
// forever.
const immutableCacheControl = "public, max-age=31536000, immutable"

// jpegQuality is the encode quality for derived renditions.
const jpegQuality = 85

// Deriver produces the fixed rendition set for image originals, writing only
// the renditions that do not already exist.
type Deriver struct {
	store storage.Storage
}

// NewDeriver creates a Deriver backed by the given object store.
func NewDeriver(store storage.Storage) *Deriver {
	return &Deriver{store: store}
}

// EnsureVariants completes the rendition set for the original at
// originalKey (a resolved private key). Each width is handled independently
// and idempotently: an existing rendition is never recomputed, so repeated
// calls after a partial failure finish the remaining widths only.
//
// The original is fetched and decoded at most once across the iteration.
// A source that fails to decode yields ErrUnprocessableMedia; store failures
// propagate wrapped, leaving partial completion for the next retry to heal.
func (d *Deriver) EnsureVariants(ctx context.Context, originalKey string) error {
	var src image.Image

	for _, width := range VariantWidths {
		variantKey := SiblingKey(originalKey, VariantName(width))

		exists, err := d.store.Stat(ctx, variantKey)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		if src == nil {
			data, err := d.store.Get(ctx, originalKey)
			if err != nil {
				return err
			}
			src, err = imaging.Decode(bytes.NewReader(data))
			if err != nil {
				return fmt.Errorf("%w: decode %q: %v", ErrUnprocessableMedia, originalKey, err)
			}
		}

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, scaleToWidth(src, width), imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
			return fmt.Errorf("encode rendition %q: %w", variantKey, err)
		}

		if err := d.store.Put(ctx, variantKey, buf.Bytes(), "image/jpeg", immutableCacheControl); err != nil {
			return err
		}
	}

	return nil
}

// scaleToWidth resizes src to the requested width preserving aspect ratio.
// Widths beyond the original are clamped to the original width: renditions
// never upscale.
func scaleToWidth(src image.Image, width int) image.Image {
	if w := src.Bounds().Dx(); width > w {
		width = w
	}
	return imaging.Resize(src, width, 0, imaging.Lanczos)
}
