package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	_ "image/jpeg" // register jpeg decoding for rendition assertions
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makePNG encodes a w×h gradient as PNG bytes.
func makePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// decodeDims returns the pixel dimensions of encoded image data.
func decodeDims(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

const testOriginal = "private/artifact/42/media/abc/original.png"

func TestEnsureVariantsProducesRenditionSet(t *testing.T) {
	store := newMemStore()
	store.seed(testOriginal, makePNG(t, 1600, 800), time.Now())
	deriver := NewDeriver(store)

	require.NoError(t, deriver.EnsureVariants(context.Background(), testOriginal))

	for _, want := range []struct {
		name string
		w, h int
	}{
		{"w320.jpg", 320, 160},
		{"w800.jpg", 800, 400},
		{"w1600.jpg", 1600, 800},
	} {
		key := SiblingKey(testOriginal, want.name)
		require.True(t, store.has(key), "missing %s", want.name)
		w, h := decodeDims(t, store.bytes(key))
		assert.Equal(t, want.w, w, want.name)
		assert.Equal(t, want.h, h, want.name)
	}

	// The original is fetched once across the whole iteration.
	assert.Equal(t, 1, store.count("get"))
}

func TestEnsureVariantsIsIdempotent(t *testing.T) {
	store := newMemStore()
	store.seed(testOriginal, makePNG(t, 1600, 800), time.Now())
	deriver := NewDeriver(store)
	ctx := context.Background()

	require.NoError(t, deriver.EnsureVariants(ctx, testOriginal))
	firstBytes := store.bytes(SiblingKey(testOriginal, "w800.jpg"))
	puts := store.count("put")
	gets := store.count("get")

	require.NoError(t, deriver.EnsureVariants(ctx, testOriginal))

	assert.Equal(t, puts, store.count("put"), "second run must perform zero writes")
	assert.Equal(t, gets, store.count("get"), "second run must not re-fetch the original")
	assert.Equal(t, firstBytes, store.bytes(SiblingKey(testOriginal, "w800.jpg")))
}

func TestEnsureVariantsNeverUpscales(t *testing.T) {
	store := newMemStore()
	store.seed(testOriginal, makePNG(t, 500, 250), time.Now())
	deriver := NewDeriver(store)

	require.NoError(t, deriver.EnsureVariants(context.Background(), testOriginal))

	w, h := decodeDims(t, store.bytes(SiblingKey(testOriginal, "w320.jpg")))
	assert.Equal(t, 320, w)
	assert.Equal(t, 160, h)

	// Requested widths beyond the original clamp to the original width.
	for _, name := range []string{"w800.jpg", "w1600.jpg"} {
		w, h := decodeDims(t, store.bytes(SiblingKey(testOriginal, name)))
		assert.Equal(t, 500, w, name)
		assert.Equal(t, 250, h, name)
	}
}

func TestEnsureVariantsResumesPartialCompletion(t *testing.T) {
	store := newMemStore()
	store.seed(testOriginal, makePNG(t, 1600, 800), time.Now())
	preexisting := []byte("already-derived")
	store.seed(SiblingKey(testOriginal, "w320.jpg"), preexisting, time.Now())
	deriver := NewDeriver(store)

	require.NoError(t, deriver.EnsureVariants(context.Background(), testOriginal))

	// Existing rendition untouched, only the two missing widths written.
	assert.Equal(t, preexisting, store.bytes(SiblingKey(testOriginal, "w320.jpg")))
	assert.Equal(t, 2, store.count("put"))
	assert.True(t, store.has(SiblingKey(testOriginal, "w800.jpg")))
	assert.True(t, store.has(SiblingKey(testOriginal, "w1600.jpg")))
}

func TestEnsureVariantsRejectsUndecodableSource(t *testing.T) {
	store := newMemStore()
	store.seed(testOriginal, []byte("not an image"), time.Now())
	deriver := NewDeriver(store)

	err := deriver.EnsureVariants(context.Background(), testOriginal)
	assert.ErrorIs(t, err, ErrUnprocessableMedia)
	assert.Equal(t, 0, store.count("put"))
}

func TestEnsureVariantsWritesImmutableCacheControl(t *testing.T) {
	store := newMemStore()
	store.seed(testOriginal, makePNG(t, 400, 200), time.Now())
	deriver := NewDeriver(store)

	require.NoError(t, deriver.EnsureVariants(context.Background(), testOriginal))

	store.mu.Lock()
	obj := store.objects[SiblingKey(testOriginal, "w320.jpg")]
	store.mu.Unlock()
	assert.Equal(t, "image/jpeg", obj.contentType)
	assert.Equal(t, immutableCacheControl, obj.cacheControl)
}
