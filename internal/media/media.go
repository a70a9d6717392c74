package media

import "fmt"

// VariantWidths is the fixed rendition set for image assets, in the order the
// renditions are produced and copied.
var VariantWidths = []int{320, 800, 1600}

// imageExts and audioExts are the upload policy allowlists. Audio has no
// rendition set; only the original is ever produced or copied.
var (
	imageExts = map[string]bool{"jpg": true, "jpeg": true, "png": true, "webp": true}
	audioExts = map[string]bool{"mp3": true, "m4a": true, "wav": true}
)

// IsImageExt reports whether ext (no dot, lower-case) is an allowed image type.
func IsImageExt(ext string) bool { return imageExts[ext] }

// IsAudioExt reports whether ext (no dot, lower-case) is an allowed audio type.
func IsAudioExt(ext string) bool { return audioExts[ext] }

// VariantName returns the filename of the rendition for a target width.
// Renditions are always JPEG regardless of the source format.
func VariantName(width int) string {
	return fmt.Sprintf("w%d.jpg", width)
}

// MIMEFromExt maps an allowed extension to the content type bound into
// presigned credentials and object metadata.
func MIMEFromExt(ext string) string {
	switch ext {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	case "mp3":
		return "audio/mpeg"
	case "m4a":
		return "audio/mp4"
	case "wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}

// derivedSet lists every filename that may exist for a base key: the original
// plus, for images, the full rendition set.
func derivedSet(baseKey string) []string {
	ext := ExtOf(baseKey)
	names := []string{"original." + ext}
	if IsImageExt(ext) {
		for _, w := range VariantWidths {
			names = append(names, VariantName(w))
		}
	}
	return names
}
