// Package media implements the asset lifecycle: presigned uploads, derived
// renditions, publish/unpublish promotion, and orphan reclamation.
package media

import (
	"fmt"
	"path"
	"strings"
)

// A base key is the store-relative identity of one uploaded asset:
//
//	<scope-path>/media/<instance-id>/original.<ext>
//
// The same base key resolves to a private and a public object key that differ
// only in root prefix, which is what lets publish be a prefix substitution.

// MakeArtifactKey builds the base key for media attached to an artifact.
func MakeArtifactKey(artifactID int64, instanceID, ext string) string {
	return fmt.Sprintf("artifact/%d/media/%s/original.%s", artifactID, instanceID, strings.ToLower(ext))
}

// MakeSectionKey builds the base key for media attached to a workflow section.
func MakeSectionKey(workflowID, sectionID int64, instanceID, ext string) string {
	return fmt.Sprintf("workflow/%d/section/%d/media/%s/original.%s", workflowID, sectionID, instanceID, strings.ToLower(ext))
}

// MakeUserKey builds the base key for an upload not yet bound to any entity.
// The owning user id is embedded so ownership survives without a DB lookup.
func MakeUserKey(userID, scope, instanceID, ext string) string {
	return fmt.Sprintf("user/%s/uploads/%s/media/%s/original.%s", userID, strings.ToLower(scope), instanceID, strings.ToLower(ext))
}

// Paths maps base keys to concrete object-store keys. Immutable after
// construction; injected into every component that touches the store.
type Paths struct {
	PrivatePrefix string // e.g. "private/"
	PublicPrefix  string // e.g. "public/"
}

// Private returns the object key where the asset's bytes land at upload time.
func (p Paths) Private(baseKey string) string {
	return p.PrivatePrefix + baseKey
}

// Public returns the object key served by public delivery after publish.
func (p Paths) Public(baseKey string) string {
	return p.PublicPrefix + baseKey
}

// BaseKey strips the private root prefix off a listed object key. ok is false
// when the key is not under the private root.
func (p Paths) BaseKey(privateKey string) (string, bool) {
	if !strings.HasPrefix(privateKey, p.PrivatePrefix) {
		return "", false
	}
	return privateKey[len(p.PrivatePrefix):], true
}

// SiblingKey swaps the trailing "original.<ext>" filename of key for name,
// keeping the directory. Works on base keys and resolved keys alike.
func SiblingKey(key, name string) string {
	return path.Dir(key) + "/" + name
}

// ExtOf returns key's extension without the dot, lower-cased.
func ExtOf(key string) string {
	ext := path.Ext(key)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsOriginal reports whether key names an original upload rather than a
// derived rendition.
func IsOriginal(key string) bool {
	return strings.HasPrefix(path.Base(key), "original.")
}

// isCanonicalKey reports whether baseKey is in the exact form the service
// issues: relative, already clean, and free of empty, "." and ".." segments.
// path.Dir collapses dot-dot segments when derived keys are built, so a key
// that only becomes valid after cleaning must never reach the store.
func isCanonicalKey(baseKey string) bool {
	if baseKey == "" || strings.HasPrefix(baseKey, "/") {
		return false
	}
	if path.Clean(baseKey) != baseKey {
		return false
	}
	for _, seg := range strings.Split(baseKey, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return true
}

// OwnerFromKey recovers the embedded owner id from a user-scoped base key.
// ok is false for entity-scoped keys, whose owner lives in the database.
func OwnerFromKey(baseKey string) (string, bool) {
	parts := strings.Split(baseKey, "/")
	if len(parts) < 3 || parts[0] != "user" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
