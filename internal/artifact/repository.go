// Package artifact manages artifacts, their attached media rows, and the
// publish/unpublish lifecycle.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Visibility states of an artifact.
const (
	VisibilityPrivate = "private"
	VisibilityPublic  = "public"
)

// Artifact is a user's published or draft work.
type Artifact struct {
	ID         int64     `json:"id"`
	OwnerID    string    `json:"ownerId"`
	Title      string    `json:"title"`
	Visibility string    `json:"visibility"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ErrNotFound is returned when an artifact does not exist.
var ErrNotFound = errors.New("artifact not found")

// Repository handles all artifact database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetByID fetches an artifact by id.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Artifact, error) {
	a := &Artifact{}
	err := r.db.QueryRow(ctx,
		`SELECT id, owner_id, title, visibility, created_at, updated_at
		 FROM artifacts WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.OwnerID, &a.Title, &a.Visibility, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact by id: %w", err)
	}
	return a, nil
}

// MediaKeys returns the base keys attached to an artifact in persisted sort
// order.
func (r *Repository) MediaKeys(ctx context.Context, artifactID int64) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT base_key FROM artifact_media
		 WHERE artifact_id = $1
		 ORDER BY sort_order ASC, id ASC`,
		artifactID,
	)
	if err != nil {
		return nil, fmt.Errorf("list artifact media keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan media key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// SetVisibility flips an artifact's visibility flag.
func (r *Repository) SetVisibility(ctx context.Context, artifactID int64, visibility string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE artifacts SET visibility = $2, updated_at = now() WHERE id = $1`,
		artifactID, visibility,
	)
	if err != nil {
		return fmt.Errorf("set artifact visibility: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ExistingKeys reports which of baseKeys appear in artifact_media, as a
// single batched query. Implements the media package's KeyIndex.
func (r *Repository) ExistingKeys(ctx context.Context, baseKeys []string) (map[string]struct{}, error) {
	if len(baseKeys) == 0 {
		return map[string]struct{}{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT base_key FROM artifact_media WHERE base_key = ANY($1)`,
		baseKeys,
	)
	if err != nil {
		return nil, fmt.Errorf("query existing artifact media keys: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]struct{})
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan existing key: %w", err)
		}
		existing[k] = struct{}{}
	}
	return existing, rows.Err()
}
