// Package workflow manages workflows and their step sections, the second
// entity type that can cite media base keys.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Workflow is a user's build log: an ordered set of step sections, each of
// which may carry one media attachment.
type Workflow struct {
	ID        int64     `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ErrNotFound is returned when a workflow does not exist.
var ErrNotFound = errors.New("workflow not found")

// Repository handles all workflow database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetByID fetches a workflow by id.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Workflow, error) {
	wf := &Workflow{}
	err := r.db.QueryRow(ctx,
		`SELECT id, owner_id, title, created_at, updated_at
		 FROM workflows WHERE id = $1`,
		id,
	).Scan(&wf.ID, &wf.OwnerID, &wf.Title, &wf.CreatedAt, &wf.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow by id: %w", err)
	}
	return wf, nil
}

// ExistingKeys reports which of baseKeys appear as section media, as a single
// batched query. Implements the media package's KeyIndex.
func (r *Repository) ExistingKeys(ctx context.Context, baseKeys []string) (map[string]struct{}, error) {
	if len(baseKeys) == 0 {
		return map[string]struct{}{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT media_base_key FROM workflow_sections
		 WHERE media_base_key = ANY($1)`,
		baseKeys,
	)
	if err != nil {
		return nil, fmt.Errorf("query existing section media keys: %w", err)
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
