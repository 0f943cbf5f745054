package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var _ WorkspaceRepository = (*PostgresWorkspaceStore)(nil)

// Workspace is a tenant grouping of users.
type Workspace struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// WorkspaceRepository is the workspace-membership collaborator. The
// targeting engine only needs ListWorkspacesForUser; ListAll backs the
// admin workspace listing.
type WorkspaceRepository interface {
	ListWorkspacesForUser(ctx context.Context, userID string) ([]string, error)
	ListAll(ctx context.Context) ([]Workspace, error)
}

// PostgresWorkspaceStore implements WorkspaceRepository on a pgx pool.
type PostgresWorkspaceStore struct {
	db *pgxpool.Pool
}

func NewPostgresWorkspaceStore(db *pgxpool.Pool) *PostgresWorkspaceStore {
	if db == nil {
		panic("store: database pool cannot be nil")
	}
	return &PostgresWorkspaceStore{db: db}
}

// ListWorkspacesForUser returns the ids of every workspace the user belongs
// to. The result may be empty; that is not an error.
func (s *PostgresWorkspaceStore) ListWorkspacesForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT workspace_id FROM workspace_members WHERE user_id = $1 ORDER BY workspace_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces for user %q: %w", userID, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan membership row: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

func (s *PostgresWorkspaceStore) ListAll(ctx context.Context) ([]Workspace, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, slug, created_at FROM workspaces ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer rows.Close()

	var out []Workspace
	for rows.Next() {
		var w Workspace
		if err := rows.Scan(&w.ID, &w.Name, &w.Slug, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workspace row: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}
