package workstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/specbench/workbench/pkg/apperrors"
	"github.com/specbench/workbench/pkg/models"
)

// CreateProject inserts a new project owned by ownerID.
func (c *Client) CreateProject(ctx context.Context, ownerID, name, description string) (*models.Project, error) {
	p := &models.Project{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		Name:         name,
		Description:  description,
		CurrentPhase: models.PhaseDiscovery,
		Status:       models.ProjectStatusActive,
	}
	row := c.pool.QueryRow(ctx, `
		INSERT INTO projects (id, owner_id, name, description, current_phase, maturity_score, status)
		VALUES ($1, $2, $3, $4, $5, 0, $6)
		RETURNING created_at, updated_at`,
		p.ID, p.OwnerID, p.Name, p.Description, p.CurrentPhase, p.Status)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

// GetProject fetches a project by ID, or apperrors.ErrUnknownProject.
func (c *Client) GetProject(ctx context.Context, id string) (*models.Project, error) {
	p := &models.Project{}
	row := c.pool.QueryRow(ctx, `
		SELECT id, owner_id, name, description, current_phase, maturity_score, status, created_at, updated_at
		FROM projects WHERE id = $1`, id)
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.CurrentPhase, &p.MaturityScore, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUnknownProject
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// ListProjectsForUser returns every project userID owns or has share
// access to, via the project_shares table.
func (c *Client) ListProjectsForUser(ctx context.Context, userID string) ([]*models.Project, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT DISTINCT p.id, p.owner_id, p.name, p.description, p.current_phase, p.maturity_score, p.status, p.created_at, p.updated_at
		FROM projects p
		LEFT JOIN project_shares s ON s.project_id = p.id
		WHERE p.owner_id = $1 OR s.user_id = $1
		ORDER BY p.updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []*models.Project
	for rows.Next() {
		p := &models.Project{}
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.CurrentPhase, &p.MaturityScore, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AdvancePhase moves a project to its next phase. Advancement is
// monotone — the caller (sessionmgr) is
// responsible for gating this on a zero pending-conflict count and a
// passed pre_validate check before calling it.
func (c *Client) AdvancePhase(ctx context.Context, projectID string, next models.Phase) error {
	tag, err := c.pool.Exec(ctx, `
		UPDATE projects SET current_phase = $2, updated_at = now() WHERE id = $1`,
		projectID, next)
	if err != nil {
		return fmt.Errorf("advance phase: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUnknownProject
	}
	return nil
}

// UpdateMaturityScore persists a freshly computed maturity score.
// The score itself is always derived, never hand-set.
func (c *Client) UpdateMaturityScore(ctx context.Context, projectID string, score float64) error {
	tag, err := c.pool.Exec(ctx, `
		UPDATE projects SET maturity_score = $2, updated_at = now() WHERE id = $1`,
		projectID, score)
	if err != nil {
		return fmt.Errorf("update maturity score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUnknownProject
	}
	return nil
}

// ArchiveProject marks a project archived. Projects are never
// hard-deleted: their sessions, specifications, and activity log are
// historical record.
func (c *Client) ArchiveProject(ctx context.Context, projectID string) error {
	tag, err := c.pool.Exec(ctx, `
		UPDATE projects SET status = $2, updated_at = now() WHERE id = $1`,
		projectID, models.ProjectStatusArchived)
	if err != nil {
		return fmt.Errorf("archive project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUnknownProject
	}
	return nil
}

// ShareProject grants userID access to projectID at role.
func (c *Client) ShareProject(ctx context.Context, projectID, userID string, role models.ShareRole) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO project_shares (project_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (project_id, user_id) DO UPDATE SET role = EXCLUDED.role`,
		projectID, userID, role)
	if err != nil {
		return fmt.Errorf("share project: %w", err)
	}
	return nil
}

// GetShareRole returns the role userID holds on projectID, or ("", false).
func (c *Client) GetShareRole(ctx context.Context, projectID, userID string) (models.ShareRole, bool, error) {
	var role models.ShareRole
	row := c.pool.QueryRow(ctx, `SELECT role FROM project_shares WHERE project_id = $1 AND user_id = $2`, projectID, userID)
	if err := row.Scan(&role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get share role: %w", err)
	}
	return role, true, nil
}
