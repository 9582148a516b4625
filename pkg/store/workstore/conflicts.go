package workstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/specbench/workbench/pkg/apperrors"
	"github.com/specbench/workbench/pkg/models"
)

// CreateConflict raises a pending conflict against an incumbent
// specification. Pending conflicts block further
// ingestion for the same (category, key) and block phase advancement
// — both enforced by callers consulting
// ListPendingConflicts, not by a DB constraint, since "pending" here
// is one value among several in a mutable column.
func (c *Client) CreateConflict(ctx context.Context, conflict *models.Conflict) error {
	conflict.ID = uuid.NewString()
	conflict.Resolution = models.ResolutionPending
	raw, err := json.Marshal(conflict.NewValue)
	if err != nil {
		return fmt.Errorf("encode conflict new_value: %w", err)
	}
	row := c.pool.QueryRow(ctx, `
		INSERT INTO conflicts (id, project_id, incumbent_id, category, key, new_value, new_confidence, new_source, type, resolution, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at`,
		conflict.ID, conflict.ProjectID, conflict.IncumbentID, conflict.Category, conflict.Key, raw,
		conflict.NewConfidence, conflict.NewSource, conflict.Type, conflict.Resolution, conflict.CreatedBy)
	if err := row.Scan(&conflict.CreatedAt); err != nil {
		return fmt.Errorf("create conflict: %w", err)
	}
	return nil
}

// GetConflict fetches a conflict by ID, or apperrors.ErrUnknownConflict.
func (c *Client) GetConflict(ctx context.Context, id string) (*models.Conflict, error) {
	conflict, err := scanOneConflict(c.pool.QueryRow(ctx, `
		SELECT id, project_id, incumbent_id, category, key, new_value, new_confidence, new_source, type, resolution, resolver, created_by, resolved_at, created_at
		FROM conflicts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrUnknownConflict
	}
	return conflict, err
}

// ListPendingConflicts returns every unresolved conflict for a
// project, ordered by severity (highest first).
func (c *Client) ListPendingConflicts(ctx context.Context, projectID string) ([]*models.Conflict, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT id, project_id, incumbent_id, category, key, new_value, new_confidence, new_source, type, resolution, resolver, created_by, resolved_at, created_at
		FROM conflicts WHERE project_id = $1 AND resolution = $2 ORDER BY created_at ASC`,
		projectID, models.ResolutionPending)
	if err != nil {
		return nil, fmt.Errorf("list pending conflicts: %w", err)
	}
	defer rows.Close()

	var out []*models.Conflict
	for rows.Next() {
		conflict, err := scanConflictRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, conflict)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Highest-severity-first ordering is a pure function of Type; do
	// it in Go rather than an ORDER BY CASE so the severity table
	// stays single-sourced in models.SeverityRank.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && models.SeverityRank(out[j].Type) < models.SeverityRank(out[j-1].Type); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

// ListConflicts returns every conflict for a project, pending and
// resolved alike, newest first.
func (c *Client) ListConflicts(ctx context.Context, projectID string) ([]*models.Conflict, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT id, project_id, incumbent_id, category, key, new_value, new_confidence, new_source, type, resolution, resolver, created_by, resolved_at, created_at
		FROM conflicts WHERE project_id = $1 ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list conflicts: %w", err)
	}
	defer rows.Close()

	var out []*models.Conflict
	for rows.Next() {
		conflict, err := scanConflictRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, conflict)
	}
	return out, rows.Err()
}

// Resolve transitions a pending conflict to a terminal resolution
// using a
// conditional UPDATE as a compare-and-swap instead of a row lock —
// double-resolution attempts observe zero rows affected.
func (c *Client) Resolve(ctx context.Context, id string, resolution models.ConflictResolution, resolver string) error {
	if resolution == models.ResolutionPending {
		return apperrors.ErrInvalidResolution
	}
	now := time.Now()
	tag, err := c.pool.Exec(ctx, `
		UPDATE conflicts SET resolution = $2, resolver = $3, resolved_at = $4
		WHERE id = $1 AND resolution = $5`,
		id, resolution, resolver, now, models.ResolutionPending)
	if err != nil {
		return fmt.Errorf("resolve conflict: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrInvalidResolution
	}
	return nil
}

func scanOneConflict(row pgx.Row) (*models.Conflict, error) {
	var raw []byte
	conflict := &models.Conflict{}
	if err := row.Scan(&conflict.ID, &conflict.ProjectID, &conflict.IncumbentID, &conflict.Category, &conflict.Key, &raw,
		&conflict.NewConfidence, &conflict.NewSource, &conflict.Type, &conflict.Resolution, &conflict.Resolver,
		&conflict.CreatedBy, &conflict.ResolvedAt, &conflict.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &conflict.NewValue); err != nil {
		return nil, fmt.Errorf("decode conflict new_value: %w", err)
	}
	return conflict, nil
}

func scanConflictRow(rows pgx.Rows) (*models.Conflict, error) {
	var raw []byte
	conflict := &models.Conflict{}
	if err := rows.Scan(&conflict.ID, &conflict.ProjectID, &conflict.IncumbentID, &conflict.Category, &conflict.Key, &raw,
		&conflict.NewConfidence, &conflict.NewSource, &conflict.Type, &conflict.Resolution, &conflict.Resolver,
		&conflict.CreatedBy, &conflict.ResolvedAt, &conflict.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan conflict: %w", err)
	}
	if err := json.Unmarshal(raw, &conflict.NewValue); err != nil {
		return nil, fmt.Errorf("decode conflict new_value: %w", err)
	}
	return conflict, nil
}
