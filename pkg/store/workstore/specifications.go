package workstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/specbench/workbench/pkg/apperrors"
	"github.com/specbench/workbench/pkg/models"
)

// ListCurrentSpecifications returns every IsCurrent=true specification
// for a project, the working set the Specification, Conflict, and
// Quality engines all operate on.
func (c *Client) ListCurrentSpecifications(ctx context.Context, projectID string) ([]*models.Specification, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT id, project_id, category, key, value, confidence, source, is_current, COALESCE(supersedes::text, ''), created_at, updated_at
		FROM specifications WHERE project_id = $1 AND is_current ORDER BY category, key`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list current specifications: %w", err)
	}
	defer rows.Close()
	return scanSpecifications(rows)
}

// GetCurrentSpecification returns the current spec for (project,
// category, key), or (nil, nil) if none exists yet.
func (c *Client) GetCurrentSpecification(ctx context.Context, projectID, category, key string) (*models.Specification, error) {
	var raw []byte
	s := &models.Specification{}
	row := c.pool.QueryRow(ctx, `
		SELECT id, project_id, category, key, value, confidence, source, is_current, COALESCE(supersedes::text, ''), created_at, updated_at
		FROM specifications WHERE project_id = $1 AND category = $2 AND key = $3 AND is_current`, projectID, category, key)
	if err := row.Scan(&s.ID, &s.ProjectID, &s.Category, &s.Key, &raw, &s.Confidence, &s.Source, &s.IsCurrent, &s.Supersedes, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get current specification: %w", err)
	}
	if err := json.Unmarshal(raw, &s.Value); err != nil {
		return nil, fmt.Errorf("decode specification value: %w", err)
	}
	return s, nil
}

// InsertSpecification inserts a brand-new current specification for a
// (category, key) that has no prior current row. Callers must have
// already confirmed via GetCurrentSpecification that none exists and
// that no pending Conflict blocks this category/key — ingestion atomicity across that check-then-act is the
// caller's responsibility (the orchestrator serializes ingestion per
// project; no transaction encloses the check and the insert, and the
// partial unique index on current rows rejects a second current row).
func (c *Client) InsertSpecification(ctx context.Context, s *models.Specification) error {
	s.ID = uuid.NewString()
	s.IsCurrent = true
	raw, err := json.Marshal(s.Value)
	if err != nil {
		return fmt.Errorf("encode specification value: %w", err)
	}
	row := c.pool.QueryRow(ctx, `
		INSERT INTO specifications (id, project_id, category, key, value, confidence, source, is_current, supersedes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, NULLIF($8, '')::uuid)
		RETURNING created_at, updated_at`,
		s.ID, s.ProjectID, s.Category, s.Key, raw, s.Confidence, s.Source, s.Supersedes)
	if err := row.Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		return fmt.Errorf("insert specification: %w", err)
	}
	return nil
}

// Supersede flips predecessorID's IsCurrent to false and inserts
// successor as the new current spec pointing back at it, in one
// transaction; history is append-only, nothing is mutated in place.
func (c *Client) Supersede(ctx context.Context, predecessorID string, successor *models.Specification) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin supersede tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE specifications SET is_current = FALSE, updated_at = now() WHERE id = $1 AND is_current`, predecessorID)
	if err != nil {
		return fmt.Errorf("retire predecessor specification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewInternalError("spec-supersede-race", fmt.Errorf("predecessor %s was not current", predecessorID))
	}

	successor.ID = uuid.NewString()
	successor.IsCurrent = true
	successor.Supersedes = predecessorID
	raw, err := json.Marshal(successor.Value)
	if err != nil {
		return fmt.Errorf("encode successor value: %w", err)
	}
	row := tx.QueryRow(ctx, `
		INSERT INTO specifications (id, project_id, category, key, value, confidence, source, is_current, supersedes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8)
		RETURNING created_at, updated_at`,
		successor.ID, successor.ProjectID, successor.Category, successor.Key, raw, successor.Confidence, successor.Source, successor.Supersedes)
	if err := row.Scan(&successor.CreatedAt, &successor.UpdatedAt); err != nil {
		return fmt.Errorf("insert successor specification: %w", err)
	}

	return tx.Commit(ctx)
}

func scanSpecifications(rows pgx.Rows) ([]*models.Specification, error) {
	var out []*models.Specification
	for rows.Next() {
		var raw []byte
		s := &models.Specification{}
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.Category, &s.Key, &raw, &s.Confidence, &s.Source, &s.IsCurrent, &s.Supersedes, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan specification: %w", err)
		}
		if err := json.Unmarshal(raw, &s.Value); err != nil {
			return nil, fmt.Errorf("decode specification value: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
