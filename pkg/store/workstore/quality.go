package workstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/specbench/workbench/pkg/models"
)

// RecordQualityMetric stores one snapshot of a project's bias,
// coverage, and complexity scores.
func (c *Client) RecordQualityMetric(ctx context.Context, m *models.QualityMetric) error {
	m.ID = uuid.NewString()
	row := c.pool.QueryRow(ctx, `
		INSERT INTO quality_metrics (id, project_id, bias, coverage, complexity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		m.ID, m.ProjectID, m.Bias, m.Coverage, m.Complexity)
	if err := row.Scan(&m.CreatedAt); err != nil {
		return fmt.Errorf("record quality metric: %w", err)
	}
	return nil
}

// AppendActivityLog records one audit-trail entry for a project.
func (c *Client) AppendActivityLog(ctx context.Context, entry *models.ActivityLog) error {
	entry.ID = uuid.NewString()
	var raw []byte
	if entry.SideData != nil {
		var err error
		raw, err = json.Marshal(entry.SideData)
		if err != nil {
			return fmt.Errorf("encode activity log side data: %w", err)
		}
	}
	row := c.pool.QueryRow(ctx, `
		INSERT INTO activity_log (id, project_id, action_type, entity_type, entity_id, descr, side_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		entry.ID, entry.ProjectID, entry.ActionType, entry.EntityType, entry.EntityID, entry.Descr, raw)
	if err := row.Scan(&entry.CreatedAt); err != nil {
		return fmt.Errorf("append activity log: %w", err)
	}
	return nil
}

// CreateGeneratedProject starts a new code-generation run, assigning
// it the next version number for its project.
func (c *Client) CreateGeneratedProject(ctx context.Context, projectID string) (*models.GeneratedProject, error) {
	gp := &models.GeneratedProject{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Status:    models.GeneratedStatusRunning,
	}
	row := c.pool.QueryRow(ctx, `
		INSERT INTO generated_projects (id, project_id, version, status)
		VALUES ($1, $2, COALESCE((SELECT MAX(version) + 1 FROM generated_projects WHERE project_id = $2), 1), $3)
		RETURNING version, created_at`,
		gp.ID, gp.ProjectID, gp.Status)
	if err := row.Scan(&gp.Version, &gp.CreatedAt); err != nil {
		return nil, fmt.Errorf("create generated project: %w", err)
	}
	return gp, nil
}

// SetGeneratedProjectStatus transitions a generation run to a
// terminal status.
func (c *Client) SetGeneratedProjectStatus(ctx context.Context, id string, status models.GeneratedProjectStatus) error {
	_, err := c.pool.Exec(ctx, `UPDATE generated_projects SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("set generated project status: %w", err)
	}
	return nil
}

// AddGeneratedFile records one file emitted by a generation run.
func (c *Client) AddGeneratedFile(ctx context.Context, generatedProjectID, path string, lineCount int) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO generated_files (id, generated_project_id, path, line_count)
		VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), generatedProjectID, path, lineCount)
	if err != nil {
		return fmt.Errorf("add generated file: %w", err)
	}
	return nil
}
