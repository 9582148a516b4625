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

// CreateSession starts a new session in the given mode.
func (c *Client) CreateSession(ctx context.Context, projectID, userID string, mode models.SessionMode) (*models.Session, error) {
	s := &models.Session{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		UserID:    userID,
		Mode:      mode,
		Status:    models.SessionStatusActive,
	}
	row := c.pool.QueryRow(ctx, `
		INSERT INTO sessions (id, project_id, user_id, mode, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		s.ID, s.ProjectID, s.UserID, s.Mode, s.Status)
	if err := row.Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

// GetSession fetches a session by ID, or apperrors.ErrUnknownSession.
func (c *Client) GetSession(ctx context.Context, id string) (*models.Session, error) {
	s := &models.Session{}
	row := c.pool.QueryRow(ctx, `
		SELECT id, project_id, user_id, mode, status, created_at, updated_at
		FROM sessions WHERE id = $1`, id)
	if err := row.Scan(&s.ID, &s.ProjectID, &s.UserID, &s.Mode, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUnknownSession
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// SetMode toggles a session between socratic and direct-chat mode.
// Ended sessions cannot change mode.
func (c *Client) SetMode(ctx context.Context, id string, mode models.SessionMode) error {
	tag, err := c.pool.Exec(ctx, `
		UPDATE sessions SET mode = $2, updated_at = now()
		WHERE id = $1 AND status != $3`,
		id, mode, models.SessionStatusEnded)
	if err != nil {
		return fmt.Errorf("set session mode: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrSessionEnded
	}
	return nil
}

// SetStatus transitions a session's status. Ended is terminal.
func (c *Client) SetStatus(ctx context.Context, id string, status models.SessionStatus) error {
	tag, err := c.pool.Exec(ctx, `
		UPDATE sessions SET status = $2, updated_at = now()
		WHERE id = $1 AND status != $3`,
		id, status, models.SessionStatusEnded)
	if err != nil {
		return fmt.Errorf("set session status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrSessionEnded
	}
	return nil
}

// AppendConversationEntry appends one turn using a strictly increasing
// sequence number per session, so ordering survives even with
// identical timestamps. Concurrent writers on one session serialize on
// the session-scoped lock across the read-compute-insert.
func (c *Client) AppendConversationEntry(ctx context.Context, sessionID string, role models.ConversationRole, content string) (*models.ConversationEntry, error) {
	unlock := c.lockSession(sessionID)
	defer unlock()

	e := &models.ConversationEntry{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
	}
	row := c.pool.QueryRow(ctx, `
		INSERT INTO conversation_history (id, session_id, sequence, role, content)
		VALUES ($1, $2, COALESCE((SELECT MAX(sequence) + 1 FROM conversation_history WHERE session_id = $2), 0), $3, $4)
		RETURNING sequence, created_at`,
		e.ID, e.SessionID, e.Role, e.Content)
	if err := row.Scan(&e.Sequence, &e.CreatedAt); err != nil {
		return nil, fmt.Errorf("append conversation entry: %w", err)
	}
	return e, nil
}

// ListConversationHistory returns a session's history in sequence order.
func (c *Client) ListConversationHistory(ctx context.Context, sessionID string) ([]*models.ConversationEntry, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT id, session_id, sequence, role, content, created_at
		FROM conversation_history WHERE session_id = $1 ORDER BY sequence ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list conversation history: %w", err)
	}
	defer rows.Close()

	var out []*models.ConversationEntry
	for rows.Next() {
		e := &models.ConversationEntry{}
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Sequence, &e.Role, &e.Content, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CreateQuestion persists a Socratic-agent-generated question.
func (c *Client) CreateQuestion(ctx context.Context, q *models.Question) error {
	q.ID = uuid.NewString()
	row := c.pool.QueryRow(ctx, `
		INSERT INTO questions (id, session_id, text, category, role, bias_score, gen_model)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		q.ID, q.SessionID, q.Text, q.Category, q.Role, q.BiasScore, q.GenModel)
	if err := row.Scan(&q.CreatedAt); err != nil {
		return fmt.Errorf("create question: %w", err)
	}
	return nil
}
