// Package sessionmgr implements the Session & Phase manager:
// starting sessions, toggling their mode, and routing phase
// advancement through the orchestrator. It also holds a per-project
// mutex registry that serializes phase advancement on the same
// project; specification ingestion and conflict resolution are
// serialized by the orchestrator's own per-project registry.
package sessionmgr

import (
	"context"
	"fmt"
	"sync"

	"github.com/specbench/workbench/pkg/apperrors"
	"github.com/specbench/workbench/pkg/models"
	"github.com/specbench/workbench/pkg/orchestrator"
	"github.com/specbench/workbench/pkg/store/workstore"
)

// Manager starts and mutates sessions, and serializes per-project
// mutating operations.
type Manager struct {
	store        *workstore.Client
	orchestrator *orchestrator.Orchestrator

	mu           sync.Mutex
	projectLocks map[string]*sync.Mutex
}

// New constructs a Manager.
func New(store *workstore.Client, orch *orchestrator.Orchestrator) *Manager {
	return &Manager{store: store, orchestrator: orch, projectLocks: make(map[string]*sync.Mutex)}
}

// StartSession creates a session for a project/user pair, defaulting
// to Socratic mode. The caller must own the project or hold a share
// on it.
func (m *Manager) StartSession(ctx context.Context, projectID, userID string, mode models.SessionMode) (*models.Session, error) {
	project, err := m.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != userID {
		_, shared, err := m.store.GetShareRole(ctx, projectID, userID)
		if err != nil {
			return nil, err
		}
		if !shared {
			return nil, apperrors.ErrPermissionDenied
		}
	}

	if mode == "" {
		mode = models.ModeSocratic
	}
	session, err := m.store.CreateSession(ctx, projectID, userID, mode)
	if err != nil {
		return nil, fmt.Errorf("start_session: %w", err)
	}
	return session, nil
}

// ToggleMode sets a session's mode to mode and persists it.
func (m *Manager) ToggleMode(ctx context.Context, sessionID string, mode models.SessionMode) error {
	if err := m.store.SetMode(ctx, sessionID, mode); err != nil {
		return fmt.Errorf("toggle_mode: %w", err)
	}
	return nil
}

// AdvancePhase routes a phase-advancement request through the
// orchestrator as a major operation, serialized per project so two
// concurrent advance attempts on the same project can't both observe
// a pre-validation pass before either writes.
func (m *Manager) AdvancePhase(ctx context.Context, projectID string, identity orchestrator.Identity) (*orchestrator.Response, error) {
	unlock := m.lockProject(projectID)
	defer unlock()

	resp, err := m.orchestrator.Route(ctx, "project_manager", "advance_phase", map[string]any{"project_id": projectID}, identity)
	if err != nil {
		return nil, err
	}
	if resp.Blocked {
		return resp, nil
	}

	if err := m.store.AppendActivityLog(ctx, &models.ActivityLog{
		ProjectID:  projectID,
		ActionType: "advance_phase",
		EntityType: "project",
		EntityID:   projectID,
		Descr:      "project advanced to its next phase",
	}); err != nil {
		return nil, fmt.Errorf("advance_phase: record activity: %w", err)
	}
	return resp, nil
}

// WithProjectLock serializes fn against every other caller holding
// projectID's lock, the same lock AdvancePhase takes. Specification
// ingestion and conflict resolution do not go through it; the
// orchestrator serializes those with its own per-project locks.
func (m *Manager) WithProjectLock(projectID string, fn func() error) error {
	unlock := m.lockProject(projectID)
	defer unlock()
	return fn()
}

func (m *Manager) lockProject(projectID string) (unlock func()) {
	m.mu.Lock()
	lock, ok := m.projectLocks[projectID]
	if !ok {
		lock = &sync.Mutex{}
		m.projectLocks[projectID] = lock
	}
	m.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
