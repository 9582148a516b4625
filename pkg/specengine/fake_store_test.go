package specengine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/specbench/workbench/pkg/apperrors"
	"github.com/specbench/workbench/pkg/models"
)

// fakeStore is an in-memory stand-in for workstore.Client satisfying
// the Engine's Store interface, so the engine's algorithms are
// testable without a real database.
type fakeStore struct {
	mu        sync.Mutex
	specs     map[string]*models.Specification // by ID
	conflicts map[string]*models.Conflict      // by ID
}

func newFakeStore() *fakeStore {
	return &fakeStore{specs: map[string]*models.Specification{}, conflicts: map[string]*models.Conflict{}}
}

func (f *fakeStore) ListCurrentSpecifications(_ context.Context, projectID string) ([]*models.Specification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Specification
	for _, s := range f.specs {
		if s.ProjectID == projectID && s.IsCurrent {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) GetCurrentSpecification(_ context.Context, projectID, category, key string) (*models.Specification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.specs {
		if s.ProjectID == projectID && s.Category == category && s.Key == key && s.IsCurrent {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) InsertSpecification(_ context.Context, s *models.Specification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID = uuid.NewString()
	s.IsCurrent = true
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	f.specs[s.ID] = s
	return nil
}

func (f *fakeStore) Supersede(_ context.Context, predecessorID string, successor *models.Specification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	predecessor, ok := f.specs[predecessorID]
	if !ok || !predecessor.IsCurrent {
		return apperrors.NewInternalError("spec-supersede-race", nil)
	}
	predecessor.IsCurrent = false

	successor.ID = uuid.NewString()
	successor.IsCurrent = true
	successor.Supersedes = predecessorID
	successor.CreatedAt = time.Now()
	successor.UpdatedAt = successor.CreatedAt
	f.specs[successor.ID] = successor
	return nil
}

func (f *fakeStore) CreateConflict(_ context.Context, c *models.Conflict) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = uuid.NewString()
	c.Resolution = models.ResolutionPending
	c.CreatedAt = time.Now()
	f.conflicts[c.ID] = c
	return nil
}

func (f *fakeStore) GetConflict(_ context.Context, id string) (*models.Conflict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conflicts[id]
	if !ok {
		return nil, apperrors.ErrUnknownConflict
	}
	return c, nil
}

func (f *fakeStore) ListPendingConflicts(_ context.Context, projectID string) ([]*models.Conflict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Conflict
	for _, c := range f.conflicts {
		if c.ProjectID == projectID && c.Resolution == models.ResolutionPending {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) Resolve(_ context.Context, id string, resolution models.ConflictResolution, resolver string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conflicts[id]
	if !ok {
		return apperrors.ErrUnknownConflict
	}
	now := time.Now()
	c.Resolution = resolution
	c.Resolver = resolver
	c.ResolvedAt = &now
	return nil
}
