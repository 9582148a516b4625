package workstore_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specbench/workbench/pkg/apperrors"
	"github.com/specbench/workbench/pkg/models"
	"github.com/specbench/workbench/pkg/store/workstore"
	"github.com/specbench/workbench/test/dbtest"
)

func newTestClient(t *testing.T) *workstore.Client {
	t.Helper()
	client, err := workstore.NewClient(context.Background(), workstore.Config{
		DSN:      dbtest.SetupDSN(t),
		Database: "workstore",
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func mustCreateProject(t *testing.T, c *workstore.Client) *models.Project {
	t.Helper()
	p, err := c.CreateProject(context.Background(), uuid.NewString(), "demo", "spec-gathering demo project")
	require.NoError(t, err)
	return p
}

func TestSpecificationSupersedeLifecycle(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	p := mustCreateProject(t, c)

	first := &models.Specification{
		ProjectID: p.ID, Category: "tech_stack", Key: "primary_database",
		Value: "PostgreSQL", Confidence: 0.9, Source: models.SourceExtracted,
	}
	require.NoError(t, c.InsertSpecification(ctx, first))

	current, err := c.GetCurrentSpecification(ctx, p.ID, "tech_stack", "primary_database")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "PostgreSQL", current.Value)

	successor := &models.Specification{
		ProjectID: p.ID, Category: "tech_stack", Key: "primary_database",
		Value: "MySQL", Confidence: 0.8, Source: models.SourceExtracted,
	}
	require.NoError(t, c.Supersede(ctx, first.ID, successor))

	current, err = c.GetCurrentSpecification(ctx, p.ID, "tech_stack", "primary_database")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "MySQL", current.Value)
	assert.Equal(t, first.ID, current.Supersedes)

	all, err := c.ListCurrentSpecifications(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1, "the retired predecessor must no longer be listed as current")

	// Superseding an already-retired predecessor is a lost race.
	err = c.Supersede(ctx, first.ID, &models.Specification{
		ProjectID: p.ID, Category: "tech_stack", Key: "primary_database",
		Value: "MariaDB", Source: models.SourceExtracted,
	})
	assert.Error(t, err)
}

func TestSpecificationCurrentUniqueIndexEnforced(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	p := mustCreateProject(t, c)

	require.NoError(t, c.InsertSpecification(ctx, &models.Specification{
		ProjectID: p.ID, Category: "security", Key: "auth_scheme",
		Value: "OAuth2", Source: models.SourceUserInput,
	}))

	// The partial unique index is the backstop for ingestion races the
	// engine's check-then-act can't see: a second current row for the
	// same (project, category, key) must be rejected by the database.
	err := c.InsertSpecification(ctx, &models.Specification{
		ProjectID: p.ID, Category: "security", Key: "auth_scheme",
		Value: "SAML", Source: models.SourceUserInput,
	})
	assert.Error(t, err)
}

func TestConflictResolveIsCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	p := mustCreateProject(t, c)

	incumbent := &models.Specification{
		ProjectID: p.ID, Category: "tech_stack", Key: "primary_database",
		Value: "PostgreSQL", Source: models.SourceExtracted,
	}
	require.NoError(t, c.InsertSpecification(ctx, incumbent))

	conflict := &models.Conflict{
		ProjectID: p.ID, IncumbentID: incumbent.ID,
		Category: "tech_stack", Key: "primary_database",
		NewValue: "MySQL", NewConfidence: 0.8, NewSource: models.SourceExtracted,
		Type: models.ConflictTypeTechnology, CreatedBy: "u1",
	}
	require.NoError(t, c.CreateConflict(ctx, conflict))

	pending, err := c.ListPendingConflicts(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, c.Resolve(ctx, conflict.ID, models.ResolutionKeepOld, "u1"))

	resolved, err := c.GetConflict(ctx, conflict.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResolutionKeepOld, resolved.Resolution)
	assert.Equal(t, "u1", resolved.Resolver)
	assert.NotNil(t, resolved.ResolvedAt)

	// Terminal states are absorbing: a second resolve loses the swap.
	err = c.Resolve(ctx, conflict.ID, models.ResolutionReplace, "u2")
	assert.ErrorIs(t, err, apperrors.ErrInvalidResolution)

	err = c.Resolve(ctx, conflict.ID, models.ResolutionPending, "u2")
	assert.ErrorIs(t, err, apperrors.ErrInvalidResolution)

	_, err = c.GetConflict(ctx, uuid.NewString())
	assert.ErrorIs(t, err, apperrors.ErrUnknownConflict)

	all, err := c.ListConflicts(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].IsTerminal())

	pending, err = c.ListPendingConflicts(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestConversationHistorySequenceSurvivesModeToggle(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	p := mustCreateProject(t, c)

	session, err := c.CreateSession(ctx, p.ID, uuid.NewString(), models.ModeSocratic)
	require.NoError(t, err)

	_, err = c.AppendConversationEntry(ctx, session.ID, models.ConversationRoleAssistant, "What problem does this project solve?")
	require.NoError(t, err)
	_, err = c.AppendConversationEntry(ctx, session.ID, models.ConversationRoleUser, "Customer onboarding is too slow.")
	require.NoError(t, err)

	require.NoError(t, c.SetMode(ctx, session.ID, models.ModeDirectChat))

	_, err = c.AppendConversationEntry(ctx, session.ID, models.ConversationRoleUser, "I want to use PostgreSQL")
	require.NoError(t, err)

	history, err := c.ListConversationHistory(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i, entry := range history {
		assert.Equal(t, int64(i), entry.Sequence, "sequence numbers are dense and strictly increasing")
	}
	assert.Equal(t, "I want to use PostgreSQL", history[2].Content)

	toggled, err := c.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ModeDirectChat, toggled.Mode)
}

func TestConversationAppendsSerializeAcrossGoroutines(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	p := mustCreateProject(t, c)

	session, err := c.CreateSession(ctx, p.ID, uuid.NewString(), models.ModeSocratic)
	require.NoError(t, err)

	const writers, perWriter = 8, 5
	errs := make(chan error, writers*perWriter)
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_, err := c.AppendConversationEntry(ctx, session.ID, models.ConversationRoleUser, "turn")
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	history, err := c.ListConversationHistory(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, history, writers*perWriter)
	for i, entry := range history {
		assert.Equal(t, int64(i), entry.Sequence, "concurrent appends must still yield a dense, strictly increasing sequence")
	}
}

func TestEndedSessionIsImmutable(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	p := mustCreateProject(t, c)

	session, err := c.CreateSession(ctx, p.ID, uuid.NewString(), models.ModeSocratic)
	require.NoError(t, err)
	require.NoError(t, c.SetStatus(ctx, session.ID, models.SessionStatusEnded))

	assert.ErrorIs(t, c.SetMode(ctx, session.ID, models.ModeDirectChat), apperrors.ErrSessionEnded)
	assert.ErrorIs(t, c.SetStatus(ctx, session.ID, models.SessionStatusActive), apperrors.ErrSessionEnded)
}

func TestGeneratedProjectVersioning(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	p := mustCreateProject(t, c)

	first, err := c.CreateGeneratedProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)

	require.NoError(t, c.AddGeneratedFile(ctx, first.ID, "cmd/app/main.go", 120))
	require.NoError(t, c.SetGeneratedProjectStatus(ctx, first.ID, models.GeneratedStatusCompleted))

	second, err := c.CreateGeneratedProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)
}

func TestProjectSharesAndListing(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	ownerID := uuid.NewString()
	viewerID := uuid.NewString()
	p, err := c.CreateProject(ctx, ownerID, "shared", "shared project")
	require.NoError(t, err)

	owned, err := c.ListProjectsForUser(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, owned, 1)

	visible, err := c.ListProjectsForUser(ctx, viewerID)
	require.NoError(t, err)
	assert.Empty(t, visible)

	require.NoError(t, c.ShareProject(ctx, p.ID, viewerID, models.ShareRoleViewer))

	visible, err = c.ListProjectsForUser(ctx, viewerID)
	require.NoError(t, err)
	require.Len(t, visible, 1)

	role, ok, err := c.GetShareRole(ctx, p.ID, viewerID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.ShareRoleViewer, role)

	// Re-sharing upgrades the role in place.
	require.NoError(t, c.ShareProject(ctx, p.ID, viewerID, models.ShareRoleEditor))
	role, ok, err = c.GetShareRole(ctx, p.ID, viewerID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.ShareRoleEditor, role)
}
