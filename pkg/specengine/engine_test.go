package specengine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specbench/workbench/pkg/apperrors"
	"github.com/specbench/workbench/pkg/conflictengine"
	"github.com/specbench/workbench/pkg/llmgateway"
	"github.com/specbench/workbench/pkg/models"
)

func newEngine(t *testing.T) (*Engine, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	gw := llmgateway.New(llmgateway.NewStubProvider(), 0)
	detector := conflictengine.New(gw, "stub", 0.7)
	return New(store, gw, "stub", detector), store
}

func TestIngest_InsertsWhenNoIncumbent(t *testing.T) {
	e, _ := newEngine(t)
	inserted, conflicts, err := e.Ingest(context.Background(), "p1", []Candidate{
		{Category: "goals", Key: "primary_goal", Value: "reduce onboarding time", Confidence: 0.8},
	})
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	require.Len(t, inserted, 1)
	assert.True(t, inserted[0].IsCurrent)
	assert.Equal(t, models.SourceExtracted, inserted[0].Source)
}

func TestIngest_NoopOnEqualValue(t *testing.T) {
	e, store := newEngine(t)
	require.NoError(t, store.InsertSpecification(context.Background(), &models.Specification{
		ProjectID: "p1", Category: "tech_stack", Key: "primary_database", Value: "PostgreSQL",
	}))

	inserted, conflicts, err := e.Ingest(context.Background(), "p1", []Candidate{
		{Category: "tech_stack", Key: "primary_database", Value: "  postgresql  ", Confidence: 0.9},
	})
	require.NoError(t, err)
	assert.Empty(t, inserted)
	assert.Empty(t, conflicts)
}

// TestIngest_ConflictOnReplace walks the full conflict lifecycle: a
// disagreeing candidate raises a pending conflict instead of becoming
// current, and resolving with replace supersedes the incumbent.
func TestIngest_ConflictOnReplace(t *testing.T) {
	e, store := newEngine(t)
	require.NoError(t, store.InsertSpecification(context.Background(), &models.Specification{
		ProjectID: "p1", Category: "tech_stack", Key: "primary_database", Value: "PostgreSQL",
	}))

	inserted, conflicts, err := e.Ingest(context.Background(), "p1", []Candidate{
		{Category: "tech_stack", Key: "primary_database", Value: "MySQL", Confidence: 0.9},
	})
	require.NoError(t, err)
	assert.Empty(t, inserted, "the candidate must not become current until the conflict resolves")
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ResolutionPending, conflicts[0].Resolution)
	assert.Equal(t, models.ConflictTypeTechnology, conflicts[0].Type)

	current, err := store.GetCurrentSpecification(context.Background(), "p1", "tech_stack", "primary_database")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "PostgreSQL", current.Value)

	require.NoError(t, e.Resolve(context.Background(), conflicts[0].ID, models.ResolutionReplace, "user-1", nil))

	oldSpec, err := store.GetConflict(context.Background(), conflicts[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResolutionReplace, oldSpec.Resolution)
	assert.NotNil(t, oldSpec.ResolvedAt)
	assert.Equal(t, "user-1", oldSpec.Resolver)

	newCurrent, err := store.GetCurrentSpecification(context.Background(), "p1", "tech_stack", "primary_database")
	require.NoError(t, err)
	require.NotNil(t, newCurrent)
	assert.Equal(t, "MySQL", newCurrent.Value)
	assert.Equal(t, current.ID, newCurrent.Supersedes)

	predecessor, ok := store.specs[current.ID]
	require.True(t, ok)
	assert.False(t, predecessor.IsCurrent)
}

func TestIngest_BlockedWhilePendingConflictExistsForSameKey(t *testing.T) {
	e, store := newEngine(t)
	require.NoError(t, store.InsertSpecification(context.Background(), &models.Specification{
		ProjectID: "p1", Category: "tech_stack", Key: "primary_database", Value: "PostgreSQL",
	}))
	_, _, err := e.Ingest(context.Background(), "p1", []Candidate{
		{Category: "tech_stack", Key: "primary_database", Value: "MySQL", Confidence: 0.9},
	})
	require.NoError(t, err)

	_, _, err = e.Ingest(context.Background(), "p1", []Candidate{
		{Category: "tech_stack", Key: "primary_database", Value: "MariaDB", Confidence: 0.9},
	})
	require.ErrorIs(t, err, apperrors.ErrProjectBlocked)
}

func TestIngest_DedupesByHighestConfidenceTieBrokenByPosition(t *testing.T) {
	e, _ := newEngine(t)
	inserted, _, err := e.Ingest(context.Background(), "p1", []Candidate{
		{Category: "goals", Key: "primary_goal", Value: "A", Confidence: 0.5},
		{Category: "goals", Key: "primary_goal", Value: "B", Confidence: 0.9},
		{Category: "goals", Key: "primary_goal", Value: "C", Confidence: 0.9},
	})
	require.NoError(t, err)
	require.Len(t, inserted, 1)
	assert.Equal(t, "C", inserted[0].Value, "ties at the highest confidence should be broken by later batch position")
}

func TestResolve_KeepOldDiscardsCandidate(t *testing.T) {
	e, store := newEngine(t)
	require.NoError(t, store.InsertSpecification(context.Background(), &models.Specification{
		ProjectID: "p1", Category: "tech_stack", Key: "primary_database", Value: "PostgreSQL",
	}))
	_, conflicts, err := e.Ingest(context.Background(), "p1", []Candidate{
		{Category: "tech_stack", Key: "primary_database", Value: "MySQL", Confidence: 0.9},
	})
	require.NoError(t, err)

	require.NoError(t, e.Resolve(context.Background(), conflicts[0].ID, models.ResolutionKeepOld, "user-1", nil))

	current, err := store.GetCurrentSpecification(context.Background(), "p1", "tech_stack", "primary_database")
	require.NoError(t, err)
	assert.Equal(t, "PostgreSQL", current.Value)
}

func TestResolve_MergeInsertsSuppliedValue(t *testing.T) {
	e, store := newEngine(t)
	require.NoError(t, store.InsertSpecification(context.Background(), &models.Specification{
		ProjectID: "p1", Category: "tech_stack", Key: "primary_database", Value: "PostgreSQL",
	}))
	_, conflicts, err := e.Ingest(context.Background(), "p1", []Candidate{
		{Category: "tech_stack", Key: "primary_database", Value: "MySQL", Confidence: 0.9},
	})
	require.NoError(t, err)

	require.NoError(t, e.Resolve(context.Background(), conflicts[0].ID, models.ResolutionMerge, "user-1", "PostgreSQL with MySQL read replicas"))

	current, err := store.GetCurrentSpecification(context.Background(), "p1", "tech_stack", "primary_database")
	require.NoError(t, err)
	assert.Equal(t, "PostgreSQL with MySQL read replicas", current.Value)
	assert.Equal(t, models.SourceInferred, current.Source)
}

func TestResolve_TerminalConflictRejectsAnotherResolution(t *testing.T) {
	e, store := newEngine(t)
	require.NoError(t, store.InsertSpecification(context.Background(), &models.Specification{
		ProjectID: "p1", Category: "tech_stack", Key: "primary_database", Value: "PostgreSQL",
	}))
	_, conflicts, err := e.Ingest(context.Background(), "p1", []Candidate{
		{Category: "tech_stack", Key: "primary_database", Value: "MySQL", Confidence: 0.9},
	})
	require.NoError(t, err)
	require.NoError(t, e.Resolve(context.Background(), conflicts[0].ID, models.ResolutionKeepOld, "user-1", nil))

	err = e.Resolve(context.Background(), conflicts[0].ID, models.ResolutionReplace, "user-2", nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidResolution)
}

func TestMaturity_EquallyWeightedSaturatingCoverage(t *testing.T) {
	assert.Equal(t, 0.0, Maturity(nil))

	specs := []*models.Specification{
		{Category: "goals", IsCurrent: true},
		{Category: "goals", IsCurrent: true},
		{Category: "goals", IsCurrent: true},
		{Category: "goals", IsCurrent: true}, // 4th spec in same category: still saturates at 1.0
	}
	// 1 of 10 categories fully covered, the rest at 0: 100 * (1/10) = 10.
	assert.InDelta(t, 10.0, Maturity(specs), 0.01)
}

func TestMaturity_MonotoneOnAddingToUncoveredCategory(t *testing.T) {
	base := []*models.Specification{{Category: "goals", IsCurrent: true}}
	before := Maturity(base)
	after := Maturity(append(base, &models.Specification{Category: "security", IsCurrent: true}))
	assert.Greater(t, after, before)
}

func TestCategoryCoverage_SaturatesAtThreeSpecs(t *testing.T) {
	specs := []*models.Specification{
		{Category: "security", IsCurrent: true},
		{Category: "security", IsCurrent: true},
	}
	cov := CategoryCoverage(specs)
	assert.InDelta(t, 66.7, cov["security"], 0.1)
	assert.Equal(t, 0.0, cov["timeline"])

	specs = append(specs, &models.Specification{Category: "security", IsCurrent: true})
	cov = CategoryCoverage(specs)
	assert.Equal(t, 100.0, cov["security"])
}

func TestBoundPromptSpecs_KeepsMostRecentPlusTouchedCategories(t *testing.T) {
	base := time.Now()
	specs := []*models.Specification{
		{ID: "old-timeline", Category: "timeline", Key: "deadline", CreatedAt: base.Add(-48 * time.Hour)},
	}
	for i := 0; i < 120; i++ {
		specs = append(specs, &models.Specification{
			ID:       fmt.Sprintf("s%d", i),
			Category: "security", Key: fmt.Sprintf("k%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	bounded := boundPromptSpecs(specs, inferCategories("can we move the timeline deadline?"))

	require.Len(t, bounded, 101)
	ids := make(map[string]bool, len(bounded))
	for _, s := range bounded {
		ids[s.ID] = true
	}
	assert.True(t, ids["old-timeline"], "touched-category specs ride along past the recency bound")
	assert.True(t, ids["s119"], "the newest spec is always included")
	assert.False(t, ids["s0"], "the oldest untouched specs fall off")
}

func TestInferCategories_MatchesUnderscoreAndSpaceForms(t *testing.T) {
	got := inferCategories("Our tech stack and security posture both need review")
	assert.True(t, got["tech_stack"])
	assert.True(t, got["security"])
	assert.False(t, got["timeline"])
}

func TestDecodeCandidates_ScansOutermostArrayIgnoringProse(t *testing.T) {
	content := "Sure, here are the candidates:\n" +
		`[{"category":"goals","key":"primary_goal","value":"ship faster","confidence":0.8}]` +
		"\nLet me know if you need more."
	candidates, err := decodeCandidates(content)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "goals", candidates[0].Category)
	assert.Equal(t, "primary_goal", candidates[0].Key)
}

func TestDecodeCandidates_NoArrayIsAnError(t *testing.T) {
	_, err := decodeCandidates("I don't have a structured answer for that.")
	assert.Error(t, err)
}
