// Package specengine implements the Specification engine:
// extracting candidate specs from user utterances, ingesting them
// against the project's current specs (detecting conflicts along the
// way via pkg/conflictengine), resolving conflicts, and scoring
// project maturity. The engine holds no concrete store client: it
// reads and writes through the narrow Store interface, so it stays
// testable against an in-memory fake and free of direct database
// dependencies.
package specengine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/specbench/workbench/pkg/apperrors"
	"github.com/specbench/workbench/pkg/conflictengine"
	"github.com/specbench/workbench/pkg/llmgateway"
	"github.com/specbench/workbench/pkg/models"
)

// Store is the subset of workstore.Client the engine needs.
type Store interface {
	ListCurrentSpecifications(ctx context.Context, projectID string) ([]*models.Specification, error)
	GetCurrentSpecification(ctx context.Context, projectID, category, key string) (*models.Specification, error)
	InsertSpecification(ctx context.Context, s *models.Specification) error
	Supersede(ctx context.Context, predecessorID string, successor *models.Specification) error
	CreateConflict(ctx context.Context, conflict *models.Conflict) error
	GetConflict(ctx context.Context, id string) (*models.Conflict, error)
	ListPendingConflicts(ctx context.Context, projectID string) ([]*models.Conflict, error)
	Resolve(ctx context.Context, id string, resolution models.ConflictResolution, resolver string) error
}

// Engine implements extract/ingest/resolve/maturity.
type Engine struct {
	store    Store
	gateway  *llmgateway.Gateway
	provider string
	detector *conflictengine.Detector
}

// New constructs an Engine. detector performs the cross-key/semantic
// contradiction detection that ingest delegates to.
func New(store Store, gateway *llmgateway.Gateway, provider string, detector *conflictengine.Detector) *Engine {
	return &Engine{store: store, gateway: gateway, provider: provider, detector: detector}
}

// Candidate is one extracted specification value awaiting ingestion.
type Candidate struct {
	Category   string
	Key        string
	Value      any
	Confidence float64
}

// specsBound caps how many most-recent current specs are carried into
// the extraction prompt; specs in categories the utterance touches
// ride along regardless of age.
const specsBound = 100

// Extract delegates to the LLM gateway with the project's current
// specs as context and returns parsed candidates.
func (e *Engine) Extract(ctx context.Context, projectID, utterance string) ([]Candidate, error) {
	current, err := e.store.ListCurrentSpecifications(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("extract: load current specs: %w", err)
	}
	current = boundPromptSpecs(current, inferCategories(utterance))

	var sb strings.Builder
	sb.WriteString("Current project specifications:\n")
	for _, s := range current {
		fmt.Fprintf(&sb, "- %s.%s = %v (confidence %.2f)\n", s.Category, s.Key, s.Value, s.Confidence)
	}
	sb.WriteString("\nExtract new or updated specification candidates from the user's message. ")
	sb.WriteString(`Respond as a JSON array of {"category","key","value","confidence"} objects.`)

	result, err := e.gateway.Complete(ctx, llmgateway.CompletionRequest{
		Provider:     e.provider,
		SystemPrompt: sb.String(),
		Messages:     []llmgateway.Message{{Role: "user", Content: utterance}},
	})
	if err != nil {
		return nil, fmt.Errorf("extract: llm call: %w", err)
	}

	candidates, err := decodeCandidates(result.Content)
	if err != nil {
		return nil, apperrors.NewInternalError("specengine-extract-decode", err)
	}
	return candidates, nil
}

// Ingest applies each candidate against the project's current specs.
// Candidates competing for the same (category, key) in
// one call are resolved to the single highest-confidence one first
// (ties broken by later batch position).
func (e *Engine) Ingest(ctx context.Context, projectID string, candidates []Candidate) (inserted []*models.Specification, conflicts []*models.Conflict, err error) {
	current, err := e.store.ListCurrentSpecifications(ctx, projectID)
	if err != nil {
		return inserted, conflicts, fmt.Errorf("ingest: load current specs: %w", err)
	}
	others := make(map[string]*models.Specification, len(current))
	for _, s := range current {
		others[conflictengine.SpecKey(s.Category, s.Key)] = s
	}

	for _, c := range dedupeByKey(candidates) {
		incumbent, err := e.store.GetCurrentSpecification(ctx, projectID, c.Category, c.Key)
		if err != nil {
			return inserted, conflicts, fmt.Errorf("ingest: lookup incumbent: %w", err)
		}

		if incumbent == nil {
			spec := &models.Specification{
				ProjectID:  projectID,
				Category:   c.Category,
				Key:        c.Key,
				Value:      c.Value,
				Confidence: c.Confidence,
				Source:     models.SourceExtracted,
			}
			if err := e.store.InsertSpecification(ctx, spec); err != nil {
				return inserted, conflicts, fmt.Errorf("ingest: insert: %w", err)
			}
			inserted = append(inserted, spec)
			continue
		}

		if valuesEqual(incumbent.Value, c.Value) {
			continue
		}

		pending, err := e.pendingConflictExists(ctx, projectID, c.Category, c.Key)
		if err != nil {
			return inserted, conflicts, err
		}
		if pending {
			return inserted, conflicts, apperrors.ErrProjectBlocked
		}

		conflictType, fired := e.detector.Detect(ctx, incumbent, conflictengine.NewCandidate{
			Category:   c.Category,
			Key:        c.Key,
			Value:      c.Value,
			Confidence: c.Confidence,
		}, others)
		if !fired {
			// No rule fired even though raw values differ (e.g. a
			// confidence-only update) — still requires a human
			// decision before overwriting a current spec.
			conflictType = models.ConflictTypeRequirements
		}

		conflict := &models.Conflict{
			ProjectID:     projectID,
			IncumbentID:   incumbent.ID,
			Category:      c.Category,
			Key:           c.Key,
			NewValue:      c.Value,
			NewConfidence: c.Confidence,
			NewSource:     models.SourceExtracted,
			Type:          conflictType,
		}
		if err := e.store.CreateConflict(ctx, conflict); err != nil {
			return inserted, conflicts, fmt.Errorf("ingest: create conflict: %w", err)
		}
		conflicts = append(conflicts, conflict)
	}

	return inserted, conflicts, nil
}

func (e *Engine) pendingConflictExists(ctx context.Context, projectID, category, key string) (bool, error) {
	pending, err := e.store.ListPendingConflicts(ctx, projectID)
	if err != nil {
		return false, fmt.Errorf("ingest: list pending conflicts: %w", err)
	}
	for _, c := range pending {
		if c.Category == category && c.Key == key {
			return true, nil
		}
	}
	return false, nil
}

// Resolve applies a conflict's resolution. merged is only
// used when resolution is ResolutionMerge.
func (e *Engine) Resolve(ctx context.Context, conflictID string, resolution models.ConflictResolution, actor string, merged any) error {
	conflict, err := e.store.GetConflict(ctx, conflictID)
	if err != nil {
		return err
	}
	if conflict.IsTerminal() {
		return apperrors.ErrInvalidResolution
	}

	switch resolution {
	case models.ResolutionKeepOld:
		return e.store.Resolve(ctx, conflictID, resolution, actor)

	case models.ResolutionReplace:
		successor := &models.Specification{
			ProjectID:  conflict.ProjectID,
			Category:   conflict.Category,
			Key:        conflict.Key,
			Value:      conflict.NewValue,
			Confidence: conflict.NewConfidence,
			Source:     conflict.NewSource,
		}
		if err := e.store.Supersede(ctx, conflict.IncumbentID, successor); err != nil {
			return err
		}
		return e.store.Resolve(ctx, conflictID, resolution, actor)

	case models.ResolutionMerge:
		successor := &models.Specification{
			ProjectID:  conflict.ProjectID,
			Category:   conflict.Category,
			Key:        conflict.Key,
			Value:      merged,
			Confidence: conflict.NewConfidence,
			Source:     models.SourceInferred,
		}
		if err := e.store.Supersede(ctx, conflict.IncumbentID, successor); err != nil {
			return err
		}
		return e.store.Resolve(ctx, conflictID, resolution, actor)

	default:
		return apperrors.ErrInvalidResolution
	}
}

// Maturity computes a project's maturity score as the equally-weighted
// coverage across the 10 fixed categories. cov(n) =
// min(1, n/3); score = 100 · mean(cov(n_c)).
func Maturity(specs []*models.Specification) float64 {
	counts := make(map[string]int, len(models.MaturityCategories))
	for _, s := range specs {
		counts[s.Category]++
	}

	var sum float64
	for _, cat := range models.MaturityCategories {
		n := counts[cat]
		cov := float64(n) / 3.0
		if cov > 1 {
			cov = 1
		}
		sum += cov
	}

	score := 100 * sum / float64(len(models.MaturityCategories))
	return roundToOneDecimal(score)
}

// CategoryCoverage returns each maturity category's coverage score
// (0-100, same cov(n)=min(1,n/3) formula Maturity averages) so callers
// can check a single category against a threshold independent of the
// project-wide average.
func CategoryCoverage(specs []*models.Specification) map[string]float64 {
	counts := make(map[string]int, len(models.MaturityCategories))
	for _, s := range specs {
		counts[s.Category]++
	}

	out := make(map[string]float64, len(models.MaturityCategories))
	for _, cat := range models.MaturityCategories {
		cov := float64(counts[cat]) / 3.0
		if cov > 1 {
			cov = 1
		}
		out[cat] = roundToOneDecimal(cov * 100)
	}
	return out
}

func roundToOneDecimal(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

// inferCategories guesses which maturity categories an utterance
// touches by scanning it for the category names (both the raw token
// and its space-separated form).
func inferCategories(utterance string) map[string]bool {
	lower := strings.ToLower(utterance)
	out := make(map[string]bool)
	for _, cat := range models.MaturityCategories {
		if strings.Contains(lower, cat) || strings.Contains(lower, strings.ReplaceAll(cat, "_", " ")) {
			out[cat] = true
		}
	}
	return out
}

// boundPromptSpecs selects the extraction prompt's context: the
// specsBound most recently created current specs, plus every spec in a
// category the utterance touches regardless of age.
func boundPromptSpecs(current []*models.Specification, touched map[string]bool) []*models.Specification {
	byRecency := make([]*models.Specification, len(current))
	copy(byRecency, current)
	sort.SliceStable(byRecency, func(i, j int) bool {
		return byRecency[i].CreatedAt.After(byRecency[j].CreatedAt)
	})

	included := make(map[string]bool, specsBound)
	out := make([]*models.Specification, 0, specsBound)
	for _, s := range byRecency {
		if len(out) == specsBound {
			break
		}
		out = append(out, s)
		included[s.ID] = true
	}
	for _, s := range byRecency {
		if touched[s.Category] && !included[s.ID] {
			out = append(out, s)
			included[s.ID] = true
		}
	}
	return out
}

// dedupeByKey keeps, per (category, key), only the highest-confidence
// candidate; ties are broken by later batch position.
func dedupeByKey(candidates []Candidate) []Candidate {
	type slot struct {
		idx int
		c   Candidate
	}
	best := make(map[string]slot)
	for i, c := range candidates {
		k := c.Category + "\x00" + c.Key
		cur, ok := best[k]
		if !ok || c.Confidence >= cur.c.Confidence {
			best[k] = slot{idx: i, c: c}
		}
	}

	out := make([]Candidate, 0, len(best))
	for _, s := range best {
		out = append(out, s.c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category+out[i].Key < out[j].Category+out[j].Key })
	return out
}

// valuesEqual treats two values as equal when they're the same scalar
// after case/whitespace normalization, or the same structural value.
func valuesEqual(a, b any) bool {
	as, aIsString := a.(string)
	bs, bIsString := b.(string)
	if aIsString && bIsString {
		return strings.EqualFold(strings.TrimSpace(as), strings.TrimSpace(bs))
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// rawCandidate mirrors the JSON shape the extraction prompt asks the
// model for: a flat array of category/key/value/confidence objects.
type rawCandidate struct {
	Category   string  `json:"category"`
	Key        string  `json:"key"`
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
}

// decodeCandidates parses the model's completion content into
// Candidates. The model is asked for a bare JSON array but sometimes
// wraps it in prose, so this scans for the outermost [ ... ] span
// before unmarshaling.
func decodeCandidates(content string) ([]Candidate, error) {
	start := strings.IndexByte(content, '[')
	end := strings.LastIndexByte(content, ']')
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON array found in completion content")
	}

	var raw []rawCandidate
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal candidates: %w", err)
	}

	out := make([]Candidate, 0, len(raw))
	for _, r := range raw {
		if r.Category == "" || r.Key == "" {
			continue
		}
		out = append(out, Candidate{
			Category:   r.Category,
			Key:        r.Key,
			Value:      r.Value,
			Confidence: r.Confidence,
		})
	}
	return out, nil
}
