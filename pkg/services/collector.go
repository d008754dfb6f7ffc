package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/growth-engine/pkg/jsonutil"
	"github.com/ekaya-inc/growth-engine/pkg/llm"
	"github.com/ekaya-inc/growth-engine/pkg/locale"
	"github.com/ekaya-inc/growth-engine/pkg/models"
	"github.com/ekaya-inc/growth-engine/pkg/services/dag"
	"github.com/ekaya-inc/growth-engine/pkg/similarity"
)

type collectorDraft struct {
	HistoricalSummary  []string                          `json:"historical_summary"`
	SuccessPatterns    []string                          `json:"success_patterns"`
	SuggestionsToAvoid []string                          `json:"suggestions_to_avoid"`
	RelevantBenchmarks map[string]jsonutil.FlexibleFloat `json:"relevant_benchmarks"`
	IdentifiedGaps     []string                          `json:"identified_gaps"`
	SpecialContext     jsonutil.FlexibleString           `json:"special_context"`
}

var collectorKeys = []string{
	"historical_summary", "success_patterns", "suggestions_to_avoid",
	"relevant_benchmarks", "identified_gaps", "special_context",
}

// collectorService implements dag.CollectorMethods.
type collectorService struct {
	renderer  PromptRenderer
	caller    *stageCaller
	threshold float64
	logger    *zap.Logger
}

// NewCollector creates the collector stage. threshold is the title
// similarity above which a success pattern counts as referencing a title.
func NewCollector(gen llm.TextGenerator, renderer PromptRenderer, settings StageSettings, threshold float64, logger *zap.Logger) Collector {
	logger = logger.Named("collector")
	return &collectorService{
		renderer:  renderer,
		caller:    newStageCaller(gen, settings, logger),
		threshold: threshold,
		logger:    logger,
	}
}

var _ dag.CollectorMethods = (*collectorService)(nil)

// Collect asks the model for the digest and then restricts it to what the
// history and the knowledge bundle actually support.
func (s *collectorService) Collect(ctx context.Context, in *models.CollectorInput) (*models.CollectorDigest, error) {
	resp, err := callStage[collectorDraft](ctx, s.caller, stageRequest{
		prompt:       s.renderer.Collector(in),
		required:     collectorKeys,
		skipLanguage: []string{"relevant_benchmarks"},
	})
	if err != nil {
		return nil, fmt.Errorf("collector: %w", err)
	}
	draft := resp.Value

	var benchmarks *models.NicheBenchmarks
	if in.Knowledge != nil {
		benchmarks = in.Knowledge.Benchmarks
	}
	digest := &models.CollectorDigest{
		HistoricalSummary:  nonNil(draft.HistoricalSummary),
		SuccessPatterns:    s.successPatterns(draft.SuccessPatterns, in.History),
		SuggestionsToAvoid: avoidList(draft.SuggestionsToAvoid, in.History),
		RelevantBenchmarks: relevantBenchmarks(draft.RelevantBenchmarks, benchmarks),
		IdentifiedGaps:     nonNil(draft.IdentifiedGaps),
		SpecialContext:     string(draft.SpecialContext),
	}
	return digest, nil
}

// successPatterns keeps only patterns that reference a title the store
// accepted, started or completed, then lists the unreferenced ones.
func (s *collectorService) successPatterns(proposed []string, history []models.HistoricalSuggestion) []string {
	var titles []string
	for _, h := range history {
		if h.Status.IsSuccess() {
			titles = append(titles, h.Title)
		}
	}
	out := []string{}
	if len(titles) == 0 {
		return out
	}

	referenced := make(map[string]bool, len(titles))
	for _, p := range proposed {
		hit := false
		for _, t := range titles {
			if locale.ContainsTerm(p, t) || similarity.TitleSimilarity(p, t) >= s.threshold {
				referenced[t] = true
				hit = true
			}
		}
		if hit {
			out = append(out, p)
		} else {
			s.logger.Debug("Dropped success pattern without a successful suggestion", zap.String("pattern", p))
		}
	}
	for _, t := range titles {
		if !referenced[t] {
			out = append(out, t)
		}
	}
	return out
}

// avoidList is the model's list plus every rejected title, without repeats.
func avoidList(proposed []string, history []models.HistoricalSuggestion) []string {
	out := []string{}
	seen := make(map[string]bool)
	add := func(s string) {
		key := locale.Normalize(s)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, s)
	}
	for _, p := range proposed {
		add(p)
	}
	for _, h := range history {
		if h.Status == models.SuggestionStatusRejected {
			add(h.Title)
		}
	}
	return out
}

// relevantBenchmarks keeps the model's selection of retrieved figures with
// the retrieved values. With no selection, every figure is relevant.
func relevantBenchmarks(proposed map[string]jsonutil.FlexibleFloat, bench *models.NicheBenchmarks) map[string]float64 {
	figures := bench.Figures()
	out := make(map[string]float64)
	keys := make([]string, 0, len(proposed))
	for k := range proposed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		key := strings.ToLower(strings.TrimSpace(k))
		if v, ok := figures[key]; ok {
			out[key] = v
		}
	}
	if len(out) == 0 {
		for k, v := range figures {
			out[k] = v
		}
	}
	return out
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
