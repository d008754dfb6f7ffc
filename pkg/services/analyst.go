package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/growth-engine/pkg/health"
	"github.com/ekaya-inc/growth-engine/pkg/jsonutil"
	"github.com/ekaya-inc/growth-engine/pkg/llm"
	"github.com/ekaya-inc/growth-engine/pkg/models"
	"github.com/ekaya-inc/growth-engine/pkg/services/dag"
)

type analystDraft struct {
	Anomalies []struct {
		Type           models.AnomalyType      `json:"tipo"`
		Description    jsonutil.FlexibleString `json:"descricao"`
		ImpactEstimate *jsonutil.FlexibleFloat `json:"impacto_estimado"`
	} `json:"anomalies"`
	Patterns    []string `json:"identified_patterns"`
	DataQuality struct {
		MissingMetrics  []string `json:"missing_metrics"`
		Recommendations []string `json:"recommendations"`
	} `json:"data_quality"`
}

// analystService implements dag.AnalystMethods.
type analystService struct {
	renderer PromptRenderer
	caller   *stageCaller
	logger   *zap.Logger
}

// NewAnalyst creates the analyst stage.
func NewAnalyst(gen llm.TextGenerator, renderer PromptRenderer, settings StageSettings, logger *zap.Logger) Analyst {
	logger = logger.Named("analyst")
	return &analystService{
		renderer: renderer,
		caller:   newStageCaller(gen, settings, logger),
		logger:   logger,
	}
}

var _ dag.AnalystMethods = (*analystService)(nil)

// Analyze computes everything numeric in Go. The model only narrates: it
// may rewrite the description and estimate the impact of an anomaly that a
// rule already fired, and it contributes patterns.
func (s *analystService) Analyze(ctx context.Context, in *models.AnalystInput) (*models.AnalystResult, error) {
	metrics, quality := health.ComputeMetrics(in.Period, in.Benchmarks)
	anomalies := health.DetectAnomalies(in.Period, metrics)
	computed := &models.AnalystResult{
		Metrics:     metrics,
		Anomalies:   anomalies,
		Patterns:    []string{},
		DataQuality: quality,
		Priorities:  health.Priorities(anomalies, metrics.Health),
	}

	resp, err := callStage[analystDraft](ctx, s.caller, stageRequest{
		prompt:       s.renderer.Analyst(in, computed),
		required:     []string{"anomalies", "identified_patterns", "data_quality"},
		skipLanguage: []string{"tipo", "missing_metrics"},
	})
	if err != nil {
		return nil, fmt.Errorf("analyst: %w", err)
	}
	draft := resp.Value

	fired := make(map[models.AnomalyType]int, len(computed.Anomalies))
	for i, a := range computed.Anomalies {
		fired[a.Type] = i
	}
	for _, proposed := range draft.Anomalies {
		i, ok := fired[proposed.Type]
		if !ok {
			s.logger.Debug("Discarded anomaly without a firing rule", zap.String("type", string(proposed.Type)))
			continue
		}
		if d := string(proposed.Description); d != "" {
			computed.Anomalies[i].Description = d
		}
		if proposed.ImpactEstimate != nil && proposed.ImpactEstimate.Float() > 0 {
			impact := proposed.ImpactEstimate.Float()
			computed.Anomalies[i].ImpactEstimate = &impact
		}
	}

	computed.Patterns = nonNil(draft.Patterns)
	computed.DataQuality.Recommendations = mergeStrings(computed.DataQuality.Recommendations, draft.DataQuality.Recommendations)
	return computed, nil
}

// mergeStrings appends the items of extra that base does not contain.
func mergeStrings(base, extra []string) []string {
	seen := make(map[string]bool, len(base))
	out := make([]string, 0, len(base)+len(extra))
	for _, s := range base {
		seen[s] = true
		out = append(out, s)
	}
	for _, s := range extra {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
