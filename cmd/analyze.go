package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/growth-engine/pkg/models"
	"github.com/ekaya-inc/growth-engine/pkg/services"
)

// storeNamespace derives stable store ids from store names so repeated runs
// of the same bundle share their history.
var storeNamespace = uuid.MustParse("6f1c9a52-3b0e-4f8d-9a57-2d1f0c7be4a1")

var (
	analyzeInputs      []string
	analyzeOutput      string
	analyzePersist     bool
	analyzeConcurrency int
)

// analysisBundle is one store's input file. Besides the request it may carry
// what the store's earlier runs and the knowledge base would provide.
type analysisBundle struct {
	models.AnalysisRequest
	History      []models.HistoricalSuggestion `json:"history,omitempty"`
	Benchmarks   *models.NicheBenchmarks       `json:"benchmarks,omitempty"`
	Strategies   []models.StrategySnippet      `json:"strategies,omitempty"`
	MarketTrends []string                      `json:"market_trends,omitempty"`
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the analysis pipeline on store bundles.",
	Long: `Run the full six-stage analysis for one or more stores and print the
curated suggestions.

Each input file holds one bundle or a JSON array of bundles. A bundle is an
analysis request ("store", "period", "prior_analyses", "competitors") plus
optional "history", "benchmarks", "strategies" and "market_trends" used to
seed the in-memory store. Several stores run concurrently.

Examples:
  # Analyze one store
  growth-engine analyze --input loja.json

  # Analyze a batch and keep the results in PostgreSQL
  growth-engine analyze --input lojas.json --persist --concurrency 2

  # Machine-readable output
  growth-engine analyze --input loja.json --output json`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringSliceVarP(&analyzeInputs, "input", "i", nil, "Bundle file(s) to analyze")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", outputTable, "Output format: table or json")
	analyzeCmd.Flags().BoolVar(&analyzePersist, "persist", false, "Store analyses in PostgreSQL instead of memory")
	analyzeCmd.Flags().IntVar(&analyzeConcurrency, "concurrency", 0, "Stores analyzed at once (default from config)")
	_ = analyzeCmd.MarkFlagRequired("input")
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	if analyzeOutput != outputTable && analyzeOutput != outputJSON {
		return fmt.Errorf("unknown output format %q", analyzeOutput)
	}

	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	bundles, err := readBundles(analyzeInputs)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store := memoryStorage()
	if analyzePersist {
		if store, err = postgresStorage(ctx, cfg, logger); err != nil {
			return err
		}
	}
	if err := seedBundles(ctx, store, bundles, logger); err != nil {
		store.close()
		return err
	}

	eng, err := buildEngine(ctx, cfg, store, nil, logger)
	if err != nil {
		store.close()
		return err
	}
	defer eng.close(context.Background())

	out := cmd.OutOrStdout()
	if len(bundles) == 1 {
		analysis, err := eng.pipeline.Run(ctx, &bundles[0].AnalysisRequest)
		if err != nil {
			return err
		}
		if analyzeOutput == outputJSON {
			return writeJSON(out, analysis)
		}
		return printAnalysis(out, analysis)
	}

	concurrency := analyzeConcurrency
	if concurrency <= 0 {
		concurrency = cfg.Pipeline.BatchConcurrency
	}
	reqs := make([]*models.AnalysisRequest, len(bundles))
	for i := range bundles {
		reqs[i] = &bundles[i].AnalysisRequest
	}
	outcomes := services.NewBatchRunner(eng.pipeline, concurrency, logger).Run(ctx, reqs)

	if analyzeOutput == outputJSON {
		return writeJSON(out, batchJSON(outcomes))
	}
	for _, o := range outcomes {
		if o.Analysis == nil {
			continue
		}
		if err := printAnalysis(out, o.Analysis); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
	return printBatch(out, outcomes)
}

// readBundles parses every input file. Bundles without a store id get one
// derived from the store name.
func readBundles(paths []string) ([]analysisBundle, error) {
	var bundles []analysisBundle
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		parsed, err := parseBundles(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		bundles = append(bundles, parsed...)
	}
	if len(bundles) == 0 {
		return nil, fmt.Errorf("no bundles in %s", strings.Join(paths, ", "))
	}

	for i := range bundles {
		b := &bundles[i]
		if b.StoreID == uuid.Nil {
			key := b.Store.URL
			if key == "" {
				key = b.Store.Name
			}
			b.StoreID = uuid.NewSHA1(storeNamespace, []byte(strings.ToLower(strings.TrimSpace(key))))
		}
	}
	return bundles, nil
}

func parseBundles(data []byte) ([]analysisBundle, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []analysisBundle
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var one analysisBundle
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, err
	}
	return []analysisBundle{one}, nil
}

// seedBundles writes each bundle's knowledge into the knowledge store and,
// for an in-memory store, its suggestion history.
func seedBundles(ctx context.Context, store *storage, bundles []analysisBundle, logger *zap.Logger) error {
	for _, b := range bundles {
		// Knowledge is looked up by the normalized niche.
		niche := strings.ToLower(strings.TrimSpace(b.Store.Niche))
		if b.Benchmarks != nil {
			bench := *b.Benchmarks
			if bench.Niche == "" {
				bench.Niche = niche
			}
			if err := store.knowledge.UpsertBenchmarks(ctx, &bench); err != nil {
				return fmt.Errorf("seed benchmarks: %w", err)
			}
		}
		for _, s := range b.Strategies {
			s := s
			if s.Niche == "" {
				s.Niche = niche
			}
			if s.ID == "" {
				s.ID = uuid.NewString()
			}
			if err := store.knowledge.UpsertStrategy(ctx, &s); err != nil {
				return fmt.Errorf("seed strategy %q: %w", s.Title, err)
			}
		}
		for _, t := range b.MarketTrends {
			if err := store.knowledge.AddTrend(ctx, niche, t); err != nil {
				return fmt.Errorf("seed trend: %w", err)
			}
		}

		if len(b.History) == 0 {
			continue
		}
		if store.memory == nil {
			logger.Warn("Ignoring bundle history; persisted runs use the stored history",
				zap.String("store_id", b.StoreID.String()),
				zap.Int("items", len(b.History)))
			continue
		}
		store.memory.SeedHistory(b.StoreID, b.History)
	}
	return nil
}

type batchJSONEntry struct {
	StoreID  uuid.UUID        `json:"store_id"`
	Analysis *models.Analysis `json:"analysis,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func batchJSON(outcomes []services.BatchOutcome) []batchJSONEntry {
	out := make([]batchJSONEntry, len(outcomes))
	for i, o := range outcomes {
		out[i] = batchJSONEntry{StoreID: o.StoreID, Analysis: o.Analysis}
		if o.Err != nil {
			out[i].Error = o.Err.Error()
		}
	}
	return out
}
