package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/ekaya-inc/growth-engine/pkg/locale"
	"github.com/ekaya-inc/growth-engine/pkg/models"
	"github.com/ekaya-inc/growth-engine/pkg/services"
)

// Output formats of the analyze command.
const (
	outputTable = "table"
	outputJSON  = "json"
)

var (
	highColor   = color.New(color.FgGreen, color.Bold)
	mediumColor = color.New(color.FgYellow)
	lowColor    = color.New(color.FgHiBlack)
	failColor   = color.New(color.FgRed, color.Bold)
	headColor   = color.New(color.Bold)
)

func tierLabel(t models.ImpactTier) string {
	switch t {
	case models.TierHigh:
		return highColor.Sprint("ALTA")
	case models.TierMedium:
		return mediumColor.Sprint("MÉDIA")
	case models.TierLow:
		return lowColor.Sprint("BAIXA")
	}
	return string(t)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printAnalysis renders one finished analysis: a header with the store's
// health, the curated slate as a table and the review summary.
func printAnalysis(w io.Writer, a *models.Analysis) error {
	if _, err := headColor.Fprintf(w, "Análise %s (%s)\n", a.ID, a.Status); err != nil {
		return err
	}
	if a.Profile != nil {
		p := a.Profile.Profile
		fmt.Fprintf(w, "Perfil: %s / %s, porte %s, maturidade %s\n", p.Niche, p.SubNiche, p.SizeTier, p.DigitalMaturity)
	}
	if a.Metrics != nil {
		h := a.Metrics.Metrics.Health
		if h.Score != nil {
			fmt.Fprintf(w, "Saúde: %d (%s)\n", *h.Score, h.Classification)
		} else {
			fmt.Fprintf(w, "Saúde: %s\n", h.Classification)
		}
	}
	if a.Status == models.AnalysisStatusFailed && a.ErrorMessage != nil {
		_, err := failColor.Fprintf(w, "Falhou: %s\n", *a.ErrorMessage)
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"#", "Nível", "Categoria", "Sugestão", "Resultado esperado", "Qualidade", "Revisão"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	for i, s := range a.Suggestions {
		quality, review := "-", "-"
		if s.Review != nil {
			quality = locale.FormatNumber(s.Review.QualityScore)
			review = string(s.Review.State)
		}
		data = append(data, []string{
			strconv.Itoa(i + 1),
			tierLabel(s.Tier),
			string(s.Category),
			s.Title,
			expectedResult(s.ExpectedResult),
			quality,
			review,
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if a.Quality != nil {
		fmt.Fprintf(w, "Qualidade média: %s", locale.FormatNumber(a.Quality.AverageQuality))
		if a.Quality.Rescored {
			fmt.Fprint(w, " (reavaliada)")
		}
		fmt.Fprintf(w, "; justificativa externa %d/%d", a.Quality.External.Met, a.Quality.External.Required)
		if a.Quality.External.Waived {
			fmt.Fprint(w, " (dispensada)")
		}
		fmt.Fprintln(w)
	}
	if g := a.GoalCoverage; g != nil {
		line := fmt.Sprintf("Meta: %s de %s cobertos (%s)", locale.FormatBRL(g.Covered), locale.FormatBRL(g.Gap), locale.FormatPercent(g.Ratio*100))
		if g.Met {
			_, err := highColor.Fprintln(w, line)
			return err
		}
		_, err := mediumColor.Fprintln(w, line)
		return err
	}
	return nil
}

func expectedResult(r models.ExpectedResult) string {
	switch r.Unit {
	case models.UnitBRL:
		return locale.FormatBRL(r.Value) + "/mês"
	case models.UnitPercent:
		return locale.FormatPercent(r.Value)
	}
	return r.Description
}

// printBatch renders one row per store of a batch run.
func printBatch(w io.Writer, outcomes []services.BatchOutcome) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Loja", "Status", "Saúde", "Sugestões", "Erro"})

	var data [][]string
	failed := 0
	for _, o := range outcomes {
		status, health, count, errText := "-", "-", "0", ""
		if o.Analysis != nil {
			status = string(o.Analysis.Status)
			count = strconv.Itoa(len(o.Analysis.Suggestions))
			if o.Analysis.Metrics != nil && o.Analysis.Metrics.Metrics.Health.Score != nil {
				health = strconv.Itoa(*o.Analysis.Metrics.Metrics.Health.Score)
			}
		}
		if o.Err != nil {
			failed++
			status = failColor.Sprint("failed")
			errText = o.Err.Error()
		}
		data = append(data, []string{o.StoreID.String(), status, health, count, errText})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d lojas analisadas, %d com falha\n", len(outcomes), failed)
	return err
}
