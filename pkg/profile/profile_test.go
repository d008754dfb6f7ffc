package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/growth-engine/pkg/models"
)

func ptrF(v float64) *float64 { return &v }
func ptrI(v int) *int         { return &v }

func TestSizeTierFor(t *testing.T) {
	assert.Equal(t, models.SizeUndetermined, SizeTierFor(nil))
	assert.Equal(t, models.SizeMicro, SizeTierFor(ptrF(9_999)))
	assert.Equal(t, models.SizeSmall, SizeTierFor(ptrF(10_000)))
	assert.Equal(t, models.SizeMedium, SizeTierFor(ptrF(50_000)))
	assert.Equal(t, models.SizeLarge, SizeTierFor(ptrF(200_000)))
}

func TestMaturityFor(t *testing.T) {
	none := models.MaturitySignals{}
	strong := models.MaturitySignals{CustomDomain: true, EmailMarketing: true, ReviewsEnabled: true, PaidTraffic: true}

	tests := []struct {
		name    string
		visits  *int
		signals models.MaturitySignals
		want    models.MaturityTier
	}{
		// Scenario C: 500 visits and no signal is a beginner, never advanced.
		{"500 visits no signals", ptrI(500), none, models.MaturityBeginner},
		{"5k visits", ptrI(5_000), none, models.MaturityIntermediate},
		{"20k visits no signals", ptrI(20_000), none, models.MaturityIntermediate},
		{"20k visits with signals", ptrI(20_000), strong, models.MaturityAdvanced},
		{"500 visits strong signals", ptrI(500), strong, models.MaturityIntermediate},
		{"no visits no signals", nil, none, models.MaturityUndetermined},
		{"no visits strong signals", nil, strong, models.MaturityAdvanced},
		{"no visits two signals", nil, models.MaturitySignals{CustomDomain: true, SocialChannels: 3}, models.MaturityIntermediate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaturityFor(tt.visits, tt.signals))
		})
	}
}

func TestFilterDifferentiators(t *testing.T) {
	kept, rejected := FilterDifferentiators([]string{
		"Entrega em até 2 dias úteis",
		"Atendimento excelente",
		"  ",
		"Mais de 300 avaliações 5 estrelas",
	})
	assert.Equal(t, []string{"Entrega em até 2 dias úteis", "Mais de 300 avaliações 5 estrelas"}, kept)
	assert.Equal(t, []string{"Atendimento excelente"}, rejected)
}

func TestUpcomingEvents(t *testing.T) {
	now := time.Date(2026, time.October, 19, 15, 0, 0, 0, time.UTC)
	events := UpcomingEvents(now, EventWindowDays)

	var names []string
	for _, e := range events {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"Black Friday", "Cyber Monday", "Natal"}, names)
	assert.Equal(t, time.Date(2026, time.November, 27, 0, 0, 0, 0, time.UTC), events[0].Date)
	assert.Equal(t, 39, events[0].DaysAway)
}

func TestUpcomingEvents_CrossesYear(t *testing.T) {
	now := time.Date(2026, time.December, 20, 0, 0, 0, 0, time.UTC)
	events := UpcomingEvents(now, EventWindowDays)
	require.NotEmpty(t, events)
	assert.Equal(t, "Natal", events[0].Name)
	assert.Equal(t, 5, events[0].DaysAway)
	for _, e := range events {
		assert.LessOrEqual(t, e.DaysAway, EventWindowDays)
	}
}

func TestCalendarDates(t *testing.T) {
	loc := time.UTC
	assert.Equal(t, time.Date(2026, time.April, 5, 0, 0, 0, 0, loc), easter(2026, loc))
	assert.Equal(t, time.Date(2026, time.May, 10, 0, 0, 0, 0, loc), nthWeekday(time.May, time.Sunday, 2)(2026, loc))
	assert.Equal(t, time.Date(2025, time.November, 28, 0, 0, 0, 0, loc), blackFriday(2025, loc))
}

func TestFinalize(t *testing.T) {
	in := models.ProfileInput{
		Store: models.StoreInput{
			Name:        "Loja Aurora",
			Niche:       "moda feminina",
			Subcategory: "",
			Stats:       models.StoreStats{MonthlyRevenue: ptrF(32_000), MonthlyVisits: ptrI(500)},
		},
		Date: time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC),
	}
	draft := models.ProfileResult{
		Profile: models.StoreProfile{
			SizeTier:        models.SizeLarge,
			DigitalMaturity: models.MaturityAdvanced,
			TargetAudience:  "Mulheres de 25 a 40 anos",
			Differentiators: []string{"Peças exclusivas", "Frete fixo de R$ 9,90"},
		},
		Context: models.AnalysisContext{InitialObservations: []string{"Sales are stable", "Receita concentrada em vestidos"}},
	}

	got := Finalize(draft, in)
	p := got.Profile
	assert.Equal(t, "moda feminina", p.Niche)
	assert.Equal(t, models.Undetermined, p.SubNiche)
	assert.Equal(t, models.Undetermined, p.Positioning)
	assert.Equal(t, models.SizeSmall, p.SizeTier)
	assert.Equal(t, models.MaturityBeginner, p.DigitalMaturity)
	assert.Equal(t, []string{"Frete fixo de R$ 9,90"}, p.Differentiators)
	assert.Equal(t, []string{"Peças exclusivas"}, got.RejectedDifferentials)
	assert.Equal(t, []string{"Receita concentrada em vestidos"}, got.Context.InitialObservations)
	assert.NotEmpty(t, got.Context.UpcomingEvents)
	assert.Equal(t, in.Date, got.Context.Date)
}
