package models

import "time"

// Undetermined is emitted for any profile field the input data cannot support.
const Undetermined = "indeterminado"

// StoreInput identifies a store and carries its pre-aggregated statistics.
type StoreInput struct {
	Name        string          `json:"name"`
	Platform    string          `json:"platform"`
	Niche       string          `json:"niche"`
	Subcategory string          `json:"subcategory,omitempty"`
	URL         string          `json:"url,omitempty"`
	Stats       StoreStats      `json:"stats"`
	Goals       StoreGoals      `json:"goals"`
	Signals     MaturitySignals `json:"signals"`
}

// StoreStats are raw statistics synced from the e-commerce platform.
// Nil means the metric is unknown, not zero.
type StoreStats struct {
	MonthlyRevenue     *float64    `json:"monthly_revenue"`
	MonthlyOrders      *int        `json:"monthly_orders"`
	MonthlyVisits      *int        `json:"monthly_visits"`
	ActiveProducts     *int        `json:"active_products"`
	TotalCustomers     *int        `json:"total_customers"`
	RepeatCustomerRate *float64    `json:"repeat_customer_rate"`
	TenureMonths       *int        `json:"tenure_months"`
	PriceRange         *PriceRange `json:"price_range,omitempty"`
	TopProducts        []string    `json:"top_products,omitempty"`
	Categories         []string    `json:"categories,omitempty"`
}

// PriceRange is the catalog price span in BRL.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// StoreGoals are the merchant's declared targets.
type StoreGoals struct {
	MonthlyRevenue *float64 `json:"monthly_revenue"`
	AnnualRevenue  *float64 `json:"annual_revenue"`
	TargetTicket   *float64 `json:"target_ticket"`
	MonthlyVisits  *int     `json:"monthly_visits"`
}

// MonthlyGap returns goal minus current monthly revenue, or nil when either is
// unknown or the goal is already met.
func (g StoreGoals) MonthlyGap(currentRevenue *float64) *float64 {
	if g.MonthlyRevenue == nil || currentRevenue == nil {
		return nil
	}
	gap := *g.MonthlyRevenue - *currentRevenue
	if gap <= 0 {
		return nil
	}
	return &gap
}

// MaturitySignals are qualitative digital-maturity indicators.
type MaturitySignals struct {
	CustomDomain   bool `json:"custom_domain"`
	InstalledApps  int  `json:"installed_apps"`
	EmailMarketing bool `json:"email_marketing"`
	SocialChannels int  `json:"social_channels"`
	ReviewsEnabled bool `json:"reviews_enabled"`
	PaidTraffic    bool `json:"paid_traffic"`
}

// Count returns how many signals are present.
func (s MaturitySignals) Count() int {
	n := 0
	if s.CustomDomain {
		n++
	}
	if s.InstalledApps >= 3 {
		n++
	}
	if s.EmailMarketing {
		n++
	}
	if s.SocialChannels >= 2 {
		n++
	}
	if s.ReviewsEnabled {
		n++
	}
	if s.PaidTraffic {
		n++
	}
	return n
}

// SizeTier is the estimated business size.
type SizeTier string

const (
	SizeMicro        SizeTier = "micro"
	SizeSmall        SizeTier = "pequena"
	SizeMedium       SizeTier = "media"
	SizeLarge        SizeTier = "grande"
	SizeUndetermined SizeTier = Undetermined
)

// MaturityTier is the store's digital maturity.
type MaturityTier string

const (
	MaturityBeginner     MaturityTier = "iniciante"
	MaturityIntermediate MaturityTier = "intermediario"
	MaturityAdvanced     MaturityTier = "avancado"
	MaturityUndetermined MaturityTier = Undetermined
)

// StoreProfile is the synthesized, read-only snapshot used by every later stage.
type StoreProfile struct {
	Niche            string       `json:"nicho"`
	SubNiche         string       `json:"subnicho"`
	SizeTier         SizeTier     `json:"porte"`
	DigitalMaturity  MaturityTier `json:"maturidade_digital"`
	TargetAudience   string       `json:"publico_alvo"`
	Positioning      string       `json:"posicionamento"`
	Differentiators  []string     `json:"diferenciais"`
	SeasonalityNotes []string     `json:"sazonalidade"`
}

// SeasonalEvent is a retail calendar date relevant to the analysis window.
type SeasonalEvent struct {
	Name     string    `json:"nome"`
	Date     time.Time `json:"data"`
	DaysAway int       `json:"dias_restantes"`
}

// AnalysisContext accompanies the profile.
type AnalysisContext struct {
	Date                time.Time       `json:"data"`
	UpcomingEvents      []SeasonalEvent `json:"eventos_proximos"`
	InitialObservations []string        `json:"observacoes_iniciais"`
}

// ProfileResult is the Profile Synthesizer output.
type ProfileResult struct {
	Profile               StoreProfile    `json:"perfil_loja"`
	Context               AnalysisContext `json:"contexto_analise"`
	RejectedDifferentials []string        `json:"diferenciais_rejeitados,omitempty"`
}
