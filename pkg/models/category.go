package models

import (
	"fmt"
	"strings"
)

// SuggestionCategory is the closed set of suggestion categories.
type SuggestionCategory string

const (
	CategoryStrategy    SuggestionCategory = "strategy"
	CategoryInvestment  SuggestionCategory = "investment"
	CategoryMarket      SuggestionCategory = "market"
	CategoryGrowth      SuggestionCategory = "growth"
	CategoryFinancial   SuggestionCategory = "financial"
	CategoryPositioning SuggestionCategory = "positioning"
	CategoryInventory   SuggestionCategory = "inventory"
	CategoryPricing     SuggestionCategory = "pricing"
	CategoryProduct     SuggestionCategory = "product"
	CategoryCustomer    SuggestionCategory = "customer"
	CategoryConversion  SuggestionCategory = "conversion"
	CategoryMarketing   SuggestionCategory = "marketing"
	CategoryCoupon      SuggestionCategory = "coupon"
	CategoryOperational SuggestionCategory = "operational"
)

// AllCategories lists every category in a stable order.
var AllCategories = []SuggestionCategory{
	CategoryStrategy,
	CategoryInvestment,
	CategoryMarket,
	CategoryGrowth,
	CategoryFinancial,
	CategoryPositioning,
	CategoryInventory,
	CategoryPricing,
	CategoryProduct,
	CategoryCustomer,
	CategoryConversion,
	CategoryMarketing,
	CategoryCoupon,
	CategoryOperational,
}

// StrategicCategories are the only categories allowed in the HIGH tier.
var StrategicCategories = []SuggestionCategory{
	CategoryStrategy,
	CategoryInvestment,
	CategoryMarket,
	CategoryGrowth,
	CategoryFinancial,
	CategoryPositioning,
}

// IsValid reports whether c is a known category.
func (c SuggestionCategory) IsValid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// IsStrategic reports whether c is a business-level category.
func (c SuggestionCategory) IsStrategic() bool {
	for _, s := range StrategicCategories {
		if c == s {
			return true
		}
	}
	return false
}

// ParseCategory normalizes and validates a category string.
func ParseCategory(s string) (SuggestionCategory, error) {
	c := SuggestionCategory(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("unknown suggestion category %q", s)
	}
	return c, nil
}

// ImpactTier classifies a suggestion by expected impact.
type ImpactTier string

const (
	TierHigh   ImpactTier = "high"
	TierMedium ImpactTier = "medium"
	TierLow    ImpactTier = "low"
)

// AllTiers lists tiers from highest to lowest impact.
var AllTiers = []ImpactTier{TierHigh, TierMedium, TierLow}

// IsValid reports whether t is a known tier.
func (t ImpactTier) IsValid() bool {
	return t == TierHigh || t == TierMedium || t == TierLow
}

// ParseTier normalizes a tier string. Portuguese labels are accepted.
func ParseTier(s string) (ImpactTier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "alta", "alto", "estrategica", "estratégica":
		return TierHigh, nil
	case "medium", "media", "média", "medio", "médio":
		return TierMedium, nil
	case "low", "baixa", "baixo":
		return TierLow, nil
	}
	return "", fmt.Errorf("unknown impact tier %q", s)
}

// DataSource tags where a suggestion's justification comes from.
type DataSource string

const (
	DataSourceDirect       DataSource = "dado_direto"
	DataSourceInference    DataSource = "inferencia"
	DataSourceBestPractice DataSource = "boas_praticas"
)

// IsValid reports whether d is a known data source tag.
func (d DataSource) IsValid() bool {
	return d == DataSourceDirect || d == DataSourceInference || d == DataSourceBestPractice
}

// ImplementationType describes how an action is delivered on the platform.
type ImplementationType string

const (
	ImplementationNative     ImplementationType = "nativo"
	ImplementationApp        ImplementationType = "app"
	ImplementationThirdParty ImplementationType = "terceiro"
)

// IsValid reports whether i is a known implementation type.
func (i ImplementationType) IsValid() bool {
	return i == ImplementationNative || i == ImplementationApp || i == ImplementationThirdParty
}

// Complexity is the implementation effort.
type Complexity string

const (
	ComplexityLow    Complexity = "baixa"
	ComplexityMedium Complexity = "media"
	ComplexityHigh   Complexity = "alta"
)

// ConfidenceLevel is the model's stated confidence in a suggestion.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "alta"
	ConfidenceMedium ConfidenceLevel = "media"
	ConfidenceLow    ConfidenceLevel = "baixa"
)

// ReviewState is the Critic's final verdict for a curated suggestion.
type ReviewState string

const (
	ReviewApproved ReviewState = "approved"
	ReviewImproved ReviewState = "improved"
	ReviewReplaced ReviewState = "replaced"
)

// VerificationCheck names a step of the review protocol.
type VerificationCheck string

// Checks run in this order for every reviewed suggestion.
const (
	CheckNumeric     VerificationCheck = "numeric"
	CheckOriginality VerificationCheck = "originality"
	CheckSpecificity VerificationCheck = "specificity"
	CheckFeasibility VerificationCheck = "feasibility"
	CheckImpact      VerificationCheck = "impact"
	CheckAlignment   VerificationCheck = "alignment"
	CheckAction      VerificationCheck = "action_quality"
)

// VerificationOrder is the mandatory order of the review protocol.
var VerificationOrder = []VerificationCheck{
	CheckNumeric,
	CheckOriginality,
	CheckSpecificity,
	CheckFeasibility,
	CheckImpact,
	CheckAlignment,
	CheckAction,
}
