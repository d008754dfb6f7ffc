package models

// StrategySnippet is a retrieved playbook excerpt used to ground suggestions.
type StrategySnippet struct {
	ID       string             `json:"id"`
	Niche    string             `json:"niche"`
	Category SuggestionCategory `json:"category"`
	Title    string             `json:"title"`
	Content  string             `json:"content"`
	Source   string             `json:"source,omitempty"`
}

// KnowledgeBundle is everything retrieved from the knowledge store for a run.
type KnowledgeBundle struct {
	Benchmarks   *NicheBenchmarks  `json:"benchmarks,omitempty"`
	Strategies   []StrategySnippet `json:"strategies,omitempty"`
	MarketTrends []string          `json:"market_trends,omitempty"`
}
