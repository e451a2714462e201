package contracts

// FallbackPortfolioName is the portfolio name used when a snapshot does not
// carry one and when the store has to create a portfolio lazily.
const FallbackPortfolioName = "Default"

// Snapshot is the full serialized state of the store, used for
// backup/restore. Restore accepts exactly what serialize produces; fields
// absent from an uploaded document fall back to empty collections and the
// fallback default name rather than erroring.
type Snapshot struct {
	Portfolios       map[string]*Portfolio     `json:"portfolios"`
	History          map[string][]HistoryPoint `json:"history"`
	DefaultPortfolio string                    `json:"defaultPortfolio"`
}

// Normalize fills absent fields with their defaults after JSON decoding
func (s *Snapshot) Normalize() {
	if s.Portfolios == nil {
		s.Portfolios = make(map[string]*Portfolio)
	}
	for _, p := range s.Portfolios {
		p.Normalize()
	}
	if s.History == nil {
		s.History = make(map[string][]HistoryPoint)
	}
	if s.DefaultPortfolio == "" {
		s.DefaultPortfolio = FallbackPortfolioName
	}
}
