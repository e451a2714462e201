package contracts

// PointSource marks how a history point was constructed. Live points are
// mark-to-market snapshots taken on dashboard reads; ledger points come
// from replaying the transaction log as a cash-flow running total. The two
// series answer different questions and are never mixed within one rebuild.
type PointSource string

const (
	PointLive   PointSource = "live"
	PointLedger PointSource = "ledger"
)

// HistoryPoint is one sample of a portfolio's value over time. Source is
// omitted from older snapshots and tolerated as absent on restore.
type HistoryPoint struct {
	Time   Timestamp   `json:"time"`
	Value  float64     `json:"value"`
	Source PointSource `json:"source,omitempty"`
}
