// Package history produces portfolio value-over-time points. Two sources
// feed the same series: live mark-to-market snapshots appended as prices
// are fetched, and a deterministic replay of the transaction ledger used
// whenever the ledger itself changes.
package history

import (
	"sort"
	"time"

	"github.com/hyowon/folio/internal/contracts"
)

// LivePoint values the portfolio at current prices and returns a point
// stamped at now. Positions without a live price are valued at average
// cost; positions missing either field contribute nothing. A portfolio
// with nothing to value still yields a point, at zero, so every read
// leaves a mark in the series.
func LivePoint(pf *contracts.Portfolio, prices map[string]float64, now time.Time) contracts.HistoryPoint {
	total := 0.0
	for _, symbol := range pf.Tickers {
		pos, found := pf.Positions[symbol]
		if !found || !pos.Defined() {
			continue
		}
		unit := pos.AvgCostValue()
		if price, known := prices[symbol]; known {
			unit = price
		}
		total += unit * pos.QtyValue()
	}

	return contracts.HistoryPoint{
		Time:   contracts.NewTimestamp(now),
		Value:  total,
		Source: contracts.PointLive,
	}
}

// Rebuild replays the transaction ledger into a value series: one point
// per transaction, carrying the running net cash flow after it. Buys add
// qty*price, sells subtract. Transactions are ordered by timestamp with a
// stable sort, so same-second entries keep their recorded order and the
// result is identical on every replay of the same ledger.
func Rebuild(transactions []contracts.Transaction) []contracts.HistoryPoint {
	ordered := make([]contracts.Transaction, len(transactions))
	copy(ordered, transactions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Time.Before(ordered[j].Time)
	})

	points := make([]contracts.HistoryPoint, 0, len(ordered))
	running := 0.0
	for _, tx := range ordered {
		flow := tx.Qty * tx.Price
		if tx.Action == contracts.ActionSell {
			flow = -flow
		}
		running += flow
		points = append(points, contracts.HistoryPoint{
			Time:   tx.Time,
			Value:  running,
			Source: contracts.PointLedger,
		})
	}
	return points
}
