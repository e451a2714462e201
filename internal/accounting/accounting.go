// Package accounting implements weighted-average-cost position updates.
// Both operations are pure: the caller persists the result and appends the
// matching transaction record.
package accounting

import "github.com/hyowon/folio/internal/contracts"

// ApplyBuy adds qty shares bought at price to pos and returns the updated
// position. The new average cost is the quantity-weighted blend of the old
// average and the incoming price. A position bought from a zero base takes
// the incoming price outright; the blend at zero base would be meaningless.
// A degenerate zero-quantity buy also takes the incoming price.
func ApplyBuy(pos contracts.Position, qty, price float64) contracts.Position {
	oldQty := pos.QtyValue()
	oldAvg := pos.AvgCostValue()

	newQty := oldQty + qty
	newAvg := price
	if newQty > 0 && oldQty > 0 {
		newAvg = (oldAvg*oldQty + price*qty) / newQty
	}

	return contracts.Position{
		Qty:     contracts.Float(newQty),
		AvgCost: contracts.Float(newAvg),
	}
}

// ApplySell removes qty shares from pos and returns the updated position.
// Quantity is floored at zero and the average cost is never changed by a
// sell, even when the position is sold down to nothing.
func ApplySell(pos contracts.Position, qty float64) contracts.Position {
	newQty := pos.QtyValue() - qty
	if newQty < 0 {
		newQty = 0
	}

	return contracts.Position{
		Qty:     contracts.Float(newQty),
		AvgCost: pos.AvgCost,
	}
}
