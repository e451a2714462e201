package accounting

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyowon/folio/internal/contracts"
)

func TestApplyBuy_WeightedAverage(t *testing.T) {
	// buy 10 @ 100, then buy 10 @ 120 -> {qty: 20, avgCost: 110}
	pos := ApplyBuy(contracts.Position{}, 10, 100)
	pos = ApplyBuy(pos, 10, 120)

	require.True(t, pos.Defined())
	assert.Equal(t, 20.0, *pos.Qty)
	assert.Equal(t, 110.0, *pos.AvgCost)
}

func TestApplyBuy_FreshPositionTakesPrice(t *testing.T) {
	pos := ApplyBuy(contracts.Position{}, 5, 42.5)

	assert.Equal(t, 5.0, *pos.Qty)
	assert.Equal(t, 42.5, *pos.AvgCost)
}

func TestApplyBuy_ZeroQuantityTakesPrice(t *testing.T) {
	// buy 0 @ 50 on an empty position -> {qty: 0, avgCost: 50}
	pos := ApplyBuy(contracts.Position{}, 0, 50)

	assert.Equal(t, 0.0, *pos.Qty)
	assert.Equal(t, 50.0, *pos.AvgCost)
}

func TestApplyBuy_AfterSoldToZeroResetsAverage(t *testing.T) {
	// A position sold down to zero keeps its stale average, but the next
	// buy resets the average to the new price
	pos := ApplyBuy(contracts.Position{}, 10, 100)
	pos = ApplySell(pos, 10)
	require.Equal(t, 0.0, *pos.Qty)
	require.Equal(t, 100.0, *pos.AvgCost)

	pos = ApplyBuy(pos, 4, 250)
	assert.Equal(t, 4.0, *pos.Qty)
	assert.Equal(t, 250.0, *pos.AvgCost)
}

func TestApplyBuy_OrderIndependence(t *testing.T) {
	// After any sequence of buys, avgCost = sum(qi*pi) / sum(qi),
	// independent of order
	buys := []struct{ qty, price float64 }{
		{10, 100}, {3, 250.5}, {7.25, 80}, {1, 1000},
	}

	var sumQP, sumQ float64
	for _, b := range buys {
		sumQP += b.qty * b.price
		sumQ += b.qty
	}
	want := sumQP / sumQ

	for trial := 0; trial < 10; trial++ {
		shuffled := make([]struct{ qty, price float64 }, len(buys))
		copy(shuffled, buys)
		rand.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		pos := contracts.Position{}
		for _, b := range shuffled {
			pos = ApplyBuy(pos, b.qty, b.price)
		}

		assert.InDelta(t, want, *pos.AvgCost, 1e-9)
		assert.InDelta(t, sumQ, *pos.Qty, 1e-9)
	}
}

func TestApplySell_KeepsAverageCost(t *testing.T) {
	// {qty: 20, avgCost: 110}, sell 5 -> {qty: 15, avgCost: 110}
	pos := contracts.Position{Qty: contracts.Float(20), AvgCost: contracts.Float(110)}

	pos = ApplySell(pos, 5)

	assert.Equal(t, 15.0, *pos.Qty)
	assert.Equal(t, 110.0, *pos.AvgCost)
}

func TestApplySell_QuantityFloor(t *testing.T) {
	pos := contracts.Position{Qty: contracts.Float(3), AvgCost: contracts.Float(10)}

	// No sequence of sells drives quantity below zero
	for i := 0; i < 5; i++ {
		pos = ApplySell(pos, 2)
		assert.GreaterOrEqual(t, *pos.Qty, 0.0)
	}
	assert.Equal(t, 0.0, *pos.Qty)
	assert.Equal(t, 10.0, *pos.AvgCost)
}

func TestApplySell_UnknownPosition(t *testing.T) {
	// Selling a symbol with no prior position clamps to zero
	pos := ApplySell(contracts.Position{}, 4)

	assert.Equal(t, 0.0, *pos.Qty)
	assert.Nil(t, pos.AvgCost)
}

func TestApplyBuy_NoNaN(t *testing.T) {
	pos := ApplyBuy(contracts.Position{}, 0, 50)
	pos = ApplyBuy(pos, 0, 60)

	assert.False(t, math.IsNaN(*pos.AvgCost))
	assert.Equal(t, 60.0, *pos.AvgCost)
}
