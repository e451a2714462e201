package contracts

// TagLabels is the fixed ordered list of workflow labels a (portfolio,
// symbol) pair can be tagged with. Tags are stored as indexes into this
// list; values outside it are rejected, never stored.
var TagLabels = []string{
	"Hold",
	"Buy",
	"Buy order",
	"Sell",
	"Sell order",
	"Increase",
	"Reduce",
	"Pause",
	"Rebalance",
	"Rotate",
	"De-risk",
	"Review Thesis",
}

// MaxTagIndex is the largest valid tag value
var MaxTagIndex = len(TagLabels) - 1

// ValidTag reports whether idx indexes into TagLabels
func ValidTag(idx int) bool {
	return idx >= 0 && idx <= MaxTagIndex
}
