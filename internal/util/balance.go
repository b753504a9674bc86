package util

import (
	"sort"

	"github.com/shopspring/decimal"
)

// AssetTotal is one asset's balance summed across exchanges
type AssetTotal struct {
	Asset  string
	Free   decimal.Decimal
	Locked decimal.Decimal
	Total  decimal.Decimal
}

// BalanceLike is satisfied by per-exchange balance records
type BalanceLike interface {
	AssetName() string
	Amounts() (free, locked, total decimal.Decimal)
}

// AggregateBalances sums balances per asset, sorted by asset. Negative
// amounts are treated as zero.
func AggregateBalances[T BalanceLike](balances []T) []AssetTotal {
	byAsset := make(map[string]*AssetTotal)
	for _, b := range balances {
		asset := b.AssetName()
		free, locked, total := b.Amounts()
		t, ok := byAsset[asset]
		if !ok {
			t = &AssetTotal{Asset: asset}
			byAsset[asset] = t
		}
		t.Free = t.Free.Add(nonNegative(free))
		t.Locked = t.Locked.Add(nonNegative(locked))
		t.Total = t.Total.Add(nonNegative(total))
	}

	out := make([]AssetTotal, 0, len(byAsset))
	for _, t := range byAsset {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
