// Package analytics computes profit and loss and portfolio risk figures from
// engine trades.
package analytics

import (
	"math"
	"sort"
	"time"

	"hbinterface/backend/internal/model"

	"github.com/shopspring/decimal"
)

// RiskFreeRate is the per-period rate subtracted in sharpe, sortino and alpha
const RiskFreeRate = 0.02

// PnL splits profit into closed and open parts
type PnL struct {
	Realized   decimal.Decimal `json:"realized"`
	Unrealized decimal.Decimal `json:"unrealized"`
	Total      decimal.Decimal `json:"total"`
}

// MarketPoint is one benchmark price sample, timestamp in unix milliseconds
type MarketPoint struct {
	Price     decimal.Decimal `json:"price"`
	Timestamp int64           `json:"timestamp"`
}

// RiskMetrics summarises the return distribution of a trade history
type RiskMetrics struct {
	SharpeRatio float64 `json:"sharpeRatio"`
	MaxDrawdown float64 `json:"maxDrawdown"`
	Volatility  float64 `json:"volatility"`
	Beta        float64 `json:"beta"`
	Alpha       float64 `json:"alpha"`
	Sortino     float64 `json:"sortino"`
	VaR95       float64 `json:"var95"`
	VaR99       float64 `json:"var99"`
}

// CalculatePnL walks trades in order keeping a running average buy price.
// Sells realise against that average; the remaining amount is marked at the
// last traded price.
func CalculatePnL(trades []model.Trade) PnL {
	var (
		realized  = decimal.Zero
		bought    = decimal.Zero
		sold      = decimal.Zero
		avgBuy    = decimal.Zero
		lastPrice = decimal.Zero
	)

	for _, t := range trades {
		lastPrice = t.Price
		if t.Side == model.OrderSideBuy {
			prev := bought
			bought = bought.Add(t.Amount)
			if bought.IsPositive() {
				avgBuy = avgBuy.Mul(prev).Add(t.Price.Mul(t.Amount)).Div(bought)
			}
			continue
		}
		sold = sold.Add(t.Amount)
		realized = realized.Add(t.Price.Sub(avgBuy).Mul(t.Amount))
	}

	open := bought.Sub(sold)
	unrealized := decimal.Zero
	if open.IsPositive() {
		unrealized = lastPrice.Sub(avgBuy).Mul(open)
	}

	return PnL{
		Realized:   realized,
		Unrealized: unrealized,
		Total:      realized.Add(unrealized),
	}
}

// CalculateRiskMetrics derives risk figures from the daily returns of trades,
// using market as the benchmark for beta and alpha. Figures that are
// undefined for the input come back as 0.
func CalculateRiskMetrics(trades []model.Trade, market []MarketPoint) RiskMetrics {
	tradePoints := make([]pricePoint, len(trades))
	for i, t := range trades {
		tradePoints[i] = pricePoint{price: t.Price.InexactFloat64(), ts: t.Timestamp}
	}
	marketPoints := make([]pricePoint, len(market))
	for i, m := range market {
		marketPoints[i] = pricePoint{price: m.Price.InexactFloat64(), ts: m.Timestamp}
	}

	returns := dailyReturns(tradePoints)
	marketReturns := dailyReturns(marketPoints)

	metrics := RiskMetrics{
		MaxDrawdown: maxDrawdown(tradePoints),
	}
	if len(returns) == 0 {
		return metrics
	}

	avg := mean(returns)
	metrics.Volatility = math.Sqrt(variance(returns))
	metrics.SharpeRatio = safeDiv(avg-RiskFreeRate, metrics.Volatility)
	metrics.Beta = safeDiv(covariance(returns, marketReturns), variance(marketReturns))

	if len(marketReturns) > 0 {
		lastMarket := marketReturns[len(marketReturns)-1]
		metrics.Alpha = avg - (RiskFreeRate + metrics.Beta*(lastMarket-RiskFreeRate))
	}

	var downsideSq float64
	var downside int
	for _, r := range returns {
		if r < 0 {
			downsideSq += r * r
			downside++
		}
	}
	if downside > 0 {
		metrics.Sortino = safeDiv(avg-RiskFreeRate, math.Sqrt(downsideSq/float64(downside)))
	}

	metrics.VaR95 = valueAtRisk(returns, 0.95)
	metrics.VaR99 = valueAtRisk(returns, 0.99)
	return metrics
}

type pricePoint struct {
	price float64
	ts    int64
}

// dailyReturns keeps the last price of each UTC day, in order of first
// appearance, and returns the simple returns between consecutive days
func dailyReturns(points []pricePoint) []float64 {
	var days []string
	last := make(map[string]float64)
	for _, p := range points {
		day := time.UnixMilli(p.ts).UTC().Format("2006-01-02")
		if _, seen := last[day]; !seen {
			days = append(days, day)
		}
		last[day] = p.price
	}

	if len(days) < 2 {
		return nil
	}
	out := make([]float64, 0, len(days)-1)
	for i := 1; i < len(days); i++ {
		prev := last[days[i-1]]
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (last[days[i]]-prev)/prev)
	}
	return out
}

func maxDrawdown(points []pricePoint) float64 {
	peak := math.Inf(-1)
	var worst float64
	for _, p := range points {
		if p.price > peak {
			peak = p.price
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - p.price) / peak; dd > worst {
			worst = dd
		}
	}
	return worst
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// variance is the population variance
func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		sum += (v - m) * (v - m)
	}
	return sum / float64(len(values))
}

// covariance pairs a and b up to the shorter length
func covariance(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	ma, mb := mean(a[:n]), mean(b[:n])
	var sum float64
	for i := 0; i < n; i++ {
		sum += (a[i] - ma) * (b[i] - mb)
	}
	return sum / float64(n)
}

// valueAtRisk is the loss at the given confidence, reported as a positive number
func valueAtRisk(returns []float64, confidence float64) float64 {
	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)
	idx := int(math.Floor(float64(len(sorted)) * (1 - confidence)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	if sorted[idx] == 0 {
		return 0
	}
	return -sorted[idx]
}

func safeDiv(a, b float64) float64 {
	if b == 0 || math.IsNaN(b) {
		return 0
	}
	out := a / b
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0
	}
	return out
}
