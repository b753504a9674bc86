package model

import "github.com/shopspring/decimal"

// BotSummary aggregates a bot list for dashboards
type BotSummary struct {
	Total       int             `json:"total"`
	Running     int             `json:"running"`
	Stopped     int             `json:"stopped"`
	Paused      int             `json:"paused"`
	Errored     int             `json:"errored"`
	TotalPnL    decimal.Decimal `json:"totalPnL"`
	TotalTrades int             `json:"totalTrades"`
}

// Summarize builds a summary from per-status counts and sums the reported
// performance of bots.
func Summarize(counts map[BotStatus]int64, bots []*Bot) BotSummary {
	s := BotSummary{
		Running: int(counts[BotStatusRunning]),
		Stopped: int(counts[BotStatusStopped]),
		Paused:  int(counts[BotStatusPaused]),
		Errored: int(counts[BotStatusError]),
	}
	for _, n := range counts {
		s.Total += int(n)
	}
	for _, b := range bots {
		if b.Performance != nil {
			s.TotalPnL = s.TotalPnL.Add(b.Performance.TotalPnL)
			s.TotalTrades += b.Performance.TotalTrades
		}
	}
	return s
}
