package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"hbinterface/backend/internal/analytics"
	"hbinterface/backend/internal/model"

	"github.com/spf13/cobra"
)

// tradeFile is the analytics input. A bare JSON array of trades is accepted
// as well.
type tradeFile struct {
	Trades []model.Trade           `json:"trades"`
	Market []analytics.MarketPoint `json:"market"`
}

func newAnalyticsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "analytics FILE",
		Short: "Compute PnL and risk metrics for a trades file",
		Long: `Compute realized and unrealized PnL plus risk metrics from a JSON file
holding either an array of trades or {"trades": [...], "market": [...]}.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readTradeFile(args[0])
			if err != nil {
				return err
			}

			pnl := analytics.CalculatePnL(in.Trades)
			risk := analytics.CalculateRiskMetrics(in.Trades, in.Market)
			app.println(renderAnalytics(len(in.Trades), pnl, risk))
			return nil
		},
	}
}

func readTradeFile(path string) (*tradeFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var in tradeFile
	if strings.HasPrefix(strings.TrimSpace(string(data)), "[") {
		err = json.Unmarshal(data, &in.Trades)
	} else {
		err = json.Unmarshal(data, &in)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &in, nil
}

func renderAnalytics(trades int, pnl analytics.PnL, risk analytics.RiskMetrics) string {
	pnlRows := [][]string{
		{"Realized", signed(pnl.Realized)},
		{"Unrealized", signed(pnl.Unrealized)},
		{"Total", signed(pnl.Total)},
	}
	riskRows := [][]string{
		{"Sharpe ratio", fmt.Sprintf("%.4f", risk.SharpeRatio)},
		{"Sortino ratio", fmt.Sprintf("%.4f", risk.Sortino)},
		{"Max drawdown", fmt.Sprintf("%.2f%%", risk.MaxDrawdown*100)},
		{"Volatility", fmt.Sprintf("%.4f", risk.Volatility)},
		{"Beta", fmt.Sprintf("%.4f", risk.Beta)},
		{"Alpha", fmt.Sprintf("%.4f", risk.Alpha)},
		{"VaR 95%", fmt.Sprintf("%.4f", risk.VaR95)},
		{"VaR 99%", fmt.Sprintf("%.4f", risk.VaR99)},
	}

	return panel(fmt.Sprintf("PnL over %d trades", trades), renderTable([]string{"METRIC", "VALUE"}, pnlRows)) +
		"\n" + panel("Risk", renderTable([]string{"METRIC", "VALUE"}, riskRows))
}
