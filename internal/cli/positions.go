package cli

import (
	"fmt"

	"hbinterface/backend/internal/console"
	"hbinterface/backend/internal/model"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newPositionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "positions",
		Short: "Inspect and close positions, set risk limits",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list EXCHANGE",
		Short: "List open positions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pc := console.NewPositionContext(app.client(), app.log)
			if err := pc.RefreshPositions(cmd.Context(), args[0]); err != nil {
				return err
			}
			app.println(renderPositions(pc.State().Positions))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "close EXCHANGE SYMBOL",
		Short: "Close a position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pc := console.NewPositionContext(app.client(), app.log)
			if err := pc.ClosePosition(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			app.printf("Closed %s on %s\n", args[1], args[0])
			app.println(renderPositions(pc.State().Positions))
			return nil
		},
	})

	cmd.AddCommand(newRiskCmd(app))
	return cmd
}

func newRiskCmd(app *App) *cobra.Command {
	values := map[string]*string{}
	fields := []struct{ flag, usage string }{
		{"max-position-size", "Largest position size"},
		{"max-leverage", "Largest leverage"},
		{"stop-loss", "Stop loss percentage (0-100)"},
		{"take-profit", "Take profit percentage (0-100)"},
		{"max-drawdown", "Max drawdown percentage (0-100)"},
		{"max-daily-loss", "Max loss per day"},
	}

	cmd := &cobra.Command{
		Use:   "risk EXCHANGE",
		Short: "Push risk limits for an exchange",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed := make(map[string]decimal.Decimal, len(values))
			for flag, v := range values {
				d, err := model.ParseDecimal(*v)
				if err != nil {
					return fmt.Errorf("--%s must be a number", flag)
				}
				parsed[flag] = d
			}

			params := model.RiskParams{
				MaxPositionSize:      parsed["max-position-size"],
				MaxLeverage:          parsed["max-leverage"],
				StopLossPercentage:   parsed["stop-loss"],
				TakeProfitPercentage: parsed["take-profit"],
				MaxDrawdown:          parsed["max-drawdown"],
				MaxDailyLoss:         parsed["max-daily-loss"],
			}

			pc := console.NewPositionContext(app.client(), app.log)
			if err := pc.SetRiskParams(cmd.Context(), args[0], params); err != nil {
				return err
			}
			app.printf("Risk parameters updated for %s\n", args[0])
			return nil
		},
	}

	for _, f := range fields {
		values[f.flag] = cmd.Flags().String(f.flag, "", f.usage)
		_ = cmd.MarkFlagRequired(f.flag)
	}
	return cmd
}

func renderPositions(positions []model.Position) string {
	if len(positions) == 0 {
		return "No open positions"
	}
	rows := make([][]string, 0, len(positions))
	for _, p := range positions {
		rows = append(rows, []string{
			p.Exchange,
			p.Symbol,
			string(p.Side),
			p.Amount.String(),
			p.EntryPrice.String(),
			p.MarkPrice.String(),
			p.Leverage.String() + "x",
			signed(p.UnrealizedPnl),
		})
	}
	return renderTable([]string{"EXCHANGE", "SYMBOL", "SIDE", "AMOUNT", "ENTRY", "MARK", "LEVERAGE", "UNREALIZED"}, rows)
}
