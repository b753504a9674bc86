package cli

import (
	"fmt"

	"hbinterface/backend/internal/console"
	"hbinterface/backend/internal/model"
	"hbinterface/backend/internal/util"

	"github.com/spf13/cobra"
)

func newBalancesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "balances",
		Short: "Show balances across exchanges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ex := console.NewExchangeContext(app.client(), app.log)
			if err := ex.RefreshBalances(cmd.Context()); err != nil {
				return err
			}
			balances := ex.State().Balances
			app.println(renderBalances(balances))
			if len(balances) > 0 {
				app.println(panel("Totals", renderTotals(balances)))
			}
			return nil
		},
	}
}

func renderBalances(balances []model.ExchangeBalance) string {
	if len(balances) == 0 {
		return "No balances"
	}
	rows := make([][]string, 0, len(balances))
	for _, b := range balances {
		rows = append(rows, []string{b.Exchange, b.AssetName(), b.Free.String(), b.Locked.String(), b.Total.String()})
	}
	return renderTable([]string{"EXCHANGE", "ASSET", "FREE", "LOCKED", "TOTAL"}, rows)
}

func renderTotals(balances []model.ExchangeBalance) string {
	totals := util.AggregateBalances(balances)
	rows := make([][]string, 0, len(totals))
	for _, t := range totals {
		rows = append(rows, []string{t.Asset, t.Free.String(), t.Locked.String(), t.Total.String()})
	}
	return renderTable([]string{"ASSET", "FREE", "LOCKED", "TOTAL"}, rows)
}

func newExchangesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "exchanges",
		Short: "List exchanges supported by the gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ex := console.NewExchangeContext(app.client(), app.log)
			if err := ex.LoadExchanges(cmd.Context()); err != nil {
				return err
			}

			exchanges := ex.State().Exchanges
			rows := make([][]string, 0, len(exchanges))
			for _, e := range exchanges {
				rows = append(rows, []string{
					e.ID,
					e.Name,
					yesNo(e.Supported),
					yesNo(e.Testnet),
					fmt.Sprintf("%d", len(e.Pairs)),
					e.Fees.Maker.String() + " / " + e.Fees.Taker.String(),
				})
			}
			app.println(renderTable([]string{"ID", "NAME", "SUPPORTED", "TESTNET", "PAIRS", "MAKER / TAKER"}, rows))
			return nil
		},
	}
}

func newKeysCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage exchange API keys stored on the gateway",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List API keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ex := console.NewExchangeContext(app.client(), app.log)
			if err := ex.LoadAPIKeys(cmd.Context()); err != nil {
				return err
			}
			app.println(renderKeys(ex.State().APIKeys))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete EXCHANGE LABEL",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ex := console.NewExchangeContext(app.client(), app.log)
			if err := ex.DeleteAPIKey(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			app.printf("Deleted %s/%s\n", args[0], args[1])
			return nil
		},
	})

	cmd.AddCommand(newKeysAddCmd(app), newKeysValidateCmd(app))
	return cmd
}

func keyFlags(cmd *cobra.Command, key *model.ExchangeAPIKey) {
	cmd.Flags().StringVar(&key.Exchange, "exchange", "", "Exchange id")
	cmd.Flags().StringVar(&key.APIKey, "key", "", "API key")
	cmd.Flags().StringVar(&key.SecretKey, "secret", "", "API secret")
	_ = cmd.MarkFlagRequired("exchange")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("secret")
}

func newKeysAddCmd(app *App) *cobra.Command {
	key := model.ExchangeAPIKey{IsActive: true}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Store an API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ex := console.NewExchangeContext(app.client(), app.log)
			if err := ex.AddAPIKey(cmd.Context(), key); err != nil {
				return err
			}
			app.println(renderKeys(ex.State().APIKeys))
			return nil
		},
	}
	keyFlags(cmd, &key)
	cmd.Flags().StringVar(&key.Label, "label", "default", "Key label")
	cmd.Flags().BoolVar(&key.IsActive, "active", true, "Mark the key active")
	return cmd
}

func newKeysValidateCmd(app *App) *cobra.Command {
	var key model.ExchangeAPIKey
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check an API key against the exchange",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			valid, err := app.client().ValidateAPIKey(cmd.Context(), key)
			if err != nil {
				return err
			}
			if valid {
				app.println(runningStyle.Render("valid"))
			} else {
				app.println(errorStyle.Render("invalid"))
			}
			return nil
		},
	}
	keyFlags(cmd, &key)
	return cmd
}

func renderKeys(keys []model.ExchangeAPIKey) string {
	if len(keys) == 0 {
		return "No API keys"
	}
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k.Exchange, k.Label, k.APIKey, yesNo(k.IsActive)})
	}
	return renderTable([]string{"EXCHANGE", "LABEL", "KEY", "ACTIVE"}, rows)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
