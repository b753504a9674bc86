package cli

import (
	"encoding/json"
	"fmt"

	"hbinterface/backend/internal/console"
	"hbinterface/backend/internal/model"
	"hbinterface/backend/pkg/gateway"

	"github.com/spf13/cobra"
)

func newBotsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bots",
		Short: "List, create, start and stop bots",
	}
	cmd.AddCommand(
		newBotsListCmd(app),
		newBotsCreateCmd(app),
		newBotsStatusCmd(app),
		newBotCommandCmd(app, "start"),
		newBotCommandCmd(app, "stop"),
	)
	return cmd
}

func newBotsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List bots known to the gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bots, err := app.client().ListBots(cmd.Context())
			if err != nil {
				return err
			}
			if len(bots) == 0 {
				app.println("No bots")
				return nil
			}
			app.println(renderTable(botHeaders, botRows(bots)))
			return nil
		},
	}
}

func newBotsStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status ID",
		Short: "Show a bot's engine status and metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := app.client()
			status, err := client.GetBotStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			rows := [][]string{{"Status", statusBadge(status.Status)}}
			if status.Uptime != "" {
				rows = append(rows, []string{"Uptime", status.Uptime})
			}
			if status.Message != "" {
				rows = append(rows, []string{"Message", status.Message})
			}

			metrics, err := client.GetBotMetrics(cmd.Context(), args[0])
			if err != nil {
				app.log.Warnf("Metrics unavailable for bot %s: %v", args[0], err)
			} else if p := metrics.Performance; p != nil {
				rows = append(rows,
					[]string{"Total PnL", signed(p.TotalPnL)},
					[]string{"Daily PnL", signed(p.DailyPnL)},
					[]string{"Win rate", p.WinRate.String()},
					[]string{"Trades", fmt.Sprint(p.TotalTrades)},
				)
			}

			app.println(panel("Bot "+args[0], renderTable([]string{"FIELD", "VALUE"}, rows)))
			return nil
		},
	}
}

func newBotsCreateCmd(app *App) *cobra.Command {
	var (
		req         gateway.CreateBotRequest
		strategy    string
		configJSON  string
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a bot",
		Long: `Create a bot from flags, or answer prompts with --interactive.
Example: hbctl bots create --name mm --strategy pure_market_making \
  --exchange binance --base BTC --quote USDT --config '{"bidSpread":"0.5"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interactive {
				answers, err := PromptForBot()
				if err != nil {
					return err
				}
				req = answers
			} else {
				req.Strategy = model.Strategy(strategy)
				if configJSON != "" {
					if !json.Valid([]byte(configJSON)) {
						return fmt.Errorf("--config is not valid JSON")
					}
					req.Config = json.RawMessage(configJSON)
				}
			}
			if err := validateBotRequest(req); err != nil {
				return err
			}

			store := console.NewBotStore(app.client(), nil, app.log)
			defer store.Close()

			bot, err := store.CreateBot(cmd.Context(), req)
			if err != nil {
				return err
			}
			app.printf("Created bot %s (%s)\n", bot.Name, bot.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Bot name")
	cmd.Flags().StringVar(&strategy, "strategy", string(model.StrategyMarketMaking), "Strategy (pure_market_making, arbitrage, grid_trading)")
	cmd.Flags().StringVar(&req.Exchange, "exchange", "", "Exchange id")
	cmd.Flags().StringVar(&req.BaseAsset, "base", "", "Base asset")
	cmd.Flags().StringVar(&req.QuoteAsset, "quote", "", "Quote asset")
	cmd.Flags().StringVar(&configJSON, "config", "", "Strategy parameters as JSON")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Prompt for every field")
	return cmd
}

func validateBotRequest(req gateway.CreateBotRequest) error {
	switch {
	case req.Name == "":
		return fmt.Errorf("bot name is required")
	case !req.Strategy.Valid():
		return fmt.Errorf("unknown strategy %q", req.Strategy)
	case req.Exchange == "" || req.BaseAsset == "" || req.QuoteAsset == "":
		return fmt.Errorf("exchange, base and quote are required")
	}
	return nil
}

// newBotCommandCmd sends start or stop over the socket and waits for the ack
func newBotCommandCmd(app *App, verb string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " BOT_ID",
		Short: fmt.Sprintf("%s a bot through the gateway socket", capitalize(verb)),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := args[0]

			socket := app.socket()
			defer socket.Close()
			if err := app.connect(ctx, socket, nil); err != nil {
				return err
			}

			store := console.NewBotStore(app.client(), socket, app.log)
			defer store.Close()
			if err := store.LoadBots(ctx); err != nil {
				app.log.Warnf("Load bots: %v", err)
			}

			var err error
			if verb == "start" {
				err = store.StartBot(ctx, id)
			} else {
				err = store.StopBot(ctx, id)
			}
			if err != nil {
				return err
			}

			if bot := store.State().Bot(id); bot != nil {
				app.printf("Bot %s is %s\n", id, statusBadge(bot.Status))
			} else {
				app.printf("Bot %s: %s acknowledged\n", id, verb)
			}
			return nil
		},
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
