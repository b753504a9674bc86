package cli

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"hbinterface/backend/internal/console"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

type watchOptions struct {
	exchange string
	poll     time.Duration
	refresh  time.Duration
}

func newWatchCmd(app *App) *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live view of bots, balances, orders and positions",
		Long: `Connect to the gateway socket, poll balances, orders and positions, and
redraw the screen until interrupted with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, app, opts)
		},
	}

	cmd.Flags().StringVar(&opts.exchange, "exchange", "", "Exchange for orders and positions; the active key's exchange when empty")
	cmd.Flags().DurationVar(&opts.poll, "poll", 5*time.Second, "Polling interval for balances and orders")
	cmd.Flags().DurationVar(&opts.refresh, "refresh", time.Second, "Screen redraw interval")
	return cmd
}

// watchView is everything one frame of the watch screen shows
type watchView struct {
	bots      console.BotState
	exchange  console.ExchangeState
	orders    console.OrderState
	positions console.PositionState
	market    string
	connected bool
}

func runWatch(ctx context.Context, app *App, opts watchOptions) error {
	client := app.client()

	socket := app.socket()
	defer socket.Close()

	store := console.NewBotStore(client, socket, app.log)
	defer store.Close()

	if err := app.connect(ctx, socket, store.HandleMessage); err != nil {
		return err
	}
	if err := store.LoadBots(ctx); err != nil {
		app.log.Warnf("Load bots: %v", err)
	}

	ex := console.NewExchangeContext(client, app.log)
	ex.Start(ctx, opts.poll)

	exchange := opts.exchange
	if exchange == "" {
		if err := ex.LoadAPIKeys(ctx); err == nil {
			if key, ok := ex.ActiveKey(); ok {
				exchange = key.Exchange
			}
		}
	}

	orders := console.NewOrderContext(client, app.log)
	positions := console.NewPositionContext(client, app.log)
	if exchange != "" {
		orders.Start(ctx, exchange, opts.poll)
		positions.Start(ctx, exchange, console.DefaultPositionInterval)
	}

	updates, cancel := store.Subscribe()
	defer cancel()

	ticker := time.NewTicker(opts.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-updates:
		case <-ticker.C:
		}

		clearScreen(app)
		app.println(renderWatch(watchView{
			bots:      store.State(),
			exchange:  ex.State(),
			orders:    orders.State(),
			positions: positions.State(),
			market:    exchange,
			connected: socket.IsConnected(),
		}))
	}
}

func renderWatch(v watchView) string {
	conn := runningStyle.Render("connected")
	if !v.connected {
		conn = errorStyle.Render("disconnected")
	}
	header := titleStyle.Render("hbctl watch") + "  socket " + conn + "  " + time.Now().Format("15:04:05")

	var errs []string
	for _, e := range []string{v.bots.Error, v.exchange.Error, v.orders.Error, v.positions.Error} {
		if e != "" {
			errs = append(errs, errorStyle.Render(e))
		}
	}

	botsBody := "No bots"
	if len(v.bots.Bots) > 0 {
		botsBody = renderTable(botHeaders, botRows(v.bots.Bots))
	}

	sections := []string{
		header,
		panel("Bots", botsBody),
		panel("Balances", renderBalances(v.exchange.Balances)),
	}
	if v.market != "" {
		sections = append(sections,
			panel("Orders on "+v.market, renderOrders(v.orders.Orders)),
			panel("Positions on "+v.market, renderPositions(v.positions.Positions)),
		)
	}
	if len(errs) > 0 {
		sections = append(sections, strings.Join(errs, "\n"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
