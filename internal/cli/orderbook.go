package cli

import (
	"time"

	"hbinterface/backend/internal/console"
	"hbinterface/backend/internal/model"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

func newOrderBookCmd(app *App) *cobra.Command {
	var (
		depth  int
		follow bool
	)

	cmd := &cobra.Command{
		Use:   "orderbook EXCHANGE SYMBOL",
		Short: "Show an exchange order book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w := console.NewOrderBookWatcher(app.client(), args[0], args[1])

			if !follow {
				if err := w.Refresh(ctx); err != nil {
					return err
				}
				app.println(renderOrderBook(w.Book(), depth))
				return nil
			}

			p := w.Start(ctx, console.DefaultOrderBookInterval)
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-p.Done():
					return nil
				case <-ticker.C:
					clearScreen(app)
					if err := w.Err(); err != nil {
						app.println(errorStyle.Render(err.Error()))
					}
					app.println(renderOrderBook(w.Book(), depth))
				}
			}
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 10, "Levels per side")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep refreshing until interrupted")
	return cmd
}

func renderOrderBook(book *model.OrderBook, depth int) string {
	if book == nil {
		return "No order book yet"
	}

	side := func(levels []model.BookLevel) [][]string {
		n := len(levels)
		if depth > 0 && n > depth {
			n = depth
		}
		rows := make([][]string, 0, n)
		for _, l := range levels[:n] {
			rows = append(rows, []string{l.Price().String(), l.Amount().String()})
		}
		return rows
	}

	bids := panel("Bids", renderTable([]string{"PRICE", "AMOUNT"}, side(book.Bids)))
	asks := panel("Asks", renderTable([]string{"PRICE", "AMOUNT"}, side(book.Asks)))
	title := titleStyle.Render(book.Exchange+" "+book.Symbol) + "  spread " + book.Spread().String()
	return lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinHorizontal(lipgloss.Top, bids, " ", asks))
}

func clearScreen(app *App) {
	app.printf("\033[2J\033[H")
}
