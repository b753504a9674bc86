package cli

import (
	"fmt"
	"strings"
	"time"

	"hbinterface/backend/internal/console"
	"hbinterface/backend/internal/model"

	"github.com/spf13/cobra"
)

func newOrdersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List, place and cancel exchange orders",
	}
	cmd.AddCommand(newOrdersListCmd(app), newOrdersGetCmd(app), newOrdersCreateCmd(app), newOrdersCancelCmd(app))
	return cmd
}

func newOrdersListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list EXCHANGE [SYMBOL]",
		Short: "List orders on an exchange",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := ""
			if len(args) == 2 {
				symbol = args[1]
			}

			orders := console.NewOrderContext(app.client(), app.log)
			if err := orders.RefreshOrders(cmd.Context(), args[0], symbol); err != nil {
				return err
			}
			app.println(renderOrders(orders.State().Orders))
			return nil
		},
	}
}

func newOrdersGetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get EXCHANGE ORDER_ID",
		Short: "Show a single order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := app.client().GetOrderByID(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			app.println(renderOrders([]model.ExchangeOrder{*order}))
			return nil
		},
	}
}

func renderOrders(orders []model.ExchangeOrder) string {
	if len(orders) == 0 {
		return "No orders"
	}
	rows := make([][]string, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, []string{
			o.OrderID,
			o.Symbol,
			string(o.Side),
			string(o.Type),
			o.Price.String(),
			o.Amount.String(),
			o.Filled.String(),
			string(o.Status),
			formatMillis(o.Timestamp),
		})
	}
	return renderTable([]string{"ID", "SYMBOL", "SIDE", "TYPE", "PRICE", "AMOUNT", "FILLED", "STATUS", "TIME"}, rows)
}

func newOrdersCreateCmd(app *App) *cobra.Command {
	var (
		params model.ExchangeOrderParams
		side   string
		typ    string
		amount string
		price  string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Place an order on an exchange",
		Long: `Place an order. Limit orders need --price.
Example: hbctl orders create --exchange binance --symbol BTC/USDT --side buy --type limit --amount 0.01 --price 50000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params.Side = model.OrderSide(strings.ToLower(side))
			params.Type = model.OrderType(strings.ToLower(typ))
			if params.Side != model.OrderSideBuy && params.Side != model.OrderSideSell {
				return fmt.Errorf("--side must be buy or sell")
			}
			if params.Type != model.OrderTypeLimit && params.Type != model.OrderTypeMarket {
				return fmt.Errorf("--type must be limit or market")
			}

			a, err := model.ParseDecimal(amount)
			if err != nil || !a.IsPositive() {
				return fmt.Errorf("--amount must be a positive number")
			}
			params.Amount = a

			if params.Type == model.OrderTypeLimit {
				p, err := model.ParseDecimal(price)
				if err != nil || !p.IsPositive() {
					return fmt.Errorf("--price is required for limit orders")
				}
				params.Price = &p
			}

			orders := console.NewOrderContext(app.client(), app.log)
			order, err := orders.CreateOrder(cmd.Context(), params)
			if err != nil {
				return err
			}
			app.printf("Placed order %s\n", order.OrderID)
			app.println(renderOrders(orders.State().Orders))
			return nil
		},
	}

	cmd.Flags().StringVar(&params.Exchange, "exchange", "", "Exchange id")
	cmd.Flags().StringVar(&params.Symbol, "symbol", "", "Symbol, e.g. BTC/USDT")
	cmd.Flags().StringVar(&side, "side", "buy", "buy or sell")
	cmd.Flags().StringVar(&typ, "type", "limit", "limit or market")
	cmd.Flags().StringVar(&amount, "amount", "", "Order amount")
	cmd.Flags().StringVar(&price, "price", "", "Limit price")
	_ = cmd.MarkFlagRequired("exchange")
	_ = cmd.MarkFlagRequired("symbol")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newOrdersCancelCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel EXCHANGE SYMBOL ORDER_ID",
		Short: "Cancel an order",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			orders := console.NewOrderContext(app.client(), app.log)
			err := orders.CancelOrder(cmd.Context(), model.CancelOrderParams{Exchange: args[0], Symbol: args[1], OrderID: args[2]})
			if err != nil {
				return err
			}
			app.printf("Cancelled order %s\n", args[2])
			return nil
		},
	}
}

func formatMillis(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04:05")
}
