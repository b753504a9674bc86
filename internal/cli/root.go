package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"hbinterface/backend/internal/config"
	"hbinterface/backend/pkg/gateway"
	"hbinterface/backend/pkg/logger"

	"github.com/spf13/cobra"
)

// Version is overridden at build time with -ldflags
var Version = "dev"

// App carries the resolved gateway settings shared by every command
type App struct {
	cfg      config.GatewayConfig
	logLevel string
	out      io.Writer
	log      *logger.Logger
}

// NewRootCmd creates the hbctl root command. cfg provides the defaults that
// the persistent flags override.
func NewRootCmd(cfg config.GatewayConfig) *cobra.Command {
	app := &App{cfg: cfg}

	rootCmd := &cobra.Command{
		Use:   "hbctl",
		Short: "Terminal console for the Hummingbot gateway",
		Long: `hbctl talks to a Hummingbot gateway over REST and WebSocket.
It manages bots, orders, exchange credentials and positions, and can watch
them live.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			app.out = cmd.OutOrStdout()
			app.log = logger.NewWithWriter(cmd.ErrOrStderr(), app.logLevel, "pretty")
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&app.cfg.APIURL, "gateway-url", cfg.APIURL, "Gateway REST base URL")
	flags.StringVar(&app.cfg.WSURL, "ws-url", cfg.WSURL, "Gateway WebSocket URL")
	flags.StringVar(&app.cfg.APIKey, "api-key", cfg.APIKey, "Gateway API key")
	flags.StringVar(&app.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flags.DurationVar(&app.cfg.Timeout, "timeout", cfg.Timeout, "Request timeout")

	rootCmd.AddCommand(
		newBotsCmd(app),
		newOrdersCmd(app),
		newBalancesCmd(app),
		newExchangesCmd(app),
		newKeysCmd(app),
		newPositionsCmd(app),
		newOrderBookCmd(app),
		newAnalyticsCmd(app),
		newWatchCmd(app),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hbctl %s\n", Version)
		},
	}
}

func (a *App) gatewayConfig() gateway.Config {
	return gateway.Config{
		APIURL:            a.cfg.APIURL,
		WSURL:             a.cfg.WSURL,
		APIKey:            a.cfg.APIKey,
		Timeout:           a.cfg.Timeout,
		ReconnectDelay:    a.cfg.ReconnectDelay,
		AckTimeout:        a.cfg.Timeout,
		RequestsPerSecond: a.cfg.RequestsPerSecond,
	}
}

func (a *App) client() *gateway.Client {
	return gateway.NewClient(a.gatewayConfig(), a.log)
}

func (a *App) socket() *gateway.Socket {
	return gateway.NewSocket(a.gatewayConfig(), a.log)
}

// connect starts socket and waits for the first connection. The caller
// closes the socket.
func (a *App) connect(ctx context.Context, socket *gateway.Socket, onMessage func(gateway.Message)) error {
	if err := socket.Connect(ctx, onMessage); err != nil {
		return err
	}

	timeout := a.cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := socket.WaitConnected(waitCtx); err != nil {
		return fmt.Errorf("connect to %s: %w", a.cfg.WSURL, err)
	}
	return nil
}

func (a *App) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) println(s string) {
	fmt.Fprintln(a.out, s)
}
