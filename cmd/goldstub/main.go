// Command goldstub serves a minimal gold shop for running the acceptance suite locally.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/networkteam/goldsuite/config"
	"github.com/networkteam/goldsuite/internal/logging"
	"github.com/networkteam/goldsuite/internal/stubapp"
)

var (
	addr         string
	envFile      string
	username     string
	password     string
	balance      float64
	pricePerGram float64
	idleTimeout  time.Duration
	logLevel     string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "goldstub",
	Short: "Serve a minimal gold shop for the acceptance suite",
	Long: `goldstub serves a small gold shop with a login, a buy gold form and an order
confirmation page. Credentials default to TEST_USER and TEST_PASS from the
environment or .env file, so the suite can run against it without further setup.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.Flags().StringVar(&addr, "addr", "localhost:3000", "listen address")
	rootCmd.Flags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "dotenv file with TEST_USER and TEST_PASS")
	rootCmd.Flags().StringVar(&username, "user", "", "accepted username (default TEST_USER)")
	rootCmd.Flags().StringVar(&password, "pass", "", "accepted password (default TEST_PASS)")
	rootCmd.Flags().Float64Var(&balance, "balance", stubapp.DefaultInitialBalance, "wallet balance of every new session")
	rootCmd.Flags().Float64Var(&pricePerGram, "price", stubapp.DefaultPricePerGram, "price per gram")
	rootCmd.Flags().DurationVar(&idleTimeout, "session-idle-timeout", stubapp.DefaultSessionIdleTimeout, "remove sessions unused for this long")
	rootCmd.Flags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger, closeLog, err := logging.New(logging.Options{Level: logLevel, Console: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer closeLog()

	cfg, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if username == "" {
		username = cfg.Username
	}
	if password == "" {
		password = cfg.Password
	}
	if username == "" || password == "" {
		return fmt.Errorf("credentials required: set --user/--pass or %s/%s", config.KeyUser, config.KeyPass)
	}
	if pricePerGram <= 0 {
		return errors.New("--price must be greater than zero")
	}

	shop := stubapp.New(
		stubapp.WithCredentials(username, password),
		stubapp.WithInitialBalance(balance),
		stubapp.WithPricePerGram(pricePerGram),
		stubapp.WithSessionIdleTimeout(idleTimeout),
		stubapp.WithLogger(logger),
	)
	defer shop.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           shop,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(listener)
	}()

	logger.Info("Gold shop listening",
		slog.String("url", "http://"+listener.Addr().String()),
		slog.String("user", username),
	)

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down gold shop")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
