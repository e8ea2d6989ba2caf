package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cassiomorais/stripewrapper/internal/bootstrap"
	"github.com/cassiomorais/stripewrapper/internal/infrastructure/config"
	"github.com/cassiomorais/stripewrapper/internal/infrastructure/observability"
	"github.com/cassiomorais/stripewrapper/internal/shell"
	"github.com/cassiomorais/stripewrapper/pkg/retry"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "stripewrapper: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fs := config.Flags("stripewrapper")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(fs)
	if err != nil {
		return err
	}

	// Stdin is shared by the key prompt and the shell.
	stdin := bufio.NewReader(os.Stdin)

	if cfg.Stripe.APIKey == "" {
		key, err := shell.AskAPIKey(stdin, os.Stdout)
		if err != nil {
			return fmt.Errorf("read API key: %w", err)
		}
		cfg.Stripe.APIKey = key
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	// The shell blocks on stdin; a second interrupt then kills the process.
	context.AfterFunc(ctx, stop)

	app, err := bootstrap.New(ctx, cfg, "stripewrapper", "stripewrapper", os.Stderr)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		app.Close(shutdownCtx)
	}()

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.Shell.RetryAttempts
	retryCfg.InitialDelay = cfg.Shell.RetryDelay

	sh := shell.New(app.Client, stdin, os.Stdout,
		shell.WithLogger(app.Logger),
		shell.WithMetrics(app.Metrics),
		shell.WithRetry(retryCfg),
	)

	// Bind before the shell blocks on stdin so a bad address fails fast.
	var metricsLn net.Listener
	if addr := cfg.Observability.MetricsAddr; addr != "" {
		if metricsLn, err = observability.Listen(addr); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Leaving the shell ends the process.
		defer cancel()
		return sh.Run(gctx)
	})

	if metricsLn != nil {
		router := observability.NewRouter(app.Registry)
		g.Go(func() error {
			return observability.Serve(gctx, app.Logger, metricsLn, router)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	app.Logger.Info().Msg("Exited")
	return nil
}
