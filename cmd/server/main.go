package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/interastral-2026/novanew/internal/config"
)

const banner = `
╔══════════════════════════════════════╗
║        NOVA AI Trader v0.3           ║
║                                      ║
╚══════════════════════════════════════╝
`

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "server",
		Short:         "AI-assisted crypto trading dashboard backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the refresh loop, decision cadence and dashboard API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "analyze",
		Short: "Fetch one snapshot and run one decision cycle in STANDBY",
		Long: `Fetches market data and the portfolio once, asks the oracle for a decision
and prints the resulting event log. Orders are never placed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context())
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Print and validate the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cfg.Print()
			return cfg.Validate()
		},
	})

	return root
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config load error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Print()
	return cfg, nil
}

func runServe(parent context.Context) error {
	fmt.Print(banner)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Graceful shutdown context
	ctx, stop := signal.NotifyContext(contextOrBackground(parent), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := buildRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	// 1. Webhook forwarding
	fwd := rt.startForwarder(ctx)

	// 2. API server
	srv := rt.apiServer()
	srvErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()

	// 3. Snapshot refresh; the decision cadence waits for autonomous mode.
	rt.ctrl.Start()
	fmt.Println("\nAll services started successfully")

	// Wait for shutdown signal
	select {
	case <-ctx.Done():
	case err := <-srvErr:
		fmt.Fprintf(os.Stderr, "[API] Server error: %v\n", err)
		stop()
	}
	fmt.Println("\nShutting down gracefully...")

	rt.ctrl.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "[API] Shutdown error: %v\n", err)
	}
	fmt.Println("[API] Server closed")
	rt.printPaperStats(shutdownCtx)

	if fwd != nil {
		select {
		case <-fwd.Done():
		case <-shutdownCtx.Done():
		}
	}
	fmt.Println("Shutdown complete")
	return nil
}

func runAnalyze(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(contextOrBackground(parent), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := buildRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.store.Refresh(ctx); err != nil {
		printEvents(rt)
		return fmt.Errorf("snapshot refresh failed: %w", err)
	}
	fmt.Printf("[ANALYZE] Portfolio: %s\n", rt.portfolioLine())

	// The controller is never started here, so the mode stays STANDBY.
	out := rt.ctrl.AnalyzeNow(ctx)
	printEvents(rt)
	fmt.Printf("[ANALYZE] Outcome: %s\n", out)
	rt.printPaperStats(ctx)
	return nil
}

// printEvents writes the event log oldest first.
func printEvents(rt *runtime) {
	events := rt.events.Snapshot()
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		fmt.Printf("%s [%s] %s\n", ev.Timestamp.Format(time.TimeOnly), ev.Kind, ev.Message)
	}
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
