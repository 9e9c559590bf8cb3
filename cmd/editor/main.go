// Command editor is an interactive cargo manifest editor with AI-assisted
// field suggestions.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/cargo-intake/internal/config"
)

// #region main
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "editor",
		Short: "Edit a cargo manifest with AI-assisted field suggestions",
		Long: `Opens the saved manifest and reads commands from stdin. Setting an item's
name asks the AI collaborator for fragility, load bearing and temperature
range; confident answers are filled in, the rest are offered as suggestions.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", envOr("CARGO_CONFIG", ""), "path to a YAML config file")
	return cmd
}

func run(ctx context.Context, cfg config.Config, in io.Reader, out io.Writer) error {
	reg := prometheus.NewRegistry()
	s, err := openSession(ctx, cfg, reg)
	if err != nil {
		return err
	}
	defer s.Close()

	if cfg.MetricsAddr != "" {
		stop := serveMetrics(cfg.MetricsAddr, reg, s.logger)
		defer stop()
	}

	fmt.Fprintln(out, "Cargo intake editor ready.")
	fmt.Fprintf(out, "  Storage: %s | AI: %s | Rows: %d\n", cfg.KV.Backend, cfg.AI.Mode, len(s.store.GetAll()))
	fmt.Fprintln(out, "Type 'help' for commands (or 'quit' to exit):")
	return s.repl(ctx, in, out)
}

// #endregion main

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
