// Command fixture-export turns the saved manifest into a replay fixture: the
// saved rows become the starting list, a bulk suggestion pass is the only
// step, and the current outcome of that pass is recorded as the expectation.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/cargo-intake/internal/assist"
	"github.com/danielpatrickdp/cargo-intake/internal/config"
	"github.com/danielpatrickdp/cargo-intake/internal/kv"
	"github.com/danielpatrickdp/cargo-intake/internal/persist"
	"github.com/danielpatrickdp/cargo-intake/internal/record"
	"github.com/danielpatrickdp/cargo-intake/internal/replay"
	"github.com/danielpatrickdp/cargo-intake/internal/schema"
)

// #region main

func main() {
	var configPath, outPath string
	cmd := &cobra.Command{
		Use:          "fixture-export --out fixture.json",
		Short:        "Export the saved manifest as a replay fixture",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			f, err := export(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if err := writeFixture(f, outPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d rows to %s\n", len(f.Start), outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", os.Getenv("CARGO_CONFIG"), "path to a YAML config file")
	cmd.Flags().StringVar(&outPath, "out", "", "output fixture JSON path")
	_ = cmd.MarkFlagRequired("out")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

func export(ctx context.Context, cfg config.Config) (replay.Fixture, error) {
	sc := schema.Cargo()
	if cfg.SchemaPath != "" {
		var err error
		if sc, err = schema.Load(cfg.SchemaPath); err != nil {
			return replay.Fixture{}, err
		}
	}
	backend, err := kv.Open(cfg.KV)
	if err != nil {
		return replay.Fixture{}, fmt.Errorf("open %s storage: %w", cfg.KV.Backend, err)
	}
	defer backend.Close()

	saved, ok := persist.New(backend, sc, persist.WithKey(cfg.StorageKey)).Load(ctx)
	if !ok {
		return replay.Fixture{}, fmt.Errorf("no saved records under %q", cfg.StorageKey)
	}
	start := record.List{}
	for _, r := range saved {
		if sc.HasIdentity(r) {
			start = append(start, r)
		}
	}
	return buildFixture(ctx, sc, start, cfg), nil
}

// buildFixture replays the bulk pass with the offline collaborator, so the
// fixture is reproducible without network access.
func buildFixture(ctx context.Context, sc *schema.Schema, start record.List, cfg config.Config) replay.Fixture {
	steps := []replay.Step{{ID: "suggest-all", Op: replay.OpSuggestAll}}
	runCfg := replay.DefaultConfig()
	runCfg.HistoryLimit = cfg.HistoryLimit
	runCfg.Thresholds = cfg.AI.Thresholds

	results, _ := replay.Replay(ctx, sc, start, steps, assist.NewHeuristic(), runCfg)

	expected := make([]replay.ExpectedResult, len(results))
	for i, r := range results {
		exp := replay.ExpectedResult{
			ID:         r.ID,
			Error:      r.Err != nil,
			Len:        r.Len,
			Identified: r.Identified,
			Issues:     r.Issues,
		}
		rows := make([]int, 0, len(r.AIFilled))
		for row := range r.AIFilled {
			rows = append(rows, row)
		}
		sort.Ints(rows)
		for _, row := range rows {
			for _, key := range r.AIFilled[row] {
				filled := true
				exp.Cells = append(exp.Cells, replay.ExpectedCell{
					Row: row, Field: key, Value: r.Records[row].Get(key), AIFilled: &filled,
				})
			}
		}
		expected[i] = exp
	}

	thresholds := runCfg.Thresholds
	return replay.Fixture{
		Description: fmt.Sprintf("Bulk suggestion pass over %d saved rows", len(start)),
		Start:       start,
		Config: replay.FixtureConfig{
			HistoryLimit: runCfg.HistoryLimit,
			Thresholds:   &thresholds,
			Collaborator: "heuristic",
		},
		Steps:    steps,
		Expected: expected,
	}
}

// #endregion extract

// #region output

func writeFixture(f replay.Fixture, outPath string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}
	return nil
}

// #endregion output
