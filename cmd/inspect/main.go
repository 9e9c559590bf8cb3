// Command inspect prints the saved manifest, its validation status and the
// recent AI decision log.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/cargo-intake/internal/config"
	"github.com/danielpatrickdp/cargo-intake/internal/kv"
	"github.com/danielpatrickdp/cargo-intake/internal/logging"
	"github.com/danielpatrickdp/cargo-intake/internal/persist"
	"github.com/danielpatrickdp/cargo-intake/internal/record"
	"github.com/danielpatrickdp/cargo-intake/internal/schema"
	"github.com/danielpatrickdp/cargo-intake/internal/store"
)

// #region main

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	last       int
	row        int
	jsonOut    bool
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:          "inspect",
		Short:        "Show the saved manifest, its issues and recent AI decisions",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", os.Getenv("CARGO_CONFIG"), "path to a YAML config file")
	cmd.Flags().IntVar(&opts.last, "last", 20, "show N most recent AI decisions")
	cmd.Flags().IntVar(&opts.row, "row", 0, "only show AI decisions for this row (1-based)")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "output as JSON instead of table")
	return cmd
}

// #endregion main

// #region collect

type output struct {
	Records    record.List               `json:"records"`
	Status     store.Status              `json:"status"`
	Stats      store.Stats               `json:"stats"`
	Provenance []logging.ProvenanceEntry `json:"provenance,omitempty"`
}

func run(ctx context.Context, cfg config.Config, opts options, w io.Writer) error {
	sc := schema.Cargo()
	if cfg.SchemaPath != "" {
		var err error
		if sc, err = schema.Load(cfg.SchemaPath); err != nil {
			return err
		}
	}

	backend, err := kv.Open(cfg.KV)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", cfg.KV.Backend, err)
	}
	defer backend.Close()

	var storeOpts []store.Option
	if saved, ok := persist.New(backend, sc, persist.WithKey(cfg.StorageKey)).Load(ctx); ok {
		storeOpts = append(storeOpts, store.WithRecords(saved))
	}
	st := store.New(sc, storeOpts...)

	out := output{
		Records: st.GetAll(),
		Status:  st.Status(),
		Stats:   st.Stats(schema.KeyQuantity, schema.KeyWeight),
	}

	if cfg.ProvenancePath != "" {
		if _, err := os.Stat(cfg.ProvenancePath); err == nil {
			sink, err := logging.OpenSQLiteSink(cfg.ProvenancePath)
			if err != nil {
				return fmt.Errorf("open provenance log: %w", err)
			}
			defer sink.Close()
			entries, err := sink.List(ctx, opts.last)
			if err != nil {
				return err
			}
			for _, e := range entries {
				if opts.row > 0 && e.RowIndex != opts.row-1 {
					continue
				}
				out.Provenance = append(out.Provenance, e)
			}
		}
	}

	if opts.jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	printTables(w, sc, out)
	return nil
}

// #endregion collect

// #region tables

func printTables(w io.Writer, sc *schema.Schema, out output) {
	if len(out.Records) == 0 {
		fmt.Fprintln(w, "no saved records")
	} else {
		fmt.Fprintf(w, "%-4s", "#")
		for _, k := range sc.Keys() {
			fmt.Fprintf(w, "  %-14s", k)
		}
		fmt.Fprintln(w)
		for i, r := range out.Records {
			fmt.Fprintf(w, "%-4d", i+1)
			for _, k := range sc.Keys() {
				fmt.Fprintf(w, "  %-14s", r.Get(k))
			}
			fmt.Fprintln(w)
		}
	}

	fmt.Fprintf(w, "\nItems: %d unique, %d total, %.2f kg\n",
		out.Stats.UniqueItems, out.Stats.TotalItems, out.Stats.TotalWeight)

	if out.Status.HasIssues {
		fmt.Fprintf(w, "\nIssues (%d across %d items):\n", out.Status.TotalIssues, out.Status.ItemsAffected)
		for _, is := range out.Status.Issues {
			fmt.Fprintf(w, "  %-7s  %-20s  %-16s  %s\n", is.Severity, is.Label, is.Field, is.Message)
		}
	}

	if len(out.Provenance) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%-20s  %4s  %-14s  %-16s  %5s  %-12s  %s\n",
		"Time", "Row", "Decision", "Field", "Conf", "Value", "Reason")
	fmt.Fprintf(w, "%-20s+-%4s+-%-14s+-%-16s+-%5s+-%-12s+-%s\n",
		"--------------------", "----", "--------------", "----------------", "-----", "------------", "--------------------")
	for _, e := range out.Provenance {
		fmt.Fprintf(w, "%-20s  %4d  %-14s  %-16s  %5.2f  %-12s  %s\n",
			e.CreatedAt.Format(time.DateTime), e.RowIndex+1, e.Decision, e.Field, e.Confidence, e.Value, e.Reason)
	}
}

// #endregion tables
