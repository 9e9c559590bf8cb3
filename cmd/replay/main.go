// Command replay runs a recorded editing session fixture and reports where the
// outcome differs from its expectations.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/cargo-intake/internal/assist"
	"github.com/danielpatrickdp/cargo-intake/internal/replay"
	"github.com/danielpatrickdp/cargo-intake/internal/schema"
	"github.com/danielpatrickdp/cargo-intake/internal/suggest"
)

// #region main

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		schemaPath string
		jsonOut    bool
	)
	cmd := &cobra.Command{
		Use:          "replay <fixture.json>",
		Short:        "Replay a session fixture and check it against its expectations",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := schema.Cargo()
			if schemaPath != "" {
				var err error
				if sc, err = schema.Load(schemaPath); err != nil {
					return err
				}
			}
			return runFixture(cmd.Context(), args[0], sc, jsonOut, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "YAML schema (default: built-in cargo schema)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON instead of table")
	return cmd
}

// #endregion main

// #region fixture-mode

type stepRow struct {
	ID         string `json:"id"`
	Op         string `json:"op"`
	Error      string `json:"error,omitempty"`
	Len        int    `json:"len"`
	Identified int    `json:"identified"`
	Issues     int    `json:"issues"`
}

type report struct {
	Description string    `json:"description"`
	Steps       []stepRow `json:"steps"`
	Mismatches  []string  `json:"mismatches"`
	Errors      int       `json:"errors"`
	UniqueItems int       `json:"unique_items"`
	TotalWeight float64   `json:"total_weight"`
}

// errMismatch is returned when a replay does not match its expectations.
type errMismatch int

func (e errMismatch) Error() string { return fmt.Sprintf("%d mismatch(es)", int(e)) }

func runFixture(ctx context.Context, path string, sc *schema.Schema, jsonOut bool, out io.Writer) error {
	f, err := replay.LoadFixture(path)
	if err != nil {
		return err
	}

	var client suggest.Client = &f.Script
	if f.Config.Collaborator == "heuristic" {
		client = assist.NewHeuristic()
	}
	f.Script.IdentityKey = sc.Identity()

	results, summary := replay.Replay(ctx, sc, f.Start, f.Steps, client, f.Config.ToConfig())

	rep := report{
		Description: f.Description,
		Mismatches:  replay.Check(results, f.Expected),
		Errors:      summary.Errors,
		UniqueItems: summary.Stats.UniqueItems,
		TotalWeight: summary.Stats.TotalWeight,
	}
	for _, r := range results {
		row := stepRow{ID: r.ID, Op: r.Op, Len: r.Len, Identified: r.Identified, Issues: r.Issues}
		if r.Err != nil {
			row.Error = r.Err.Error()
		}
		rep.Steps = append(rep.Steps, row)
	}

	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
	} else {
		printTable(out, rep)
	}
	if len(rep.Mismatches) > 0 {
		return errMismatch(len(rep.Mismatches))
	}
	return nil
}

func printTable(out io.Writer, rep report) {
	fmt.Fprintf(out, "%s\n\n", rep.Description)
	fmt.Fprintf(out, "%-8s  %-12s  %5s  %10s  %6s  %s\n", "Step", "Op", "Len", "Identified", "Issues", "Error")
	fmt.Fprintf(out, "%-8s+-%-12s+-%5s+-%10s+-%6s+-%s\n", "--------", "------------", "-----", "----------", "------", "--------")
	for _, s := range rep.Steps {
		fmt.Fprintf(out, "%-8s  %-12s  %5d  %10d  %6d  %s\n", s.ID, s.Op, s.Len, s.Identified, s.Issues, s.Error)
	}
	fmt.Fprintf(out, "\n%d steps, %d errors, %d items, %.2f kg\n", len(rep.Steps), rep.Errors, rep.UniqueItems, rep.TotalWeight)
	if len(rep.Mismatches) == 0 {
		fmt.Fprintln(out, "PASS")
		return
	}
	fmt.Fprintln(out, "FAIL")
	for _, m := range rep.Mismatches {
		fmt.Fprintf(out, "  %s\n", m)
	}
}

// #endregion fixture-mode
