package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/findthatcharity/orgid-cli/internal/model"
	"github.com/findthatcharity/orgid-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect enrichment run history",
	Long:  "Commands for listing and viewing enrichment runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrichment runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := requireStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		filename, _ := cmd.Flags().GetString("file")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status:   model.RunStatus(status),
			Filename: filename,
			Limit:    limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := requireStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "runs show %s", args[0])
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		}
		formatRunDetail(os.Stdout, run)
		return nil
	},
}

func formatRunsList(w io.Writer, runs []model.Run) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tCOLUMN\tSTATUS\tROWS\tMATCHED\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			shortID(r.ID),
			r.Filename,
			r.Column,
			r.Status,
			r.Stats.Rows,
			r.Stats.MatchedRows,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	tw.Flush() //nolint:errcheck
}

func formatRunDetail(w io.Writer, r *model.Run) {
	fmt.Fprintf(w, "Run:          %s\n", r.ID)
	fmt.Fprintf(w, "File:         %s\n", r.Filename)
	fmt.Fprintf(w, "Column:       %s\n", r.Column)
	fmt.Fprintf(w, "Fields:       %s\n", strings.Join(r.Fields, ", "))
	fmt.Fprintf(w, "Status:       %s\n", r.Status)
	fmt.Fprintf(w, "Created:      %s\n", r.CreatedAt.Format(time.RFC3339))
	if d := r.Duration(); d > 0 {
		fmt.Fprintf(w, "Duration:     %s\n", d.Round(time.Millisecond))
	}
	if r.Error != "" {
		fmt.Fprintf(w, "Error:        %s\n", r.Error)
		return
	}
	if r.Status == model.RunStatusComplete {
		fmt.Fprintf(w, "Rows:         %d (%d matched)\n", r.Stats.Rows, r.Stats.MatchedRows)
		fmt.Fprintf(w, "Lookups:      %d (%d failed)\n", r.Stats.Fingerprints, r.Stats.Failed)
		fmt.Fprintf(w, "Records:      %d\n", r.Stats.Records)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by status (running, complete, failed)")
	runsListCmd.Flags().String("file", "", "filter by input filename")
	runsListCmd.Flags().Int("limit", 20, "maximum runs to show")
	runsShowCmd.Flags().Bool("json", false, "print the run as JSON")

	runsCmd.AddCommand(runsListCmd, runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
