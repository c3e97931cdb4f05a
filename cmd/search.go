package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/findthatcharity/orgid-cli/pkg/ftc"
)

var searchCmd = &cobra.Command{
	Use:   "search <name>",
	Short: "Find organisations by name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("search"); err != nil {
			return err
		}
		orgtype, _ := cmd.Flags().GetString("orgtype")
		q := strings.Join(args, " ")

		results, err := newClient().Autocomplete(cmd.Context(), q, orgtype)
		if err != nil {
			return eris.Wrap(err, "search")
		}
		if len(results) == 0 {
			fmt.Fprintf(os.Stderr, "No matches (queries need at least %d characters).\n", ftc.MinQueryLength)
			return nil
		}

		formatSuggestions(os.Stdout, results)
		return nil
	},
}

func formatSuggestions(w io.Writer, results []ftc.Suggestion) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPES")
	for _, s := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Value, s.Label, strings.Join(s.OrgTypes, ", "))
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	searchCmd.Flags().String("orgtype", "all", "restrict matches to one organisation type")
	rootCmd.AddCommand(searchCmd)
}
