package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/findthatcharity/orgid-cli/internal/classify"
	"github.com/findthatcharity/orgid-cli/internal/tabular"
)

var columnsCmd = &cobra.Command{
	Use:   "columns <file>",
	Short: "Show the fields of a file and which one looks like an organisation id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		encoding, _ := cmd.Flags().GetString("encoding")
		sheet, _ := cmd.Flags().GetString("sheet")

		tbl, err := tabular.ReadFile(args[0], tabular.ReadOptions{Encoding: encoding, Sheet: sheet})
		if err != nil {
			return err
		}

		formatColumns(os.Stdout, classify.Inspect(tbl))
		return nil
	},
}

func formatColumns(w io.Writer, rep classify.Report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tGUESS\tSAMPLES")
	for _, f := range rep.Fields {
		mark := ""
		if f.Guessed {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Name, mark, strings.Join(f.Samples, ", "))
	}
	tw.Flush() //nolint:errcheck

	if rep.Guess == "" {
		fmt.Fprintf(w, "\n%d rows. No organisation id column recognised; pass --column to enrich.\n", rep.Rows)
		return
	}
	fmt.Fprintf(w, "\n%d rows. Organisation id column: %s\n", rep.Rows, rep.Guess)
}

func init() {
	columnsCmd.Flags().String("encoding", "", "character encoding of a CSV input")
	columnsCmd.Flags().String("sheet", "", "worksheet to read from an XLSX input")
	rootCmd.AddCommand(columnsCmd)
}
