package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/findthatcharity/orgid-cli/internal/classify"
	"github.com/findthatcharity/orgid-cli/internal/enrich"
	"github.com/findthatcharity/orgid-cli/internal/fetcher"
	"github.com/findthatcharity/orgid-cli/internal/tabular"
)

var (
	enrichInput       string
	enrichColumn      string
	enrichFields      []string
	enrichOutput      string
	enrichConcurrency int
	enrichEncoding    string
	enrichSheet       string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Append organisation fields to every row of a CSV or XLSX file",
	Long: `Reads the input file, looks up each distinct organisation id in the chosen
column and writes a copy with the requested fields appended. If --column is
omitted the first header that looks like an organisation id is used.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if enrichConcurrency > 0 {
			cfg.Enrich.Concurrency = enrichConcurrency
		}

		env, err := initPipeline(ctx, "enrich")
		if err != nil {
			return err
		}
		defer env.Close()

		out, err := runEnrich(ctx, env.Pipeline, enrichOptions{
			Input:    enrichInput,
			Column:   enrichColumn,
			Fields:   enrichFields,
			Output:   enrichOutput,
			Encoding: firstNonEmpty(enrichEncoding, cfg.Enrich.Encoding),
			Sheet:    enrichSheet,
			Progress: os.Stderr,
		})
		if err != nil {
			return err
		}

		fmt.Fprintln(os.Stdout, out)
		return nil
	},
}

type enrichOptions struct {
	Input    string
	Column   string
	Fields   []string
	Output   string
	Encoding string
	Sheet    string
	// Fetcher downloads URL inputs; nil uses a default fetcher.
	Fetcher *fetcher.HTTPFetcher
	// Progress receives a running count of successful lookups; may be nil.
	Progress io.Writer
}

// runEnrich reads, enriches and writes one file. It returns the output path.
func runEnrich(ctx context.Context, p *enrich.Pipeline, opts enrichOptions) (string, error) {
	tbl, filename, err := readInput(ctx, opts)
	if err != nil {
		return "", err
	}

	column := opts.Column
	if column == "" {
		guess, ok := classify.GuessColumn(tbl.Header)
		if !ok {
			return "", eris.Errorf("no organisation id column found in %s; pass --column (fields: %s)",
				opts.Input, strings.Join(tbl.Header, ", "))
		}
		zap.L().Info("using guessed organisation id column", zap.String("column", guess))
		column = guess
	}

	req := enrich.Request{
		Table:    tbl,
		Filename: filename,
		Column:   column,
		Fields:   splitFields(opts.Fields),
	}
	if opts.Progress != nil {
		w := opts.Progress
		req.Progress = func(done, total int) {
			fmt.Fprintf(w, "\rlooked up %d of %d", done, total)
			if done == total {
				fmt.Fprintln(w)
			}
		}
	}

	res, err := p.Run(ctx, req)
	if err != nil {
		return "", eris.Wrap(err, "enrich")
	}

	out := opts.Output
	if out == "" {
		out = res.Filename
		if !fetcher.IsRemote(opts.Input) {
			out = filepath.Join(filepath.Dir(opts.Input), res.Filename)
		}
	}
	if err := res.Table.WriteFile(out); err != nil {
		return "", err
	}

	zap.L().Info("enriched file written",
		zap.String("output", out),
		zap.Int("rows", res.Stats.Rows),
		zap.Int("matched_rows", res.Stats.MatchedRows),
		zap.Int("failed_lookups", res.Stats.Failed),
		zap.Strings("added", res.Fields),
	)
	return out, nil
}

// readInput loads a local file, or downloads one when the input is a URL.
func readInput(ctx context.Context, opts enrichOptions) (*tabular.Table, string, error) {
	ro := tabular.ReadOptions{Encoding: opts.Encoding, Sheet: opts.Sheet}
	if !fetcher.IsRemote(opts.Input) {
		tbl, err := tabular.ReadFile(opts.Input, ro)
		return tbl, filepath.Base(opts.Input), err
	}

	f := opts.Fetcher
	if f == nil {
		f = fetcher.New(fetcher.Options{UserAgent: cfg.API.UserAgent})
	}
	return f.ReadTable(ctx, opts.Input, ro)
}

// splitFields accepts both repeated flags and comma separated lists.
func splitFields(raw []string) []string {
	var out []string
	for _, r := range raw {
		for _, f := range strings.Split(r, ",") {
			if f = strings.TrimSpace(f); f != "" {
				out = append(out, f)
			}
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	enrichCmd.Flags().StringVar(&enrichInput, "input", "", "CSV or XLSX file or http(s) URL to enrich (required)")
	enrichCmd.Flags().StringVar(&enrichColumn, "column", "", "header of the organisation id column (guessed if empty)")
	enrichCmd.Flags().StringSliceVar(&enrichFields, "fields", nil, "fields to append, e.g. latlng,ctry,lep")
	enrichCmd.Flags().StringVar(&enrichOutput, "output", "", "output path (default <input>-geo.<ext>)")
	enrichCmd.Flags().IntVar(&enrichConcurrency, "concurrency", 0, "concurrent lookups (0 uses config)")
	enrichCmd.Flags().StringVar(&enrichEncoding, "encoding", "", "character encoding of a CSV input, e.g. windows-1252")
	enrichCmd.Flags().StringVar(&enrichSheet, "sheet", "", "worksheet to read from an XLSX input (default first)")
	_ = enrichCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(enrichCmd)
}
