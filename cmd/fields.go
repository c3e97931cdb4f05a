package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/findthatcharity/orgid-cli/internal/fields"
	"github.com/findthatcharity/orgid-cli/pkg/ftc"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List the fields that can be appended",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("fields"); err != nil {
			return err
		}
		cat, err := loadCatalogue()
		if err != nil {
			return err
		}

		props, err := newClient().ProposeProperties(cmd.Context())
		if err != nil || len(props) == 0 {
			zap.L().Warn("field proposal unavailable, showing defaults", zap.Error(err))
			props = catalogueProperties(cat)
		}

		formatFields(os.Stdout, props, cat)
		return nil
	},
}

func catalogueProperties(cat *fields.Catalogue) []ftc.Property {
	out := make([]ftc.Property, 0, len(cat.Properties))
	for _, p := range cat.Properties {
		out = append(out, ftc.Property{ID: p.ID, Name: p.Name})
	}
	return out
}

func formatFields(w io.Writer, props []ftc.Property, cat *fields.Catalogue) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tKIND")
	for _, p := range props {
		kind := "code"
		if fields.IsName(p.ID) {
			kind = "name"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Name, kind)
	}
	for _, c := range cat.Composites {
		fmt.Fprintf(tw, "%s\t%v\tcomposite\n", c.ID, c.Parts)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
}
