package enrich

import (
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/findthatcharity/orgid-cli/internal/model"
	"github.com/findthatcharity/orgid-cli/internal/orgid"
	"github.com/findthatcharity/orgid-cli/internal/tabular"
)

// RebuildStats describes a rebuilt table.
type RebuildStats struct {
	Rows        int      `json:"rows"`
	MatchedRows int      `json:"matched_rows"`
	Added       []string `json:"added"`
	Skipped     []string `json:"skipped,omitempty"`
}

// Rebuild returns a copy of t with fields appended to the header and filled
// from merged, matching each row by the normalized value of column. Rows
// keep their order and original values; unmatched rows get empty cells.
// Fields already in the header are not added again.
func Rebuild(t *tabular.Table, merged model.MergeMap, column string, fields []string) (*tabular.Table, RebuildStats) {
	var added, skipped []string
	for _, f := range fields {
		switch {
		case t.HasField(f):
			skipped = append(skipped, f)
		case slices.Contains(added, f):
		default:
			added = append(added, f)
		}
	}
	if len(skipped) > 0 {
		zap.L().Warn("enrich: fields already present, keeping original values",
			zap.Strings("fields", skipped),
		)
	}

	out := &tabular.Table{
		Header:  append(slices.Clone(t.Header), added...),
		Rows:    make([]tabular.Row, len(t.Rows)),
		Format:  t.Format,
		Dialect: t.Dialect,
	}
	stats := RebuildStats{Rows: len(t.Rows), Added: added, Skipped: skipped}

	for i, row := range t.Rows {
		nr := make(tabular.Row, len(row)+len(added))
		maps.Copy(nr, row)

		var (
			rec   map[string]string
			found bool
		)
		if v := row.Get(column); v != "" {
			rec, found = merged[orgid.Normalize(v)]
		}
		if found {
			stats.MatchedRows++
		}
		for _, f := range added {
			nr[f] = rec[f]
		}
		out.Rows[i] = nr
	}

	return out, stats
}
