// Package classify guesses which column of an uploaded table holds the
// organisation identifier and collects sample values for manual selection.
package classify

import (
	"strings"

	"github.com/findthatcharity/orgid-cli/internal/tabular"
)

// DefaultSampleSize is the number of distinct sample values shown per field.
const DefaultSampleSize = 5

// identifierTokens are matched against field slugs.
var identifierTokens = []string{
	"charitynumber",
	"recipientorgid",
	"orgid",
	"organisationidentifier",
}

// Field describes one header field for the column picker.
type Field struct {
	Name    string   `json:"name"`
	Slug    string   `json:"slug"`
	Samples []string `json:"samples"`
	Guessed bool     `json:"guessed"`
}

// Report is the column picker's view of a table.
type Report struct {
	Rows   int     `json:"rows"`
	Fields []Field `json:"fields"`
	// Guess is the autodetected identifier column, empty if none matched.
	Guess string `json:"guess,omitempty"`
}

// Slug lowercases a field name and drops everything but letters and digits.
func Slug(field string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(field) {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// IsIdentifierField reports whether a field name looks like an identifier column.
func IsIdentifierField(field string) bool {
	slug := Slug(field)
	for _, tok := range identifierTokens {
		if strings.Contains(slug, tok) {
			return true
		}
	}
	return false
}

// GuessColumn returns the first header field that looks like an identifier
// column. ok is false when nothing matched and the user must choose.
func GuessColumn(header []string) (string, bool) {
	for _, field := range header {
		if IsIdentifierField(field) {
			return field, true
		}
	}
	return "", false
}

// Samples returns up to n distinct non-empty values of field in row order.
func Samples(t *tabular.Table, field string, n int) []string {
	if n <= 0 {
		n = DefaultSampleSize
	}
	seen := make(map[string]struct{}, n)
	out := make([]string, 0, n)
	for _, row := range t.Rows {
		v := row.Get(field)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
		if len(out) >= n {
			break
		}
	}
	return out
}

// Inspect builds the picker report for t.
func Inspect(t *tabular.Table) Report {
	guess, _ := GuessColumn(t.Header)
	rep := Report{Rows: len(t.Rows), Guess: guess}
	for _, field := range t.Header {
		rep.Fields = append(rep.Fields, Field{
			Name:    field,
			Slug:    Slug(field),
			Samples: Samples(t, field, DefaultSampleSize),
			Guessed: guess != "" && field == guess,
		})
	}
	return rep
}
