package ftc

import (
	"context"
	"html"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
)

// MinQueryLength is the shortest query sent for autocompletion.
const MinQueryLength = 3

// Suggestion is one autocomplete result.
type Suggestion struct {
	Value    string   `json:"value"`
	Label    string   `json:"label"`
	OrgTypes []string `json:"orgtypes"`
}

type autocompleteResponse struct {
	Results []Suggestion `json:"results"`
}

func (c *httpClient) Autocomplete(ctx context.Context, q, orgtype string) ([]Suggestion, error) {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < MinQueryLength {
		return nil, nil
	}
	if orgtype == "" {
		orgtype = "all"
	}

	var resp autocompleteResponse
	err := c.getJSON(ctx, c.paths.Autocomplete, url.Values{"q": {q}, "orgtype": {orgtype}}, &resp)
	if err != nil {
		return nil, eris.Wrap(err, "ftc: autocomplete")
	}
	return resp.Results, nil
}

// Highlight returns text as HTML with every case-insensitive occurrence of
// term wrapped in before and after. Matching runs on the raw strings and each
// part is escaped afterwards, so a term never matches inside an entity. An
// empty term returns the escaped text.
func Highlight(text, term, before, after string) string {
	if term == "" {
		return html.EscapeString(text)
	}
	lowText := strings.ToLower(text)
	lowTerm := strings.ToLower(term)
	// Lowercasing can change byte lengths outside ASCII; fall back to no marks.
	if len(lowText) != len(text) || len(lowTerm) != len(term) {
		return html.EscapeString(text)
	}

	var b strings.Builder
	i := 0
	for {
		j := strings.Index(lowText[i:], lowTerm)
		if j < 0 {
			b.WriteString(html.EscapeString(text[i:]))
			return b.String()
		}
		b.WriteString(html.EscapeString(text[i : i+j]))
		b.WriteString(before)
		b.WriteString(html.EscapeString(text[i+j : i+j+len(term)]))
		b.WriteString(after)
		i += j + len(term)
	}
}
