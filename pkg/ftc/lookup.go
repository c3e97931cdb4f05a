package ftc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"

	"github.com/rotisserie/eris"

	"github.com/findthatcharity/orgid-cli/internal/model"
	"github.com/findthatcharity/orgid-cli/internal/resilience"
)

type lookupResponse struct {
	Data []map[string]any `json:"data"`
}

func (c *httpClient) Lookup(ctx context.Context, fingerprint string, properties []string) ([]model.Record, error) {
	if fingerprint == "" {
		return nil, eris.New("ftc: empty fingerprint")
	}

	q := url.Values{}
	for _, p := range properties {
		q.Add("properties", p)
	}
	path := c.paths.Lookup + "/" + url.PathEscape(fingerprint)

	resp, err := resilience.Call(ctx, c.retry, func(ctx context.Context) (*lookupResponse, error) {
		var r lookupResponse
		if err := c.getJSON(ctx, path, q, &r); err != nil {
			return nil, err
		}
		return &r, nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "ftc: lookup %s", fingerprint)
	}
	if resp.Data == nil {
		return nil, eris.Errorf("ftc: lookup %s: response has no data", fingerprint)
	}

	records := make([]model.Record, 0, len(resp.Data))
	for _, item := range resp.Data {
		rec := model.Record{Fields: make(map[string]string, len(item))}
		for k, v := range item {
			if k == "id" {
				rec.ID = Stringify(v)
				continue
			}
			rec.Fields[k] = Stringify(v)
		}
		if rec.ID == "" {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Stringify renders a decoded JSON value as a table cell. Numbers keep their
// original text, null is empty and arrays or objects become compact JSON.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(t); err != nil {
			return ""
		}
		return string(bytes.TrimRight(buf.Bytes(), "\n"))
	}
}
