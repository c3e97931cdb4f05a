package ftc

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Property is a field the service can add to each row.
type Property struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type proposeResponse struct {
	Properties []struct {
		ID   string `json:"id"`
		Slug string `json:"slug"`
		Name string `json:"name"`
	} `json:"properties"`
}

// ProposeProperties asks the reconciliation endpoint first and the legacy
// endpoint second.
func (c *httpClient) ProposeProperties(ctx context.Context) ([]Property, error) {
	var firstErr error
	for _, path := range []string{c.paths.Propose, c.paths.FallbackPropose} {
		if path == "" {
			continue
		}
		var resp proposeResponse
		if err := c.getJSON(ctx, path, nil, &resp); err != nil {
			zap.L().Debug("ftc: propose properties failed", zap.String("path", path), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		props := make([]Property, 0, len(resp.Properties))
		for _, p := range resp.Properties {
			id := p.ID
			if id == "" {
				id = p.Slug
			}
			if id == "" {
				continue
			}
			name := p.Name
			if name == "" {
				name = id
			}
			props = append(props, Property{ID: id, Name: name})
		}
		return props, nil
	}
	if firstErr == nil {
		firstErr = eris.New("no endpoint configured")
	}
	return nil, eris.Wrap(firstErr, "ftc: propose properties")
}
