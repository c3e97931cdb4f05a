// Package fields manages the set of extra fields a user asks to append,
// including composite fields that expand to several real fields.
package fields

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Property is a field the remote service can add to a row.
type Property struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// DefaultProperties is offered when the field-proposal endpoint is unavailable.
var DefaultProperties = []Property{
	{ID: "postalCode", Name: "Postcode"},
	{ID: "latestIncome", Name: "Latest income"},
	{ID: "name", Name: "Name"},
}

// Composite describes a selectable field that stands for several real ones.
type Composite struct {
	ID    string   `yaml:"id"`
	Parts []string `yaml:"parts"`
}

// DefaultComposites is the built-in expansion table.
var DefaultComposites = []Composite{
	{ID: "latlng", Parts: []string{"lat", "long"}},
	{ID: "estnrth", Parts: []string{"oseast1m", "osnrth1m"}},
	{ID: "lep", Parts: []string{"lep1", "lep2"}},
	{ID: "lep_name", Parts: []string{"lep1_name", "lep2_name"}},
}

// Catalogue holds the composite table and the fallback property list.
type Catalogue struct {
	Composites []Composite `yaml:"composites"`
	Properties []Property  `yaml:"properties"`
}

// DefaultCatalogue returns the built-in catalogue.
func DefaultCatalogue() *Catalogue {
	return &Catalogue{
		Composites: append([]Composite(nil), DefaultComposites...),
		Properties: append([]Property(nil), DefaultProperties...),
	}
}

// LoadCatalogue reads a YAML catalogue. Sections missing from the file keep
// their built-in defaults.
func LoadCatalogue(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fields: read catalogue %s", path)
	}

	var c Catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "fields: parse catalogue")
	}

	def := DefaultCatalogue()
	if len(c.Composites) == 0 {
		c.Composites = def.Composites
	}
	if len(c.Properties) == 0 {
		c.Properties = def.Properties
	}
	for _, comp := range c.Composites {
		if comp.ID == "" || len(comp.Parts) == 0 {
			return nil, eris.Errorf("fields: composite %q needs an id and at least one part", comp.ID)
		}
	}
	return &c, nil
}

// Expand replaces each composite member of selected with its parts, in place,
// and drops duplicates. Other members are returned unchanged.
func (c *Catalogue) Expand(selected []string) []string {
	parts := make(map[string][]string, len(c.Composites))
	for _, comp := range c.Composites {
		parts[comp.ID] = comp.Parts
	}

	seen := make(map[string]struct{}, len(selected))
	out := make([]string, 0, len(selected))
	add := func(f string) {
		if _, ok := seen[f]; ok {
			return
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	for _, f := range selected {
		if p, ok := parts[f]; ok {
			for _, part := range p {
				add(part)
			}
			continue
		}
		add(f)
	}
	return out
}

// Expand uses the built-in composite table.
func Expand(selected []string) []string {
	return DefaultCatalogue().Expand(selected)
}

// IsName reports whether a field id is a name field rather than a code.
func IsName(id string) bool {
	return strings.HasSuffix(id, "_name")
}
