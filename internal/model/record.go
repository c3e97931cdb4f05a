// Package model holds the records shared between the lookup client, the
// enrichment pipeline and the store.
package model

// Record is one organisation's extra fields as returned by the lookup service.
type Record struct {
	ID     string            `json:"id"`
	Fields map[string]string `json:"fields"`
}

// MergeMap indexes looked-up fields by normalized identifier.
type MergeMap map[string]map[string]string

// Merge copies every entry of other into m. Later writers win on collision.
func (m MergeMap) Merge(other MergeMap) {
	for id, fields := range other {
		m[id] = fields
	}
}
