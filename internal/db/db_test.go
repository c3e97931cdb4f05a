package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertSQL(t *testing.T) {
	sql, err := UpsertSQL(UpsertConfig{
		Table:        "lookup_cache",
		Columns:      []string{"key", "records", "expires_at"},
		ConflictKeys: []string{"key"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "lookup_cache" ("key", "records", "expires_at") VALUES ($1, $2, $3) ON CONFLICT ("key") DO UPDATE SET "records" = EXCLUDED."records", "expires_at" = EXCLUDED."expires_at"`,
		sql)
}

func TestUpsertSQL_ExplicitUpdateCols(t *testing.T) {
	sql, err := UpsertSQL(UpsertConfig{
		Table:        "orgid.lookup_cache",
		Columns:      []string{"key", "records"},
		ConflictKeys: []string{"key"},
		UpdateCols:   []string{"records"},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, `INSERT INTO "orgid"."lookup_cache"`)
	assert.Contains(t, sql, `DO UPDATE SET "records" = EXCLUDED."records"`)
}

func TestUpsertSQL_KeysOnly(t *testing.T) {
	sql, err := UpsertSQL(UpsertConfig{Table: "t", Columns: []string{"id"}, ConflictKeys: []string{"id"}})
	require.NoError(t, err)
	assert.Contains(t, sql, "DO NOTHING")
}

func TestUpsertSQL_Invalid(t *testing.T) {
	_, err := UpsertSQL(UpsertConfig{Table: "t", ConflictKeys: []string{"id"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")

	_, err = UpsertSQL(UpsertConfig{Table: "t", Columns: []string{"id"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestSanitizeTable(t *testing.T) {
	assert.Equal(t, `"simple"`, sanitizeTable("simple"))
	assert.Equal(t, `"orgid"."runs"`, sanitizeTable("orgid.runs"))
}
