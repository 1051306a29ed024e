package postgres

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations_Paired(t *testing.T) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file %s", name)
		}
	}
	assert.Equal(t, ups, downs)
}

func TestEmbeddedMigrations_RulesTable(t *testing.T) {
	raw, err := fs.ReadFile(migrationFS, "migrations/000001_create_rules.up.sql")
	require.NoError(t, err)
	sql := string(raw)
	assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS rules")
	assert.Contains(t, sql, "UNIQUE (library, embedding, canonical)")
}

func TestRollbackMigration_RejectsNonPositive(t *testing.T) {
	conn := NewConnectionWithDB(nil, nil, nil)
	assert.Error(t, conn.RollbackMigration(0))
}

//Personal.AI order the ending
