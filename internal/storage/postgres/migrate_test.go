package postgres

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := migrationSource().FindMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 4)

	ids := make([]string, 0, len(migrations))
	for _, m := range migrations {
		ids = append(ids, m.Id)
		require.NotEmpty(t, m.Up, "migration %s has no up section", m.Id)
		require.NotEmpty(t, m.Down, "migration %s has no down section", m.Id)
	}
	require.Equal(t, []string{
		"0001_chains.sql",
		"0002_sync_checkpoints.sql",
		"0003_logs.sql",
		"0004_pools.sql",
	}, ids)
}
