package db

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDriverURL(t *testing.T) {
	require.Equal(t, "pgx5://u:p@localhost:5432/resto?sslmode=disable", DriverURL("postgres://u:p@localhost:5432/resto?sslmode=disable"))
	require.Equal(t, "pgx5://localhost/resto", DriverURL("postgresql://localhost/resto"))
	require.Equal(t, "pgx5://localhost/resto", DriverURL("pgx5://localhost/resto"))
}

func TestMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(Migrations(), "migrations")
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
			t.Fatalf("unexpected migration file %s", name)
		}
	}
	require.Equal(t, ups, downs)
}

func TestRollbackRequiresSteps(t *testing.T) {
	require.Error(t, Rollback("postgres://localhost/resto", 0))
}
