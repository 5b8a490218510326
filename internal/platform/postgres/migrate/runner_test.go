package migrate

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intakedesk/internal/platform/postgres"
)

func TestRunRejectsBadInput(t *testing.T) {
	err := Run("", "up")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")

	err = Run("postgres://localhost/x", "sideways")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "direction")
}

func TestMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(postgres.MigrationFS, "migrations/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(postgres.MigrationFS, "migrations/*.down.sql")
	require.NoError(t, err)

	require.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups), "every up migration needs a down migration")
}
