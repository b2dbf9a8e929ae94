package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketchat/internal/config"
)

func TestOpenSQLite(t *testing.T) {
	repos, err := Open(&config.Config{DBDriver: config.DriverSQLite, SQLitePath: ":memory:"}, true)
	require.NoError(t, err)
	defer repos.Close()

	u, err := repos.Users.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(&config.Config{DBDriver: "mysql"}, true)
	assert.Error(t, err)
}
