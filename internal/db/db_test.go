package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
)

func TestOpenSQLiteMigrates(t *testing.T) {
	cfg := Config{Driver: DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "edulife.db")}
	db, err := Open(logger.Nop(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	for _, model := range types.All() {
		require.True(t, db.Migrator().HasTable(model), "%T not migrated", model)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(logger.Nop(), Config{Driver: "mysql"})
	require.ErrorContains(t, err, "unknown DB_DRIVER")
}
