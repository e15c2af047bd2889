package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pos.db")

	db, err := Open(Options{Driver: DriverSQLite, DSN: path}, zap.NewNop())
	require.NoError(t, err)

	var n int
	require.NoError(t, db.Raw("SELECT 1").Scan(&n).Error)
	assert.Equal(t, 1, n)

	var mode string
	require.NoError(t, db.Raw("PRAGMA journal_mode").Scan(&mode).Error)
	assert.Equal(t, "wal", mode)

	assert.NoError(t, Close(db))
	assert.FileExists(t, path)
}

func TestOpenRejects(t *testing.T) {
	_, err := Open(Options{Driver: "mysql", DSN: "x"}, zap.NewNop())
	assert.Error(t, err)

	_, err = Open(Options{Driver: DriverSQLite}, zap.NewNop())
	assert.Error(t, err)
}

func TestSharedReturnsSameHandle(t *testing.T) {
	opts := Options{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "shared.db")}

	a, err := Shared(opts, zap.NewNop())
	require.NoError(t, err)
	b, err := Shared(Options{Driver: "ignored"}, zap.NewNop())
	require.NoError(t, err)
	assert.Same(t, a, b)
}
