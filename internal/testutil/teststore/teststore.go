// Package teststore provides SQLite-backed stores for tests. Every call gets
// its own database file in a per-test temp directory, so tests never share
// rows.
//
// Usage:
//
//	func TestSomething(t *testing.T) {
//	    st := teststore.New(t)
//	    m := teststore.Machine(t, st, "Press 1")
//	    ...
//	}
package teststore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"machine-manual-backend/config"
	"machine-manual-backend/internal/db"
	"machine-manual-backend/internal/model"
	"machine-manual-backend/internal/store"
)

// Open returns a migrated gorm connection to a fresh SQLite file.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver:                 config.DriverSQLite,
		DSN:                    filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:           1,
		MaxIdleConns:           1,
		ConnMaxLifetimeMinutes: 5,
		ConnectTimeoutSeconds:  1,
	}
	gdb, err := db.Open(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

// New returns a Store backed by a fresh SQLite file.
func New(t testing.TB) store.Store {
	t.Helper()
	return store.NewGormStore(Open(t))
}

// Machine creates a machine with the given name.
func Machine(t testing.TB, st store.Store, name string) *model.Machine {
	t.Helper()
	m, err := st.CreateMachine(context.Background(), store.NewMachine{Name: name})
	require.NoError(t, err)
	return m
}

// Issue creates an issue on machineID. A zero issue.ReportedAt defaults to now.
func Issue(t testing.TB, st store.Store, machineID int64, issue model.Issue) *model.Issue {
	t.Helper()
	issue.MachineID = machineID
	if issue.ReportedBy == "" {
		issue.ReportedBy = "Test Reporter"
	}
	require.NoError(t, st.CreateIssue(context.Background(), &issue))
	return &issue
}
