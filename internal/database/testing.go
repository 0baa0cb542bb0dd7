package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/yourusername/darkhorses-odds/internal/config"
)

const defaultTestConfigPath = "../../config/config.test.yaml"

// SetupTestDB creates a database connection for integration tests. The
// config path comes from DARKHORSES_TEST_CONFIG when set. Tests calling
// this skip when no config or no reachable database is available.
func SetupTestDB(t *testing.T) *DB {
	t.Helper()

	path := os.Getenv("DARKHORSES_TEST_CONFIG")
	if path == "" {
		path = defaultTestConfigPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Skipf("no test database config available: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		t.Skipf("test database not reachable: %v", err)
	}

	verifyCtx, verifyCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer verifyCancel()

	if err := db.Ping(verifyCtx); err != nil {
		db.Close()
		t.Skipf("test database not reachable: %v", err)
	}

	return db
}

// TeardownTestDB closes the database connection cleanly
func TeardownTestDB(t *testing.T, db *DB) {
	t.Helper()
	db.Close()
}
