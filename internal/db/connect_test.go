package db

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpen_SQLiteCreatesSchema(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "t.db") + "?mode=rwc"

	d, err := Open(ctx, DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	for _, table := range []string{"users", "quiz_questions", "event_log"} {
		var name string
		err := d.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type='table' AND name=$1`, table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}

	// schema is idempotent
	if err := ensureSchema(ctx, d, DriverSQLite); err != nil {
		t.Fatalf("second ensureSchema: %v", err)
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := Open(context.Background(), Driver("mysql"), ""); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
