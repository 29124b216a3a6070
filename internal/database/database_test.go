package database

import (
	"strings"
	"testing"

	"tally/internal/config"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig(&config.Config{
		DBDriver:   "postgres",
		DBHost:     "db",
		DBPort:     "5433",
		DBUser:     "u",
		DBPassword: "p",
		DBName:     "tally",
		DBSSLMode:  "disable",
	})

	if got := cfg.DSN(); got != "host=db port=5433 user=u password=p dbname=tally sslmode=disable" {
		t.Errorf("unexpected DSN %q", got)
	}
	if got := cfg.URL(); got != "postgres://u:p@db:5433/tally?sslmode=disable" {
		t.Errorf("unexpected URL %q", got)
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(&Config{Driver: "mongodb"})
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("expected unsupported driver error, got %v", err)
	}
}

func TestManager_SQLiteMigrate(t *testing.T) {
	m, err := NewManager(&Config{Driver: DriverSQLite, Path: "file:dbtest?mode=memory&cache=shared"})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	defer m.Close()

	if err := m.Migrate(); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	for _, table := range []string{"users", "expenses", "reports", "report_entries", "audit_logs"} {
		if !m.DB().Migrator().HasTable(table) {
			t.Errorf("expected table %q to exist", table)
		}
	}
	if !m.DB().Migrator().HasIndex("expenses", "idx_expenses_user_name") {
		t.Error("expected unique (user_id, name) index on expenses")
	}
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	entries, err := migrationsDir()
	if err != nil {
		t.Fatalf("failed to read embedded migrations: %v", err)
	}
	ups := 0
	for _, name := range entries {
		if strings.HasSuffix(name, ".up.sql") {
			ups++
		}
	}
	if ups != 4 {
		t.Errorf("expected 4 up migrations, got %d (%v)", ups, entries)
	}
}
