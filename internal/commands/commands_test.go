package commands

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"todo-assistant/internal/config"
	"todo-assistant/internal/repository"
)

func TestVersionCommand(t *testing.T) {
	SetVersion("1.2.3", "abc123", "2025-01-01")
	t.Cleanup(func() { SetVersion("dev", "none", "unknown") })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "todoassistant 1.2.3 (commit abc123") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestRunMigrateCreatesSchema(t *testing.T) {
	cfg := config.Defaults()
	cfg.Database.URL = filepath.Join(t.TempDir(), "nested", "todo.db")

	if err := runMigrate(cfg); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	db, err := repository.NewDB(cfg.Database.URL)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()
	for _, table := range []string{"accounts", "tasks", "conversations", "messages"} {
		if !db.Migrator().HasTable(table) {
			t.Errorf("missing table %s", table)
		}
	}
}
