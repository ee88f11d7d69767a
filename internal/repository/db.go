package repository

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"todo-assistant/internal/apperr"
	"todo-assistant/internal/model"
)

const defaultDSN = "todo_assistant.db"

// NewDB opens the database named by dsn and runs migrations. Postgres URLs
// select the postgres driver, anything else is treated as a SQLite path.
func NewDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = defaultDSN
	}

	dialector, err := dialectorFor(dsn)
	if err != nil {
		return nil, err
	}

	dbLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         dbLogger,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates every table the service needs.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Account{}, &model.Task{}, &model.Conversation{}, &model.Message{}); err != nil {
		return fmt.Errorf("migrate db: %w", err)
	}
	return nil
}

func dialectorFor(dsn string) (gorm.Dialector, error) {
	if isPostgresDSN(dsn) {
		return postgres.Open(dsn), nil
	}
	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}
	return sqlite.Open(withBusyTimeout(dsn)), nil
}

// withBusyTimeout makes concurrent SQLite writers wait for the lock instead of
// failing with "database is locked".
func withBusyTimeout(dsn string) string {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "_timeout") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_busy_timeout=5000"
}

func isPostgresDSN(dsn string) bool {
	lower := strings.ToLower(dsn)
	return strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://")
}

// ensureDirForSQLite creates parent dir for SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}

// translate maps gorm errors onto the shared error kinds.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%s: %w: %v", op, apperr.ErrConstraintViolation, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
