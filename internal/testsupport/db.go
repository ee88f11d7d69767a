// Package testsupport holds helpers shared by package tests.
package testsupport

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"todo-assistant/internal/model"
	"todo-assistant/internal/repository"
)

// NewDB opens a migrated SQLite database in a temp directory and closes it when the test ends.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := repository.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// NewAccount stores an active account with the given email.
func NewAccount(t testing.TB, db *gorm.DB, email string) *model.Account {
	t.Helper()

	account := &model.Account{Email: &email, PasswordHash: "x", IsActive: true}
	if err := repository.NewAccountRepository(db).Create(context.Background(), account); err != nil {
		t.Fatalf("create account %s: %v", email, err)
	}
	return account
}

// Titles lists task titles in order.
func Titles(tasks []model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.Title)
	}
	return out
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

// MustEqual fails the test when got and want differ in their %v rendering.
func MustEqual(t testing.TB, what string, got, want any) {
	t.Helper()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("%s = %v, want %v", what, got, want)
	}
}
