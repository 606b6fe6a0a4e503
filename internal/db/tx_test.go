package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	// Every pooled connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE test_table (id INTEGER PRIMARY KEY, value TEXT)`)
	if err != nil {
		db.Close()
		t.Fatalf("failed to create table: %v", err)
	}

	return db
}

func countRows(t *testing.T, db *sql.DB) int {
	t.Helper()
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM test_table`).Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	return count
}

func TestWithTx_Success(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	err := WithTx(t.Context(), db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO test_table (value) VALUES (?)`, "test")
		return err
	})

	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}
	if count := countRows(t, db); count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestWithTx_Rollback(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	testErr := errors.New("test error")

	err := WithTx(t.Context(), db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO test_table (value) VALUES (?)`, "first"); err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO test_table (value) VALUES (?)`, "second"); err != nil {
			return err
		}
		return testErr // Return error to trigger rollback
	})

	if !errors.Is(err, testErr) {
		t.Fatalf("WithTx should return the error: got %v, want %v", err, testErr)
	}
	if count := countRows(t, db); count != 0 {
		t.Errorf("count = %d, want 0 (rolled back)", count)
	}
}

func TestWithTx_CanceledContext(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	called := false
	err := WithTx(ctx, db, func(*sql.Tx) error {
		called = true
		return nil
	})

	if err == nil {
		t.Fatal("WithTx should fail with a canceled context")
	}
	if called {
		t.Error("fn should not run when the transaction cannot begin")
	}
}
