package dbopen

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func TestOpenCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "app.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestOpenMemory(t *testing.T) {
	db := OpenMemory(t)
	if _, err := db.Exec("CREATE TABLE x (id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("INSERT INTO x (id) VALUES (1)"); err != nil {
		t.Fatal(err)
	}
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM x").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestRunTxCommit(t *testing.T) {
	db := OpenMemory(t)
	if _, err := db.Exec("CREATE TABLE x (id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatal(err)
	}

	err := RunTx(context.Background(), db, func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO x (id) VALUES (1)")
		return err
	})
	if err != nil {
		t.Fatalf("RunTx: %v", err)
	}

	var n int
	db.QueryRow("SELECT COUNT(*) FROM x").Scan(&n)
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestRunTxRollsBackInFull(t *testing.T) {
	db := OpenMemory(t)
	if _, err := db.Exec("CREATE TABLE x (id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatal(err)
	}

	wantErr := fmt.Errorf("row 2 is poison")
	err := RunTx(context.Background(), db, func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO x (id) VALUES (1)"); err != nil {
			return err
		}
		return wantErr
	})
	if err == nil {
		t.Fatal("RunTx must surface the callback error")
	}

	var n int
	db.QueryRow("SELECT COUNT(*) FROM x").Scan(&n)
	if n != 0 {
		t.Errorf("count = %d after rollback, want 0", n)
	}
}

func TestIsBusy(t *testing.T) {
	if IsBusy(nil) {
		t.Error("nil is not busy")
	}
	if !IsBusy(fmt.Errorf("database is locked (5) (SQLITE_BUSY)")) {
		t.Error("SQLITE_BUSY must be recognised")
	}
	if IsBusy(fmt.Errorf("no such table: x")) {
		t.Error("unrelated errors are not busy")
	}
}
