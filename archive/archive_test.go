package archive

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestMovePreservesCategory(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "transactions", "42-transactions.json")
	writeFile(t, src, `[]`)

	a := New(root)
	if err := a.Move(src, "transactions"); err != nil {
		t.Fatalf("Move: %v", err)
	}

	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source must no longer exist")
	}
	dest := filepath.Join(root, DirName, "transactions", "42-transactions.json")
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("archived copy missing: %v", err)
	}
	if string(data) != `[]` {
		t.Error("archived content differs from source")
	}
}

func TestMoveAlreadyArchivedIsNoOp(t *testing.T) {
	root := t.TempDir()
	archived := filepath.Join(root, DirName, "chats", "42-chats.json")
	writeFile(t, archived, `{}`)

	a := New(root)
	if err := a.Move(archived, "chats"); err != nil {
		t.Fatalf("double invocation must succeed: %v", err)
	}
	if _, err := os.Stat(archived); err != nil {
		t.Error("archived file must stay put")
	}
}

func TestMoveNeverClobbersArchive(t *testing.T) {
	root := t.TempDir()
	a := New(root)

	src := filepath.Join(root, "chats", "42-chats.json")
	writeFile(t, src, `{"v":1}`)
	if err := a.Move(src, "chats"); err != nil {
		t.Fatal(err)
	}

	// Same name shows up again (e.g. from a legacy root).
	writeFile(t, src, `{"v":2}`)
	if err := a.Move(src, "chats"); err != nil {
		t.Fatal(err)
	}

	first, err := os.ReadFile(filepath.Join(root, DirName, "chats", "42-chats.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != `{"v":1}` {
		t.Error("earlier archive entry was clobbered")
	}
	second, err := os.ReadFile(filepath.Join(root, DirName, "chats", "42-chats.json.1"))
	if err != nil {
		t.Fatalf("suffixed entry missing: %v", err)
	}
	if string(second) != `{"v":2}` {
		t.Error("later entry content wrong")
	}
}
