package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/orgagenda/internal/apperr"
)

func tempVault(t *testing.T, files map[string]string) *FS {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestRead(t *testing.T) {
	s := tempVault(t, map[string]string{"todo.org": "* TODO a\n"})
	got, err := s.Read("todo.org")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "* TODO a\n" {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestRead_Missing(t *testing.T) {
	s := tempVault(t, nil)
	_, err := s.Read("nope.org")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestList_OnlyOrgFilesInLexicalOrder(t *testing.T) {
	s := tempVault(t, map[string]string{
		"b.org":          "b",
		"a.org":          "a",
		"sub/c.org":      "c",
		"readme.md":      "not org",
		".git/x.org":     "hidden",
		"notes.org~":     "backup",
		"sub/deep/d.org": "d",
	})

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"a.org", "b.org", filepath.Join("sub", "c.org"), filepath.Join("sub", "deep", "d.org")}
	if len(items) != len(want) {
		t.Fatalf("len = %d, want %d (%+v)", len(items), len(want), items)
	}
	for i, w := range want {
		if items[i].Path != w {
			t.Errorf("items[%d] = %q, want %q", i, items[i].Path, w)
		}
		if items[i].Checksum == "" {
			t.Errorf("items[%d] has empty checksum", i)
		}
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempVault(t, nil)

	cases := []string{
		"../../etc/passwd",
		"../outside.org",
		"/etc/shadow",
	}
	for _, p := range cases {
		_, err := s.Read(p)
		if !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("Read(%q) err = %v, want ErrInvalidInput", p, err)
		}
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "orgagenda-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestSelection_OrderAndMembership(t *testing.T) {
	fs := tempVault(t, map[string]string{
		"work.org":      "w",
		"home.org":      "h",
		"ignored.org":   "i",
		"sub/later.org": "l",
	})
	sel := Select(fs, []string{"work.org", "sub/later.org", "missing.org", "home.org", "./work.org"})

	items, err := sel.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"work.org", filepath.Join("sub", "later.org"), "home.org"}
	if len(items) != len(want) {
		t.Fatalf("len = %d, want %d", len(items), len(want))
	}
	for i, w := range want {
		if items[i].Path != w {
			t.Errorf("items[%d] = %q, want %q", i, items[i].Path, w)
		}
	}

	if _, err := sel.Read("ignored.org"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("read outside selection: err = %v, want ErrNotFound", err)
	}
	if data, err := sel.Read("home.org"); err != nil || string(data) != "h" {
		t.Errorf("read selected: %q, %v", data, err)
	}
}
