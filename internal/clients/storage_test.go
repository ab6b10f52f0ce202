package clients

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestGetURL_AbsoluteAndRelative(t *testing.T) {
	tmpDir := t.TempDir()

	c, err := NewLocalStorage(tmpDir, "/files", "http://example.com:8060/")
	if err != nil {
		t.Fatalf("failed create storage: %v", err)
	}
	if got, want := c.GetURL("a.zip"), "http://example.com:8060/files/a.zip"; got != want {
		t.Fatalf("expected %s; got %s", want, got)
	}

	c2, _ := NewLocalStorage(tmpDir, "files/", "")
	if got := c2.GetURL("b.zip"); got != "/files/b.zip" {
		t.Fatalf("expected /files/b.zip; got %s", got)
	}
}

func TestSaveAndServeFileHandler(t *testing.T) {
	c, err := NewLocalStorage(t.TempDir(), "/files", "")
	if err != nil {
		t.Fatalf("storage init: %v", err)
	}

	content := []byte("PK fake archive")
	saved, err := c.Save(context.Background(), "../RCBC-2024-06-03.zip", content)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if DisplayName(saved) != "RCBC-2024-06-03.zip" {
		t.Fatalf("unexpected stored name %s", saved)
	}

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, err := c.Path(strings.TrimPrefix(r.URL.Path, "/files/"))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Disposition", `attachment; filename="`+DisplayName(filepath.Base(path))+`"`)
		http.ServeFile(w, r, path)
	})

	ts := httptest.NewServer(h)
	defer ts.Close()

	resp, err := http.Get(ts.URL + c.GetURL(saved))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bad status: %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "RCBC-2024-06-03.zip") {
		t.Fatalf("expected original filename, got %s", cd)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != string(content) {
		t.Fatalf("content mismatch: %s", string(body))
	}
}

func TestPath_RejectsTraversal(t *testing.T) {
	c, _ := NewLocalStorage(t.TempDir(), "", "")
	for _, name := range []string{"", "..", "../etc/passwd", "a/b.zip", ".hidden"} {
		if _, err := c.Path(name); err == nil {
			t.Errorf("expected %q to be rejected", name)
		}
	}
}

func TestCleanupOlderThan(t *testing.T) {
	c, _ := NewLocalStorage(t.TempDir(), "", "")
	ctx := context.Background()

	old, _ := c.Save(ctx, "old.zip", []byte("x"))
	fresh, _ := c.Save(ctx, "fresh.zip", []byte("y"))

	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(filepath.Join(c.BaseDir, old), past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	removed, err := c.CleanupOlderThan(24 * time.Hour)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed; got %d", removed)
	}
	if _, err := c.Path(old); err == nil {
		t.Fatal("old archive should be gone")
	}
	if _, err := c.Path(fresh); err != nil {
		t.Fatalf("fresh archive should remain: %v", err)
	}
}
