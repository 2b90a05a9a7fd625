package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/formkv/internal/config"
	"github.com/hyperjump/formkv/internal/models"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (r *recorder) ExtractFile(_ context.Context, path string) (*models.Extraction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	if r.err != nil {
		return nil, r.err
	}
	f := models.NewFields()
	f.Set("Name ", "John ")
	return &models.Extraction{ID: filepath.Base(path), Fields: f}, nil
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func watchConfig(dirs ...string) config.WatchConfig {
	return config.WatchConfig{Directories: dirs, Extensions: []string{".json"}}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func hasSuffix(paths []string, suffix string) bool {
	for _, p := range paths {
		if strings.HasSuffix(p, suffix) {
			return true
		}
	}
	return false
}

func TestWatcher_AddRemoveDirectories(t *testing.T) {
	dir := t.TempDir()
	w := New(&recorder{}, watchConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := w.AddDirectory(dir, false); err != nil {
		t.Fatal(err)
	}
	if err := w.AddDirectory(dir, false); err != nil {
		t.Fatal(err)
	}
	dirs := w.Directories()
	if len(dirs) != 1 || filepath.Clean(dirs[0]) != filepath.Clean(dir) {
		t.Errorf("Directories() = %v", dirs)
	}

	if err := w.RemoveDirectory(dir); err != nil {
		t.Fatal(err)
	}
	if len(w.Directories()) != 0 {
		t.Errorf("after remove: %v", w.Directories())
	}
}

func TestWatcher_ProcessesNewResponse(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	var mu sync.Mutex
	var results []string
	w := New(rec, watchConfig(dir),
		WithDebounce(50*time.Millisecond),
		WithResultFunc(func(path string, e *models.Extraction, err error) {
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				results = append(results, e.ID)
			}
		}))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := writeFile(filepath.Join(dir, "scan.json"), `{"Blocks": []}`); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, "notes.txt"), "skip"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return hasSuffix(rec.seen(), "scan.json") })

	if !hasSuffix(rec.seen(), "scan.json") {
		t.Fatalf("expected scan.json to be processed, got %v", rec.seen())
	}
	if hasSuffix(rec.seen(), "notes.txt") {
		t.Errorf("notes.txt should not be processed")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(results) == 0 || results[0] != "scan.json" {
		t.Errorf("result callback: got %v", results)
	}
}

func TestIsResponseFile(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/b.json", []string{".json"}, true},
		{"/a/b.JSON", []string{"json"}, true},
		{"/a/b.txt", []string{".json"}, false},
		{"/a/.b.json", []string{".json"}, false},
		{"/a/b.json~", nil, false},
		{"/a/b", nil, true},
	}
	for _, tt := range tests {
		got := isResponseFile(tt.path, tt.extensions)
		if got != tt.want {
			t.Errorf("isResponseFile(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir  string
		path string
		want bool
	}{
		{"/tmp/a", "/tmp/a", true},
		{"/tmp/a", "/tmp/a/b.json", true},
		{"/tmp/a", "/tmp/b", false},
		{"/tmp/a", "/tmp/a/../b", false},
	}
	for _, tt := range tests {
		got := inDir(tt.dir, tt.path)
		if got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}

func TestWatcher_SyncExistingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := writeFile(filepath.Join(dir, "a.json"), "{}"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, "ignore.xyz"), "x"); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	w := New(rec, watchConfig(dir))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	w.SyncExistingFiles()

	seen := rec.seen()
	if len(seen) != 1 || !strings.HasSuffix(seen[0], "a.json") {
		t.Errorf("expected only a.json, got %v", seen)
	}
}

func TestWatcher_FailuresDoNotStopWatching(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.json", "b.json"} {
		if err := writeFile(filepath.Join(dir, name), "{}"); err != nil {
			t.Fatal(err)
		}
	}
	rec := &recorder{err: errors.New("lookup failed")}
	var failures int
	w := New(rec, watchConfig(dir), WithResultFunc(func(_ string, _ *models.Extraction, err error) {
		if err != nil {
			failures++
		}
	}))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	w.SyncExistingFiles()
	if failures != 2 {
		t.Errorf("failures: got %d, want 2", failures)
	}
}

func TestWatcher_Start_createsMissingRootDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "responses", "inbox")
	w := New(&recorder{}, watchConfig(root))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root directory should exist after Start: %v", err)
	}
}

func TestWatcher_NewDirectory_recursiveSubfolders(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := New(rec, watchConfig(dir), WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	nested := filepath.Join(dir, "2024", "may")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(nested, "deep.json"), "{}"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return hasSuffix(rec.seen(), "deep.json") })
	if !hasSuffix(rec.seen(), "deep.json") {
		t.Errorf("expected deep.json to be processed, got %v", rec.seen())
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}
