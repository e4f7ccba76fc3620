package models

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// withTestModel registers a temporary entry in the known table pointing at
// the given URL.
func withTestModel(t *testing.T, url string) string {
	t.Helper()

	const id = "test-model"
	known = append(known, Info{ID: id, File: "ggml-test.bin", URL: url, Size: 16})
	t.Cleanup(func() { known = known[:len(known)-1] })
	return id
}

func TestEnsure_DownloadsOnceThenReuses(t *testing.T) {
	var hits atomic.Int32
	payload := []byte("ggml model bytes")

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(payload)
	}))
	defer ts.Close()

	id := withTestModel(t, ts.URL+"/ggml-test.bin")
	dir := t.TempDir()

	path, err := Ensure(context.Background(), id, dir, testLogger())
	if err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading model: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("model content = %q, want %q", got, payload)
	}

	again, err := Ensure(context.Background(), id, dir, testLogger())
	if err != nil {
		t.Fatalf("second Ensure() error: %v", err)
	}
	if again != path {
		t.Errorf("second Ensure() = %q, want %q", again, path)
	}
	if hits.Load() != 1 {
		t.Errorf("server hit %d times, want 1", hits.Load())
	}
}

func TestEnsure_UnknownModel(t *testing.T) {
	_, err := Ensure(context.Background(), "no-such-model", t.TempDir(), testLogger())
	if err == nil {
		t.Fatal("Ensure() accepted an unknown model id")
	}
	if !strings.Contains(err.Error(), "whisper-base") {
		t.Errorf("error %q does not list known models", err)
	}
}

func TestEnsure_DirectPathToModelFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.bin")
	if err := os.WriteFile(path, []byte("ggml"), 0o644); err != nil {
		t.Fatalf("writing model: %v", err)
	}

	got, err := Ensure(context.Background(), path, t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	if got != path {
		t.Errorf("Ensure() = %q, want %q", got, path)
	}
}

func TestFetch_FailureLeavesNothingBehind(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer ts.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "ggml-test.bin")

	if err := fetch(context.Background(), ts.URL, dest, 16, testLogger()); err == nil {
		t.Fatal("fetch() succeeded against a failing server")
	}
	if hits.Load() != 3 {
		t.Errorf("server hit %d times, want 3 (download retries server errors)", hits.Load())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("left %d files behind, want none", len(entries))
	}
}
