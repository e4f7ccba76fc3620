// Package models resolves speech model identifiers to local ggml files,
// fetching them from HuggingFace on first use. Downloads go through a temp
// name and an atomic rename, so a killed process never leaves a truncated
// model behind.
package models

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"voice-player/internal/infra"
)

const baseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// Info describes one known whisper.cpp model build.
type Info struct {
	ID   string
	File string
	URL  string
	Size int64
}

// Sizes are approximate; they only feed log output.
var known = []Info{
	{ID: "whisper-tiny.en", File: "ggml-tiny.en.bin", URL: baseURL + "ggml-tiny.en.bin", Size: 75 << 20},
	{ID: "whisper-tiny", File: "ggml-tiny.bin", URL: baseURL + "ggml-tiny.bin", Size: 75 << 20},
	{ID: "whisper-base.en", File: "ggml-base.en.bin", URL: baseURL + "ggml-base.en.bin", Size: 142 << 20},
	{ID: "whisper-base", File: "ggml-base.bin", URL: baseURL + "ggml-base.bin", Size: 142 << 20},
	{ID: "whisper-small.en", File: "ggml-small.en.bin", URL: baseURL + "ggml-small.en.bin", Size: 466 << 20},
	{ID: "whisper-small", File: "ggml-small.bin", URL: baseURL + "ggml-small.bin", Size: 466 << 20},
}

func Lookup(id string) (Info, bool) {
	for _, info := range known {
		if info.ID == id {
			return info, true
		}
	}
	return Info{}, false
}

func IDs() []string {
	ids := make([]string, len(known))
	for i, info := range known {
		ids[i] = info.ID
	}
	return ids
}

// Ensure returns the local path for a model, downloading it into dir if it
// is not there yet. An id that is not in the known table may instead be a
// path to a ggml file the caller already has.
func Ensure(ctx context.Context, id, dir string, logger *slog.Logger) (string, error) {
	info, ok := Lookup(id)
	if !ok {
		if st, err := os.Stat(id); err == nil && !st.IsDir() {
			return id, nil
		}
		return "", fmt.Errorf("unknown model %q (known: %s)", id, strings.Join(IDs(), ", "))
	}

	path := filepath.Join(dir, info.File)
	if st, err := os.Stat(path); err == nil && st.Size() > 0 {
		logger.Debug("model already on disk", "path", path)
		return path, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating model dir: %w", err)
	}
	if err := fetch(ctx, info.URL, path, info.Size, logger); err != nil {
		return "", err
	}
	return path, nil
}

func fetch(ctx context.Context, url, dest string, size int64, logger *slog.Logger) error {
	logger.Info("downloading model", "url", url, "size_mb", size>>20)
	start := time.Now()

	tmp := dest + ".tmp"

	return infra.WithRetry(ctx, infra.DefaultRetryConfig(), func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("building download request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return fmt.Errorf("downloading model: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			if infra.IsRetryableHTTPStatus(resp.StatusCode) {
				return fmt.Errorf("downloading model: unexpected status %s (retryable)", resp.Status)
			}
			return fmt.Errorf("downloading model: unexpected status %s", resp.Status)
		}

		f, err := os.Create(tmp)
		if err != nil {
			return fmt.Errorf("creating %s: %w", tmp, err)
		}

		written, err := io.Copy(f, resp.Body)
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			os.Remove(tmp)
			return fmt.Errorf("writing model file: %w", err)
		}
		if err := os.Rename(tmp, dest); err != nil {
			os.Remove(tmp)
			return fmt.Errorf("moving model into place: %w", err)
		}

		logger.Info("model downloaded", "bytes", written, "elapsed", time.Since(start).Round(time.Second))
		return nil
	})
}
