package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"voice-player/internal/domain"
	"voice-player/internal/infra/models"
)

// whisperCLIEngine shells out to a whisper.cpp command line build. The ggml
// model file is fetched from HuggingFace on first use and reused from disk
// afterwards.
type whisperCLIEngine struct {
	binPath   string
	modelPath string
	language  string
	logger    *slog.Logger
}

func newWhisperCLIEngine(ctx context.Context, cfg Config, logger *slog.Logger) (Engine, error) {
	binPath, err := exec.LookPath(cfg.Binary)
	if err != nil {
		return nil, fmt.Errorf("%q not found in PATH: %w", cfg.Binary, err)
	}

	modelPath, err := models.Ensure(ctx, cfg.Model, cfg.ModelDir, logger)
	if err != nil {
		return nil, err
	}

	return &whisperCLIEngine{
		binPath:   binPath,
		modelPath: modelPath,
		language:  cfg.Language,
		logger:    logger,
	}, nil
}

func (e *whisperCLIEngine) Transcribe(ctx context.Context, clip *domain.Clip) (string, error) {
	path, cleanup, err := tempWAV(clip)
	if err != nil {
		return "", err
	}
	defer cleanup()

	args := []string{"-m", e.modelPath, "-f", path, "--no-timestamps"}
	if e.language != "" {
		args = append(args, "-l", e.language)
	}

	e.logger.Debug("running transcriber", "bin", e.binPath, "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, e.binPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if detail := lastLine(stderr.String()); detail != "" {
			return "", fmt.Errorf("%s: %w: %s", filepath.Base(e.binPath), err, detail)
		}
		return "", fmt.Errorf("%s: %w", filepath.Base(e.binPath), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (e *whisperCLIEngine) Close() error { return nil }

// lastLine pulls the final non-empty line out of noisy subprocess output.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
