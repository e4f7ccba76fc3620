// Package player hands matched videos to an external media player. The
// pipeline treats playback as a side effect: launching the process is the
// handoff, rendering is the player's problem.
package player

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"voice-player/internal/domain"
)

type Player struct {
	command string
	args    []string
	logger  *slog.Logger
}

// New builds a dispatcher around a player command such as "mpv" or
// "vlc --fullscreen". The resolved video path is appended as the final
// argument.
func New(command string, logger *slog.Logger) *Player {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		fields = []string{"mpv"}
	}
	return &Player{
		command: fields[0],
		args:    fields[1:],
		logger:  logger,
	}
}

func (p *Player) Dispatch(_ context.Context, result *domain.Result) error {
	switch result.Status {
	case domain.StatusMatched:
		return p.play(result)
	case domain.StatusUnmatched:
		p.logger.Warn("no video for that command",
			"token", result.Token,
			"available", strings.Join(result.Available, ", "),
		)
	case domain.StatusFailed:
		p.logger.Error("recognition failed, nothing to play",
			"kind", result.ErrKind,
			"error", result.Err,
		)
	}
	return nil
}

func (p *Player) play(result *domain.Result) error {
	args := append(append([]string{}, p.args...), result.Resource.Path)
	cmd := exec.Command(p.command, args...)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launching %s: %w", p.command, err)
	}
	p.logger.Info("playing video",
		"token", result.Token,
		"video", result.Resource.Path,
		"pid", cmd.Process.Pid,
	)

	// Reap the process so finished players do not linger as zombies.
	go func() {
		if err := cmd.Wait(); err != nil {
			p.logger.Warn("player exited with error", "error", err)
		}
	}()
	return nil
}
