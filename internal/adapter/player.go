package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/eliote-geeks/reveilartist/internal/domain"
)

// ErrNoPlayer is returned when no audio player could be found
var ErrNoPlayer = errors.New("no audio player found")

// ErrPauseUnsupported is returned where the player process cannot be suspended
var ErrPauseUnsupported = errors.New("pause is not supported on this platform")

const defaultSampleInterval = 250 * time.Millisecond

// audioPlayer describes how to run a known player headless
type audioPlayer struct {
	args []string // flags that disable video/UI and exit at end of stream
}

// players registry - known headless invocations
var players = map[string]audioPlayer{
	"mpv":    {args: []string{"--no-video", "--really-quiet"}},
	"ffplay": {args: []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}},
	"cvlc":   {args: []string{"--play-and-exit", "--quiet"}},
	"mpg123": {args: []string{"-q"}},
}

// candidatePlayers defines the preferred player order for each platform
var candidatePlayers = map[string][]string{
	"darwin":  {"mpv", "ffplay"},
	"linux":   {"mpv", "ffplay", "cvlc", "mpg123"},
	"windows": {"mpv", "ffplay"},
}

// ProcessPlayer plays streams through an external player process and reports
// elapsed wall-clock play time as the stream position
type ProcessPlayer struct {
	command  string   // configured player command, empty to auto-detect
	args     []string // additional arguments for the player
	interval time.Duration
	logger   *slog.Logger
}

// NewProcessPlayer creates a player. An empty command selects the first
// candidate found in PATH.
func NewProcessPlayer(command string, args []string, logger *slog.Logger) *ProcessPlayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessPlayer{
		command:  command,
		args:     args,
		interval: defaultSampleInterval,
		logger:   logger,
	}
}

// resolve returns the command and arguments to run
func (p *ProcessPlayer) resolve() (string, []string, error) {
	if p.command != "" {
		args := append([]string{}, p.args...)
		if len(args) == 0 {
			base := strings.ToLower(filepath.Base(p.command))
			base = strings.TrimSuffix(base, filepath.Ext(base))
			if known, ok := players[base]; ok {
				args = append(args, known.args...)
			}
		}
		return p.command, args, nil
	}

	candidates, ok := candidatePlayers[runtime.GOOS]
	if !ok {
		candidates = candidatePlayers["linux"]
	}
	for _, name := range candidates {
		if _, err := exec.LookPath(name); err != nil {
			p.logger.Debug("player not available", "player", name)
			continue
		}
		return name, append(append([]string{}, players[name].args...), p.args...), nil
	}
	return "", nil, ErrNoPlayer
}

// Start launches the player for url. Events reach sink from background
// goroutines only. ctx bounds the launch, not the playback.
func (p *ProcessPlayer) Start(ctx context.Context, url string, sink domain.MediaSink) (domain.MediaHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	command, args, err := p.resolve()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(command, append(args, url)...)
	if err := cmd.Start(); err != nil {
		p.logger.Error("failed to start player", "command", command, "error", err)
		return nil, fmt.Errorf("failed to start %s: %w", command, err)
	}
	p.logger.Info("player started", "command", command, "pid", cmd.Process.Pid)

	h := &processHandle{
		cmd:       cmd,
		sink:      sink,
		logger:    p.logger,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
	go h.run(p.interval)
	return h, nil
}

// processHandle controls one player process
type processHandle struct {
	cmd    *exec.Cmd
	sink   domain.MediaSink
	logger *slog.Logger
	done   chan struct{}

	mu        sync.Mutex
	startedAt time.Time     // start of the current unpaused stretch
	played    time.Duration // play time before the current stretch
	paused    bool
	stopped   bool
}

func (h *processHandle) elapsedLocked() time.Duration {
	if h.paused {
		return h.played
	}
	return h.played + time.Since(h.startedAt)
}

// run reports Started before any other event, then samples until exit
func (h *processHandle) run(interval time.Duration) {
	h.sink.Started()
	go h.wait()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.mu.Lock()
			if h.stopped {
				h.mu.Unlock()
				return
			}
			paused := h.paused
			pos := h.elapsedLocked().Seconds()
			h.mu.Unlock()

			if !paused {
				h.sink.Position(pos)
			}
		}
	}
}

func (h *processHandle) wait() {
	err := h.cmd.Wait()

	h.mu.Lock()
	stopped := h.stopped
	h.stopped = true
	h.mu.Unlock()
	close(h.done)

	if stopped {
		return
	}
	if err != nil {
		h.logger.Warn("player exited with error", "error", err)
		h.sink.Failed(err)
		return
	}
	h.sink.Ended()
}

func (h *processHandle) Pause() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped || h.paused {
		return nil
	}
	if err := suspend(h.cmd.Process); err != nil {
		return err
	}
	h.played += time.Since(h.startedAt)
	h.paused = true
	return nil
}

func (h *processHandle) Resume() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped || !h.paused {
		return nil
	}
	if err := resume(h.cmd.Process); err != nil {
		return err
	}
	h.startedAt = time.Now()
	h.paused = false
	return nil
}

// Stop kills the process; no further events reach the sink
func (h *processHandle) Stop() error {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil
	}
	h.stopped = true
	paused := h.paused
	h.mu.Unlock()

	if paused {
		_ = resume(h.cmd.Process)
	}
	if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, errProcessDone) {
		return err
	}
	return nil
}
