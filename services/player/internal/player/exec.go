package player

import (
	"context"
	"fmt"
	"os/exec"
	"sync"

	"go.uber.org/zap"

	"github.com/example/anime-relay/services/player/internal/failover"
)

// Exec launches an external player (mpv by default) with the absolute
// proxied URL as its last argument. A non-zero exit is fatal; a clean exit
// ends the session through OnExit.
type Exec struct {
	Command string
	Args    []string
	BaseURL string
	Log     *zap.Logger
	OnExit  func(failover.Playback)

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewExec(baseURL, command string, args []string, log *zap.Logger, onExit func(failover.Playback)) *Exec {
	if command == "" {
		command = "mpv"
		if args == nil {
			args = []string{"--no-terminal", "--force-window=yes"}
		}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Exec{Command: command, Args: args, BaseURL: baseURL, Log: log, OnExit: onExit}
}

func (e *Exec) Load(ctx context.Context, pb failover.Playback, onFatal failover.FatalFunc) {
	target, err := absolute(e.BaseURL, pb.URL)
	if err != nil {
		go onFatal(KindNetwork, err.Error())
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.cancel = cancel
	e.mu.Unlock()

	args := append(append([]string(nil), e.Args...), target)
	cmd := exec.CommandContext(ctx, e.Command, args...)
	if err := cmd.Start(); err != nil {
		go onFatal(KindMedia, fmt.Sprintf("start %s: %v", e.Command, err))
		return
	}
	e.Log.Info("player started", zap.String("command", e.Command), zap.Int("pid", cmd.Process.Pid))

	go func() {
		err := cmd.Wait()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			onFatal(KindMedia, fmt.Sprintf("%s exited: %v", e.Command, err))
			return
		}
		if e.OnExit != nil {
			e.OnExit(pb)
		}
	}()
}

// Unload kills the running player, if any.
func (e *Exec) Unload() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}
