// Package target provides the session target implementations: locally
// launched debuggee processes and remote debug connections. All blocking
// I/O happens in background pumps; the core only ever drains the event
// channel without waiting.
package target

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"spyglass.dev/cli/internal/core/event"
	"spyglass.dev/cli/internal/core/session"
)

// eventBufferSize bounds how many events a target can hold between polls.
const eventBufferSize = 256

// LocalLauncher starts debuggee processes on this machine.
type LocalLauncher struct {
	logger zerolog.Logger
}

// NewLocalLauncher creates a launcher for local debug targets.
func NewLocalLauncher(logger zerolog.Logger) *LocalLauncher {
	return &LocalLauncher{
		logger: logger.With().Str("component", "local-launcher").Logger(),
	}
}

// Launch starts the command and wires its output streams into a session
// target. The returned target's event channel closes once the process has
// exited and all output has been delivered.
func (l *LocalLauncher) Launch(ctx context.Context, command string, args []string) (session.Target, error) {
	runCtx, cancel := context.WithCancel(context.Background())

	cmd := exec.CommandContext(runCtx, command, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start %s: %w", command, err)
	}

	t := &localTarget{
		cmd:    cmd,
		cancel: cancel,
		events: make(chan *event.Event, eventBufferSize),
		logger: l.logger.With().Int("pid", cmd.Process.Pid).Logger(),
	}

	var pumps errgroup.Group
	pumps.Go(func() error { return t.pump(stdout, event.KindOutput) })
	pumps.Go(func() error { return t.pump(stderr, event.KindLog) })

	go t.wait(&pumps)

	t.logger.Debug().Str("command", command).Msg("local target started")
	return t, nil
}

// localTarget is a launched debuggee process exposed as a session target.
type localTarget struct {
	cmd       *exec.Cmd
	cancel    context.CancelFunc
	events    chan *event.Event
	logger    zerolog.Logger
	closeOnce sync.Once
}

// Events returns the channel the output pumps deliver on.
func (t *localTarget) Events() <-chan *event.Event {
	return t.events
}

// Close kills the process. Idempotent; the pumps then drain and the event
// channel closes on its own.
func (t *localTarget) Close() error {
	t.closeOnce.Do(func() {
		t.cancel()
	})
	return nil
}

// pump reads one output stream line by line into the event channel.
// When the channel is full the oldest unread event is dropped; a stalled
// UI must never stall the debuggee.
func (t *localTarget) pump(r io.Reader, kind event.Kind) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		t.deliver(event.New(kind, scanner.Text()))
	}
	return scanner.Err()
}

// deliver performs a non-blocking send, dropping the oldest event on a full
// buffer.
func (t *localTarget) deliver(evt *event.Event) {
	for {
		select {
		case t.events <- evt:
			return
		default:
			select {
			case <-t.events:
			default:
			}
		}
	}
}

// wait blocks until the pumps and the process are done, then emits the
// terminal event and closes the channel.
func (t *localTarget) wait(pumps *errgroup.Group) {
	if err := pumps.Wait(); err != nil {
		t.logger.Debug().Err(err).Msg("output pump ended with error")
	}

	err := t.cmd.Wait()
	detail := "exit status 0"
	if err != nil {
		detail = err.Error()
	}

	t.deliver(event.New(event.KindTargetExited, detail))
	close(t.events)
	t.logger.Debug().Str("status", detail).Msg("local target ended")
}
