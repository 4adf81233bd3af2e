package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/EternisAI/strategy-bench/pkg/game"
)

// ProcessOption configures a ProcessAgent before launch.
type ProcessOption func(*ProcessAgent)

// WithArgs passes extra command-line arguments to the agent binary.
func WithArgs(args ...string) ProcessOption {
	return func(a *ProcessAgent) { a.args = args }
}

// WithHandshakeTimeout bounds the ready handshake after launch.
func WithHandshakeTimeout(d time.Duration) ProcessOption {
	return func(a *ProcessAgent) { a.handshakeTimeout = d }
}

// ProcessAgent runs an agent as a subprocess speaking newline-delimited
// JSON on stdin/stdout. The protocol is a handshake ({"type":"hello"} ->
// {"type":"ready"}) followed by observation and action frames.
type ProcessAgent struct {
	name             string
	path             string
	args             []string
	handshakeTimeout time.Duration

	cmd     *exec.Cmd
	stdin   io.WriteCloser
	scanner *bufio.Scanner

	mu     sync.Mutex
	closed bool

	// exited is closed when the process exits; isAlive checks it without
	// blocking.
	exited chan struct{}
}

type procFrame struct {
	Type        string            `json:"type"`
	Observation *game.Observation `json:"observation,omitempty"`
	Action      *game.Action      `json:"action,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// NewProcessAgent spawns the agent binary and performs the ready
// handshake.
func NewProcessAgent(name, path string, opts ...ProcessOption) (*ProcessAgent, error) {
	a := &ProcessAgent{
		name:             name,
		path:             path,
		handshakeTimeout: 10 * time.Second,
	}
	for _, o := range opts {
		o(a)
	}

	if err := a.start(); err != nil {
		return nil, fmt.Errorf("process agent %s: start: %w", name, err)
	}
	if err := a.handshake(); err != nil {
		a.Close()
		return nil, fmt.Errorf("process agent %s: handshake: %w", name, err)
	}
	return a, nil
}

func (a *ProcessAgent) Name() string { return a.name }

func (a *ProcessAgent) start() error {
	a.cmd = exec.Command(a.path, a.args...)

	var err error
	a.stdin, err = a.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := a.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}

	a.scanner = bufio.NewScanner(stdout)
	a.scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	a.exited = make(chan struct{})

	if err := a.cmd.Start(); err != nil {
		return fmt.Errorf("start process: %w", err)
	}

	go func() {
		a.cmd.Wait()
		close(a.exited)
	}()
	return nil
}

func (a *ProcessAgent) handshake() error {
	if err := a.send(procFrame{Type: "hello"}); err != nil {
		return err
	}
	frame, err := a.read(a.handshakeTimeout)
	if err != nil {
		return err
	}
	if frame.Type != "ready" {
		return fmt.Errorf("expected ready, got %q", frame.Type)
	}
	return nil
}

// Act sends the observation and waits for the action frame within the
// context deadline.
func (a *ProcessAgent) Act(ctx context.Context, obs game.Observation) (game.Action, error) {
	if !a.isAlive() {
		return game.Action{}, fmt.Errorf("process agent %s: process is not running", a.name)
	}
	if err := a.send(procFrame{Type: "observation", Observation: &obs}); err != nil {
		return game.Action{}, err
	}

	timeout := time.Hour
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	for {
		frame, err := a.read(timeout)
		if err != nil {
			return game.Action{}, fmt.Errorf("process agent %s: %w", a.name, err)
		}
		switch frame.Type {
		case "action":
			if frame.Action == nil {
				return game.Action{}, fmt.Errorf("process agent %s: action frame without action", a.name)
			}
			act := *frame.Action
			act.Player = obs.Player
			return act, nil
		case "error":
			return game.Action{}, fmt.Errorf("process agent %s: remote error: %s", a.name, frame.Error)
		default:
			// Skip log frames.
		}
	}
}

// Notify forwards a passive observation; no reply is expected.
func (a *ProcessAgent) Notify(_ context.Context, obs game.Observation) {
	if err := a.send(procFrame{Type: "observation", Observation: &obs}); err != nil {
		log.Warn().Err(err).Str("agent", a.name).Msg("Notify failed")
	}
}

func (a *ProcessAgent) send(frame procFrame) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || a.stdin == nil {
		return fmt.Errorf("process agent %s: closed", a.name)
	}
	buf, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	if _, err := fmt.Fprintf(a.stdin, "%s\n", buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// read blocks for the next frame line, up to the timeout.
func (a *ProcessAgent) read(timeout time.Duration) (procFrame, error) {
	type result struct {
		frame procFrame
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		for a.scanner.Scan() {
			line := a.scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var frame procFrame
			if err := json.Unmarshal(line, &frame); err != nil {
				ch <- result{err: fmt.Errorf("bad frame %q: %w", line, err)}
				return
			}
			ch <- result{frame: frame}
			return
		}
		if err := a.scanner.Err(); err != nil {
			ch <- result{err: fmt.Errorf("scanner: %w", err)}
		} else {
			ch <- result{err: fmt.Errorf("process closed stdout unexpectedly")}
		}
	}()

	select {
	case r := <-ch:
		return r.frame, r.err
	case <-time.After(timeout):
		return procFrame{}, fmt.Errorf("timeout after %s waiting for frame", timeout)
	}
}

// Close sends a quit frame and waits for the process to exit, killing it
// after a 3 second grace period.
func (a *ProcessAgent) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	if a.stdin != nil {
		if buf, err := json.Marshal(procFrame{Type: "quit"}); err == nil {
			fmt.Fprintf(a.stdin, "%s\n", buf)
		}
	}
	a.closed = true
	a.mu.Unlock()

	if a.stdin != nil {
		a.stdin.Close()
	}
	if a.exited != nil {
		select {
		case <-a.exited:
		case <-time.After(3 * time.Second):
			log.Warn().Str("agent", a.name).Msg("Agent process did not exit within 3s, killing")
			if a.cmd != nil && a.cmd.Process != nil {
				a.cmd.Process.Kill()
			}
			<-a.exited
		}
	}
	return nil
}

func (a *ProcessAgent) isAlive() bool {
	if a.exited == nil {
		return false
	}
	select {
	case <-a.exited:
		return false
	default:
		return true
	}
}
