// Package mcptransport implements the transports mcp-guard uses to talk to
// an MCP server under scan or under proxy: today, a spawned stdio child
// process communicating over newline-delimited JSON-RPC.
package mcptransport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/mcpguard/mcpguard/internal/jsonrpc"
)

// DefaultTimeout is the deadline applied to each individual line write and
// line read when the caller hasn't set one explicitly.
const DefaultTimeout = 30 * time.Second

// StdioTransport spawns an MCP server as a child process and exchanges
// newline-delimited JSON-RPC messages over its stdin/stdout. Stderr is
// inherited so the child's own diagnostics reach the terminal unmodified.
type StdioTransport struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Reader
	timeout time.Duration
	logger  *slog.Logger
}

// Spawn starts command with args and env, wiring stdin/stdout as pipes and
// inheriting stderr.
func Spawn(ctx context.Context, command string, args []string, env map[string]string, logger *slog.Logger) (*StdioTransport, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stderr = os.Stderr
	if len(env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &ProcessError{Op: "opening stdin", Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &ProcessError{Op: "opening stdout", Err: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, &ProcessError{Op: fmt.Sprintf("spawning %s", command), Err: err}
	}

	return &StdioTransport{
		cmd:     cmd,
		stdin:   stdin,
		stdout:  bufio.NewReaderSize(stdout, 1<<20),
		timeout: DefaultTimeout,
		logger:  logger,
	}, nil
}

// SetDeadline changes the timeout applied to each line write and line read
// of subsequent Send/SendNotification calls.
func (t *StdioTransport) SetDeadline(d time.Duration) {
	t.timeout = d
}

// Send writes req and blocks until a Response or ErrorResponse carrying the
// same ID arrives. Any other message read in the meantime (a notification,
// a server-initiated request, or a response/error for a different ID) is
// logged and skipped; the read loop continues.
func (t *StdioTransport) Send(ctx context.Context, req jsonrpc.Request) (jsonrpc.Response, error) {
	line, err := req.ToJSONLine()
	if err != nil {
		return jsonrpc.Response{}, &ProtocolError{Err: err}
	}
	if err := t.writeLine(ctx, line); err != nil {
		return jsonrpc.Response{}, err
	}

	for {
		respLine, err := t.readLine(ctx)
		if err != nil {
			return jsonrpc.Response{}, err
		}

		msg, err := jsonrpc.Parse(respLine)
		if err != nil {
			return jsonrpc.Response{}, &ProtocolError{Err: err}
		}

		switch msg.Kind {
		case jsonrpc.KindResponse:
			if msg.Response.ID.Equal(req.ID) {
				return msg.Response, nil
			}
			t.logger.Debug("skipping response with mismatched id", "method", req.Method)
		case jsonrpc.KindError:
			if msg.Error.ID.Equal(req.ID) {
				return jsonrpc.Response{}, &RemoteError{Code: msg.Error.Error.Code, Message: msg.Error.Error.Message}
			}
			t.logger.Debug("skipping error response with mismatched id", "method", req.Method)
		case jsonrpc.KindNotification:
			t.logger.Debug("skipping server-initiated notification", "method", msg.Notification.Method)
		case jsonrpc.KindRequest:
			t.logger.Debug("skipping server-initiated request", "method", msg.Request.Method)
		}
	}
}

// SendNotification writes n and returns without waiting for a reply.
func (t *StdioTransport) SendNotification(ctx context.Context, n jsonrpc.Notification) error {
	line, err := n.ToJSONLine()
	if err != nil {
		return &ProtocolError{Err: err}
	}
	return t.writeLine(ctx, line)
}

// Close terminates the child process. It is idempotent and never returns
// an error — a proxy or scanner shutting down should never stall on
// cleanup.
func (t *StdioTransport) Close() error {
	_ = t.stdin.Close()
	if t.cmd.Process != nil {
		_ = t.cmd.Process.Kill()
	}
	_ = t.cmd.Wait()
	return nil
}

func (t *StdioTransport) writeLine(ctx context.Context, line []byte) error {
	done := make(chan error, 1)
	go func() {
		_, err := t.stdin.Write(line)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			if errors.Is(err, syscall.EPIPE) {
				return &ProcessExitError{ExitCode: t.exitCode()}
			}
			return &ProcessError{Op: "writing to stdin", Err: err}
		}
		return nil
	case <-time.After(t.timeout):
		return &TimeoutError{Seconds: t.timeout.Seconds()}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *StdioTransport) readLine(ctx context.Context) ([]byte, error) {
	type result struct {
		line []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		line, err := t.stdout.ReadBytes('\n')
		done <- result{line: line, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if r.err == io.EOF && len(r.line) == 0 {
				code := t.exitCode()
				return nil, &ProcessExitError{ExitCode: code}
			}
			if r.err == io.EOF {
				return r.line, nil
			}
			return nil, &ProcessError{Op: "reading from stdout", Err: r.err}
		}
		return r.line, nil
	case <-time.After(t.timeout):
		return nil, &TimeoutError{Seconds: t.timeout.Seconds()}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *StdioTransport) exitCode() *int {
	if t.cmd.ProcessState != nil {
		code := t.cmd.ProcessState.ExitCode()
		return &code
	}
	// Process may still be exiting; Wait blocks until it has exited.
	_ = t.cmd.Wait()
	if t.cmd.ProcessState != nil {
		code := t.cmd.ProcessState.ExitCode()
		return &code
	}
	return nil
}
