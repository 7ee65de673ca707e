// Package proxy implements the inline stdio interceptor: a transparent
// bidirectional bridge between an MCP client and an MCP server, with
// outbound tool calls consulted against a rule engine before they reach
// the server.
package proxy

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/mcpguard/mcpguard/internal/jsonrpc"
	"github.com/mcpguard/mcpguard/internal/policy"
	"github.com/mcpguard/mcpguard/internal/proxyaudit"
	"github.com/mcpguard/mcpguard/internal/scanmetrics"
)

const maxLineSize = 10 * 1024 * 1024

// Interceptor sits between a client (its own stdin/stdout) and a spawned
// MCP server, parsing the client-to-server JSON-RPC stream and applying
// rules to outbound tools/call requests; server-to-client lines are
// forwarded verbatim without parsing.
type Interceptor struct {
	serverCommand string
	serverArgs    []string
	engine        *policy.RuleEngine
	audit         proxyaudit.Sink
	logger        *slog.Logger
	serverName    string
}

// New builds an Interceptor that spawns serverCommand/serverArgs as the
// downstream MCP server. audit may be nil to disable call recording.
func New(serverName, serverCommand string, serverArgs []string, engine *policy.RuleEngine, audit proxyaudit.Sink, logger *slog.Logger) *Interceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Interceptor{
		serverName:    serverName,
		serverCommand: serverCommand,
		serverArgs:    serverArgs,
		engine:        engine,
		audit:         audit,
		logger:        logger,
	}
}

// Run spawns the downstream server and bridges ctx's cancellation, the
// process's own stdin (client input) and the process's stdout (server
// output) until either side reaches EOF or ctx is canceled. Exactly one
// parsed line is processed at a time per direction; ordering within each
// direction is preserved.
func (p *Interceptor) Run(ctx context.Context, clientIn io.Reader, clientOut io.Writer) error {
	cmd := exec.CommandContext(ctx, p.serverCommand, p.serverArgs...)
	cmd.Stderr = os.Stderr

	serverIn, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("proxy: opening server stdin: %w", err)
	}
	serverOut, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("proxy: opening server stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("proxy: starting %s: %w", p.serverCommand, err)
	}

	clientDone := make(chan error, 1)
	serverDone := make(chan error, 1)

	go func() {
		clientDone <- p.pumpClientToServer(ctx, clientIn, serverIn, clientOut)
		_ = serverIn.Close()
	}()
	go func() {
		serverDone <- pumpVerbatim(serverOut, clientOut)
	}()

	select {
	case <-clientDone:
	case <-serverDone:
	case <-ctx.Done():
	}

	_ = cmd.Process.Kill()
	return cmd.Wait()
}

func (p *Interceptor) pumpClientToServer(ctx context.Context, clientIn io.Reader, serverIn io.Writer, clientOut io.Writer) error {
	sc := bufio.NewScanner(clientIn)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for sc.Scan() {
		line := append([]byte(nil), sc.Bytes()...)
		out := p.interceptClientMessage(ctx, line)

		switch out.kind {
		case resultForward:
			if _, err := serverIn.Write(append(out.line, '\n')); err != nil {
				return fmt.Errorf("proxy: writing to server: %w", err)
			}
		case resultBlockWithResponse:
			if _, err := clientOut.Write(out.line); err != nil {
				return fmt.Errorf("proxy: writing block response to client: %w", err)
			}
		}
	}
	return sc.Err()
}

func pumpVerbatim(src io.Reader, dst io.Writer) error {
	sc := bufio.NewScanner(src)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		if _, err := dst.Write(append(append([]byte(nil), sc.Bytes()...), '\n')); err != nil {
			return fmt.Errorf("proxy: writing to client: %w", err)
		}
	}
	return sc.Err()
}

type interceptResultKind int

const (
	resultForward interceptResultKind = iota
	resultBlockWithResponse
)

type interceptResult struct {
	kind interceptResultKind
	line []byte
}

// interceptClientMessage parses one client→server line and decides
// whether to forward it or answer the client directly without ever
// reaching the server. Only a tools/call request is rule-evaluated; every
// other message — including one that fails to parse — is forwarded
// unconditionally, since dropping an unparseable line would silently
// corrupt the session.
func (p *Interceptor) interceptClientMessage(_ context.Context, line []byte) interceptResult {
	msg, err := jsonrpc.Parse(line)
	if err != nil {
		return interceptResult{kind: resultForward, line: line}
	}
	if msg.Kind != jsonrpc.KindRequest || msg.Request.Method != "tools/call" {
		return interceptResult{kind: resultForward, line: line}
	}

	toolName, args := toolCallParams(msg.Request.Params)
	if toolName == "" {
		return interceptResult{kind: resultForward, line: line}
	}

	start := time.Now()
	result := p.engine.Evaluate(toolName)

	switch result.Kind {
	case policy.ResultAllow:
		scanmetrics.ToolCallsTotal.WithLabelValues("allow").Inc()
		proxyaudit.RecordCall(p.audit, p.serverName, toolName, args, nil, false, "", time.Since(start))
		return interceptResult{kind: resultForward, line: line}

	case policy.ResultBlock:
		p.logger.Warn("tool call blocked", "tool", toolName, "reason", result.Reason)
		scanmetrics.ToolCallsTotal.WithLabelValues("block").Inc()
		proxyaudit.RecordCall(p.audit, p.serverName, toolName, args, nil, true, result.Reason, time.Since(start))
		resp := createErrorResponse(msg.Request.ID, fmt.Sprintf("Tool call blocked: %s", result.Reason))
		return interceptResult{kind: resultBlockWithResponse, line: resp}

	case policy.ResultRateLimited:
		p.logger.Warn("tool call rate limited", "tool", toolName)
		scanmetrics.ToolCallsTotal.WithLabelValues("rate_limited").Inc()
		proxyaudit.RecordCall(p.audit, p.serverName, toolName, args, nil, true, "Rate limit exceeded", time.Since(start))
		resp := createErrorResponse(msg.Request.ID, "Rate limit exceeded for this tool")
		return interceptResult{kind: resultBlockWithResponse, line: resp}

	default:
		return interceptResult{kind: resultForward, line: line}
	}
}

func toolCallParams(raw json.RawMessage) (name string, args json.RawMessage) {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return "", nil
	}
	return params.Name, params.Arguments
}

// createErrorResponse builds a JSON-RPC error line for a blocked or
// rate-limited tool call. Serialization cannot realistically fail for this
// fixed shape, but a hardcoded fallback guarantees the client always gets
// a parseable response rather than a dropped connection.
func createErrorResponse(id jsonrpc.RequestID, message string) []byte {
	resp := jsonrpc.NewErrorResponse(jsonrpc.CodeBlocked, message, id)
	line, err := resp.ToJSONLine()
	if err != nil {
		return []byte(`{"jsonrpc":"2.0","error":{"code":-32000,"message":"Internal error"},"id":null}` + "\n")
	}
	return line
}
