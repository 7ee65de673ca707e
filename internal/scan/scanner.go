// Package scan implements the scan orchestrator: drive the MCP initialize
// handshake against a server, fetch its advertised tools and resources, run
// the stateless and diff-based threat detectors over them, and assemble a
// ScanResult.
package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mcpguard/mcpguard/internal/detect"
	"github.com/mcpguard/mcpguard/internal/jsonrpc"
	"github.com/mcpguard/mcpguard/internal/mcptransport"
	"github.com/mcpguard/mcpguard/internal/mgconfig"
	"github.com/mcpguard/mcpguard/internal/scanmetrics"
	"github.com/mcpguard/mcpguard/internal/snapshot"
)

// DefaultTimeout is the per-server deadline a Scanner applies when none is
// set explicitly, covering the full initialize/tools-list/resources-list
// handshake.
const DefaultTimeout = 30 * time.Second

// ScanFailed wraps the error from a single server's scan so a caller driving
// ScanAll can continue with the rest of the fleet.
type ScanFailed struct {
	ServerName string
	Err        error
}

func (e *ScanFailed) Error() string {
	return fmt.Sprintf("scan %s: %v", e.ServerName, e.Err)
}

func (e *ScanFailed) Unwrap() error { return e.Err }

// ScanResult is everything learned about one server in a single scan pass.
type ScanResult struct {
	ScanID       string // unique per invocation, for correlating with audit/log output
	Server       mgconfig.ServerConfig
	Tools        []detect.Tool
	Resources    []detect.Resource
	Threats      []detect.Threat
	SnapshotDiff *snapshot.Diff
	ScanDuration time.Duration
	ScannedAt    time.Time
}

// Scanner drives scans against one or more configured servers.
type Scanner struct {
	store     snapshot.Store // nil disables drift detection
	logger    *slog.Logger
	timeout   time.Duration
	overrides []detect.Override // nil disables per-threat-ID overrides
}

// New builds a Scanner. store may be nil to disable description-drift
// tracking entirely (D4 is simply never raised).
func New(store snapshot.Store, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{store: store, logger: logger, timeout: DefaultTimeout}
}

// WithTimeout overrides the per-server scan deadline and returns the
// receiver for chaining.
func (s *Scanner) WithTimeout(d time.Duration) *Scanner {
	s.timeout = d
	return s
}

// WithOverrides sets the per-threat-ID overrides applied to every scan
// result before its threats are sorted, and returns the receiver for
// chaining.
func (s *Scanner) WithOverrides(overrides []detect.Override) *Scanner {
	s.overrides = overrides
	return s
}

// Scan runs the full handshake and detector pipeline against a single
// server. A transport-level failure is returned as a *ScanFailed; the
// caller decides whether that's fatal for a whole-fleet scan.
func (s *Scanner) Scan(ctx context.Context, server mgconfig.ServerConfig) (*ScanResult, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tools, resources, anomaly, err := s.fetchServerInfo(ctx, server)
	if err != nil {
		scanmetrics.ScansTotal.WithLabelValues("failed").Inc()
		return nil, &ScanFailed{ServerName: server.Name, Err: err}
	}

	var threats []detect.Threat
	if anomaly != nil {
		threats = append(threats, *anomaly)
	}
	threats = append(threats, detect.CheckDescriptionInjection(tools, resources)...)
	threats = append(threats, detect.CheckPermissionScope(tools)...)
	threats = append(threats, detect.CheckNoAuth(server)...)

	var diff *snapshot.Diff
	if s.store != nil {
		diff, err = s.store.Compare(ctx, server.Name, toSnapshotTools(tools))
		if err != nil {
			s.logger.Warn("snapshot compare failed, skipping drift detection", "server", server.Name, "error", err)
			diff = nil
		} else if diff != nil {
			threats = append(threats, detect.CheckDescriptionDrift(diff)...)
		}

		if saveErr := s.store.Save(ctx, server.Name, snapshot.FromTools(toSnapshotTools(tools))); saveErr != nil {
			s.logger.Warn("saving snapshot failed", "server", server.Name, "error", saveErr)
		}
	}

	threats = detect.ApplyOverrides(threats, s.overrides)

	sort.SliceStable(threats, func(i, j int) bool { return threats[i].Severity < threats[j].Severity })
	for _, t := range threats {
		scanmetrics.ThreatsFound.WithLabelValues(t.Severity.String()).Inc()
	}

	duration := time.Since(start)
	scanmetrics.ScansTotal.WithLabelValues("ok").Inc()
	scanmetrics.ScanDurationSeconds.Observe(duration.Seconds())

	return &ScanResult{
		ScanID:       uuid.New().String(),
		Server:       server,
		Tools:        tools,
		Resources:    resources,
		Threats:      threats,
		SnapshotDiff: diff,
		ScanDuration: duration,
		ScannedAt:    start.UTC(),
	}, nil
}

// ScanAll scans every server, continuing past individual failures, then runs
// the cross-server shadowing detector over the combined tool sets and
// attributes each finding back to the right ScanResult.
func (s *Scanner) ScanAll(ctx context.Context, servers []mgconfig.ServerConfig) ([]*ScanResult, []ScanFailed) {
	var results []*ScanResult
	var failures []ScanFailed

	for _, server := range servers {
		result, err := s.Scan(ctx, server)
		if err != nil {
			var sf *ScanFailed
			if ok := asScanFailed(err, &sf); ok {
				failures = append(failures, *sf)
			} else {
				failures = append(failures, ScanFailed{ServerName: server.Name, Err: err})
			}
			continue
		}
		results = append(results, result)
	}

	if len(results) < 2 {
		return results, failures
	}

	byName := make(map[string]*ScanResult, len(results))
	serverTools := make([]detect.ServerTools, 0, len(results))
	for _, r := range results {
		byName[r.Server.Name] = r
		serverTools = append(serverTools, detect.ServerTools{ServerName: r.Server.Name, Tools: r.Tools})
	}

	findings := detect.CheckToolShadowing(serverTools)
	for _, f := range findings {
		if r, ok := byName[f.ServerName]; ok {
			r.Threats = append(r.Threats, f.Threat)
			scanmetrics.ThreatsFound.WithLabelValues(f.Threat.Severity.String()).Inc()
		}
	}
	for _, r := range results {
		r.Threats = detect.ApplyOverrides(r.Threats, s.overrides)
		sort.SliceStable(r.Threats, func(i, j int) bool { return r.Threats[i].Severity < r.Threats[j].Severity })
	}

	return results, failures
}

func asScanFailed(err error, target **ScanFailed) bool {
	sf, ok := err.(*ScanFailed)
	if ok {
		*target = sf
	}
	return ok
}

// fetchServerInfo runs the initialize handshake and, for a stdio server,
// fetches whatever tools/resources its capabilities advertise. Remote
// (sse/streamable_http) servers have no live transport implemented here;
// they're scanned on configuration alone, so the detectors that need a
// fetched tool list simply see none.
func (s *Scanner) fetchServerInfo(ctx context.Context, server mgconfig.ServerConfig) ([]detect.Tool, []detect.Resource, *detect.Threat, error) {
	if server.IsRemote() {
		return nil, nil, nil, nil
	}

	transport, err := mcptransport.Spawn(ctx, server.Command, server.Args, server.Env, s.logger)
	if err != nil {
		return nil, nil, nil, err
	}
	defer transport.Close()
	transport.SetDeadline(s.timeout)

	initReq, err := jsonrpc.NewRequest(methodInitialize, defaultInitializeParams())
	if err != nil {
		return nil, nil, nil, err
	}
	initResp, err := transport.Send(ctx, initReq)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initialize: %w", err)
	}
	var initResult initializeResult
	if err := json.Unmarshal(initResp.Result, &initResult); err != nil {
		return nil, nil, nil, fmt.Errorf("parsing initialize result: %w", err)
	}

	initializedNotif, err := jsonrpc.NewNotification(notificationInitialized, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := transport.SendNotification(ctx, initializedNotif); err != nil {
		return nil, nil, nil, fmt.Errorf("notifications/initialized: %w", err)
	}

	var tools []detect.Tool
	if initResult.Capabilities.hasTools() {
		toolsReq, err := jsonrpc.NewRequest(methodToolsList, nil)
		if err != nil {
			return nil, nil, nil, err
		}
		resp, err := transport.Send(ctx, toolsReq)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("tools/list: %w", err)
		}
		var result toolsListResult
		if err := json.Unmarshal(resp.Result, &result); err != nil {
			return nil, nil, nil, fmt.Errorf("parsing tools/list result: %w", err)
		}
		tools = make([]detect.Tool, len(result.Tools))
		for i, t := range result.Tools {
			tools[i] = detect.Tool{Name: t.Name, Description: t.Description, InputSchema: []byte(t.InputSchema)}
		}
	}

	var resources []detect.Resource
	var anomaly *detect.Threat
	if initResult.Capabilities.hasResources() {
		resourcesReq, err := jsonrpc.NewRequest(methodResourcesList, nil)
		if err != nil {
			return nil, nil, nil, err
		}
		resp, sendErr := transport.Send(ctx, resourcesReq)
		switch {
		case sendErr != nil:
			s.logger.Warn("resources/list failed after server advertised the capability", "server", server.Name, "error", sendErr)
			t := detect.NewProtocolAnomaly("PROTO-RESOURCES-LIST", fmt.Sprintf("Server advertised the resources capability but resources/list failed: %v", sendErr))
			anomaly = &t
		default:
			var result resourcesListResult
			if err := json.Unmarshal(resp.Result, &result); err != nil {
				s.logger.Warn("parsing resources/list result failed", "server", server.Name, "error", err)
				t := detect.NewProtocolAnomaly("PROTO-RESOURCES-LIST", fmt.Sprintf("Server advertised the resources capability but its resources/list response could not be parsed: %v", err))
				anomaly = &t
			} else {
				resources = make([]detect.Resource, len(result.Resources))
				for i, r := range result.Resources {
					resources[i] = detect.Resource{URI: r.URI, Name: r.Name, Description: r.Description}
				}
			}
		}
	}

	return tools, resources, anomaly, nil
}

func toSnapshotTools(tools []detect.Tool) []snapshot.ToolInfo {
	out := make([]snapshot.ToolInfo, len(tools))
	for i, t := range tools {
		out[i] = snapshot.ToolInfo{Name: t.Name, Description: t.Description}
	}
	return out
}
