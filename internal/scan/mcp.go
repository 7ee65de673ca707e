package scan

import "encoding/json"

// ProtocolVersion is the MCP wire version this scanner speaks during the
// initialize handshake.
const ProtocolVersion = "2025-11-25"

const (
	methodInitialize    = "initialize"
	methodToolsList     = "tools/list"
	methodResourcesList = "resources/list"

	notificationInitialized = "notifications/initialized"
)

type clientCapabilities struct {
	Roots       json.RawMessage `json:"roots,omitempty"`
	Sampling    json.RawMessage `json:"sampling,omitempty"`
	Experimental json.RawMessage `json:"experimental,omitempty"`
}

type clientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    clientCapabilities `json:"capabilities"`
	ClientInfo      clientInfo         `json:"clientInfo"`
}

func defaultInitializeParams() initializeParams {
	return initializeParams{
		ProtocolVersion: ProtocolVersion,
		ClientInfo:      clientInfo{Name: "mcp-guard", Version: "0.1.0"},
	}
}

type serverCapabilities struct {
	Tools     json.RawMessage `json:"tools,omitempty"`
	Resources json.RawMessage `json:"resources,omitempty"`
	Prompts   json.RawMessage `json:"prompts,omitempty"`
	Logging   json.RawMessage `json:"logging,omitempty"`
}

func (c serverCapabilities) hasTools() bool     { return c.Tools != nil }
func (c serverCapabilities) hasResources() bool { return c.Resources != nil }

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    serverCapabilities `json:"capabilities"`
	ServerInfo      serverInfo         `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
}

type mcpTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

type toolsListResult struct {
	Tools      []mcpTool `json:"tools"`
	NextCursor string    `json:"nextCursor,omitempty"`
}

type mcpResource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

type resourcesListResult struct {
	Resources  []mcpResource `json:"resources"`
	NextCursor string        `json:"nextCursor,omitempty"`
}
