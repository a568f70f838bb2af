// Command familycal-mcp exposes the calendar JSON API as MCP tools over stdio.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tazhate/familycal/internal/logging"
)

// JSON-RPC structures
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// MCP structures
type InitializeResult struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ServerInfo      ServerInfo             `json:"serverInfo"`
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

type ToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type ToolCallResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

const protocolVersion = "2024-11-05"

var eventFields = map[string]Property{
	"title":       {Type: "string", Description: "Event title"},
	"description": {Type: "string", Description: "Free text shown under the title"},
	"event_date":  {Type: "string", Description: "Date in YYYY-MM-DD format"},
	"event_time":  {Type: "string", Description: "Start time in HH:MM format"},
	"attendees":   {Type: "integer", Description: "Number of attendees"},
}

var eventIDField = Property{Type: "string", Description: "Event ID (number)"}

func withID(props map[string]Property) map[string]Property {
	out := map[string]Property{"event_id": eventIDField}
	for k, v := range props {
		out[k] = v
	}
	return out
}

var tools = []Tool{
	{
		Name:        "familycal_list_events",
		Description: "List all events ordered by date and time. Pass date to get only the events on that day.",
		InputSchema: InputSchema{Type: "object", Properties: map[string]Property{
			"date": {Type: "string", Description: "Optional date in YYYY-MM-DD format"},
		}},
	},
	{
		Name:        "familycal_today",
		Description: "Today's summary: event count, the events and the next upcoming one.",
		InputSchema: InputSchema{Type: "object", Properties: map[string]Property{}},
	},
	{
		Name:        "familycal_dates",
		Description: "Every date that has at least one event.",
		InputSchema: InputSchema{Type: "object", Properties: map[string]Property{}},
	},
	{
		Name:        "familycal_get_event",
		Description: "Get one event by its ID.",
		InputSchema: InputSchema{Type: "object", Properties: map[string]Property{"event_id": eventIDField}, Required: []string{"event_id"}},
	},
	{
		Name:        "familycal_create_event",
		Description: "Create an event.",
		InputSchema: InputSchema{Type: "object", Properties: eventFields, Required: []string{"title", "event_date", "event_time"}},
	},
	{
		Name:        "familycal_update_event",
		Description: "Replace every field of an existing event.",
		InputSchema: InputSchema{Type: "object", Properties: withID(eventFields), Required: []string{"event_id", "title", "event_date", "event_time"}},
	},
	{
		Name:        "familycal_delete_event",
		Description: "Delete an event by its ID.",
		InputSchema: InputSchema{Type: "object", Properties: map[string]Property{"event_id": eventIDField}, Required: []string{"event_id"}},
	},
}

// MCPServer forwards tool calls to the familycal HTTP API
type MCPServer struct {
	apiURL      string
	apiUsername string
	apiPassword string
	client      *http.Client
	logger      *zap.Logger
}

func NewMCPServer(apiURL, username, password string, logger *zap.Logger) *MCPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MCPServer{
		apiURL:      strings.TrimRight(apiURL, "/"),
		apiUsername: username,
		apiPassword: password,
		client:      &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
	}
}

// Run answers one JSON-RPC request per input line until in is exhausted
func (s *MCPServer) Run(in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)
	enc := json.NewEncoder(out)

	for {
		line, err := reader.ReadString('\n')
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			s.handleLine(enc, trimmed)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read request: %w", err)
		}
	}
}

func (s *MCPServer) handleLine(enc *json.Encoder, line string) {
	var req JSONRPCRequest
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		s.logger.Warn("parse request", zap.Error(err))
		enc.Encode(JSONRPCResponse{JSONRPC: "2.0", Error: &RPCError{Code: -32700, Message: "Parse error"}})
		return
	}

	// Notifications carry no id and get no response
	if req.ID == nil && strings.HasPrefix(req.Method, "notifications/") {
		return
	}

	if err := enc.Encode(s.handleRequest(req)); err != nil {
		s.logger.Error("write response", zap.Error(err))
	}
}

func (s *MCPServer) handleRequest(req JSONRPCRequest) JSONRPCResponse {
	switch req.Method {
	case "initialize":
		return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities:    map[string]interface{}{"tools": map[string]interface{}{}},
			ServerInfo:      ServerInfo{Name: "familycal-mcp", Version: "1.0.0"},
		}}
	case "ping":
		return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]interface{}{}}
	case "tools/list":
		return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]interface{}{"tools": tools}}
	case "tools/call":
		return s.handleToolsCall(req)
	default:
		return JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: -32601, Message: "Method not found"},
		}
	}
}

func (s *MCPServer) handleToolsCall(req JSONRPCRequest) JSONRPCResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: -32602, Message: "Invalid params"},
		}
	}

	result, isError := s.callTool(params.Name, params.Arguments)
	s.logger.Debug("tool call", zap.String("tool", params.Name), zap.Bool("error", isError))

	return JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: ToolCallResult{
			Content: []ContentBlock{{Type: "text", Text: result}},
			IsError: isError,
		},
	}
}

func (s *MCPServer) callTool(name string, args map[string]interface{}) (string, bool) {
	switch name {
	case "familycal_list_events":
		path := "/api/events"
		if date, _ := args["date"].(string); date != "" {
			path += "?date=" + url.QueryEscape(date)
		}
		return s.apiRequest(http.MethodGet, path, nil)
	case "familycal_today":
		return s.apiRequest(http.MethodGet, "/api/today", nil)
	case "familycal_dates":
		return s.apiRequest(http.MethodGet, "/api/dates", nil)
	case "familycal_create_event":
		return s.apiRequest(http.MethodPost, "/api/events", eventBody(args))
	}

	// The remaining tools address a single event
	id, ok := eventID(args)
	if !ok {
		switch name {
		case "familycal_get_event", "familycal_update_event", "familycal_delete_event":
			return "event_id must be a positive number", true
		}
		return "Unknown tool: " + name, true
	}

	switch name {
	case "familycal_get_event":
		return s.apiRequest(http.MethodGet, "/api/events/"+id, nil)
	case "familycal_update_event":
		return s.apiRequest(http.MethodPut, "/api/events/"+id, eventBody(args))
	case "familycal_delete_event":
		return s.apiRequest(http.MethodDelete, "/api/events/"+id, nil)
	default:
		return "Unknown tool: " + name, true
	}
}

// eventID accepts the id as a JSON number or a numeric string
func eventID(args map[string]interface{}) (string, bool) {
	var id string
	switch v := args["event_id"].(type) {
	case string:
		id = strings.TrimSpace(v)
	case float64:
		if v != float64(int64(v)) {
			return "", false
		}
		id = fmt.Sprintf("%d", int64(v))
	default:
		return "", false
	}
	if id == "" || strings.HasPrefix(id, "-") || strings.HasPrefix(id, "0") {
		return "", false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return id, true
}

// eventBody keeps only the event fields the API accepts
func eventBody(args map[string]interface{}) map[string]interface{} {
	body := make(map[string]interface{}, len(eventFields))
	for k := range eventFields {
		if v, ok := args[k]; ok {
			body[k] = v
		}
	}
	return body
}

func (s *MCPServer) apiRequest(method, path string, body interface{}) (string, bool) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Sprintf("Error encoding request: %v", err), true
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, s.apiURL+path, reqBody)
	if err != nil {
		return fmt.Sprintf("Error creating request: %v", err), true
	}

	if s.apiUsername != "" {
		req.SetBasicAuth(s.apiUsername, s.apiPassword)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("api request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Sprintf("Error making request: %v", err), true
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Sprintf("Error reading response: %v", err), true
	}

	var apiResp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return strings.TrimSpace(string(respBody)), resp.StatusCode >= 400
	}

	if !apiResp.Success {
		return fmt.Sprintf("API Error: %s", apiResp.Error), true
	}
	if len(apiResp.Data) == 0 {
		return "OK", false
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, apiResp.Data, "", "  "); err != nil {
		return string(apiResp.Data), false
	}
	return pretty.String(), false
}

func main() {
	logger, err := logging.New(os.Getenv("LOG_LEVEL"), "console")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	apiURL := os.Getenv("FAMILYCAL_API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}

	server := NewMCPServer(apiURL, os.Getenv("FAMILYCAL_API_USERNAME"), os.Getenv("FAMILYCAL_API_PASSWORD"), logger.Named("mcp"))
	if err := server.Run(os.Stdin, os.Stdout); err != nil {
		logger.Error("mcp server stopped", zap.Error(err))
		os.Exit(1)
	}
}
