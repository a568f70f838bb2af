package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type apiCall struct {
	Method string
	Path   string
	Query  string
	Body   map[string]interface{}
	User   string
}

func newFakeAPI(t *testing.T) (*httptest.Server, *[]apiCall) {
	t.Helper()
	var calls []apiCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := apiCall{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery}
		call.User, _, _ = r.BasicAuth()
		if r.Body != nil {
			data, _ := io.ReadAll(r.Body)
			if len(data) > 0 {
				assert.NoError(t, json.Unmarshal(data, &call.Body))
			}
		}
		calls = append(calls, call)

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/api/events/404":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"success":false,"error":"event not found"}`))
		case r.URL.Path == "/api/today":
			w.Write([]byte(`{"success":true,"data":{"date":"2024-03-15","count":0,"events":[],"all_done":false}}`))
		default:
			w.Write([]byte(`{"success":true,"data":{"id":1,"title":"Standup"}}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func runLines(t *testing.T, s *MCPServer, lines ...string) []JSONRPCResponse {
	t.Helper()
	var out strings.Builder
	require.NoError(t, s.Run(strings.NewReader(strings.Join(lines, "\n")), &out))

	var responses []JSONRPCResponse
	dec := json.NewDecoder(strings.NewReader(out.String()))
	for dec.More() {
		var resp JSONRPCResponse
		require.NoError(t, dec.Decode(&resp))
		responses = append(responses, resp)
	}
	return responses
}

func toolText(t *testing.T, resp JSONRPCResponse) (string, bool) {
	t.Helper()
	require.Nil(t, resp.Error)
	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result ToolCallResult
	require.NoError(t, json.Unmarshal(raw, &result))
	require.Len(t, result.Content, 1)
	return result.Content[0].Text, result.IsError
}

func TestInitializeAndList(t *testing.T) {
	s := NewMCPServer("http://unused", "", "", zaptest.NewLogger(t))

	responses := runLines(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"resources/list"}`,
	)
	require.Len(t, responses, 3)

	initResult := responses[0].Result.(map[string]interface{})
	assert.Equal(t, protocolVersion, initResult["protocolVersion"])
	assert.Equal(t, "familycal-mcp", initResult["serverInfo"].(map[string]interface{})["name"])

	listed := responses[1].Result.(map[string]interface{})["tools"].([]interface{})
	assert.Len(t, listed, len(tools))

	require.NotNil(t, responses[2].Error)
	assert.Equal(t, -32601, responses[2].Error.Code)
}

func TestParseError(t *testing.T) {
	s := NewMCPServer("http://unused", "", "", zaptest.NewLogger(t))
	responses := runLines(t, s, `{not json`)
	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	assert.Equal(t, -32700, responses[0].Error.Code)
}

func TestToolCalls(t *testing.T) {
	api, calls := newFakeAPI(t)
	s := NewMCPServer(api.URL+"/", "admin", "secret", zaptest.NewLogger(t))

	responses := runLines(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"familycal_list_events","arguments":{"date":"2024-03-15"}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"familycal_create_event","arguments":{"title":"Standup","event_date":"2024-03-15","event_time":"09:00","attendees":3,"bogus":true}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"familycal_update_event","arguments":{"event_id":7,"title":"Sync","event_date":"2024-03-16","event_time":"10:00"}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"familycal_delete_event","arguments":{"event_id":"7"}}}`,
		`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"familycal_today","arguments":{}}}`,
	)
	require.Len(t, responses, 5)
	require.Len(t, *calls, 5)

	c := (*calls)[0]
	assert.Equal(t, "GET", c.Method)
	assert.Equal(t, "/api/events", c.Path)
	assert.Equal(t, "date=2024-03-15", c.Query)
	assert.Equal(t, "admin", c.User)

	c = (*calls)[1]
	assert.Equal(t, "POST", c.Method)
	assert.Equal(t, "/api/events", c.Path)
	assert.Equal(t, "Standup", c.Body["title"])
	assert.EqualValues(t, 3, c.Body["attendees"])
	assert.NotContains(t, c.Body, "bogus")

	c = (*calls)[2]
	assert.Equal(t, "PUT", c.Method)
	assert.Equal(t, "/api/events/7", c.Path)
	assert.NotContains(t, c.Body, "event_id")

	c = (*calls)[3]
	assert.Equal(t, "DELETE", c.Method)
	assert.Equal(t, "/api/events/7", c.Path)

	text, isErr := toolText(t, responses[1])
	assert.False(t, isErr)
	assert.Contains(t, text, `"title": "Standup"`)

	text, isErr = toolText(t, responses[4])
	assert.False(t, isErr)
	assert.Contains(t, text, `"date": "2024-03-15"`)
}

func TestToolErrors(t *testing.T) {
	api, calls := newFakeAPI(t)
	s := NewMCPServer(api.URL, "", "", zaptest.NewLogger(t))

	responses := runLines(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"familycal_get_event","arguments":{"event_id":"404"}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"familycal_get_event","arguments":{"event_id":"abc"}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"familycal_get_event","arguments":{"event_id":1.5}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"nope","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":"bad"}`,
	)
	require.Len(t, responses, 5)
	assert.Len(t, *calls, 1)
	assert.Empty(t, (*calls)[0].User)

	text, isErr := toolText(t, responses[0])
	assert.True(t, isErr)
	assert.Equal(t, "API Error: event not found", text)

	text, isErr = toolText(t, responses[1])
	assert.True(t, isErr)
	assert.Contains(t, text, "event_id")

	_, isErr = toolText(t, responses[2])
	assert.True(t, isErr)

	text, isErr = toolText(t, responses[3])
	assert.True(t, isErr)
	assert.Equal(t, "Unknown tool: nope", text)

	require.NotNil(t, responses[4].Error)
	assert.Equal(t, -32602, responses[4].Error.Code)
}

func TestEventID(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
		ok   bool
	}{
		{"12", "12", true},
		{" 12 ", "12", true},
		{float64(12), "12", true},
		{"0", "", false},
		{"-3", "", false},
		{"1e3", "", false},
		{float64(-1), "", false},
		{nil, "", false},
	}
	for _, tt := range tests {
		got, ok := eventID(map[string]interface{}{"event_id": tt.in})
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}
