// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/warren-sandbox/warren/cmd/warren/cli"
	"github.com/warren-sandbox/warren/lib/tmux"
)

// testResponse is a JSON-RPC 2.0 response for test assertions. Result
// stays raw JSON so each test can unmarshal it into the expected type.
type testResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *testRPCError   `json:"error"`
}

type testRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// scriptedTmux fakes the tmux binary: it records every invocation and
// plays back canned stdout keyed by tmux subcommand. A non-empty
// stderr makes every call fail with it.
type scriptedTmux struct {
	calls  [][]string
	stdout map[string]string
	stderr string
}

func (s *scriptedTmux) run(args ...string) (string, string, error) {
	s.calls = append(s.calls, args)
	if s.stderr != "" {
		return "", s.stderr, errors.New("exit status 1")
	}
	return s.stdout[args[0]], "", nil
}

func newTestServerWithConfig(config *Config, script *scriptedTmux) *Server {
	session := tmux.NewServerWithRunner(config.Session, config.Width, config.Height, script.run)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(config, session, logger)
}

func newTestServer(script *scriptedTmux) *Server {
	return newTestServerWithConfig(&Config{
		Session: "warren-debug-1",
		Width:   200,
		Height:  50,
	}, script)
}

// initMessages returns the initialize request and initialized
// notification that start every MCP session.
func initMessages() []map[string]any {
	return []map[string]any{
		{
			"jsonrpc": "2.0",
			"id":      0,
			"method":  "initialize",
			"params": map[string]any{
				"protocolVersion": protocolVersion,
				"capabilities":    map[string]any{},
				"clientInfo":      map[string]any{"name": "test", "version": "1.0"},
			},
		},
		{
			"jsonrpc": "2.0",
			"method":  "notifications/initialized",
		},
	}
}

// callMessage builds a tools/call request.
func callMessage(id int, tool string, arguments map[string]any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      tool,
			"arguments": arguments,
		},
	}
}

// mcpSession sends a sequence of JSON-RPC messages to the server and
// returns the responses. Notifications produce no response. The server
// keeps its state across calls, so a test can run several sessions
// against one server.
func mcpSession(t *testing.T, server *Server, messages ...map[string]any) []testResponse {
	t.Helper()

	var input bytes.Buffer
	for _, msg := range messages {
		data, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("marshal message: %v", err)
		}
		input.Write(data)
		input.WriteByte('\n')
	}

	var output bytes.Buffer
	if err := server.Run(&input, &output); err != nil {
		t.Fatalf("server.Run: %v", err)
	}

	var responses []testResponse
	scanner := bufio.NewScanner(&output)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var resp testResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			t.Fatalf("unmarshal response: %v\nraw: %s", err, line)
		}
		responses = append(responses, resp)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scanning output: %v", err)
	}

	return responses
}

// toolResult unwraps a tools/call response, failing the test on a
// protocol-level error.
func toolResult(t *testing.T, resp testResponse) toolsCallResult {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected protocol error: code=%d message=%q", resp.Error.Code, resp.Error.Message)
	}
	var result toolsCallResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal tool result: %v", err)
	}
	return result
}

func TestServer_Initialize(t *testing.T) {
	server := newTestServer(&scriptedTmux{})
	responses := mcpSession(t, server, initMessages()...)

	// Only the initialize request produces a response.
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}

	resp := responses[0]
	if resp.Error != nil {
		t.Fatalf("unexpected error: code=%d message=%q", resp.Error.Code, resp.Error.Message)
	}

	var result initializeResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}

	if result.ProtocolVersion != protocolVersion {
		t.Errorf("protocolVersion = %q, want %q", result.ProtocolVersion, protocolVersion)
	}
	if result.ServerInfo.Name != "warren" {
		t.Errorf("serverInfo.name = %q, want %q", result.ServerInfo.Name, "warren")
	}
	if result.Capabilities.Tools == nil {
		t.Error("capabilities.tools is nil, expected non-nil")
	}
}

func TestServer_InitializeAcceptsAnyClientVersion(t *testing.T) {
	server := newTestServer(&scriptedTmux{})
	responses := mcpSession(t, server, map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": "2025-06-18",
			"capabilities":    map[string]any{},
			"clientInfo":      map[string]any{"name": "test"},
		},
	})

	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	if responses[0].Error != nil {
		t.Fatalf("unexpected error: %v", responses[0].Error)
	}

	// The server answers with its own version; the client decides.
	var result initializeResult
	if err := json.Unmarshal(responses[0].Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result.ProtocolVersion != protocolVersion {
		t.Errorf("protocolVersion = %q, want %q", result.ProtocolVersion, protocolVersion)
	}
}

func TestServer_Ping(t *testing.T) {
	server := newTestServer(&scriptedTmux{})
	messages := append(initMessages(), map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "ping",
	})

	responses := mcpSession(t, server, messages...)
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses (init + ping), got %d", len(responses))
	}

	resp := responses[1]
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}
	if string(resp.Result) != "{}" {
		t.Errorf("ping result = %s, want {}", resp.Result)
	}
}

func TestServer_NotInitialized(t *testing.T) {
	server := newTestServer(&scriptedTmux{})
	responses := mcpSession(t, server,
		callMessage(1, toolListPanes, map[string]any{}))

	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	if responses[0].Error == nil {
		t.Fatal("expected error for pre-init tools/call")
	}
	if !strings.Contains(responses[0].Error.Message, "not initialized") {
		t.Errorf("error message = %q, want it to contain 'not initialized'",
			responses[0].Error.Message)
	}
}

func TestServer_UnknownMethod(t *testing.T) {
	server := newTestServer(&scriptedTmux{})
	messages := append(initMessages(), map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "resources/list",
	})

	responses := mcpSession(t, server, messages...)
	resp := responses[1]
	if resp.Error == nil {
		t.Fatal("expected error for unknown method")
	}
	if resp.Error.Code != codeMethodNotFound {
		t.Errorf("error code = %d, want %d", resp.Error.Code, codeMethodNotFound)
	}
}

func TestServer_NotificationIgnored(t *testing.T) {
	server := newTestServer(&scriptedTmux{})
	messages := append(initMessages(), map[string]any{
		"jsonrpc": "2.0",
		"method":  "notifications/progress",
		"params":  map[string]any{"token": "abc"},
	})

	responses := mcpSession(t, server, messages...)
	if len(responses) != 1 {
		t.Fatalf("expected 1 response (init only), got %d", len(responses))
	}
}

func TestServer_ParseError(t *testing.T) {
	server := newTestServer(&scriptedTmux{})

	input := bytes.NewBufferString("this is not json\n")
	var output bytes.Buffer
	if err := server.Run(input, &output); err != nil {
		t.Fatalf("server.Run: %v", err)
	}

	var resp testResponse
	if err := json.Unmarshal(output.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nraw: %s", err, output.Bytes())
	}
	if resp.Error == nil {
		t.Fatal("expected parse error response")
	}
	if resp.Error.Code != codeParseError {
		t.Errorf("error code = %d, want %d", resp.Error.Code, codeParseError)
	}
	if string(resp.ID) != "null" {
		t.Errorf("id = %s, want null", resp.ID)
	}
}

func TestServer_ToolsList(t *testing.T) {
	server := newTestServer(&scriptedTmux{})
	messages := append(initMessages(), map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/list",
	})

	responses := mcpSession(t, server, messages...)
	resp := responses[1]
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	var result toolsListResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}

	want := []string{toolCreatePane, toolSendKeys, toolCapturePane, toolKillPane, toolListPanes}
	if len(result.Tools) != len(want) {
		t.Fatalf("expected %d tools, got %d", len(want), len(result.Tools))
	}
	for i, name := range want {
		if result.Tools[i].Name != name {
			t.Errorf("tools[%d].Name = %q, want %q", i, result.Tools[i].Name, name)
		}
	}

	// The create tool requires its command argument.
	create := result.Tools[0]
	if !reflect.DeepEqual(create.InputSchema.Required, []string{"command"}) {
		t.Errorf("create required = %v, want [command]", create.InputSchema.Required)
	}

	// Capture and list are read-only; the destructive tools carry no
	// annotations and fall back to MCP defaults.
	capture := result.Tools[2]
	if capture.Annotations == nil || capture.Annotations.ReadOnlyHint == nil || !*capture.Annotations.ReadOnlyHint {
		t.Error("capture tool should be annotated read-only")
	}
	if create.Annotations != nil {
		t.Error("create tool should carry no annotations")
	}
}

func TestServer_ToolsListHonorsAllowedTools(t *testing.T) {
	server := newTestServerWithConfig(&Config{
		Session:      "warren-debug-1",
		Width:        200,
		Height:       50,
		AllowedTools: []string{toolListPanes, toolCapturePane},
	}, &scriptedTmux{})

	messages := append(initMessages(), map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/list",
	})

	responses := mcpSession(t, server, messages...)
	var result toolsListResult
	if err := json.Unmarshal(responses[1].Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}

	if len(result.Tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(result.Tools))
	}
	if result.Tools[0].Name != toolCapturePane || result.Tools[1].Name != toolListPanes {
		t.Errorf("tools = [%s, %s], want catalog order [%s, %s]",
			result.Tools[0].Name, result.Tools[1].Name, toolCapturePane, toolListPanes)
	}
}

func TestServer_CreatePane(t *testing.T) {
	script := &scriptedTmux{}
	server := newTestServer(script)

	messages := append(initMessages(),
		callMessage(1, toolCreatePane, map[string]any{"command": "make test", "name": "build"}))
	responses := mcpSession(t, server, messages...)

	result := toolResult(t, responses[1])
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", result.Content[0].Text)
	}
	wantText := `Created pane "build" (id: debug-1) running: make test`
	if result.Content[0].Text != wantText {
		t.Errorf("result text = %q, want %q", result.Content[0].Text, wantText)
	}

	// new-session, session set-option, new-window, window set-option,
	// send-keys.
	if len(script.calls) != 5 {
		t.Fatalf("expected 5 tmux calls, got %d: %v", len(script.calls), script.calls)
	}
	wantWindow := []string{"new-window", "-t", "warren-debug-1", "-n", "debug-1"}
	if !reflect.DeepEqual(script.calls[2], wantWindow) {
		t.Errorf("new-window call = %v, want %v", script.calls[2], wantWindow)
	}
	wantKeys := []string{"send-keys", "-t", "warren-debug-1:debug-1", "make test", "Enter"}
	if !reflect.DeepEqual(script.calls[4], wantKeys) {
		t.Errorf("send-keys call = %v, want %v", script.calls[4], wantKeys)
	}
}

func TestServer_CreatePaneMissingCommand(t *testing.T) {
	server := newTestServer(&scriptedTmux{})
	messages := append(initMessages(),
		callMessage(1, toolCreatePane, map[string]any{}))
	responses := mcpSession(t, server, messages...)

	result := toolResult(t, responses[1])
	if !result.IsError {
		t.Fatal("expected isError=true")
	}
	if !strings.Contains(result.Content[0].Text, "missing required parameter") {
		t.Errorf("error text = %q, want it to name the missing parameter", result.Content[0].Text)
	}
	if result.ErrorInfo == nil || result.ErrorInfo.Category != string(cli.CategoryValidation) {
		t.Errorf("errorInfo = %+v, want category %q", result.ErrorInfo, cli.CategoryValidation)
	}
}

func TestServer_CreatePaneTmuxFailure(t *testing.T) {
	script := &scriptedTmux{stderr: "lost server"}
	server := newTestServer(script)

	messages := append(initMessages(),
		callMessage(1, toolCreatePane, map[string]any{"command": "true"}))
	responses := mcpSession(t, server, messages...)

	result := toolResult(t, responses[1])
	if !result.IsError {
		t.Fatal("expected isError=true")
	}
	if !strings.Contains(result.Content[0].Text, "lost server") {
		t.Errorf("error text = %q, want the tmux stderr excerpt", result.Content[0].Text)
	}
	if result.ErrorInfo == nil || result.ErrorInfo.Category != string(cli.CategoryInternal) {
		t.Errorf("errorInfo = %+v, want category %q", result.ErrorInfo, cli.CategoryInternal)
	}

	// The failed pane must not stay tracked.
	if server.panes.len() != 0 {
		t.Errorf("pane count after failed create = %d, want 0", server.panes.len())
	}
}

func TestServer_PaneIDsNotReusedAfterFailure(t *testing.T) {
	script := &scriptedTmux{stderr: "lost server"}
	server := newTestServer(script)

	messages := append(initMessages(),
		callMessage(1, toolCreatePane, map[string]any{"command": "true"}))
	mcpSession(t, server, messages...)

	script.stderr = ""
	responses := mcpSession(t, server,
		callMessage(2, toolCreatePane, map[string]any{"command": "true"}))

	result := toolResult(t, responses[0])
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", result.Content[0].Text)
	}
	if !strings.Contains(result.Content[0].Text, "debug-2") {
		t.Errorf("result text = %q, want the id debug-2 (debug-1 was consumed by the failure)",
			result.Content[0].Text)
	}
}

func TestServer_SendKeys(t *testing.T) {
	script := &scriptedTmux{}
	server := newTestServer(script)

	messages := append(initMessages(),
		callMessage(1, toolCreatePane, map[string]any{"command": "bash"}),
		callMessage(2, toolSendKeys, map[string]any{"pane_id": "debug-1", "keys": "C-c"}))
	responses := mcpSession(t, server, messages...)

	result := toolResult(t, responses[2])
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", result.Content[0].Text)
	}
	if !strings.Contains(result.Content[0].Text, "Sent keys") {
		t.Errorf("result text = %q, want a sent-keys confirmation", result.Content[0].Text)
	}

	// Keys pass through verbatim, with no implied Enter.
	want := []string{"send-keys", "-t", "warren-debug-1:debug-1", "C-c"}
	last := script.calls[len(script.calls)-1]
	if !reflect.DeepEqual(last, want) {
		t.Errorf("send-keys call = %v, want %v", last, want)
	}
}

func TestServer_SendKeysUnknownPane(t *testing.T) {
	server := newTestServer(&scriptedTmux{})
	messages := append(initMessages(),
		callMessage(1, toolSendKeys, map[string]any{"pane_id": "debug-9", "keys": "x"}))
	responses := mcpSession(t, server, messages...)

	result := toolResult(t, responses[1])
	if !result.IsError {
		t.Fatal("expected isError=true")
	}
	text := result.Content[0].Text
	if !strings.Contains(text, `"debug-9"`) || !strings.Contains(text, "not found") {
		t.Errorf("error text = %q, want it to name the unknown pane", text)
	}
	if !strings.Contains(text, "tmux_list_panes") {
		t.Errorf("error text = %q, want the tmux_list_panes hint", text)
	}
	if result.ErrorInfo == nil || result.ErrorInfo.Category != string(cli.CategoryNotFound) {
		t.Errorf("errorInfo = %+v, want category %q", result.ErrorInfo, cli.CategoryNotFound)
	}
}

func TestServer_CapturePane(t *testing.T) {
	script := &scriptedTmux{stdout: map[string]string{
		"capture-pane": "line 1\nline 2\nready\n",
		"list-windows": "debug-1|4242|0\n",
	}}
	server := newTestServer(script)

	messages := append(initMessages(),
		callMessage(1, toolCreatePane, map[string]any{"command": "bash"}),
		callMessage(2, toolCapturePane, map[string]any{"pane_id": "debug-1", "lines": 50}))
	responses := mcpSession(t, server, messages...)

	result := toolResult(t, responses[2])
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", result.Content[0].Text)
	}
	if result.Content[0].Text != "line 1\nline 2\nready\n" {
		t.Errorf("capture text = %q", result.Content[0].Text)
	}

	found := false
	for _, call := range script.calls {
		if call[0] == "capture-pane" {
			found = true
			want := []string{"capture-pane", "-t", "warren-debug-1:debug-1", "-p", "-S", "-50"}
			if !reflect.DeepEqual(call, want) {
				t.Errorf("capture-pane call = %v, want %v", call, want)
			}
		}
	}
	if !found {
		t.Error("no capture-pane call recorded")
	}
}

func TestServer_CapturePaneLineDefaults(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"default", map[string]any{"pane_id": "debug-1"}, "-100"},
		{"clamped high", map[string]any{"pane_id": "debug-1", "lines": 5000}, "-1000"},
		{"clamped low", map[string]any{"pane_id": "debug-1", "lines": 0}, "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := &scriptedTmux{}
			server := newTestServer(script)
			messages := append(initMessages(),
				callMessage(1, toolCreatePane, map[string]any{"command": "bash"}),
				callMessage(2, toolCapturePane, tt.args))
			mcpSession(t, server, messages...)

			for _, call := range script.calls {
				if call[0] == "capture-pane" {
					if call[len(call)-1] != tt.want {
						t.Errorf("capture depth = %q, want %q", call[len(call)-1], tt.want)
					}
					return
				}
			}
			t.Error("no capture-pane call recorded")
		})
	}
}

func TestServer_KillPane(t *testing.T) {
	script := &scriptedTmux{}
	server := newTestServer(script)

	messages := append(initMessages(),
		callMessage(1, toolCreatePane, map[string]any{"command": "bash"}),
		callMessage(2, toolKillPane, map[string]any{"pane_id": "debug-1"}),
		callMessage(3, toolSendKeys, map[string]any{"pane_id": "debug-1", "keys": "x"}))
	responses := mcpSession(t, server, messages...)

	killed := toolResult(t, responses[2])
	if killed.IsError {
		t.Fatalf("unexpected tool error: %s", killed.Content[0].Text)
	}
	if !strings.Contains(killed.Content[0].Text, "Killed pane") {
		t.Errorf("result text = %q, want a killed-pane confirmation", killed.Content[0].Text)
	}

	// The pane is gone from tracking: sending to it reports not found.
	after := toolResult(t, responses[3])
	if !after.IsError || !strings.Contains(after.Content[0].Text, "not found") {
		t.Errorf("send after kill = %+v, want a not-found tool error", after)
	}
}

func TestServer_ListPanesEmpty(t *testing.T) {
	server := newTestServer(&scriptedTmux{})
	messages := append(initMessages(),
		callMessage(1, toolListPanes, map[string]any{}))
	responses := mcpSession(t, server, messages...)

	result := toolResult(t, responses[1])
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", result.Content[0].Text)
	}
	want := "No active panes. Use tmux_create_pane to create one."
	if result.Content[0].Text != want {
		t.Errorf("result text = %q, want %q", result.Content[0].Text, want)
	}
}

func TestServer_ListPanes(t *testing.T) {
	script := &scriptedTmux{stdout: map[string]string{
		"list-windows": "debug-1|100|0\ndebug-2|101|1\n",
	}}
	server := newTestServer(script)

	messages := append(initMessages(),
		callMessage(1, toolCreatePane, map[string]any{"command": "make serve", "name": "server"}),
		callMessage(2, toolCreatePane, map[string]any{"command": "make watch"}),
		callMessage(3, toolListPanes, map[string]any{}))
	responses := mcpSession(t, server, messages...)

	result := toolResult(t, responses[3])
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", result.Content[0].Text)
	}

	var listing []paneListing
	if err := json.Unmarshal([]byte(result.Content[0].Text), &listing); err != nil {
		t.Fatalf("listing is not JSON: %v\nraw: %s", err, result.Content[0].Text)
	}
	if len(listing) != 2 {
		t.Fatalf("expected 2 panes, got %d", len(listing))
	}

	// Creation order, named pane keeps its name, unnamed defaults to
	// the ID, statuses come from #{pane_dead}.
	first, second := listing[0], listing[1]
	if first.ID != "debug-1" || first.Name != "server" || first.Status != "running" {
		t.Errorf("first pane = %+v", first)
	}
	if second.ID != "debug-2" || second.Name != "debug-2" || second.Status != "exited" {
		t.Errorf("second pane = %+v", second)
	}
	if first.Command != "make serve" || second.Command != "make watch" {
		t.Errorf("commands = %q, %q", first.Command, second.Command)
	}
}

func TestServer_UnknownToolIsToolError(t *testing.T) {
	server := newTestServer(&scriptedTmux{})
	messages := append(initMessages(),
		callMessage(1, "tmux_reboot", map[string]any{}))
	responses := mcpSession(t, server, messages...)

	// Unknown tools are tool-level failures, not protocol errors: the
	// agent sees them as tool output and can pick a real tool.
	result := toolResult(t, responses[1])
	if !result.IsError {
		t.Fatal("expected isError=true")
	}
	text := result.Content[0].Text
	if !strings.Contains(text, "unknown tool") {
		t.Errorf("error text = %q, want 'unknown tool'", text)
	}
	if !strings.Contains(text, toolCreatePane) {
		t.Errorf("error text = %q, want the available tool names", text)
	}
	if result.ErrorInfo == nil || result.ErrorInfo.Category != string(cli.CategoryValidation) {
		t.Errorf("errorInfo = %+v, want category %q", result.ErrorInfo, cli.CategoryValidation)
	}
}

func TestServer_DisallowedTool(t *testing.T) {
	server := newTestServerWithConfig(&Config{
		Session:      "warren-debug-1",
		Width:        200,
		Height:       50,
		AllowedTools: []string{toolListPanes},
	}, &scriptedTmux{})

	messages := append(initMessages(),
		callMessage(1, toolCreatePane, map[string]any{"command": "true"}))
	responses := mcpSession(t, server, messages...)

	result := toolResult(t, responses[1])
	if !result.IsError {
		t.Fatal("expected isError=true")
	}
	if !strings.Contains(result.Content[0].Text, "not allowed") {
		t.Errorf("error text = %q, want 'not allowed'", result.Content[0].Text)
	}
	if result.ErrorInfo == nil || result.ErrorInfo.Category != string(cli.CategoryForbidden) {
		t.Errorf("errorInfo = %+v, want category %q", result.ErrorInfo, cli.CategoryForbidden)
	}
}

func TestServer_AuditTrail(t *testing.T) {
	dir := t.TempDir()
	auditPath := filepath.Join(dir, "audit.jsonl")
	captureDir := filepath.Join(dir, "captures")

	script := &scriptedTmux{stdout: map[string]string{
		"capture-pane": "out\n",
		"list-windows": "debug-1|7|0\n",
	}}
	server := newTestServerWithConfig(&Config{
		Session:         "warren-debug-1",
		Width:           200,
		Height:          50,
		AuditLog:        auditPath,
		AuditCaptureDir: captureDir,
	}, script)

	messages := append(initMessages(),
		callMessage(1, toolCreatePane, map[string]any{"command": "sleep 60", "name": "svc"}),
		callMessage(2, toolSendKeys, map[string]any{"pane_id": "debug-1", "keys": "Enter"}),
		callMessage(3, toolCapturePane, map[string]any{"pane_id": "debug-1", "lines": 10}),
		callMessage(4, toolListPanes, map[string]any{}),
		callMessage(5, toolKillPane, map[string]any{"pane_id": "debug-1"}))
	mcpSession(t, server, messages...)

	data, err := os.ReadFile(auditPath)
	if err != nil {
		t.Fatalf("reading audit log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 audit entries, got %d:\n%s", len(lines), data)
	}

	var entries []auditEntry
	for i, line := range lines {
		var entry auditEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("audit line %d is not JSON: %v", i, err)
		}
		if entry.Timestamp == "" {
			t.Errorf("audit line %d has no timestamp", i)
		}
		entries = append(entries, entry)
	}

	wantTools := []string{toolCreatePane, toolSendKeys, toolCapturePane, toolListPanes, toolKillPane}
	for i, want := range wantTools {
		if entries[i].Tool != want {
			t.Errorf("entries[%d].Tool = %q, want %q", i, entries[i].Tool, want)
		}
	}

	if entries[0].Command != "sleep 60" || entries[0].Name != "svc" {
		t.Errorf("create entry = %+v", entries[0])
	}
	if entries[1].Keys != "Enter" {
		t.Errorf("send entry = %+v", entries[1])
	}
	if entries[2].Lines != 10 || entries[2].OutputBytes != len("out\n") {
		t.Errorf("capture entry = %+v", entries[2])
	}

	// The full capture body lands in the capture directory.
	saved, err := os.ReadFile(filepath.Join(captureDir, "debug-1-capture-001.txt"))
	if err != nil {
		t.Fatalf("reading saved capture: %v", err)
	}
	if string(saved) != "out\n" {
		t.Errorf("saved capture = %q, want %q", saved, "out\n")
	}
}
