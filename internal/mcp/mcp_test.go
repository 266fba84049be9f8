package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/vidpage/vidpage/internal/api"
	"github.com/vidpage/vidpage/internal/config"
	"github.com/vidpage/vidpage/internal/db"
	"github.com/vidpage/vidpage/internal/errors"
)

const testDoc = `{
  "videoInfo": {"videoId": "vid1", "title": "Keynote", "description": "Launch event"},
  "sections": [
    {"id": "s1", "title": "Intro", "timestampStart": "00:00", "timestampEnd": "01:00", "content": "Welcome **all**."},
    {"id": "s2", "title": "Quantum", "content": [{"content": "Qubits are here.", "timestampStart": 61}]}
  ]
}`

// testSetup creates a temporary database, data file and config for testing.
func testSetup(t *testing.T) (*api.Service, *config.Config) {
	t.Helper()

	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	dataFile := filepath.Join(tmpDir, "video-data.json")
	if err := os.WriteFile(dataFile, []byte(testDoc), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.VideoID = "vid1"
	return &api.Service{DB: database, DataFile: dataFile, CommentLimit: 20}, cfg
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func TestHandleVideoGet(t *testing.T) {
	svc, cfg := testSetup(t)
	h := NewHandlers(svc, cfg)
	ctx := context.Background()

	result, err := h.HandleVideoGet(ctx, makeRequest(map[string]any{}))
	if err != nil {
		t.Fatal(err)
	}
	output := parseOutput(t, result)
	v := output["video"].(map[string]any)
	if v["title"] != "Keynote" || v["sections"] != float64(2) || v["duration"] != "01:00" {
		t.Errorf("video = %v", v)
	}
	sections := output["sections"].([]any)
	first := sections[0].(map[string]any)
	if first["id"] != "s1" || first["start"] != "00:00" {
		t.Errorf("first section = %v", first)
	}
	if _, ok := first["text"]; ok {
		t.Error("text should be omitted unless include_text is set")
	}

	result, _ = h.HandleVideoGet(ctx, makeRequest(map[string]any{"include_text": true}))
	second := parseOutput(t, result)["sections"].([]any)[1].(map[string]any)
	if second["text"] != "Qubits are here." || second["start"] != "01:01" {
		t.Errorf("second section = %v", second)
	}
}

func TestHandleVideoGet_MissingFile(t *testing.T) {
	svc, cfg := testSetup(t)
	svc.DataFile = filepath.Join(t.TempDir(), "nope.json")
	h := NewHandlers(svc, cfg)

	result, _ := h.HandleVideoGet(context.Background(), makeRequest(nil))
	if !result.IsError {
		t.Fatal("expected error for a missing data file")
	}
}

func TestHandleVideoSearch(t *testing.T) {
	svc, cfg := testSetup(t)
	h := NewHandlers(svc, cfg)
	ctx := context.Background()

	tests := []struct {
		name      string
		args      map[string]any
		wantTotal float64
		wantCode  string
	}{
		{name: "content match", args: map[string]any{"query": "QUBITS"}, wantTotal: 1},
		{name: "title match", args: map[string]any{"query": "intro"}, wantTotal: 1},
		{name: "no match", args: map[string]any{"query": "zebra"}, wantTotal: 0},
		{name: "blank query", args: map[string]any{"query": "  "}, wantCode: string(errors.ErrValidation)},
		{name: "unknown argument", args: map[string]any{"q": "x"}, wantCode: string(errors.ErrValidation)},
		{name: "wrong type", args: map[string]any{"query": 42}, wantCode: string(errors.ErrValidation)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleVideoSearch(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantCode != "" {
				assertErrorCode(t, result, tt.wantCode)
				return
			}
			if got := parseOutput(t, result)["total"]; got != tt.wantTotal {
				t.Errorf("total = %v, want %v", got, tt.wantTotal)
			}
		})
	}
}

func TestHandleComments(t *testing.T) {
	svc, cfg := testSetup(t)
	h := NewHandlers(svc, cfg)
	ctx := context.Background()

	result, _ := h.HandleCommentPost(ctx, makeRequest(map[string]any{"text": "great talk"}))
	posted := parseOutput(t, result)
	if posted["author"] != "Anonymous" || posted["videoId"] != "vid1" || posted["id"] == "" {
		t.Errorf("posted = %v", posted)
	}

	_, _ = h.HandleCommentPost(ctx, makeRequest(map[string]any{"video_id": "other", "text": "elsewhere", "author": "Bo"}))

	result, _ = h.HandleCommentList(ctx, makeRequest(map[string]any{}))
	output := parseOutput(t, result)
	if output["total"] != float64(1) || output["videoId"] != "vid1" {
		t.Errorf("list = %v", output)
	}

	result, _ = h.HandleCommentPost(ctx, makeRequest(map[string]any{"text": ""}))
	assertErrorCode(t, result, string(errors.ErrValidation))
}

func TestHandleProgress(t *testing.T) {
	svc, cfg := testSetup(t)
	h := NewHandlers(svc, cfg)
	ctx := context.Background()

	result, _ := h.HandleProgressGet(ctx, makeRequest(nil))
	if got := parseOutput(t, result)["timestamp"]; got != float64(0) {
		t.Errorf("initial timestamp = %v, want 0", got)
	}

	result, _ = h.HandleProgressSet(ctx, makeRequest(map[string]any{"timestamp": 125.5}))
	if got := parseOutput(t, result)["timestamp"]; got != 125.5 {
		t.Errorf("set timestamp = %v", got)
	}

	result, _ = h.HandleProgressGet(ctx, makeRequest(map[string]any{"video_id": "vid1"}))
	if got := parseOutput(t, result)["timestamp"]; got != 125.5 {
		t.Errorf("stored timestamp = %v", got)
	}

	result, _ = h.HandleProgressSet(ctx, makeRequest(map[string]any{}))
	assertErrorCode(t, result, string(errors.ErrValidation))

	result, _ = h.HandleProgressSet(ctx, makeRequest(map[string]any{"timestamp": -1}))
	assertErrorCode(t, result, string(errors.ErrValidation))
}

func TestHandleNotes(t *testing.T) {
	svc, cfg := testSetup(t)
	h := NewHandlers(svc, cfg)
	ctx := context.Background()

	result, _ := h.HandleNotePut(ctx, makeRequest(map[string]any{"section_id": "s2", "text": "look up qubits"}))
	if got := parseOutput(t, result)["saved"]; got != true {
		t.Errorf("saved = %v", got)
	}

	result, _ = h.HandleNoteGet(ctx, makeRequest(map[string]any{"section_id": "s2"}))
	if got := parseOutput(t, result)["text"]; got != "look up qubits" {
		t.Errorf("text = %v", got)
	}

	result, _ = h.HandleNotePut(ctx, makeRequest(map[string]any{"section_id": "s2", "text": ""}))
	if got := parseOutput(t, result)["saved"]; got != false {
		t.Errorf("saved after clear = %v", got)
	}
	result, _ = h.HandleNoteGet(ctx, makeRequest(map[string]any{"section_id": "s2"}))
	if got := parseOutput(t, result)["text"]; got != "" {
		t.Errorf("text after clear = %v", got)
	}

	result, _ = h.HandleNoteGet(ctx, makeRequest(map[string]any{"section_id": " "}))
	assertErrorCode(t, result, string(errors.ErrValidation))
}

func TestServerRegistration(t *testing.T) {
	svc, cfg := testSetup(t)

	s := NewServer(svc, cfg, "test")
	tools := s.ListTools()
	if tools == nil {
		t.Fatal("expected tools to be registered, got nil")
	}

	expectedTools := []string{
		"video_get",
		"video_search",
		"comment_list",
		"comment_post",
		"progress_get",
		"progress_set",
		"note_get",
		"note_put",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expectedTools))
	}

	for _, name := range expectedTools {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	svc, cfg := testSetup(t)

	cfg.DisabledTools = []string{"comment_post", "note_put", "note_put"}
	tools := NewServer(svc, cfg, "test").ListTools()

	if len(tools) != 6 {
		t.Errorf("registered tool count = %d, want 6", len(tools))
	}
	for _, name := range []string{"comment_post", "note_put"} {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
	if _, ok := tools["video_get"]; !ok {
		t.Error("video_get should be registered")
	}
}

func TestServerRegistration_AllToolsDisabled(t *testing.T) {
	svc, cfg := testSetup(t)

	cfg.DisabledTools = AllToolNames()
	if tools := NewServer(svc, cfg, "test").ListTools(); len(tools) != 0 {
		t.Errorf("registered tool count = %d, want 0 (all disabled)", len(tools))
	}
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
	}{
		{name: "all valid", input: []string{"note_put", "comment_post"}, wantLen: 0},
		{name: "one unknown", input: []string{"note_put", "video_delete"}, wantLen: 1},
		{name: "all unknown", input: []string{"foo", "bar", "baz"}, wantLen: 3},
		{name: "empty list", input: []string{}, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unknown := ValidateDisabledTools(tt.input)
			if len(unknown) != tt.wantLen {
				t.Errorf("ValidateDisabledTools() returned %d unknown, want %d", len(unknown), tt.wantLen)
			}
		})
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	if len(names) != 8 {
		t.Errorf("AllToolNames() returned %d names, want 8", len(names))
	}
	if names[0] != "comment_list" {
		t.Errorf("names not sorted: %v", names)
	}
	if unknown := ValidateDisabledTools(names); len(unknown) != 0 {
		t.Errorf("AllToolNames() returned invalid names: %v", unknown)
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(errors.NewInternal(fmt.Errorf("sql error: open /tmp/secret.db: permission denied")))
	errObj := errorObject(t, r)

	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if _, ok := errObj["details"]; ok {
		t.Fatal("expected INTERNAL errors to omit details")
	}
}

func TestErrorResult_UnknownErrorIsInternal(t *testing.T) {
	errObj := errorObject(t, errorResult(fmt.Errorf("boom")))
	if errObj["code"] != string(errors.ErrInternal) || errObj["message"] != "an internal error occurred" {
		t.Errorf("error = %v", errObj)
	}
}

func TestErrorResult_WrappedErrorPreservesContext(t *testing.T) {
	wrapped := fmt.Errorf("items[2]: %w", errors.NewNotFound("section", "s9"))
	errObj := errorObject(t, errorResult(wrapped))

	if errObj["code"] != string(errors.ErrNotFound) {
		t.Errorf("code=%v, want %v", errObj["code"], errors.ErrNotFound)
	}
	if errObj["message"] != wrapped.Error() {
		t.Errorf("message = %v, want %q", errObj["message"], wrapped.Error())
	}
}

func TestErrorResult_NonInternalIncludesDetails(t *testing.T) {
	errObj := errorObject(t, errorResult(errors.NewValidation("too long").WithDetail("max_chars", 10)))
	if errObj["status"] != float64(400) {
		t.Errorf("status = %v", errObj["status"])
	}
	details, ok := errObj["details"].(map[string]any)
	if !ok || details["max_chars"] != float64(10) {
		t.Fatalf("details = %v", errObj["details"])
	}
}

// Helper functions

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

func errorObject(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if !result.IsError {
		t.Fatal("expected IsError=true")
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Fatalf("no error object in payload: %v", payload)
	}
	return errObj
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()
	if code := errorObject(t, result)["code"]; code != expectedCode {
		t.Errorf("got error code %q, want %q", code, expectedCode)
	}
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}

	return text.Text
}
