package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/supportdesk/internal/config"
	"github.com/ziadkadry99/supportdesk/internal/embeddings"
	"github.com/ziadkadry99/supportdesk/internal/knowledge"
	"github.com/ziadkadry99/supportdesk/internal/llm"
	"github.com/ziadkadry99/supportdesk/internal/pipeline"
	"github.com/ziadkadry99/supportdesk/internal/tickets"
	"github.com/ziadkadry99/supportdesk/internal/vectordb"
)

// stageProvider answers each pipeline stage by schema name.
type stageProvider struct{}

func (stageProvider) Name() string { return "stub" }

func (stageProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	replies := map[string]string{
		"retrieval_result":     `{"answer_short":"Uploads are capped at 2MB.","confidence":0.6,"resolution_suggested":true}`,
		"diagnosis_result":     `{"diagnosis":"File too large","steps":["Compress the file"],"risk":"medium","should_escalate":false}`,
		"communication_result": `{"customer_message":"Hi Jane, please compress the file."}`,
	}
	return &llm.CompletionResponse{Content: replies[req.Schema.Name]}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := vectordb.NewChromemStore(embeddings.NewHashEmbedder(embeddings.LocalDimensions))
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}
	kb := knowledge.NewService(store, knowledge.Options{})
	ticketStore := tickets.NewMemoryStore(nil)
	proc := pipeline.New(stageProvider{}, kb, ticketStore, "stub", config.DefaultConfig().Pipeline)
	return NewServer(ticketStore, kb, proc)
}

func call(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// extractText gets the text content from a CallToolResult.
func extractText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		tool     mcp.Tool
		wantName string
	}{
		{createTicketTool, "create_ticket"},
		{getTicketTool, "get_ticket"},
		{processTicketTool, "process_ticket"},
		{searchKnowledgeTool, "search_knowledge"},
		{uploadKnowledgeTool, "upload_knowledge"},
	}

	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	srv := newTestServer(t)
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
}

func TestTicketLifecycle(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	upload, err := srv.handleUploadKnowledge(ctx, call(map[string]any{
		"text":   "Uploads are capped at 2MB.\n\nContact support for increases.",
		"source": "faq",
	}))
	if err != nil || upload.IsError {
		t.Fatalf("upload failed: %v %s", err, extractText(upload))
	}
	if !strings.Contains(extractText(upload), `"ingested_chunks": 2`) {
		t.Errorf("unexpected upload result %s", extractText(upload))
	}

	created, err := srv.handleCreateTicket(ctx, call(map[string]any{
		"customer_name": "Jane",
		"ticket_type":   "bug",
		"subject":       "Upload fails",
		"description":   "Upload fails at 3MB",
		"priority":      "high",
		"channel":       "web",
	}))
	if err != nil || created.IsError {
		t.Fatalf("create failed: %v %s", err, extractText(created))
	}
	var ids map[string]string
	if err := json.Unmarshal([]byte(extractText(created)), &ids); err != nil {
		t.Fatalf("decoding create result: %v", err)
	}
	if ids["ticket_id"] == "" {
		t.Fatal("expected ticket_id")
	}

	got, err := srv.handleGetTicket(ctx, call(map[string]any{"ticket_id": ids["ticket_id"]}))
	if err != nil || got.IsError {
		t.Fatalf("get failed: %v %s", err, extractText(got))
	}
	if !strings.Contains(extractText(got), "Jane") {
		t.Errorf("ticket missing customer name: %s", extractText(got))
	}

	processed, err := srv.handleProcessTicket(ctx, call(map[string]any{"ticket_id": ids["ticket_id"]}))
	if err != nil || processed.IsError {
		t.Fatalf("process failed: %v %s", err, extractText(processed))
	}
	var res pipeline.Result
	if err := json.Unmarshal([]byte(extractText(processed)), &res); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if res.Communication.CustomerMessage == "" {
		t.Error("expected customer message")
	}
	if res.Diagnosis.Risk != "medium" {
		t.Errorf("risk = %q", res.Diagnosis.Risk)
	}
}

func TestToolErrors(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args    map[string]any
		want    string
	}{
		{"create without name", srv.handleCreateTicket, map[string]any{"subject": "x"}, "customer_name"},
		{"create blank name", srv.handleCreateTicket, map[string]any{"customer_name": "  "}, "customer_name"},
		{"get unknown", srv.handleGetTicket, map[string]any{"ticket_id": "t_missing"}, "not found"},
		{"process unknown", srv.handleProcessTicket, map[string]any{"ticket_id": "t_missing"}, "not found"},
		{"search without query", srv.handleSearchKnowledge, map[string]any{}, "query"},
		{"upload blank", srv.handleUploadKnowledge, map[string]any{"text": "\n\n  \n"}, "no content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.handler(ctx, call(tt.args))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !result.IsError {
				t.Fatalf("expected tool error, got %s", extractText(result))
			}
			if !strings.Contains(extractText(result), tt.want) {
				t.Errorf("expected %q in %q", tt.want, extractText(result))
			}
		})
	}
}

func TestSearchKnowledge(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	empty, err := srv.handleSearchKnowledge(ctx, call(map[string]any{"query": "upload limit"}))
	if err != nil || empty.IsError {
		t.Fatalf("empty search should not fail: %v", err)
	}
	if !strings.Contains(extractText(empty), "No results") {
		t.Errorf("unexpected text %q", extractText(empty))
	}

	if _, err := srv.kb.Seed(ctx); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	result, err := srv.handleSearchKnowledge(ctx, call(map[string]any{"query": "upload limit", "top_k": 1}))
	if err != nil || result.IsError {
		t.Fatalf("search failed: %v %s", err, extractText(result))
	}
	if !strings.Contains(extractText(result), "Found 1 result") {
		t.Errorf("expected one result, got %q", extractText(result))
	}
}
