package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/supportdesk/internal/knowledge"
	"github.com/ziadkadry99/supportdesk/internal/pipeline"
	"github.com/ziadkadry99/supportdesk/internal/tickets"
	"github.com/ziadkadry99/supportdesk/internal/vectordb"
)

// handleCreateTicket registers a ticket from the tool arguments.
func (s *Server) handleCreateTicket(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("customer_name")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: customer_name"), nil
	}

	t, err := s.tickets.Create(ctx, tickets.Fields{
		CustomerName:     name,
		CustomerID:       request.GetString("customer_id", ""),
		ProductPurchased: request.GetString("product_purchased", ""),
		TicketType:       request.GetString("ticket_type", ""),
		Subject:          request.GetString("subject", ""),
		Description:      request.GetString("description", ""),
		Priority:         request.GetString("priority", ""),
		Channel:          request.GetString("channel", ""),
	})
	if errors.Is(err, tickets.ErrValidation) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err != nil {
		slog.Error("mcp: creating ticket", "error", err)
		return mcp.NewToolResultError("could not create ticket"), nil
	}

	return jsonResult(map[string]string{"ticket_id": t.ID, "sla": t.SLA})
}

// handleGetTicket returns a ticket as JSON.
func (s *Server) handleGetTicket(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("ticket_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: ticket_id"), nil
	}

	t, err := s.tickets.Get(ctx, id)
	if errors.Is(err, tickets.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("ticket %q not found", id)), nil
	}
	if err != nil {
		slog.Error("mcp: getting ticket", "ticket_id", id, "error", err)
		return mcp.NewToolResultError("could not load ticket"), nil
	}

	return jsonResult(t)
}

// handleProcessTicket runs the triage pipeline for a ticket.
func (s *Server) handleProcessTicket(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("ticket_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: ticket_id"), nil
	}
	if s.processor == nil {
		return mcp.NewToolResultError("pipeline not configured"), nil
	}

	res, err := s.processor.ProcessByID(ctx, id)
	if err != nil {
		if errors.Is(err, tickets.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("ticket %q not found", id)), nil
		}
		var se *pipeline.StageError
		if errors.As(err, &se) {
			return mcp.NewToolResultError(fmt.Sprintf("processing failed at %s stage (%s)", se.Stage, se.Kind())), nil
		}
		slog.Error("mcp: processing ticket", "ticket_id", id, "error", err)
		return mcp.NewToolResultError("processing failed"), nil
	}

	return jsonResult(res)
}

// handleSearchKnowledge performs semantic search over the knowledge base.
func (s *Server) handleSearchKnowledge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	topK := request.GetInt("top_k", knowledge.DefaultTopK)
	if topK <= 0 {
		topK = knowledge.DefaultTopK
	}

	hits, err := s.kb.Search(ctx, query, topK)
	if err != nil {
		slog.Error("mcp: searching knowledge", "error", err)
		return mcp.NewToolResultError("knowledge base unavailable"), nil
	}
	if len(hits) == 0 {
		return mcp.NewToolResultText("No results found. The knowledge base may be empty. Use upload_knowledge or `supportdesk ingest` to add content."), nil
	}

	return mcp.NewToolResultText(vectordb.FormatHits(hits)), nil
}

// handleUploadKnowledge ingests text into the knowledge base.
func (s *Server) handleUploadKnowledge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: text"), nil
	}

	n, err := s.kb.Upload(ctx, text, request.GetString("source", ""))
	switch {
	case errors.Is(err, knowledge.ErrEmptyUpload):
		return mcp.NewToolResultError("text contains no content"), nil
	case err != nil:
		slog.Error("mcp: uploading knowledge", "error", err)
		return mcp.NewToolResultError("could not index text"), nil
	}

	return jsonResult(map[string]int{"ingested_chunks": n})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
