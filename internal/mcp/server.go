package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/supportdesk/internal/knowledge"
	"github.com/ziadkadry99/supportdesk/internal/pipeline"
	"github.com/ziadkadry99/supportdesk/internal/tickets"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes ticket triage tools.
type Server struct {
	tickets   tickets.Store
	kb        *knowledge.Service
	processor *pipeline.Processor
	mcp       *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(store tickets.Store, kb *knowledge.Service, processor *pipeline.Processor) *Server {
	s := &Server{
		tickets:   store,
		kb:        kb,
		processor: processor,
	}

	s.mcp = server.NewMCPServer(
		"supportdesk",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(createTicketTool, s.handleCreateTicket)
	s.mcp.AddTool(getTicketTool, s.handleGetTicket)
	s.mcp.AddTool(processTicketTool, s.handleProcessTicket)
	s.mcp.AddTool(searchKnowledgeTool, s.handleSearchKnowledge)
	s.mcp.AddTool(uploadKnowledgeTool, s.handleUploadKnowledge)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
