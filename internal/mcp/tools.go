package mcp

import "github.com/mark3labs/mcp-go/mcp"

// createTicketTool defines the create_ticket MCP tool.
var createTicketTool = mcp.NewTool("create_ticket",
	mcp.WithDescription("Register a new customer support ticket. Returns the ticket id."),
	mcp.WithString("customer_name",
		mcp.Required(),
		mcp.Description("Name of the customer raising the ticket"),
	),
	mcp.WithString("customer_id",
		mcp.Description("Existing customer id; generated when omitted"),
	),
	mcp.WithString("product_purchased",
		mcp.Description("Product the ticket is about"),
	),
	mcp.WithString("ticket_type",
		mcp.Description("Ticket category, e.g. bug, billing, technical"),
	),
	mcp.WithString("subject",
		mcp.Description("One-line summary of the problem"),
	),
	mcp.WithString("description",
		mcp.Description("Full description of the problem"),
	),
	mcp.WithString("priority",
		mcp.Description("Ticket priority"),
		mcp.Enum("low", "medium", "high", "urgent"),
	),
	mcp.WithString("channel",
		mcp.Description("Channel the ticket arrived through, e.g. email, chat, web"),
	),
)

// getTicketTool defines the get_ticket MCP tool.
var getTicketTool = mcp.NewTool("get_ticket",
	mcp.WithDescription("Get a support ticket by id."),
	mcp.WithString("ticket_id",
		mcp.Required(),
		mcp.Description("Ticket id returned by create_ticket"),
	),
)

// processTicketTool defines the process_ticket MCP tool.
var processTicketTool = mcp.NewTool("process_ticket",
	mcp.WithDescription("Triage a ticket: retrieve knowledge, diagnose the issue and draft the customer reply."),
	mcp.WithString("ticket_id",
		mcp.Required(),
		mcp.Description("Ticket id returned by create_ticket"),
	),
)

// searchKnowledgeTool defines the search_knowledge MCP tool.
var searchKnowledgeTool = mcp.NewTool("search_knowledge",
	mcp.WithDescription("Search the support knowledge base semantically."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("top_k",
		mcp.Description("Maximum number of results to return (default 6)"),
	),
)

// uploadKnowledgeTool defines the upload_knowledge MCP tool.
var uploadKnowledgeTool = mcp.NewTool("upload_knowledge",
	mcp.WithDescription("Add text to the knowledge base. Paragraphs separated by blank lines become separate chunks."),
	mcp.WithString("text",
		mcp.Required(),
		mcp.Description("FAQ, runbook or policy text"),
	),
	mcp.WithString("source",
		mcp.Description("Label for where the text came from"),
	),
)
