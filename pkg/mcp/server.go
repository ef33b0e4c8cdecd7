package mcp

import (
	"github.com/mark3labs/mcp-go/server"
	wayfarer "github.com/unowned-ai/wayfarer/pkg"
	"github.com/unowned-ai/wayfarer/pkg/app"
)

type WayfarerMCPServer struct {
	mcpServer *server.MCPServer
	journal   *Journal
}

// NewWayfarerMCPServer builds an MCP server whose tools drive coord.
func NewWayfarerMCPServer(coord *app.Coordinator) *WayfarerMCPServer {
	s := server.NewMCPServer(
		"Wayfarer MCP Server",
		wayfarer.Version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
		server.WithRecovery(),
	)
	return &WayfarerMCPServer{mcpServer: s, journal: NewJournal(coord)}
}

// RegisterAll registers every journal tool and returns their names.
func (s *WayfarerMCPServer) RegisterAll() []string {
	raw, j := s.mcpServer, s.journal
	RegisterPingTool(raw)
	RegisterListMemoriesTool(raw, j)
	RegisterGetMemoryTool(raw, j)
	RegisterCreateMemoryTool(raw, j)
	RegisterUpdateMemoryTool(raw, j)
	RegisterMoveMemoryTool(raw, j)
	RegisterDeleteMemoryTool(raw, j)
	RegisterAddPhotoTool(raw, j)
	RegisterSearchPlacesTool(raw, j)
	RegisterLoginTool(raw, j)
	return []string{
		"ping", "list_memories", "get_memory", "create_memory", "update_memory",
		"move_memory", "delete_memory", "add_photo", "search_places", "login",
	}
}

// Start runs the stdio event loop. Register tools beforehand.
func (s *WayfarerMCPServer) Start() error {
	return server.ServeStdio(s.mcpServer)
}

// MCPRawServer exposes the raw mcp-go server.
func (s *WayfarerMCPServer) MCPRawServer() *server.MCPServer {
	return s.mcpServer
}
