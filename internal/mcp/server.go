package mcp

import (
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/vidpage/vidpage/internal/api"
	"github.com/vidpage/vidpage/internal/config"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"video_get": {
		def:     videoGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleVideoGet },
	},
	"video_search": {
		def:     videoSearchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleVideoSearch },
	},
	"comment_list": {
		def:     commentListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCommentList },
	},
	"comment_post": {
		def:     commentPostToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCommentPost },
	},
	"progress_get": {
		def:     progressGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProgressGet },
	},
	"progress_set": {
		def:     progressSetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProgressSet },
	},
	"note_get": {
		def:     noteGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNoteGet },
	},
	"note_put": {
		def:     notePutToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNotePut },
	},
}

// AllToolNames returns every tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server exposing the video tools.
// Tools listed in cfg.DisabledTools are not registered.
func NewServer(svc *api.Service, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"vidpage",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(svc, cfg)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(svc *api.Service, cfg *config.Config, version string) error {
	return server.ServeStdio(NewServer(svc, cfg, version))
}
