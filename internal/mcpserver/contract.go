package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/pagefs/internal/command"
)

// CommandReferenceURI is the resource holding the text command reference.
const CommandReferenceURI = "pagefs://commands"

func (s *Server) getCommandReference(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(command.Documentation()), nil
}

func (s *Server) readCommandsResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      CommandReferenceURI,
			MIMEType: "text/plain",
			Text:     command.Documentation(),
		},
	}, nil
}
