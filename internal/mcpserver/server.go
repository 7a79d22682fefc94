// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes pagefs tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/pagefs/internal/command"
	"github.com/starford/pagefs/internal/fileservice"
)

// Server wraps the MCP server with pagefs tools.
type Server struct {
	mcp      *server.MCPServer
	svc      *fileservice.Service
	cmd      *command.Interpreter
	handlers map[string]server.ToolHandlerFunc
}

// New creates a new MCP server with all pagefs tools registered.
func New(svc *fileservice.Service, cmd *command.Interpreter) *Server {
	s := &Server{svc: svc, cmd: cmd, handlers: make(map[string]server.ToolHandlerFunc)}

	s.mcp = server.NewMCPServer(
		"pagefs",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.addTool(mcp.NewTool("create_file",
		mcp.WithDescription("Create a new virtual file. The content is split into fixed-size pages."),
		mcp.WithString("name", mcp.Required(), mcp.Description("File name")),
		mcp.WithString("content", mcp.Description("Initial content (may be empty)")),
	), s.createFile)

	s.addTool(mcp.NewTool("read_file",
		mcp.WithDescription("Read one page of a file, optionally with context from the adjacent pages."),
		mcp.WithString("name", mcp.Required(), mcp.Description("File name")),
		mcp.WithNumber("page", mcp.Required(), mcp.Description("Zero-based page index")),
		mcp.WithBoolean("include_surrounding", mcp.Description("Add the tail of the previous page and the head of the next page")),
		mcp.WithNumber("surrounding_chars", mcp.Description("Characters of context taken from each adjacent page")),
	), s.readFile)

	s.addTool(mcp.NewTool("update_file",
		mcp.WithDescription("Replace one page, then re-paginate the whole file."),
		mcp.WithString("name", mcp.Required(), mcp.Description("File name")),
		mcp.WithNumber("page", mcp.Required(), mcp.Description("Zero-based page index")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New page content")),
	), s.updateFile)

	s.addTool(mcp.NewTool("append_to_file",
		mcp.WithDescription("Append content as new pages after the last page. Existing pages are not merged; use reorganize_pages for that."),
		mcp.WithString("name", mcp.Required(), mcp.Description("File name")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Content to append")),
	), s.appendToFile)

	s.addTool(mcp.NewTool("rename_file",
		mcp.WithDescription("Rename a virtual file."),
		mcp.WithString("old_name", mcp.Required(), mcp.Description("Current name")),
		mcp.WithString("new_name", mcp.Required(), mcp.Description("New name (must not exist)")),
	), s.renameFile)

	s.addTool(mcp.NewTool("delete_file",
		mcp.WithDescription("Delete a virtual file."),
		mcp.WithString("name", mcp.Required(), mcp.Description("File name")),
	), s.deleteFile)

	s.addTool(mcp.NewTool("get_file_info",
		mcp.WithDescription("Return the page count and total size in characters of a file as JSON."),
		mcp.WithString("name", mcp.Required(), mcp.Description("File name")),
	), s.getFileInfo)

	s.addTool(mcp.NewTool("reorganize_pages",
		mcp.WithDescription("Re-paginate a file so every page but the last is exactly page-size characters."),
		mcp.WithString("name", mcp.Required(), mcp.Description("File name")),
	), s.reorganizePages)

	s.addTool(mcp.NewTool("list_files",
		mcp.WithDescription("List all virtual file names, one per line, in ascending order."),
	), s.listFiles)

	s.addTool(mcp.NewTool("save_to_disk",
		mcp.WithDescription("Write one file's full content to disk under the storage root."),
		mcp.WithString("name", mcp.Required(), mcp.Description("File name")),
		mcp.WithString("path", mcp.Description("Target path relative to the storage root (defaults to the file name)")),
	), s.saveToDisk)

	s.addTool(mcp.NewTool("dump_all",
		mcp.WithDescription("Write every virtual file into a directory under the storage root."),
		mcp.WithString("dir", mcp.Description("Target directory (defaults to dump)")),
	), s.dumpAll)

	s.addTool(mcp.NewTool("execute_command",
		mcp.WithDescription("Run one text command, e.g. READ_FILE report.txt 2 INCLUDE_SURROUNDING. "+
			"See get_command_reference or the pagefs://commands resource for the syntax."),
		mcp.WithString("command", mcp.Required(), mcp.Description("Command line")),
	), s.executeCommand)

	s.addTool(mcp.NewTool("get_command_reference",
		mcp.WithDescription("Returns the text command reference."),
	), s.getCommandReference)

	s.mcp.AddResource(
		mcp.NewResource(CommandReferenceURI, "Command Reference",
			mcp.WithResourceDescription("Syntax of every text command accepted by execute_command."),
			mcp.WithMIMEType("text/plain"),
		),
		s.readCommandsResource,
	)

	return s
}

func (s *Server) addTool(tool mcp.Tool, h server.ToolHandlerFunc) {
	s.handlers[tool.Name] = h
	s.mcp.AddTool(tool, h)
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) createFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content := req.GetString("content", "")
	if err := s.svc.CreateFile(ctx, name, content); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", name)), nil
}

func (s *Server) readFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := req.RequireInt("page")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	include := req.GetBool("include_surrounding", false)
	chars := req.GetInt("surrounding_chars", s.cmd.SurroundingChars())
	if chars < 0 {
		return mcp.NewToolResultError("surrounding_chars must be non-negative"), nil
	}
	text, err := s.svc.ReadFile(ctx, name, page, include, chars)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) updateFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := req.RequireInt("page")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.UpdateFile(ctx, name, page, content); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s page %d", name, page)), nil
}

func (s *Server) appendToFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.AppendToFile(ctx, name, content); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("appended: %s", name)), nil
}

func (s *Server) renameFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	oldName, err := req.RequireString("old_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newName, err := req.RequireString("new_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.RenameFile(ctx, oldName, newName); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("renamed: %s -> %s", oldName, newName)), nil
}

func (s *Server) deleteFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeleteFile(ctx, name); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", name)), nil
}

func (s *Server) getFileInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	info, err := s.svc.FileInfo(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(info, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) reorganizePages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.ReorganizePages(ctx, name); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("reorganized: %s", name)), nil
}

func (s *Server) listFiles(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names := s.svc.ListFiles(ctx)
	if len(names) == 0 {
		return mcp.NewToolResultText("no files"), nil
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) saveToDisk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	written, err := s.svc.SaveToDisk(ctx, name, req.GetString("path", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s -> %s", name, written)), nil
}

func (s *Server) dumpAll(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, err := s.svc.DumpAll(ctx, req.GetString("dir", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("dumped: %s", dir)), nil
}

func (s *Server) executeCommand(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	line, err := req.RequireString("command")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := s.cmd.Execute(ctx, line)
	if strings.HasPrefix(out, "Error: ") {
		return mcp.NewToolResultError(out), nil
	}
	return mcp.NewToolResultText(out), nil
}
