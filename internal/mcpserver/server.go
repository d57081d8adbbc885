// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the site's posts and build as tools via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/parser"
	"github.com/starford/quire/internal/paths"
	"github.com/starford/quire/internal/postservice"
	"github.com/starford/quire/internal/storage"
)

// FormatURI is the resource holding PostFormatContract.
const FormatURI = "quire://post-format"

var slugRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Server wraps the MCP server with the site tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *postservice.Service
	posts storage.Provider
}

// New creates a new MCP server with all tools registered. posts is the
// post source directory drafts are written to.
func New(svc *postservice.Service, posts storage.Provider) *Server {
	s := &Server{svc: svc, posts: posts}

	s.mcp = server.NewMCPServer(
		"Quire",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_posts",
		mcp.WithDescription("List posts newest first (drafts first) with title, dates, tags and URL."),
		mcp.WithString("tag", mcp.Description("Optional tag to filter by")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of posts (default 50)")),
	), s.listPosts)

	s.mcp.AddTool(mcp.NewTool("search_posts",
		mcp.WithDescription("Full-text search through post titles, tags and markup."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchPosts)

	s.mcp.AddTool(mcp.NewTool("read_post",
		mcp.WithDescription("Read the Markdown markup of a built post."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Post name, the file name without extension (e.g. 2020-01-01-hello)")),
	), s.readPost)

	s.mcp.AddTool(mcp.NewTool("create_draft",
		mcp.WithDescription("Create a new draft post. "+
			"Content MUST follow the post format (header block, heading, intro paragraph). "+
			"Read the contract first via the get_post_format tool or the "+FormatURI+" resource."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Lowercase slug; the file becomes draft-<slug>.md")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content following the post format contract")),
	), s.createDraft)

	s.mcp.AddTool(mcp.NewTool("get_post_format",
		mcp.WithDescription("Returns the post format contract. "+
			"Call this before drafting posts to ensure correct structure."),
	), s.getPostFormat)

	s.mcp.AddTool(mcp.NewTool("build_site",
		mcp.WithDescription("Rebuild the site and report rendered, pruned and failed posts."),
	), s.buildSite)

	s.mcp.AddResource(
		mcp.NewResource(FormatURI, "Post Format Contract",
			mcp.WithResourceDescription("Post source format that every post must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readPostFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag := req.GetString("tag", "")
	limit := req.GetInt("limit", 50)
	items, _, err := s.svc.ListPosts(ctx, limit, 0, tag)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("no posts found"), nil
	}
	return jsonResult(items)
}

func (s *Server) searchPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) readPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	post, err := s.svc.GetPost(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
	}
	return mcp.NewToolResultText(post.Markup), nil
}

func (s *Server) createDraft(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !slugRe.MatchString(slug) {
		return mcp.NewToolResultError(fmt.Sprintf("invalid slug %q: use lowercase letters, digits and dashes", slug)), nil
	}

	file := models.DraftPrefix + slug + paths.MarkupExt
	if s.posts.Exists(file) {
		return mcp.NewToolResultError(fmt.Sprintf("draft already exists: %s", file)), nil
	}
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	data := []byte(content)
	if _, err := parser.Parse(file, data); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.posts.Write(file, data); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", file)), nil
}

func (s *Server) buildSite(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.svc.Rebuild(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(report)
}

func (s *Server) getPostFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PostFormatContract), nil
}

func (s *Server) readPostFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatURI,
			MIMEType: "text/markdown",
			Text:     PostFormatContract,
		},
	}, nil
}
