package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"mcreport/internal/datapack"
	"mcreport/internal/report"
	"mcreport/internal/suite"
	"mcreport/pkg/logging"
)

const serverName = "mcreport"

// Options configures the MCP server.
type Options struct {
	// Suites are the suites run_suites can select from.
	Suites []suite.Suite
	// Datapack controls validation for list_functions.
	Datapack datapack.Options
	// Tests selects test functions when list_functions is asked for tests only.
	Tests datapack.Filter
	Version string
}

// Server is an MCP server over the report suites.
type Server struct {
	opts Options
	mcp  *server.MCPServer
}

// NewServer creates the server and registers its tools.
func NewServer(opts Options) *Server {
	s := &Server{opts: opts}
	s.mcp = server.NewMCPServer(serverName, opts.Version, server.WithToolCapabilities(true))

	s.mcp.AddTool(mcp.NewTool("list_suites",
		mcp.WithDescription("List the report suites that run_suites can execute"),
	), s.handleListSuites)

	s.mcp.AddTool(mcp.NewTool("run_suites",
		mcp.WithDescription("Run report suites over datapacks and return the markdown report"),
		mcp.WithArray("datapacks",
			mcp.Required(),
			mcp.Description("Datapack root directories, in report order"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithArray("tests",
			mcp.Description("Suite names to run. All suites run when omitted"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	), s.handleRunSuites)

	s.mcp.AddTool(mcp.NewTool("list_functions",
		mcp.WithDescription("List the function call ids of a datapack"),
		mcp.WithString("datapack",
			mcp.Required(),
			mcp.Description("Datapack root directory"),
		),
		mcp.WithBoolean("tests_only",
			mcp.Description("Only list test functions"),
		),
	), s.handleListFunctions)

	return s
}

// ServeStdio serves MCP on stdin and stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	logging.Info("Agent", "Serving MCP on stdio")
	return server.ServeStdio(s.mcp)
}

// handleListSuites handles the list_suites MCP tool
func (s *Server) handleListSuites(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(suite.Names(s.opts.Suites), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format suites: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

// handleRunSuites handles the run_suites MCP tool
func (s *Server) handleRunSuites(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	datapacks, err := stringSlice(args["datapacks"])
	if err != nil || len(datapacks) == 0 {
		return mcp.NewToolResultError("datapacks parameter is required and must be a list of paths"), nil
	}
	tests, err := stringSlice(args["tests"])
	if err != nil {
		return mcp.NewToolResultError("tests must be a list of suite names"), nil
	}

	var buf bytes.Buffer
	doc := report.NewDocument(&buf)
	outcome, err := suite.Run(ctx, s.opts.Suites, suite.Options{Datapacks: datapacks, Selected: tests}, doc)
	if err != nil {
		logging.Error("Agent", err, "run_suites failed")
		msg := fmt.Sprintf("Run failed: %v", err)
		if buf.Len() > 0 {
			msg += "\n\n" + buf.String()
		}
		return mcp.NewToolResultError(msg), nil
	}

	status := "PASSED"
	if !outcome.Passed {
		status = "FAILED"
	}
	return mcp.NewToolResultText(fmt.Sprintf("Result: %s\n\n%s", status, buf.String())), nil
}

// handleListFunctions handles the list_functions MCP tool
func (s *Server) handleListFunctions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, err := request.RequireString("datapack")
	if err != nil {
		return mcp.NewToolResultError("datapack parameter is required"), nil
	}

	dp, err := datapack.Open(dir, s.opts.Datapack)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var filter datapack.Filter
	if request.GetBool("tests_only", false) {
		filter = s.opts.Tests
	}
	fns, err := datapack.Locate(dp.Path, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list functions: %v", err)), nil
	}
	ids := datapack.NewSet(fns).IDs()
	if len(ids) == 0 {
		return mcp.NewToolResultText("No functions found"), nil
	}

	lines := make([]string, len(ids))
	for i, id := range ids {
		lines[i] = string(id)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

// stringSlice converts a decoded JSON array argument. A missing argument is
// an empty slice.
func stringSlice(raw any) ([]string, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %T", raw)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		str, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string, got %T", item)
		}
		out = append(out, str)
	}
	return out, nil
}
