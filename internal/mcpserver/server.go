// Package mcpserver exposes a completed delphino analysis (the merged
// graph and every per-function graph) as MCP tools, so an agent can
// ask "what can read be followed by" without shelling out to the CLI.
// A Server wraps a *server.MCPServer, holds the already-built graph(s),
// and registers its three tools in New.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/bctak/delphino/internal/cfg"
	"github.com/bctak/delphino/internal/merge"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server wraps the MCP server with delphino-specific tools over one
// completed analysis run.
type Server struct {
	mcpServer *server.MCPServer
	merged    *merge.MergedGraph
	perFunc   map[string]*cfg.PerFunctionGraph
	source    string
}

// New creates an MCP server exposing merged, the per-function graphs
// in perFunc, for the translation unit at sourcePath.
func New(sourcePath string, merged *merge.MergedGraph, perFunc map[string]*cfg.PerFunctionGraph) *Server {
	mcpServer := server.NewMCPServer("delphino", "0.1.0", server.WithToolCapabilities(false))

	s := &Server{mcpServer: mcpServer, merged: merged, perFunc: perFunc, source: sourcePath}
	s.registerMergedGraphTool()
	s.registerFunctionGraphTool()
	s.registerReachableTool()
	return s
}

// ServeStdio starts the server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerMergedGraphTool() {
	tool := mcp.NewTool("delphino_merged_graph",
		mcp.WithDescription("Return the merged external-symbol call graph for the analyzed translation unit, as a JSON edge list."),
	)
	s.mcpServer.AddTool(tool, s.handleMergedGraph)
}

func (s *Server) registerFunctionGraphTool() {
	tool := mcp.NewTool("delphino_function_graph",
		mcp.WithDescription("Return one user function's per-function control-flow graph (over its callees plus S/E sentinels), as a JSON edge list."),
		mcp.WithString("function",
			mcp.Required(),
			mcp.Description("Name of the user function to return the graph for"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleFunctionGraph)
}

func (s *Server) registerReachableTool() {
	tool := mcp.NewTool("delphino_reachable",
		mcp.WithDescription("List every external symbol that can be called after the given external symbol, along any feasible path in the merged graph."),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("External symbol to query successors of"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleReachable)
}

func (s *Server) handleMergedGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	edges := edgeList(s.merged.Graph)
	data, err := json.Marshal(map[string]any{"source": s.source, "edges": edges})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleFunctionGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	name, ok := args["function"].(string)
	if !ok || name == "" {
		return mcp.NewToolResultError("function parameter is required"), nil
	}

	pfg, ok := s.perFunc[name]
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown user function %q", name)), nil
	}

	edges := edgeList(pfg.Graph)
	data, err := json.Marshal(map[string]any{"function": name, "edges": edges})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleReachable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	symbol, ok := args["symbol"].(string)
	if !ok || symbol == "" {
		return mcp.NewToolResultError("symbol parameter is required"), nil
	}

	if !s.merged.Graph.HasNode(symbol) {
		return mcp.NewToolResultError(fmt.Sprintf("unknown symbol %q in merged graph", symbol)), nil
	}

	reachable := s.merged.Graph.Reachable(symbol)
	names := make([]string, 0, len(reachable))
	for n := range reachable {
		names = append(names, n)
	}
	sort.Strings(names)

	data, err := json.Marshal(map[string]any{"symbol": symbol, "reachable": names})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// edgeList renders a *cfg.Graph as a sorted "from->to" string slice
// for JSON transport.
func edgeList(g *cfg.Graph) []string {
	var out []string
	for _, from := range g.Nodes() {
		for _, to := range g.Successors(from) {
			out = append(out, fmt.Sprintf("%s->%s", from, to))
		}
	}
	sort.Strings(out)
	return out
}
