package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/talkscope/internal/analysis"
	"github.com/kalambet/talkscope/internal/transcript"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Analyzer Analyzer
	Version  string
}

// NewMCPServer creates an MCP server exposing transcript analysis and
// validation as tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s := server.NewMCPServer(
		"talkscope",
		version,
		server.WithToolCapabilities(false),
		server.WithInstructions("talkscope analyzes KakaoTalk chat transcripts: sentiment, relationship trends and key moments."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("analyze_transcript",
			mcp.WithDescription("Analyze a two-person chat transcript and return the sentiment and relationship report as JSON."),
			mcp.WithString("transcript", mcp.Description("Full transcript text, one message per line"), mcp.Required()),
			mcp.WithBoolean("advanced", mcp.Description("Include statistics, deep emotions, patterns, key moments and predictions")),
		),
		mcpAnalyze(deps),
	)

	s.AddTool(
		mcp.NewTool("validate_transcript",
			mcp.WithDescription("Check whether a transcript has enough lines to be analyzed."),
			mcp.WithString("transcript", mcp.Description("Full transcript text"), mcp.Required()),
		),
		mcpValidate(),
	)

	return s
}

type mcpAnalysis struct {
	AnalysisID string         `json:"analysis_id"`
	Model      string         `json:"model"`
	Result     map[string]any `json:"result"`
}

func mcpAnalyze(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("transcript")
		if err != nil {
			return mcpError("transcript is required"), nil
		}

		level := analysis.Basic
		if req.GetBool("advanced", false) {
			level = analysis.Advanced
		}

		res, err := deps.Analyzer.Analyze(ctx, analysis.Request{
			ID:         uuid.NewString(),
			Transcript: text,
			Level:      level,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("%s: %v", analysis.Code(err), err)), nil
		}

		b, err := json.Marshal(mcpAnalysis{AnalysisID: res.ID, Model: res.Model, Result: res.Data})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpValidate() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("transcript")
		if err != nil {
			return mcpError("transcript is required"), nil
		}

		b, err := json.Marshal(transcript.Validate(text))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
