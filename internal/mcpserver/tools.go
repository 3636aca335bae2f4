package mcpserver

import (
	"bytes"
	"context"

	"github.com/PurpleBooth/git-moves-together/internal/output"
	"github.com/PurpleBooth/git-moves-together/internal/report"
	"github.com/PurpleBooth/git-moves-together/internal/service/analysis"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// AnalyzeInput is the base input for all analyze tools.
type AnalyzeInput struct {
	Paths  []string `json:"paths,omitempty" jsonschema:"Repository paths to analyze. Defaults to current directory if empty."`
	Format string   `json:"format,omitempty" jsonschema:"Output format: toon (default), json, yaml, markdown, or text."`
}

// CouplingInput adds coupling-specific options.
type CouplingInput struct {
	AnalyzeInput
	FromDays          *int   `json:"from_days,omitempty" jsonschema:"Only consider commits from the last N days. Default all history."`
	TimeWindowMinutes *int   `json:"time_window_minutes,omitempty" jsonschema:"Group commits into windows of N minutes instead of one change per commit."`
	Grouping          string `json:"grouping,omitempty" jsonschema:"identity (one change per commit) or time-window. Default from config."`
	Top               int    `json:"top,omitempty" jsonschema:"Show the top N file pairs. Default all."`
}

func getPaths(input AnalyzeInput) []string {
	if len(input.Paths) == 0 {
		return []string{"."}
	}
	return input.Paths
}

func getFormat(input AnalyzeInput) output.Format {
	switch input.Format {
	case "json":
		return output.FormatJSON
	case "yaml", "yml":
		return output.FormatYAML
	case "markdown", "md":
		return output.FormatMarkdown
	case "text":
		return output.FormatText
	default:
		return output.FormatTOON
	}
}

func formatOutput(data any, format output.Format) (string, error) {
	var buf bytes.Buffer
	if err := output.NewWriterFormatter(format, &buf, false).Output(data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func toolResult(data any, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

func (s *Server) handleAnalyzeCoupling(ctx context.Context, req *mcp.CallToolRequest, input CouplingInput) (*mcp.CallToolResult, any, error) {
	paths := getPaths(input.AnalyzeInput)
	format := getFormat(input.AnalyzeInput)

	if input.Top < 0 {
		return toolError("top must not be negative")
	}

	svc := analysis.New(
		analysis.WithConfig(s.config),
		analysis.WithOpener(s.opener),
		analysis.WithLogger(s.logger),
	)
	result, err := svc.AnalyzeCoupling(ctx, paths, analysis.CouplingOptions{
		MaxDaysAgo:        input.FromDays,
		TimeWindowMinutes: input.TimeWindowMinutes,
		Grouping:          input.Grouping,
	})
	if err != nil {
		return toolError(err.Error())
	}

	top := input.Top
	if top == 0 {
		top = s.config.Output.Top
	}
	return toolResult(report.NewCoupling(result, top), format)
}
