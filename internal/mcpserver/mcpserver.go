// Package mcpserver exposes coupling analysis as MCP tools.
package mcpserver

import (
	"context"
	"log/slog"

	"github.com/PurpleBooth/git-moves-together/internal/logging"
	"github.com/PurpleBooth/git-moves-together/internal/vcs"
	"github.com/PurpleBooth/git-moves-together/pkg/config"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server and registers the coupling tools.
type Server struct {
	server *mcp.Server
	config *config.Config
	opener vcs.Opener
	logger *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithConfig sets the configuration tool calls start from.
func WithConfig(cfg *config.Config) Option {
	return func(s *Server) {
		s.config = cfg
	}
}

// WithOpener sets the VCS opener (for testing).
func WithOpener(opener vcs.Opener) Option {
	return func(s *Server) {
		s.opener = opener
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP server with all tools and prompts registered.
func NewServer(version string, opts ...Option) *Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    logging.ServiceName,
			Version: version,
		},
		nil,
	)

	s := &Server{
		server: server,
		config: config.DefaultConfig(),
		opener: vcs.DefaultOpener(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server starting", "transport", "stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// registerTools adds the analysis tools to the server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_coupling",
		Description: describeCoupling(),
	}, s.handleAnalyzeCoupling)
}
