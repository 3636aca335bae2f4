package main

import (
	"fmt"

	"github.com/PurpleBooth/git-moves-together/internal/logging"
	"github.com/PurpleBooth/git-moves-together/internal/mcpserver"
	"github.com/urfave/cli/v2"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes coupling analysis
as a tool that LLMs can invoke.

To use with an MCP client, add to its config:
  {
    "mcpServers": {
      "git-moves-together": {
        "command": "git-moves-together",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - analyze_coupling    Files that change together`,
		Action: runMCPCmd,
		Subcommands: []*cli.Command{
			{
				Name:   "manifest",
				Usage:  "Print the MCP server manifest (server.json)",
				Action: runMCPManifestCmd,
			},
		},
	}
}

func runMCPCmd(c *cli.Context) error {
	cfg, err := buildConfig(c)
	if err != nil {
		return err
	}
	logger, err := buildLogger(cfg, logging.ModeMCP)
	if err != nil {
		return err
	}

	server := mcpserver.NewServer(version,
		mcpserver.WithConfig(cfg),
		mcpserver.WithLogger(logger),
	)
	return server.Run(c.Context)
}

func runMCPManifestCmd(c *cli.Context) error {
	data, err := mcpserver.GenerateManifest(version)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(data))
	return err
}
