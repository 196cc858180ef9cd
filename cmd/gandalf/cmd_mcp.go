package main

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/gandalf/internal/mcp"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve gandalf tools over MCP for editors and assistants",
	Long: `Start an MCP server exposing gandalf_hint, gandalf_levels and
gandalf_render. Serves stdio by default; logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.connect(ctx, flagMode); err != nil {
			return err
		}

		d, l := a.preferences(ctx)
		srv := mcp.NewServer(mcp.Config{
			Hints:    a.hints,
			Defaults: mcp.Defaults{Difficulty: d, Language: l},
			Version:  Version,
			Logger:   a.logger,
		})
		if mcpHTTPAddr != "" {
			a.logger.Info("serving MCP over HTTP", "addr", mcpHTTPAddr)
			return srv.ServeHTTP(ctx, mcpHTTPAddr)
		}
		return srv.ServeStdio(ctx)
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "serve over HTTP on this address instead of stdio")
}
