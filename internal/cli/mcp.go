package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aegisgraph/aegisgraph/internal/mcp"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run as an MCP server on stdio",
	Long:  "Exposes the access pipeline as MCP tools (aegis_chat, aegis_check_access, aegis_get_mode, aegis_set_mode, aegis_escalation_status) for agent hosts.",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := buildApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to assemble service: %w", err)
	}
	defer a.Close()

	srv := mcp.New(a.pipe, a.oracle, a.modes, a.tracker)
	return srv.Run(ctx)
}
