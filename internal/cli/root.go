package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "codemapd",
		Short: "Generate interactive architecture maps from plain-language questions",
		Long: `Codemapd answers questions like "how does authentication work?" about a
repository. It parses the source with tree-sitter, builds a dependency graph
focused on the question, and renders it as a mermaid diagram with a written
walkthrough.

Run it as a server ("codemapd serve") or generate a single map from the
command line ("codemapd generate").`,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: codemapd.yaml)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and websocket server",
		RunE:  RunServe,
	}
	serveCmd.Flags().String("address", "", "Listen address (overrides config)")

	generateCmd := &cobra.Command{
		Use:   "generate <repo> <query>",
		Short: "Generate one codemap and store it",
		Args:  cobra.ExactArgs(2),
		RunE:  RunGenerate,
	}
	generateCmd.Flags().String("type", "", "Analysis type: auto|data_flow|control_flow|dependencies|call_graph|architecture")
	generateCmd.Flags().Int("depth", 0, "Traversal depth (1-10)")
	generateCmd.Flags().Int("max-nodes", 0, "Maximum nodes in the final graph (10-200)")
	generateCmd.Flags().StringSlice("include", nil, "Directory or file patterns to include")
	generateCmd.Flags().StringSlice("exclude", nil, "Directory or file patterns to exclude")
	generateCmd.Flags().StringSlice("file-types", nil, "File extensions to analyze (e.g. .go,.py)")
	generateCmd.Flags().Bool("json", false, "Print the stored codemap as JSON")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored codemaps, newest first",
		RunE:  RunList,
	}
	listCmd.Flags().Int("limit", 20, "Maximum number of codemaps to list")
	listCmd.Flags().Bool("json", false, "Print machine-readable list output")

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a stored codemap as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  RunShow,
	}

	exportCmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a stored codemap as mermaid, JSON or HTML",
		Args:  cobra.ExactArgs(1),
		RunE:  RunExport,
	}
	exportCmd.Flags().String("format", "mermaid", "Export format: mermaid|json|html")
	exportCmd.Flags().StringP("out", "o", "", "Write to file instead of stdout")
	exportCmd.Flags().Bool("simple", false, "Mermaid only: omit cluster subgraphs")

	rmCmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a stored codemap",
		Args:  cobra.ExactArgs(1),
		RunE:  RunRemove,
	}

	shareCmd := &cobra.Command{
		Use:   "share <id>",
		Short: "Issue a share token for a stored codemap",
		Args:  cobra.ExactArgs(1),
		RunE:  RunShare,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("codemapd %s\n", version)
		},
	}

	rootCmd.AddCommand(
		serveCmd,
		generateCmd,
		listCmd,
		showCmd,
		exportCmd,
		rmCmd,
		shareCmd,
		versionCmd,
	)

	return rootCmd
}
