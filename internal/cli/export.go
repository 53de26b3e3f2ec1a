package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codemap-dev/codemapd/internal/render"
)

func RunExport(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.log.Sync() //nolint:errcheck

	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to read --format flag: %w", err)
	}
	out, err := cmd.Flags().GetString("out")
	if err != nil {
		return fmt.Errorf("failed to read --out flag: %w", err)
	}
	simple, err := cmd.Flags().GetBool("simple")
	if err != nil {
		return fmt.Errorf("failed to read --simple flag: %w", err)
	}

	cm, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	var content string
	switch format {
	case "mermaid":
		content = cm.Render.Mermaid
		if simple {
			content = (&render.Mermaid{}).RenderSimple(&cm.Graph)
		}
	case "json":
		content = cm.Render.JSONGraph
	case "html":
		content, err = render.HTML(cm)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported export format %q (supported: mermaid, json, html)", format)
	}

	if out == "" {
		fmt.Print(content)
		if len(content) > 0 && content[len(content)-1] != '\n' {
			fmt.Println()
		}
		return nil
	}
	if err := os.WriteFile(out, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %q: %w", out, err)
	}
	fmt.Printf("wrote %s\n", out)
	return nil
}
