package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codemap-dev/codemapd/internal/engine"
	"github.com/codemap-dev/codemapd/internal/model"
)

func RunGenerate(cmd *cobra.Command, args []string) error {
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

	req := model.GenerateRequest{
		RepoURL: args[0],
		Query:   args[1],
	}
	if req.AnalysisType, err = cmd.Flags().GetString("type"); err != nil {
		return fmt.Errorf("failed to read --type flag: %w", err)
	}
	if req.Depth, err = cmd.Flags().GetInt("depth"); err != nil {
		return fmt.Errorf("failed to read --depth flag: %w", err)
	}
	if req.MaxNodes, err = cmd.Flags().GetInt("max-nodes"); err != nil {
		return fmt.Errorf("failed to read --max-nodes flag: %w", err)
	}
	if req.IncludedDirs, err = cmd.Flags().GetStringSlice("include"); err != nil {
		return fmt.Errorf("failed to read --include flag: %w", err)
	}
	if req.ExcludedDirs, err = cmd.Flags().GetStringSlice("exclude"); err != nil {
		return fmt.Errorf("failed to read --exclude flag: %w", err)
	}
	if req.FileTypes, err = cmd.Flags().GetStringSlice("file-types"); err != nil {
		return fmt.Errorf("failed to read --file-types flag: %w", err)
	}
	if req.MaxNodes == 0 {
		req.MaxNodes = a.cfg.Generation.DefaultMaxNodes
	}
	if req.Depth == 0 {
		req.Depth = a.cfg.Generation.DefaultDepth
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("failed to read --json flag: %w", err)
	}

	ctx, cancel := generationContext(cmd.Context(), a.cfg.Generation.Timeout)
	defer cancel()

	reporter := newStageReporter(asJSON)
	cm, err := a.buildEngine(store).Generate(ctx, req, engine.ProgressFunc(reporter.Update))
	reporter.Done()
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cm)
	}

	fmt.Printf("codemap %s stored\n", cm.ID)
	fmt.Printf("  title: %s\n", cm.Title)
	fmt.Printf("  nodes: %d, edges: %d\n", len(cm.Graph.Nodes), len(cm.Graph.Edges))
	fmt.Printf("  generated in %dms\n", cm.GenerationMS)
	fmt.Printf("view:   codemapd show %s\n", cm.ID)
	fmt.Printf("export: codemapd export %s --format html\n", cm.ID)
	return nil
}
