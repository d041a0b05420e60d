// File: cmd/bom.go
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/circuitscope-cli/internal/export"
)

// newBOMCmd creates and configures the `bom` command.
func newBOMCmd() *cobra.Command {
	var (
		asCSV  bool
		outDir string
		asJSON bool
	)

	bomCmd := &cobra.Command{
		Use:   "bom <schematic-file>",
		Short: "Extracts a bill of materials from a schematic",
		Long: `Extracts every component from a schematic into a bill of materials with
live distributor pricing and CAD links found via web search.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schematic, err := loadAttachment(args[0])
			if err != nil {
				return err
			}

			orch, closeClient, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer closeClient()

			res, err := orch.RunBOM(cmd.Context(), *schematic)
			if err != nil {
				return err
			}

			if asCSV {
				dir := outDir
				if dir == "" {
					dir = cfg.Export.Dir
				}
				path := filepath.Join(dir, export.BOMCSVFilename(time.Now()))
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("creating %q: %w", path, err)
				}
				defer f.Close()
				if err := export.WriteBOMCSV(f, res); err != nil {
					return fmt.Errorf("writing BOM CSV: %w", err)
				}
				fmt.Printf("BOM exported to %s\n", path)
				return nil
			}

			if asJSON {
				return printJSON(res)
			}

			fmt.Printf("%-24s %-4s %-14s %-10s %s\n", "Part Number", "Qty", "Designators", "Unit", "Description")
			for _, item := range res.Items {
				fmt.Printf("%-24s %-4d %-14s $%-9.4f %s\n",
					item.PartNumber, item.Quantity, item.Designators,
					item.EstimatedUnitPrice, item.Description)
			}
			fmt.Printf("\nEstimated total: %.2f %s\n", res.TotalEstimatedCost, res.Currency)
			printSources(res.Sources)
			return nil
		},
	}

	bomCmd.Flags().BoolVar(&asCSV, "csv", false, "Export the BOM as a dated CSV file instead of printing it.")
	bomCmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory for the CSV export (defaults to the configured export dir).")
	bomCmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw result as JSON.")

	return bomCmd
}
