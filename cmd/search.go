// File: cmd/search.go
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// newSearchCmd creates and configures the `search` command.
func newSearchCmd() *cobra.Command {
	var (
		wantDatasheet bool
		wantCAD       bool
		wantPricing   bool
		asJSON        bool
	)

	searchCmd := &cobra.Command{
		Use:   "search <part-number-or-description>",
		Short: "Looks up a component using live web search",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			orch, closeClient, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer closeClient()

			res, err := orch.RunPartSearch(cmd.Context(), query, wantDatasheet, wantCAD, wantPricing)
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(res)
			}

			fmt.Printf("%s  (%s)\n%s\n", res.PartNumber, res.Manufacturer, res.Description)
			for k, v := range res.Specs {
				fmt.Printf("  %s: %s\n", k, v)
			}
			if res.DatasheetURI != "" {
				fmt.Printf("Datasheet: %s\n", res.DatasheetURI)
			}
			if res.CADLinks.Model3D != "" || res.CADLinks.Footprint != "" {
				fmt.Printf("CAD: model3d=%s footprint=%s (%s)\n",
					res.CADLinks.Model3D, res.CADLinks.Footprint, res.CADLinks.Provider)
			}
			for _, offer := range res.Pricing {
				fmt.Printf("  %s: %s (stock: %s) %s\n", offer.Distributor, offer.Price, offer.Stock, offer.Link)
			}
			if len(res.Alternatives) > 0 {
				fmt.Printf("Alternatives: %s\n", strings.Join(res.Alternatives, ", "))
			}
			printSources(res.Sources)
			return nil
		},
	}

	searchCmd.Flags().BoolVar(&wantDatasheet, "datasheet", true, "Locate the part's datasheet URL.")
	searchCmd.Flags().BoolVar(&wantCAD, "cad", false, "Locate CAD artifacts (3D model, footprint).")
	searchCmd.Flags().BoolVar(&wantPricing, "pricing", false, "Fetch distributor pricing and stock.")
	searchCmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw result as JSON.")

	return searchCmd
}
