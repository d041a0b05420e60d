// File: cmd/audit.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/circuitscope-cli/api/schemas"
	"github.com/xkilldash9x/circuitscope-cli/internal/orchestrator"
)

// newAuditCmd creates and configures the `audit` command.
func newAuditCmd() *cobra.Command {
	var (
		targetPart    string
		datasheetPath string
		notes         string
		asJSON        bool
	)

	auditCmd := &cobra.Command{
		Use:   "audit <schematic-file>",
		Short: "Audits a schematic for electrical and design errors",
		Long: `Audits a schematic image or PDF. With --part the audit focuses on that
component; add --datasheet to pin the analysis to the exact part variant,
otherwise the datasheet is looked up with live web search.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schematic, err := loadAttachment(args[0])
			if err != nil {
				return err
			}

			var datasheet *schemas.Attachment
			if datasheetPath != "" {
				if datasheet, err = loadAttachment(datasheetPath); err != nil {
					return err
				}
			}

			orch, closeClient, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer closeClient()

			outcome, err := orch.RunAudit(cmd.Context(), *schematic, targetPart, datasheet, notes)
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(outcome)
			}
			printAuditOutcome(outcome)
			return nil
		},
	}

	auditCmd.Flags().StringVarP(&targetPart, "part", "p", "", "Part number to focus the audit on.")
	auditCmd.Flags().StringVarP(&datasheetPath, "datasheet", "d", "", "Path to the part's datasheet (PDF or image).")
	auditCmd.Flags().StringVarP(&notes, "notes", "n", "", "Free-form design notes to include in the analysis.")
	auditCmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw result as JSON.")

	return auditCmd
}

func printAuditOutcome(outcome *orchestrator.AuditOutcome) {
	res := outcome.Result

	fmt.Println(res.Summary)

	if outcome.State == orchestrator.AuditAmbiguousMatch {
		fmt.Println("\nProvide the part's datasheet with --datasheet and re-run for an exact analysis.")
		printSources(res.Sources)
		return
	}

	for _, sec := range res.Sections {
		fmt.Printf("\n[%s] %s\n", sec.Status, sec.Title)
		fmt.Println(sec.Content)
		if sec.DatasheetPageRef > 0 {
			fmt.Printf("(datasheet p.%d)\n", sec.DatasheetPageRef)
		}
	}

	if len(res.SuggestedFixes) > 0 {
		fmt.Println("\nSuggested fixes:")
		for _, fix := range res.SuggestedFixes {
			fmt.Printf("  - %s\n", fix)
		}
	}

	printSources(res.Sources)
}

func printSources(sources []schemas.WebSource) {
	if len(sources) == 0 {
		return
	}
	fmt.Println("\nSources:")
	for _, src := range sources {
		fmt.Printf("  - %s (%s)\n", src.Title, src.URI)
	}
}
