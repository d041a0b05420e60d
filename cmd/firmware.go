// File: cmd/firmware.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/circuitscope-cli/internal/export"
)

// newFirmwareCmd creates and configures the `firmware` command.
func newFirmwareCmd() *cobra.Command {
	var (
		notes      string
		pinMapping string
		outDir     string
		asJSON     bool
	)

	firmwareCmd := &cobra.Command{
		Use:   "firmware <schematic-file>",
		Short: "Generates initialization firmware from a schematic",
		Long: `Generates peripheral initialization code for the microcontroller found in
the schematic. Pin assignments are read from the schematic; --pin-mapping
overrides them and takes absolute precedence.`,
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

			res, err := orch.RunFirmwareGen(cmd.Context(), *schematic, notes, pinMapping)
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(res)
			}

			dir := outDir
			if dir == "" {
				dir = cfg.Export.Dir
			}
			path, err := export.WriteFirmware(dir, res)
			if err != nil {
				return err
			}

			fmt.Printf("%s (%s, %s)\n%s\n\nWritten to %s\n",
				res.Filename, res.Language, res.Architecture, res.Description, path)
			return nil
		},
	}

	firmwareCmd.Flags().StringVarP(&notes, "notes", "n", "", "Design notes to steer code generation.")
	firmwareCmd.Flags().StringVar(&pinMapping, "pin-mapping", "", "Explicit pin mapping; overrides what the schematic shows.")
	firmwareCmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory for the generated file (defaults to the configured export dir).")
	firmwareCmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw result as JSON instead of writing a file.")

	return firmwareCmd
}
