// File: internal/export/code.go

package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xkilldash9x/circuitscope-cli/api/schemas"
)

const defaultFirmwareName = "main.c"

// WriteFirmware persists generated firmware to dir under the filename the
// backend suggested, sanitized to its base name so a hostile reply cannot
// escape the target directory. Returns the full path written.
func WriteFirmware(dir string, res *schemas.CodeResult) (string, error) {
	name := filepath.Base(res.Filename)
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = defaultFirmwareName
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(res.Code), 0o644); err != nil {
		return "", fmt.Errorf("writing firmware file: %w", err)
	}
	return path, nil
}
