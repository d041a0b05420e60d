// File: cmd/helpers.go
package cmd

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/circuitscope-cli/api/schemas"
	"github.com/xkilldash9x/circuitscope-cli/internal/modelclient"
	"github.com/xkilldash9x/circuitscope-cli/internal/observability"
	"github.com/xkilldash9x/circuitscope-cli/internal/orchestrator"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// loadAttachment reads a schematic or datasheet file and tags it with the
// media type the backend expects for inline data.
func loadAttachment(path string) (*schemas.Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("file %q is empty", path)
	}
	return &schemas.Attachment{
		MediaType: schemas.MediaTypeFor(path),
		Data:      data,
	}, nil
}

// buildOrchestrator wires the backend client and orchestrator from the loaded
// config. The returned closer releases the client's connections.
func buildOrchestrator() (*orchestrator.Orchestrator, func(), error) {
	logger := observability.GetLogger()

	client, err := modelclient.NewClient(cfg.Backend, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing backend client: %w", err)
	}
	closer := func() {
		if err := client.Close(); err != nil {
			logger.Warn("Closing backend client failed", zap.Error(err))
		}
	}
	return orchestrator.New(client, logger), closer, nil
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
