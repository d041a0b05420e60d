// File: internal/modelclient/factory.go
package modelclient

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/circuitscope-cli/api/schemas"
	"github.com/xkilldash9x/circuitscope-cli/internal/config"
)

// NewClient creates a ModelClient for the configured provider.
func NewClient(cfg config.BackendConfig, logger *zap.Logger) (schemas.ModelClient, error) {
	switch cfg.Provider {
	case config.ProviderGoogle:
		return NewGoogleClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported backend provider configured: %q. Supported: [%s]", cfg.Provider, config.ProviderGoogle)
	}
}
