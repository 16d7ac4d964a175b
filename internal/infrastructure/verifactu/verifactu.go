// Package verifactu implements the gateway to the Verifactu tax
// authority API. It ships two interchangeable implementations: a live
// HTTP client and an offline simulator. Mode selection is driven purely
// by configuration, so deployments switch between them without code
// changes.
package verifactu

import (
	"go.uber.org/zap"

	"github.com/gestionet/backend/internal/domain/taxsync"
	"github.com/gestionet/backend/internal/infrastructure/config"
)

// New builds the gateway matching the configured operating mode
func New(cfg *config.VerifactuConfig, logger *zap.Logger) taxsync.Gateway {
	if cfg.IsSimulated() {
		logger.Info("verifactu gateway running in simulated mode; no data reaches the tax authority")
		return NewSimulator(logger)
	}
	logger.Info("verifactu gateway running in live mode",
		zap.String("base_url", cfg.APIBaseURL))
	return NewClient(cfg, logger)
}
