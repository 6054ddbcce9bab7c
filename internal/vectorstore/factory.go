package vectorstore

import (
	"fmt"

	"go.uber.org/zap"
)

// Config selects and configures a Store backend.
type Config struct {
	// Backend selects the store implementation:
	//   - "chromem" (default): embedded chromem-go, no external service
	//   - "qdrant": external Qdrant server over gRPC
	Backend string

	// Chromem configures the embedded backend.
	Chromem ChromemConfig

	// Qdrant configures the external backend.
	Qdrant QdrantConfig
}

// NewStore creates a Store for the configured backend.
//
// The chromem backend is the default and needs no setup; the daemon just
// works against its own data directory. The qdrant backend trades that for
// a shared server that several daemons can point at.
func NewStore(cfg Config, embedder Embedder, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case "chromem", "":
		return NewChromemStore(cfg.Chromem, embedder, logger)

	case "qdrant":
		return NewQdrantStore(cfg.Qdrant, embedder, logger)

	default:
		return nil, fmt.Errorf("%w: unsupported store backend %q (supported: chromem, qdrant)", ErrInvalidConfig, cfg.Backend)
	}
}
