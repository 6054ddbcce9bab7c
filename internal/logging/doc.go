// Package logging builds the structured loggers used across ragd.
//
// # Overview
//
// The package wraps Zap construction with:
//   - JSON or console output on stdout
//   - Optional OpenTelemetry log export through the otelzap bridge
//   - Defense-in-depth secret redaction at the encoder
//   - Level-aware sampling (errors never sampled)
//
// # Usage
//
// Create a logger from config:
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.New(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync(logger)
//
// Services receive the *zap.Logger (or a Named child) in their constructors
// and fall back to zap.NewNop() when handed nil.
//
// # Secret Redaction
//
// API keys travel through this process, so redaction applies at two layers:
// the config.Secret type redacts itself wherever it is serialized, and the
// encoder filters sensitive field names and value patterns. Use the helpers
// for manual redaction:
//
//	logger.Info("auth received",
//	    logging.RedactedString("authorization", authHeader))
//
// # Sampling
//
// Per-level sampling caps log volume under load. Error and above always pass
// through. Disable for debugging:
//
//	cfg.Sampling.Enabled = false
package logging
