// Package embeddings provides embedding generation via multiple providers.
//
// Supports OpenAI-compatible APIs (via langchaingo) and FastEmbed (local
// ONNX) providers. Factory pattern enables provider selection at runtime
// with automatic dimension detection for common models.
package embeddings
