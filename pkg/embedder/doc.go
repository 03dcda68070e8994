// Package embedder provides text embedding clients for vector representations.
//
// The primary implementation talks to a llama.cpp server started with
// embeddings enabled:
//
//	./llama-server -m model.gguf --embeddings --port 8080
//
// # Usage
//
//	client := embedder.NewLlamaCppClient(embedder.Config{BaseURL: "http://localhost:8080"})
//
//	vec, err := client.EmbedText(ctx, "hello world")
//	vecs, err := client.EmbedTexts(ctx, texts, 20)
//
// # Batch Processing
//
// EmbedTexts sends texts in batches. Its output is always index-aligned with
// the input: vectors of a failed batch are nil and the batch error is joined
// into the returned error, so callers can keep the successful part.
//
// # Caching
//
// CachedClient wraps any Client and persists vectors in badger, keyed by the
// model name and the text hash.
package embedder
