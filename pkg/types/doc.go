// Package types defines the data types shared across the skls packages.
//
// This package contains the small set of values that flow between components:
//   - Message / Role: conversation turns exchanged with generation backends
//   - Chunk: a unit of text stored in the vector database
//   - SearchResult: a chunk returned by a similarity search
//
// Context keys used for request-scoped logging live here as well so that the
// server and the telemetry handler agree on them without importing each other.
package types
