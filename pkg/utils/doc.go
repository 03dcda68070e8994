// Package utils provides helpers shared by the skls packages.
//
//   - Concurrent execution helpers (concurrent.go)
//   - Recursive file processing with progress reporting (files.go)
//   - Panic recovery for worker goroutines (recovery.go)
//   - Vector math used by similarity search (vector.go)
package utils
