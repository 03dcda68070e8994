// Package vectorstore stores text chunks and their embeddings in ChromaDB.
//
// ChromaClient keeps two collections: one holding the chunks and one holding
// per-document metadata. Storage goes through the Backend interface so the
// same client runs against a Chroma server (NewChromaBackend) or an
// in-process store (NewMemoryBackend).
package vectorstore
