// Package sqlite implements the chunk and document stores, the two
// similarity-search strategies, and index maintenance on a single SQLite
// database.
//
// Embeddings are stored as little-endian float32 blobs. Cosine ranking is
// delegated to a registered SQL scalar function when the capability is
// present; otherwise the engine falls back to an in-process scan. An
// optional IVF partition index, rebuilt via Optimize, narrows the indexed
// path's candidate set as the corpus grows.
package sqlite
