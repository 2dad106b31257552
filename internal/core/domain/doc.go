// Package domain contains the core entities of the retrieval backend:
// documents, chunks, search results and the sentinel errors shared by
// all layers. It has no dependencies on adapters or infrastructure.
package domain
