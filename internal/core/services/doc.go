// Package services contains the use-case orchestration: ingestion of
// documents into embedded chunks, and similarity search with transparent
// degradation from the indexed path to the brute-force fallback.
package services
