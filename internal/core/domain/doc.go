// Package domain contains the core business entities for the ingestion
// pipeline: document chunks, sync checkpoints, extraction results, and
// search types. It has no dependencies on adapters or infrastructure.
package domain
