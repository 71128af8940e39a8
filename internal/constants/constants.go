// Package constants provides shared constants used across the codebase.
package constants

import "time"

// Diagnostics constants
const (
	// DefaultExplainLimit is the number of nearest students reported per detected face
	DefaultExplainLimit = 5

	// MaxExplainLimit caps the explain limit a client may request
	MaxExplainLimit = 50

	// NearestOverfetch is the factor by which vector index candidates are over-fetched
	// before they are re-ranked with exact distances
	NearestOverfetch = 2
)

// Processing constants
const (
	// DefaultConcurrency is the number of parallel enrollment workers in the CLI
	DefaultConcurrency = 4

	// ShutdownTimeout bounds graceful shutdown of the HTTP server
	ShutdownTimeout = 30 * time.Second

	// RequestTimeout bounds a single API request, encoder round trips included
	RequestTimeout = 60 * time.Second

	// RateLimitIdle is how long a client's rate bucket is kept after its last request
	RateLimitIdle = 10 * time.Minute
)

// File upload constants
const (
	// StudentPhotoMaxDim is the longer side in pixels of the stored student photo
	StudentPhotoMaxDim = 256

	// MaxUploadSize is the maximum request body size in bytes (20MB).
	// Frames arrive base64 encoded, so the decoded image is about 15MB at most.
	MaxUploadSize = 20 << 20
)
