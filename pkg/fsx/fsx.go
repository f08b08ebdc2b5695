// Package fsx is the object storage port for user media. Providers back it
// with the local filesystem or S3; callers never know which.
package fsx

import (
	"context"
	"net/http"

	"github.com/Abraxas-365/perimeter/pkg/errx"
)

// Storage is the contract media handlers write against.
type Storage interface {
	Write(ctx context.Context, path string, data []byte, contentType string) error
	Read(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)

	// URL returns an address a browser can fetch the object from. S3 answers
	// a presigned URL, local storage a path under the public base URL.
	URL(ctx context.Context, path string) (string, error)
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("FSX")

var (
	CodeNotFound = ErrRegistry.Register("NOT_FOUND", errx.KindNotFound, http.StatusNotFound, "Object not found")
	CodeIO       = ErrRegistry.Register("IO", errx.KindUpstream, http.StatusBadGateway, "Storage operation failed")
)

func ErrNotFound() *errx.Error { return ErrRegistry.New(CodeNotFound) }
