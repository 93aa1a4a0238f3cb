package storage

import (
	"context"
	"errors"
	"image"
)

// ErrReadOnly is returned when saving to a backend that only serves reads
var ErrReadOnly = errors.New("storage backend is read-only")

// ImageStore reads and writes decoded images at a location understood by the
// backend (file path, URL or blob reference)
type ImageStore interface {
	LoadImage(ctx context.Context, location string) (image.Image, error)
	SaveImage(ctx context.Context, location string, img image.Image) error
}
