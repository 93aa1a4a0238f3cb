//go:build !gocv

package detector

import (
	"context"
	"image"

	apperrors "go-tag-detector/internal/errors"
)

// EngineBuiltIn reports whether marker detection is compiled in
const EngineBuiltIn = false

// unavailableFinder stands in when the binary is built without OpenCV
type unavailableFinder struct {
	family string
}

// NewMarkerFinder returns a finder that reports the engine as unavailable.
// Build with -tags gocv for real marker detection.
func NewMarkerFinder(family string) (MarkerFinder, error) {
	return &unavailableFinder{family: family}, nil
}

func (f *unavailableFinder) FindMarkers(context.Context, *image.Gray) ([]RawMarker, error) {
	return nil, apperrors.NewUnavailableError("tag detection engine not built in (gocv build tag is not enabled)", nil)
}

func (f *unavailableFinder) Close() error {
	return nil
}
