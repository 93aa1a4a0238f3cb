//go:build gocv

package detector

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	apperrors "go-tag-detector/internal/errors"
	"go-tag-detector/pkg/models"
)

// EngineBuiltIn reports whether marker detection is compiled in
const EngineBuiltIn = true

var arucoDictionaries = map[string]gocv.ArucoDictionaryCode{
	FamilyTag16h5:  gocv.ArucoDictAprilTag_16h5,
	FamilyTag25h9:  gocv.ArucoDictAprilTag_25h9,
	FamilyTag36h10: gocv.ArucoDictAprilTag_36h10,
	FamilyTag36h11: gocv.ArucoDictAprilTag_36h11,
}

// arucoFinder decodes AprilTag markers with the OpenCV ArUco module.
// cv::aruco::ArucoDetector is not safe for concurrent use.
type arucoFinder struct {
	mu       sync.Mutex
	detector gocv.ArucoDetector
}

// NewMarkerFinder creates an OpenCV backed finder for the tag family
func NewMarkerFinder(family string) (MarkerFinder, error) {
	code, ok := arucoDictionaries[family]
	if !ok {
		return nil, fmt.Errorf("unsupported tag family %q", family)
	}

	params := gocv.NewArucoDetectorParameters()
	dictionary := gocv.GetPredefinedDictionary(code)
	return &arucoFinder{
		detector: gocv.NewArucoDetectorWithParams(dictionary, params),
	}, nil
}

func (f *arucoFinder) FindMarkers(ctx context.Context, gray *image.Gray) ([]RawMarker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		return nil, apperrors.NewDetectionError("failed to convert image", err)
	}
	defer mat.Close()

	f.mu.Lock()
	corners, ids, _ := f.detector.DetectMarkers(mat)
	f.mu.Unlock()

	markers := make([]RawMarker, 0, len(ids))
	for i, id := range ids {
		if len(corners[i]) != 4 {
			continue
		}
		// ArUco lists corners clockwise from the top left in the image,
		// which is the reverse of the tag frame order
		var m RawMarker
		m.ID = id
		for j, k := range [4]int{3, 2, 1, 0} {
			m.Corners[j] = models.Pixel{X: float64(corners[i][k].X), Y: float64(corners[i][k].Y)}
		}
		markers = append(markers, m)
	}
	return markers, nil
}

func (f *arucoFinder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detector.Close()
}
