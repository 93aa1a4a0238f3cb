package validation

import (
	"math"

	apperrors "go-tag-detector/internal/errors"
	"go-tag-detector/pkg/models"
)

// ValidateCameraInfo checks that a calibration record can be used for pose
// estimation. Only the pinhole parameters are required; distortion is ignored
// because images are expected to be rectified.
func ValidateCameraInfo(info models.CameraInfo) error {
	fx, fy, cx, cy := info.Intrinsics()
	for _, v := range []float64{fx, fy, cx, cy} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return apperrors.NewValidationError("camera intrinsics must be finite", nil)
		}
	}
	if fx <= 0 || fy <= 0 {
		return apperrors.NewValidationError("camera focal lengths must be > 0", nil)
	}
	return nil
}
