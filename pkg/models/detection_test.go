package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCameraInfo_Intrinsics(t *testing.T) {
	info := CameraInfo{
		K: [9]float64{500, 0, 319.5, 0, 505, 239.5, 0, 0, 1},
	}

	fx, fy, cx, cy := info.Intrinsics()
	assert.Equal(t, []float64{500, 505, 319.5, 239.5}, []float64{fx, fy, cx, cy})

	info.P = [12]float64{480, 0, 320, 0, 0, 482, 240, 0, 0, 0, 1, 0}
	fx, fy, cx, cy = info.Intrinsics()
	assert.Equal(t, []float64{480, 482, 320, 240}, []float64{fx, fy, cx, cy})
}

func TestAprilTagDetection_CornersNotPublished(t *testing.T) {
	arr := AprilTagDetectionArray{
		Header: Header{Seq: 3, FrameID: DefaultFrameID},
		Detections: []AprilTagDetection{{
			ID:      []int{7},
			Size:    []float64{0.05},
			Corners: [4]Pixel{{1, 2}, {3, 4}, {5, 6}, {7, 8}},
			Center:  Pixel{4, 5},
		}},
	}

	data, err := json.Marshal(arr)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	detection := decoded["detections"].([]any)[0].(map[string]any)
	assert.NotContains(t, detection, "Corners")
	assert.NotContains(t, detection, "Center")
	assert.Equal(t, []any{7.0}, detection["id"])
	assert.Equal(t, 1, arr.Len())
}
