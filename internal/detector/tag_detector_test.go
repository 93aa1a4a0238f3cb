package detector

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	apperrors "go-tag-detector/internal/errors"
	"go-tag-detector/pkg/models"
)

// fakeFinder returns canned markers in decimated frame coordinates
type fakeFinder struct {
	markers  []RawMarker
	err      error
	lastSize image.Rectangle
	closed   bool
}

func (f *fakeFinder) FindMarkers(ctx context.Context, gray *image.Gray) ([]RawMarker, error) {
	f.lastSize = gray.Bounds()
	out := make([]RawMarker, len(f.markers))
	copy(out, f.markers)
	return out, f.err
}

func (f *fakeFinder) Close() error {
	f.closed = true
	return nil
}

func testCamera() models.CameraInfo {
	var info models.CameraInfo
	info.Width, info.Height = 640, 480
	info.K = [9]float64{testFx, 0, testCx, 0, testFy, testCy, 0, 0, 1}
	return info
}

func markerAt(id int, distance float64) RawMarker {
	identity := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	return RawMarker{ID: id, Corners: projectTag(identity, [3]float64{0, 0, distance}, 0.1)}
}

func newTestDetector(t *testing.T, opts DetectorOptions, finder MarkerFinder) *tagDetector {
	t.Helper()
	d, err := NewTagDetector(opts, finder)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d.(*tagDetector)
}

func TestDetectTags_ReportsPoseAndHeader(t *testing.T) {
	finder := &fakeFinder{markers: []RawMarker{markerAt(7, 2)}}
	opts := DefaultOptions().WithStandaloneTags([]TagDescription{{ID: 7, Size: 0.1, Name: "dock"}})
	d := newTestDetector(t, opts, finder)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return fixed }

	result, err := d.DetectTags(context.Background(), image.NewGray(image.Rect(0, 0, 640, 480)), testCamera())
	require.NoError(t, err)
	require.Equal(t, 1, result.Len())

	assert.Equal(t, models.DefaultFrameID, result.Header.FrameID)
	assert.Equal(t, uint64(1), result.Header.Seq)
	assert.Equal(t, fixed, result.Header.Stamp)

	det := result.Detections[0]
	assert.Equal(t, []int{7}, det.ID)
	assert.Equal(t, []float64{0.1}, det.Size)
	assert.Equal(t, result.Header, det.Pose.Header)
	assert.InDelta(t, 2, det.Pose.Pose.Pose.Position.Z, 1e-6)
	assert.InDelta(t, testCx, det.Center.X, 1e-9)
	assert.InDelta(t, testCy, det.Center.Y, 1e-9)

	second, err := d.DetectTags(context.Background(), image.NewGray(image.Rect(0, 0, 640, 480)), testCamera())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second.Header.Seq)
}

func TestDetectTags_UsesCameraStamp(t *testing.T) {
	d := newTestDetector(t, DefaultOptions(), &fakeFinder{})
	cam := testCamera()
	cam.Header.Stamp = time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)

	result, err := d.DetectTags(context.Background(), image.NewGray(image.Rect(0, 0, 10, 10)), cam)
	require.NoError(t, err)
	assert.Equal(t, cam.Header.Stamp, result.Header.Stamp)
	assert.Empty(t, result.Detections)
}

func TestDetectTags_Filtering(t *testing.T) {
	far := markerAt(5, 3)
	noisy := markerAt(9, 1)
	noisy.Hamming = 2

	tests := []struct {
		name    string
		opts    DetectorOptions
		markers []RawMarker
		wantIDs []int
	}{
		{
			name:    "hamming above limit is dropped",
			opts:    DefaultOptions(),
			markers: []RawMarker{far, noisy},
			wantIDs: []int{5},
		},
		{
			name:    "duplicates removed entirely",
			opts:    DefaultOptions(),
			markers: []RawMarker{markerAt(4, 2), far, markerAt(4, 1)},
			wantIDs: []int{5},
		},
		{
			name: "duplicates kept when disabled",
			opts: func() DetectorOptions {
				o := DefaultOptions()
				o.RemoveDuplicates = false
				return o
			}(),
			markers: []RawMarker{markerAt(4, 2), markerAt(4, 1)},
			wantIDs: []int{4, 4},
		},
		{
			name: "unknown ids skipped without default size",
			opts: func() DetectorOptions {
				o := DefaultOptions().WithStandaloneTags([]TagDescription{{ID: 5, Size: 0.1}})
				o.DefaultTagSize = 0
				return o
			}(),
			markers: []RawMarker{markerAt(1, 2), far},
			wantIDs: []int{5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDetector(t, tt.opts, &fakeFinder{markers: tt.markers})
			result, err := d.DetectTags(context.Background(), image.NewGray(image.Rect(0, 0, 640, 480)), testCamera())
			require.NoError(t, err)

			var ids []int
			for _, det := range result.Detections {
				ids = append(ids, det.ID[0])
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestDetectTags_DefaultSizeForUnknownTags(t *testing.T) {
	d := newTestDetector(t, DefaultOptions(), &fakeFinder{markers: []RawMarker{markerAt(12, 2)}})

	result, err := d.DetectTags(context.Background(), image.NewGray(image.Rect(0, 0, 640, 480)), testCamera())
	require.NoError(t, err)
	require.Equal(t, 1, result.Len())
	assert.Equal(t, []float64{0.1}, result.Detections[0].Size)
}

func TestDetectTags_ScalesDecimatedCorners(t *testing.T) {
	marker := RawMarker{ID: 1, Corners: [4]models.Pixel{{X: 10, Y: 20}, {X: 30, Y: 20}, {X: 30, Y: 40}, {X: 10, Y: 40}}}
	finder := &fakeFinder{markers: []RawMarker{marker}}
	d := newTestDetector(t, DefaultOptions().WithPreprocessing(2, 0), finder)

	result, err := d.DetectTags(context.Background(), image.NewGray(image.Rect(0, 0, 640, 480)), testCamera())
	require.NoError(t, err)

	assert.Equal(t, 320, finder.lastSize.Dx())
	require.Equal(t, 1, result.Len())
	assert.Equal(t, models.Pixel{X: 20, Y: 40}, result.Detections[0].Corners[0])
	assert.Equal(t, models.Pixel{X: 40, Y: 60}, result.Detections[0].Center)
}

func TestDetectTags_Errors(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 10))

	t.Run("finder error propagates", func(t *testing.T) {
		engineErr := apperrors.NewUnavailableError("no engine", nil)
		d := newTestDetector(t, DefaultOptions(), &fakeFinder{err: engineErr})
		_, err := d.DetectTags(context.Background(), img, testCamera())
		assert.True(t, errors.Is(err, engineErr))
	})

	t.Run("invalid camera", func(t *testing.T) {
		d := newTestDetector(t, DefaultOptions(), &fakeFinder{})
		_, err := d.DetectTags(context.Background(), img, models.CameraInfo{})
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})

	t.Run("cancelled context", func(t *testing.T) {
		d := newTestDetector(t, DefaultOptions(), &fakeFinder{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := d.DetectTags(ctx, img, testCamera())
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeTimeout))
	})
}

func TestNewTagDetector_RejectsDuplicateDescriptions(t *testing.T) {
	opts := DefaultOptions().WithStandaloneTags([]TagDescription{{ID: 1, Size: 0.1}, {ID: 1, Size: 0.2}})
	_, err := NewTagDetector(opts, &fakeFinder{})
	assert.Error(t, err)
}

func TestTagDetector_CloseClosesFinder(t *testing.T) {
	finder := &fakeFinder{}
	d, err := NewTagDetector(DefaultOptions(), finder)
	require.NoError(t, err)

	require.NoError(t, d.Close())
	assert.True(t, finder.closed)
}

func TestTagDetector_PoolStatsCountPoseJobs(t *testing.T) {
	finder := &fakeFinder{markers: []RawMarker{markerAt(1, 2), markerAt(2, 3)}}
	d := newTestDetector(t, DefaultOptions(), finder)

	var reporter PoolStatsReporter = d
	_, err := d.DetectTags(context.Background(), image.NewGray(image.Rect(0, 0, 640, 480)), testCamera())
	require.NoError(t, err)

	assert.Equal(t, int64(2), reporter.PoolStats().TotalJobs)
	// workers count a job as completed after it returns
	assert.Eventually(t, func() bool {
		stats := reporter.PoolStats()
		return stats.CompletedJobs == 2 && stats.ActiveWorkers == 0
	}, time.Second, time.Millisecond)
}
