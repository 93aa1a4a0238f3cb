package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-tag-detector/internal/repository"
	"go-tag-detector/pkg/models"
)

func newTestRepository(t *testing.T) *DetectionRepository {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	repo := NewDetectionRepository(db)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func detectionArray(seq uint64, ids ...int) models.AprilTagDetectionArray {
	header := models.Header{
		Seq:     seq,
		Stamp:   time.Date(2024, 3, 1, 10, 0, int(seq), 0, time.UTC),
		FrameID: models.DefaultFrameID,
	}
	arr := models.AprilTagDetectionArray{Header: header, Detections: []models.AprilTagDetection{}}
	for _, id := range ids {
		var det models.AprilTagDetection
		det.ID = []int{id}
		det.Size = []float64{0.1}
		det.Pose.Header = header
		det.Pose.Pose.Pose.Position = models.Point{X: 0.1, Y: 0.2, Z: float64(id)}
		det.Pose.Pose.Pose.Orientation.W = 1
		arr.Detections = append(arr.Detections, det)
	}
	return arr
}

func TestDetectionRepository_SaveAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	want := detectionArray(1, 3, 8)
	id, err := repo.SaveDetections(ctx, "tag_detections", want)
	require.NoError(t, err)

	entry, err := repo.GetDetections(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, entry.ID)
	assert.Equal(t, "tag_detections", entry.Topic)
	assert.Equal(t, want, entry.TagDetections)
}

func TestDetectionRepository_GetMissing(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetDetections(context.Background(), 42)
	assert.True(t, errors.Is(err, repository.ErrDetectionNotFound))
}

func TestDetectionRepository_ListRecent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for seq := uint64(1); seq <= 3; seq++ {
		_, err := repo.SaveDetections(ctx, "tag_detections", detectionArray(seq, int(seq)))
		require.NoError(t, err)
	}

	entries, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(3), entries[0].TagDetections.Header.Seq)
	assert.Equal(t, uint64(2), entries[1].TagDetections.Header.Seq)
}

func TestDetectionRepository_ListByTag(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.SaveDetections(ctx, "tag_detections", detectionArray(1, 1, 2))
	require.NoError(t, err)
	_, err = repo.SaveDetections(ctx, "tag_detections", detectionArray(2, 2))
	require.NoError(t, err)
	_, err = repo.SaveDetections(ctx, "tag_detections", detectionArray(3))
	require.NoError(t, err)

	entries, err := repo.ListByTag(ctx, 2, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(2), entries[0].TagDetections.Header.Seq)

	entries, err = repo.ListByTag(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	entries, err = repo.ListByTag(ctx, 99, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
