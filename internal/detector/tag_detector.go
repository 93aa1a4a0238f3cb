package detector

import (
	"context"
	"fmt"
	"image"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "go-tag-detector/internal/errors"
	"go-tag-detector/internal/logger"
	"go-tag-detector/pkg/models"
	"go-tag-detector/pkg/validation"
)

// tagDetector implements TagDetector on top of a MarkerFinder
type tagDetector struct {
	options    DetectorOptions
	finder     MarkerFinder
	workerPool *WorkerPool
	tags       map[int]TagDescription
	seq        atomic.Uint64
	now        func() time.Time
}

// NewTagDetector creates a detector using the given marker finder. The
// detector owns the finder and closes it.
func NewTagDetector(options DetectorOptions, finder MarkerFinder) (TagDetector, error) {
	if err := options.Validate(); err != nil {
		return nil, apperrors.NewValidationError("invalid detector options", err)
	}

	tags := make(map[int]TagDescription, len(options.StandaloneTags))
	for _, tag := range options.StandaloneTags {
		if _, dup := tags[tag.ID]; dup {
			return nil, apperrors.NewValidationError(fmt.Sprintf("tag %d is described more than once", tag.ID), nil)
		}
		tags[tag.ID] = tag
	}

	workerPool := NewWorkerPool(options.Threads)
	workerPool.Start()

	return &tagDetector{
		options:    options,
		finder:     finder,
		workerPool: workerPool,
		tags:       tags,
		now:        time.Now,
	}, nil
}

// reportedTag is a marker that passed filtering, with its description
type reportedTag struct {
	marker RawMarker
	tag    TagDescription
}

func (d *tagDetector) DetectTags(ctx context.Context, img image.Image, cameraInfo models.CameraInfo) (models.AprilTagDetectionArray, error) {
	if err := ctx.Err(); err != nil {
		return models.AprilTagDetectionArray{}, apperrors.NewTimeoutError("detection cancelled", err)
	}
	if err := validation.ValidateCameraInfo(cameraInfo); err != nil {
		return models.AprilTagDetectionArray{}, err
	}

	f := preprocess(img, d.options)
	markers, err := d.finder.FindMarkers(ctx, f.gray)
	if err != nil {
		return models.AprilTagDetectionArray{}, err
	}
	for i := range markers {
		for j := range markers[i].Corners {
			markers[i].Corners[j] = f.toImage(markers[i].Corners[j])
		}
	}

	reported := d.selectTags(markers)

	header := models.Header{
		Seq:     d.seq.Add(1),
		Stamp:   cameraInfo.Header.Stamp,
		FrameID: models.DefaultFrameID,
	}
	if header.Stamp.IsZero() {
		header.Stamp = d.now().UTC()
	}

	detections, err := d.estimatePoses(ctx, reported, cameraInfo, header)
	if err != nil {
		return models.AprilTagDetectionArray{}, err
	}

	logger.WithFields(logrus.Fields{
		"markers":    len(markers),
		"detections": len(detections),
		"seq":        header.Seq,
	}).Debug("Tag detection finished")

	return models.AprilTagDetectionArray{Header: header, Detections: detections}, nil
}

// selectTags applies the hamming and duplicate filters and looks up the
// description of every remaining marker
func (d *tagDetector) selectTags(markers []RawMarker) []reportedTag {
	kept := make([]RawMarker, 0, len(markers))
	for _, m := range markers {
		if m.Hamming > d.options.MaxHammingDistance {
			continue
		}
		kept = append(kept, m)
	}

	if d.options.RemoveDuplicates {
		kept = removeDuplicates(kept)
	}

	reported := make([]reportedTag, 0, len(kept))
	for _, m := range kept {
		tag, ok := d.tags[m.ID]
		if !ok {
			if d.options.DefaultTagSize <= 0 {
				logger.WithField("tag_id", m.ID).Warn("Detected tag has no description, skipping")
				continue
			}
			tag = TagDescription{ID: m.ID, Size: d.options.DefaultTagSize, Name: fmt.Sprintf("tag_%d", m.ID)}
		}
		reported = append(reported, reportedTag{marker: m, tag: tag})
	}
	return reported
}

// removeDuplicates sorts markers by id and drops every id that was seen more
// than once, since there is no way to tell which instance is the real tag
func removeDuplicates(markers []RawMarker) []RawMarker {
	sort.SliceStable(markers, func(i, j int) bool { return markers[i].ID < markers[j].ID })

	out := markers[:0]
	for i := 0; i < len(markers); {
		j := i + 1
		for j < len(markers) && markers[j].ID == markers[i].ID {
			j++
		}
		if j-i == 1 {
			out = append(out, markers[i])
		} else {
			logger.WithFields(logrus.Fields{
				"tag_id": markers[i].ID,
				"count":  j - i,
			}).Warn("Duplicate tag detected, removing every instance")
		}
		i = j
	}
	return out
}

func (d *tagDetector) estimatePoses(ctx context.Context, reported []reportedTag, cameraInfo models.CameraInfo, header models.Header) ([]models.AprilTagDetection, error) {
	fx, fy, cx, cy := cameraInfo.Intrinsics()

	detections := make([]models.AprilTagDetection, len(reported))
	errs := make([]error, len(reported))

	var wg sync.WaitGroup
	for i := range reported {
		wg.Add(1)
		job := func() {
			defer wg.Done()
			r := reported[i]
			pose, err := estimatePose(r.marker.Corners, r.tag.Size, fx, fy, cx, cy)
			if err != nil {
				errs[i] = fmt.Errorf("tag %d: %w", r.tag.ID, err)
				return
			}
			detections[i] = models.AprilTagDetection{
				ID:   []int{r.tag.ID},
				Size: []float64{r.tag.Size},
				Pose: models.PoseWithCovarianceStamped{
					Header: header,
					Pose:   models.PoseWithCovariance{Pose: pose},
				},
				Corners: r.marker.Corners,
				Center:  center(r.marker.Corners),
			}
		}
		if !d.workerPool.Submit(job) {
			wg.Done()
			return nil, apperrors.NewUnavailableError("detector is closed", nil)
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewTimeoutError("detection cancelled", err)
	}

	out := make([]models.AprilTagDetection, 0, len(detections))
	for i, det := range detections {
		if errs[i] != nil {
			logger.WithError(errs[i]).Warn("Could not estimate tag pose, skipping")
			continue
		}
		out = append(out, det)
	}
	return out, nil
}

func center(corners [4]models.Pixel) models.Pixel {
	var c models.Pixel
	for _, p := range corners {
		c.X += p.X / 4
		c.Y += p.Y / 4
	}
	return c
}

func (d *tagDetector) DrawDetections(img image.Image, detections models.AprilTagDetectionArray) image.Image {
	return drawDetections(img, detections)
}

// PoolStats returns the counters of the pose estimation pool
func (d *tagDetector) PoolStats() PoolStats {
	return d.workerPool.GetStats()
}

func (d *tagDetector) Close() error {
	d.workerPool.Close()
	return d.finder.Close()
}
