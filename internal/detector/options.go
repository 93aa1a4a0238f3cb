package detector

import "fmt"

// Tag families the detector can decode
const (
	FamilyTag16h5  = "tag16h5"
	FamilyTag25h9  = "tag25h9"
	FamilyTag36h10 = "tag36h10"
	FamilyTag36h11 = "tag36h11"
)

// TagDescription is a known standalone tag
type TagDescription struct {
	ID   int
	Size float64
	Name string
}

// DetectorOptions configures the tag detection pipeline
type DetectorOptions struct {
	Family string

	// Preprocessing
	Decimate float64 // input is downscaled by this factor before marker search
	Blur     float64 // gaussian sigma, 0 disables

	// Filtering
	MaxHammingDistance int
	RemoveDuplicates   bool

	// Tags reported by the detector. Unknown ids fall back to
	// DefaultTagSize, or are dropped when it is 0.
	StandaloneTags []TagDescription
	DefaultTagSize float64

	// Pose estimation workers
	Threads int
}

// DefaultOptions returns default detector options
func DefaultOptions() DetectorOptions {
	return DetectorOptions{
		Family:             FamilyTag36h11,
		Decimate:           1.0,
		Blur:               0.0,
		MaxHammingDistance: 1,
		RemoveDuplicates:   true,
		DefaultTagSize:     0.1,
		Threads:            2,
	}
}

// FastOptions trades accuracy on small tags for speed
func FastOptions() DetectorOptions {
	opts := DefaultOptions()
	opts.Decimate = 2.0
	opts.MaxHammingDistance = 0
	return opts
}

// WithFamily selects the tag family
func (opts DetectorOptions) WithFamily(family string) DetectorOptions {
	opts.Family = family
	return opts
}

// WithPreprocessing sets decimation and blur
func (opts DetectorOptions) WithPreprocessing(decimate, blur float64) DetectorOptions {
	opts.Decimate = decimate
	opts.Blur = blur
	return opts
}

// WithStandaloneTags replaces the known tag list
func (opts DetectorOptions) WithStandaloneTags(tags []TagDescription) DetectorOptions {
	opts.StandaloneTags = append([]TagDescription(nil), tags...)
	return opts
}

// WithThreads sets the number of pose estimation workers
func (opts DetectorOptions) WithThreads(threads int) DetectorOptions {
	opts.Threads = threads
	return opts
}

// Validate checks option ranges
func (opts DetectorOptions) Validate() error {
	switch opts.Family {
	case FamilyTag16h5, FamilyTag25h9, FamilyTag36h10, FamilyTag36h11:
	default:
		return fmt.Errorf("unsupported tag family %q", opts.Family)
	}
	if opts.Decimate < 1 {
		return fmt.Errorf("decimate must be >= 1 (got %g)", opts.Decimate)
	}
	if opts.Blur < 0 {
		return fmt.Errorf("blur must be >= 0 (got %g)", opts.Blur)
	}
	if opts.MaxHammingDistance < 0 {
		return fmt.Errorf("max hamming distance must be >= 0 (got %d)", opts.MaxHammingDistance)
	}
	if opts.DefaultTagSize < 0 {
		return fmt.Errorf("default tag size must be >= 0 (got %g)", opts.DefaultTagSize)
	}
	for _, tag := range opts.StandaloneTags {
		if tag.Size <= 0 {
			return fmt.Errorf("tag %d: size must be > 0", tag.ID)
		}
	}
	return nil
}
