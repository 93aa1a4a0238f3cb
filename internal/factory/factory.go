package factory

import (
	"fmt"
	"time"

	"go-tag-detector/internal/detector"
	"go-tag-detector/internal/storage"
	"go-tag-detector/pkg/validation"
)

// StorageType is the location scheme a storage backend serves
type StorageType string

const (
	// LocalStorage for plain paths and file:// locations
	LocalStorage StorageType = validation.SchemeFile
	// HTTPStorage for http:// and https:// locations, read only
	HTTPStorage StorageType = validation.SchemeHTTP
	// AzureStorage for azblob://container/blob locations
	AzureStorage StorageType = validation.SchemeAzBlob
)

// StorageTypeFor maps a location scheme to the backend serving it
func StorageTypeFor(scheme string) StorageType {
	if scheme == validation.SchemeHTTPS {
		return HTTPStorage
	}
	return StorageType(scheme)
}

// DetectorFactory creates tag detectors
type DetectorFactory interface {
	CreateDetector(options detector.DetectorOptions) (detector.TagDetector, error)
}

// StorageFactory creates storage implementations
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.ImageStore, error)
}

// StorageOptions configures the storage backends
type StorageOptions struct {
	FetchTimeout     time.Duration
	AzureAccountName string
	AzureAccountKey  string
}

// detectorFactory implements DetectorFactory
type detectorFactory struct{}

// NewDetectorFactory creates a new detector factory
func NewDetectorFactory() DetectorFactory {
	return &detectorFactory{}
}

// CreateDetector builds a detector with the marker finder compiled into
// this binary
func (f *detectorFactory) CreateDetector(options detector.DetectorOptions) (detector.TagDetector, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	finder, err := detector.NewMarkerFinder(options.Family)
	if err != nil {
		return nil, err
	}
	tagDetector, err := detector.NewTagDetector(options, finder)
	if err != nil {
		finder.Close()
		return nil, err
	}
	return tagDetector, nil
}

// storageFactory implements StorageFactory
type storageFactory struct {
	options StorageOptions
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(options StorageOptions) StorageFactory {
	if options.FetchTimeout <= 0 {
		options.FetchTimeout = 15 * time.Second
	}
	return &storageFactory{options: options}
}

// CreateStorage creates a storage implementation based on the specified type
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.ImageStore, error) {
	switch storageType {
	case LocalStorage:
		return storage.NewLocalStorage(), nil
	case HTTPStorage:
		return storage.NewHTTPImageFetcher(f.options.FetchTimeout), nil
	case AzureStorage:
		if f.options.AzureAccountName == "" || f.options.AzureAccountKey == "" {
			return nil, fmt.Errorf("azure storage is not configured")
		}
		return storage.NewAzureStorage(f.options.AzureAccountName, f.options.AzureAccountKey)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	DetectorFactory DetectorFactory
	StorageFactory  StorageFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(storageOptions StorageOptions) *ComponentFactory {
	return &ComponentFactory{
		DetectorFactory: NewDetectorFactory(),
		StorageFactory:  NewStorageFactory(storageOptions),
	}
}
