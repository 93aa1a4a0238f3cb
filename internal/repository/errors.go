package repository

import "errors"

var (
	// ErrInvalidImagePath indicates an unusable image location
	ErrInvalidImagePath = errors.New("invalid image path")

	// ErrDetectionNotFound indicates the recorded detection array was not found
	ErrDetectionNotFound = errors.New("detection record not found")

	// ErrRepositoryUnavailable indicates the repository is unavailable
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
