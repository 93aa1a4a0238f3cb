package validation

import (
	"net/url"
	"strings"

	apperrors "go-tag-detector/internal/errors"
)

// Supported image location schemes
const (
	SchemeFile   = "file"
	SchemeHTTP   = "http"
	SchemeHTTPS  = "https"
	SchemeAzBlob = "azblob"
)

// PathValidator handles image location validation logic
type PathValidator struct {
	allowedSchemes []string
	allowedHosts   []string
}

// SupportedSchemes lists every scheme the storage layer can serve
func SupportedSchemes() []string {
	return []string{SchemeFile, SchemeHTTP, SchemeHTTPS, SchemeAzBlob}
}

// NewPathValidator creates a path validator accepting every supported scheme
// and host
func NewPathValidator() *PathValidator {
	return NewPathValidatorWithOptions(SupportedSchemes(), nil)
}

// NewPathValidatorWithOptions creates a path validator with custom options.
// Empty hosts allows every host.
func NewPathValidatorWithOptions(schemes []string, hosts []string) *PathValidator {
	return &PathValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// SchemeOf returns the storage scheme of an image location. Plain paths are
// local files.
func SchemeOf(location string) string {
	if i := strings.Index(location, "://"); i > 0 {
		return strings.ToLower(location[:i])
	}
	return SchemeFile
}

// ValidateSource validates a location an image will be read from
func (v *PathValidator) ValidateSource(location string) error {
	return v.validate(location)
}

// ValidateDestination validates a location an image will be written to.
// HTTP locations are read-only.
func (v *PathValidator) ValidateDestination(location string) error {
	if err := v.validate(location); err != nil {
		return err
	}
	switch SchemeOf(location) {
	case SchemeHTTP, SchemeHTTPS:
		return apperrors.NewValidationError("HTTP locations cannot be written to", nil)
	}
	return nil
}

func (v *PathValidator) validate(location string) error {
	if strings.TrimSpace(location) == "" {
		return apperrors.NewValidationError("path cannot be empty", nil)
	}

	scheme := SchemeOf(location)
	if !v.isSchemeAllowed(scheme) {
		return apperrors.NewValidationError("path scheme not allowed", nil)
	}
	if scheme == SchemeFile {
		return nil
	}

	parsedURL, err := url.Parse(location)
	if err != nil {
		return apperrors.NewValidationError("invalid URL format", err)
	}
	if parsedURL.Host == "" {
		return apperrors.NewValidationError("URL must have a valid host", nil)
	}
	if scheme == SchemeAzBlob && strings.Trim(parsedURL.Path, "/") == "" {
		return apperrors.NewValidationError("azblob path must name a blob", nil)
	}
	if len(v.allowedHosts) > 0 && !v.isHostAllowed(parsedURL.Host) {
		return apperrors.NewValidationError("URL host not allowed", nil)
	}

	return nil
}

// isSchemeAllowed checks if the scheme is in the allowed list
func (v *PathValidator) isSchemeAllowed(scheme string) bool {
	for _, allowed := range v.allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

// isHostAllowed checks if the URL host is in the allowed list
// Returns true if no host restrictions are set (empty allowedHosts)
func (v *PathValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	for _, allowed := range v.allowedHosts {
		if host == allowed {
			return true
		}
	}
	return false
}
