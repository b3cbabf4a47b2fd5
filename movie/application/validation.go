package application

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dfryer1193/gomovies/movie/domain"
)

var allowedImageExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// IsAllowedImage checks the extension after the last dot, case-insensitively.
// Filenames without a dot are rejected.
func IsAllowedImage(filename string) bool {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return false
	}

	_, ok := allowedImageExtensions[strings.ToLower(filename[idx+1:])]
	return ok
}

// ValidateImageURL accepts absolute http(s) URLs with a host.
func ValidateImageURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: image URL is not valid: %v", domain.ErrInvalidInput, err)
	}

	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: image URL must be absolute", domain.ErrInvalidInput)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: image URL scheme must be http or https", domain.ErrInvalidInput)
	}

	return nil
}
