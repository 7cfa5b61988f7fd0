// Package platform resolves the corpus locations given on the command line.
package platform

import (
	"path/filepath"
	"runtime"
	"strings"
)

// GCSScheme prefixes Google Cloud Storage locations
const GCSScheme = "gs://"

// LocationKind tells where a corpus lives
type LocationKind int

const (
	KindLocal LocationKind = iota
	KindGCS
)

// Location is a parsed corpus location
type Location struct {
	Kind LocationKind
	// Path is the cleaned local path, or the original gs:// URI
	Path string
	// Bucket and Prefix are set for GCS locations
	Bucket string
	Prefix string
}

// String returns the location as it should be shown to users
func (l Location) String() string {
	return l.Path
}

// ParseLocation validates and normalizes a corpus location
func ParseLocation(s string) (Location, error) {
	if strings.HasPrefix(s, GCSScheme) {
		rest := strings.TrimPrefix(s, GCSScheme)
		bucket, prefix, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return Location{}, &PathError{Path: s, Message: "missing bucket name"}
		}
		return Location{
			Kind:   KindGCS,
			Path:   s,
			Bucket: bucket,
			Prefix: strings.Trim(prefix, "/"),
		}, nil
	}

	if err := ValidatePath(s); err != nil {
		return Location{}, err
	}
	return Location{Kind: KindLocal, Path: NormalizePath(s)}, nil
}

// NormalizePath normalizes a path for the current platform
func NormalizePath(path string) string {
	// Convert to platform-specific separators
	normalized := filepath.Clean(path)

	// On Windows, ensure UNC paths are preserved
	if runtime.GOOS == "windows" {
		if strings.HasPrefix(path, "\\\\") && !strings.HasPrefix(normalized, "\\\\") {
			normalized = "\\\\" + normalized
		}
	}

	return normalized
}

// IsUNCPath checks if a path is a UNC path (Windows network share)
func IsUNCPath(path string) bool {
	if runtime.GOOS != "windows" {
		return false
	}
	return strings.HasPrefix(path, "\\\\") || strings.HasPrefix(path, "//")
}

// ValidatePath checks if a path is valid for the current platform
func ValidatePath(path string) error {
	if path == "" {
		return &PathError{Path: path, Message: "path is empty"}
	}

	// Check for invalid characters based on OS
	if runtime.GOOS == "windows" {
		invalidChars := []string{"<", ">", "\"", "|", "?", "*"}
		for _, char := range invalidChars {
			if strings.Contains(path, char) && !IsUNCPath(path) {
				return &PathError{Path: path, Message: "path contains invalid character: " + char}
			}
		}
	}

	return nil
}

// Overlap reports why two corpus locations cannot be compared against each
// other: the same location, or one nested in the other. It returns "" when
// they are independent.
func Overlap(a, b Location) string {
	if a.Kind != b.Kind {
		return ""
	}

	var pa, pb, sep string
	switch a.Kind {
	case KindGCS:
		if a.Bucket != b.Bucket {
			return ""
		}
		pa, pb, sep = a.Prefix, b.Prefix, "/"
	default:
		var err error
		if pa, err = filepath.Abs(a.Path); err != nil {
			return ""
		}
		if pb, err = filepath.Abs(b.Path); err != nil {
			return ""
		}
		sep = string(filepath.Separator)
	}

	switch {
	case pa == pb:
		return "old and new cannot be the same location"
	case pa == "" || strings.HasPrefix(pb, pa+sep):
		return "new location cannot be inside old location"
	case pb == "" || strings.HasPrefix(pa, pb+sep):
		return "old location cannot be inside new location"
	}
	return ""
}

// PathError represents a path validation error
type PathError struct {
	Path    string
	Message string
}

func (e *PathError) Error() string {
	return "invalid path '" + e.Path + "': " + e.Message
}
