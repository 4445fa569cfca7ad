package constants

import "strings"

// MaxUploadBytes is the largest accepted invoice image (5 MiB).
const MaxUploadBytes = 5 * 1024 * 1024

// AllowedExtensions holds the accepted invoice image extensions.
var AllowedExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// AllowedMimeTypes holds the declared MIME types accepted for uploads.
// image/jpg is not registered but some clients send it.
var AllowedMimeTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// NormalizeMime lowercases a declared MIME type and drops any parameters.
func NormalizeMime(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}
