package utils

import (
	"path/filepath"
	"strings"
)

const (
	// MimeTypeJPEG is regular jpgs.
	MimeTypeJPEG = "image/jpeg"

	// MimeTypePNG is regular pngs.
	MimeTypePNG = "image/png"

	// MimeTypeQOI is for .qoi "Quite OK Image" for lossless, fast encoding/decoding.
	MimeTypeQOI = "image/qoi"

	// MimeTypePPM is for binary portable pixmaps.
	MimeTypePPM = "image/x-portable-pixmap"

	// MimeTypeTIFF is for tiff images.
	MimeTypeTIFF = "image/tiff"

	// MimeTypeWEBP is for webp images.
	MimeTypeWEBP = "image/webp"

	// MimeTypeBMP is for windows bitmaps.
	MimeTypeBMP = "image/bmp"

	// MimeTypeGIF is for gifs.
	MimeTypeGIF = "image/gif"

	// MimeTypeDefault is the fallback for unrecognized data.
	MimeTypeDefault = "application/octet-stream"
)

var extToMime = map[string]string{
	".jpg":  MimeTypeJPEG,
	".jpeg": MimeTypeJPEG,
	".png":  MimeTypePNG,
	".qoi":  MimeTypeQOI,
	".ppm":  MimeTypePPM,
	".tif":  MimeTypeTIFF,
	".tiff": MimeTypeTIFF,
	".webp": MimeTypeWEBP,
	".bmp":  MimeTypeBMP,
	".gif":  MimeTypeGIF,
}

// MimeTypeFromPath guesses the mime type from a file extension. Unknown extensions
// return MimeTypeDefault.
func MimeTypeFromPath(path string) string {
	if mt, ok := extToMime[strings.ToLower(filepath.Ext(path))]; ok {
		return mt
	}
	return MimeTypeDefault
}

// ExtensionForMimeType returns the canonical file extension (with the dot) for a mime type.
func ExtensionForMimeType(mimeType string) string {
	switch mimeType {
	case MimeTypeJPEG:
		return ".jpg"
	case MimeTypePNG:
		return ".png"
	case MimeTypeQOI:
		return ".qoi"
	case MimeTypePPM:
		return ".ppm"
	case MimeTypeTIFF:
		return ".tiff"
	case MimeTypeWEBP:
		return ".webp"
	case MimeTypeBMP:
		return ".bmp"
	case MimeTypeGIF:
		return ".gif"
	}
	return ""
}

// IsImagePath reports whether a path has an extension of a decodable image container.
func IsImagePath(path string) bool {
	return MimeTypeFromPath(path) != MimeTypeDefault
}

// MimeTypeForFormat maps a format name registered with the image package to its mime type.
func MimeTypeForFormat(format string) string {
	if format == "ppm" {
		return MimeTypePPM
	}
	return "image/" + format
}
