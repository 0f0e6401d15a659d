package metadata

import "strings"

const (
	ImageBase        = "https://image.tmdb.org/t/p"
	PlaceholderImage = "https://via.placeholder.com/300x450?text=No+Image"

	PosterRow    = "w500"
	PosterSearch = "w300"
	BackdropSize = "original"
)

// PosterURL builds a TMDB poster URL, or the placeholder when path is empty.
func PosterURL(path, size string) string {
	if path == "" {
		return PlaceholderImage
	}
	if strings.HasPrefix(path, "http") {
		return path
	}
	return ImageBase + "/" + size + path
}

// BackdropURL is empty when path is empty; callers fall back to the poster.
func BackdropURL(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http") {
		return path
	}
	return ImageBase + "/" + BackdropSize + path
}

// StillURL builds an episode still URL.
func StillURL(path string) string {
	if path == "" {
		return ""
	}
	return ImageBase + "/" + PosterSearch + path
}
