package youtube

import (
	"errors"
	"regexp"

	"github.com/GintGld/clipper/internal/models"
)

var ErrVideoIDNotFound = errors.New("video id not found")

// Only the canonical watch URL is recognized.
// Short links (youtu.be/...) are rejected.
var (
	watchRegex   = regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/watch\?v=([\w-]{11})`)
	videoIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
)

// Extract returns the video identifier of a watch URL.
func Extract(url string) (models.VideoID, error) {
	match := watchRegex.FindStringSubmatch(url)
	if match == nil {
		return "", ErrVideoIDNotFound
	}

	return models.VideoID(match[1]), nil
}

// IsVideoID reports if id looks like a video identifier.
func IsVideoID(id string) bool {
	return videoIDRegex.MatchString(id)
}

// WatchURL builds canonical url for the video.
func WatchURL(id models.VideoID) string {
	return "https://www.youtube.com/watch?v=" + string(id)
}

// EmbedURL builds url for the embedded player.
func EmbedURL(id models.VideoID) string {
	return "https://www.youtube.com/embed/" + string(id) + "?autoplay=0&rel=0"
}
