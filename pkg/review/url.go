package review

import (
	"net/url"
	"strconv"
	"strings"
)

// Platform is the hosting platform of a review link.
type Platform string

const (
	PlatformYouTube        Platform = "youtube"
	PlatformMedium         Platform = "medium"
	PlatformSubstack       Platform = "substack"
	PlatformPodcast        Platform = "podcast"
	PlatformLetterboxd     Platform = "letterboxd"
	PlatformIMDb           Platform = "imdb"
	PlatformRottenTomatoes Platform = "rottentomatoes"
	PlatformOther          Platform = "other"
)

// Checked in order; the first marker contained in the hostname wins.
var platformMarkers = []struct {
	marker   string
	platform Platform
}{
	{"youtube.com", PlatformYouTube},
	{"youtu.be", PlatformYouTube},
	{"medium.com", PlatformMedium},
	{"substack.com", PlatformSubstack},
	{"spotify.com", PlatformPodcast},
	{"podcasts.apple.com", PlatformPodcast},
	{"soundcloud.com", PlatformPodcast},
	{"letterboxd.com", PlatformLetterboxd},
	{"imdb.com", PlatformIMDb},
	{"rottentomatoes.com", PlatformRottenTomatoes},
}

const (
	errURLRequired = "URL is required"
	errURLFormat   = "Invalid URL format"
)

// URLInfo is the result of classifying a review link.
type URLInfo struct {
	Valid    bool     `json:"valid"`
	Platform Platform `json:"platform,omitempty"`
	URL      string   `json:"url,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// ClassifyURL validates a review link and tags its hosting platform.
func ClassifyURL(raw string) URLInfo {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return URLInfo{Error: errURLRequired}
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return URLInfo{Error: errURLFormat}
	}
	if port := u.Port(); port != "" {
		if n, err := strconv.Atoi(port); err != nil || n > 65535 {
			return URLInfo{Error: errURLFormat}
		}
	}

	return URLInfo{
		Valid:    true,
		Platform: platformFor(strings.ToLower(u.Hostname())),
		URL:      trimmed,
	}
}

func platformFor(host string) Platform {
	for _, m := range platformMarkers {
		if strings.Contains(host, m.marker) {
			return m.platform
		}
	}
	return PlatformOther
}
