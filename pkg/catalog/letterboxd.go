package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/elonfeng/fabricpop/pkg/rating"
	"github.com/elonfeng/fabricpop/pkg/review"
)

// Letterboxd turns a member's RSS diary into review fields. Diary entries
// carry the film and rating in letterboxd: and tmdb: namespaced elements.
type Letterboxd struct {
	client          *http.Client
	parser          *gofeed.Parser
	reviewerAddress string
	log             *zap.Logger
}

// NewLetterboxd creates a diary importer. reviewerAddress is attached to every
// imported review.
func NewLetterboxd(reviewerAddress string, log *zap.Logger) *Letterboxd {
	if log == nil {
		log = zap.NewNop()
	}
	return &Letterboxd{
		client:          &http.Client{Timeout: 30 * time.Second},
		parser:          gofeed.NewParser(),
		reviewerAddress: reviewerAddress,
		log:             log,
	}
}

// Import fetches feedURL and returns one Fields per rated diary entry.
func (l *Letterboxd) Import(ctx context.Context, feedURL string) ([]review.Fields, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create letterboxd request: %w", err)
	}
	req.Header.Set("User-Agent", "fabricpop/1.0")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch letterboxd feed %s: %w", feedURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("letterboxd feed %s status %d", feedURL, resp.StatusCode)
	}
	return l.Parse(resp.Body)
}

// Parse reads a diary feed. Entries without a film title or member rating
// (lists, unrated logs) are skipped.
func (l *Letterboxd) Parse(r io.Reader) ([]review.Fields, error) {
	feed, err := l.parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse letterboxd feed: %w", err)
	}

	var out []review.Fields
	for _, item := range feed.Items {
		title := extValue(item, "letterboxd", "filmTitle")
		score := extValue(item, "letterboxd", "memberRating")
		if title == "" || score == "" {
			l.log.Debug("skipping letterboxd entry", zap.String("guid", item.GUID), zap.String("title", item.Title))
			continue
		}

		id := extValue(item, "tmdb", "movieId")
		if id == "" {
			id = item.GUID
		}

		f := review.Fields{
			MediaType:       review.MediaMovie,
			MediaID:         review.ExternalID(id),
			MediaTitle:      title,
			MediaMetadata:   map[string]any{"letterboxd_guid": item.GUID},
			RatingValue:     rating.Raw(score),
			RatingScale:     string(rating.Stars5),
			ReviewURL:       item.Link,
			ReviewerName:    authorOf(item),
			ReviewerAddress: l.reviewerAddress,
		}
		if y, err := strconv.Atoi(extValue(item, "letterboxd", "filmYear")); err == nil {
			f.MediaYear = &y
		}
		if watched := extValue(item, "letterboxd", "watchedDate"); watched != "" {
			f.MediaMetadata["watched_date"] = watched
			f.Notes = "Watched " + watched
		}
		if strings.EqualFold(extValue(item, "letterboxd", "rewatch"), "yes") {
			f.MediaMetadata["rewatch"] = true
		}
		out = append(out, f)
	}
	return out, nil
}

func extValue(item *gofeed.Item, ns, name string) string {
	if vals := item.Extensions[ns][name]; len(vals) > 0 {
		return strings.TrimSpace(vals[0].Value)
	}
	return ""
}

func authorOf(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	return extValue(item, "dc", "creator")
}
