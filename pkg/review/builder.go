package review

import (
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/elonfeng/fabricpop/pkg/rating"
)

// AnonymousReviewer is the reviewer name used when none is given.
const AnonymousReviewer = "Anonymous"

// Fields are the caller-supplied inputs of a review.
type Fields struct {
	MediaType       MediaType      `json:"mediaType"`
	MediaID         ExternalID     `json:"mediaId"`
	MediaTitle      string         `json:"mediaTitle"`
	MediaYear       *int           `json:"mediaYear,omitempty"`
	MediaMetadata   map[string]any `json:"mediaMetadata,omitempty"`
	RatingValue     rating.Raw     `json:"ratingValue"`
	RatingScale     string         `json:"ratingScale"`
	ReviewURL       string         `json:"reviewUrl"`
	ReviewerName    string         `json:"reviewerName,omitempty"`
	ReviewerAddress string         `json:"reviewerAddress,omitempty"`
	Notes           string         `json:"notes,omitempty"`
}

// Builder validates Fields and assembles reviews.
type Builder struct {
	clock func() time.Time
}

// NewBuilder returns a Builder stamping reviews with clock. A nil clock uses
// time.Now.
func NewBuilder(clock func() time.Time) *Builder {
	if clock == nil {
		clock = time.Now
	}
	return &Builder{clock: clock}
}

// Build validates f with the wall clock. See Builder.Build.
func Build(f Fields) (*Review, error) {
	return NewBuilder(nil).Build(f)
}

// Build validates f and assembles a Review. Validation stops at the first
// failure, in this order: media type, media id, title, rating value, rating
// scale, rating normalization, review URL.
func (b *Builder) Build(f Fields) (*Review, error) {
	if !f.MediaType.Valid() {
		return nil, fmt.Errorf("%w %q: must be one of movie, show, game", ErrInvalidMediaType, string(f.MediaType))
	}
	if strings.TrimSpace(string(f.MediaID)) == "" {
		return nil, &FieldError{Field: "mediaId"}
	}
	if strings.TrimSpace(f.MediaTitle) == "" {
		return nil, &FieldError{Field: "mediaTitle"}
	}
	if strings.TrimSpace(string(f.RatingValue)) == "" {
		return nil, &FieldError{Field: "ratingValue"}
	}
	if strings.TrimSpace(f.RatingScale) == "" {
		return nil, &FieldError{Field: "ratingScale"}
	}

	scale, err := rating.ParseScale(f.RatingScale)
	if err != nil {
		return nil, err
	}
	normalized, err := rating.Normalize(f.RatingValue, scale)
	if err != nil {
		return nil, err
	}

	link := ClassifyURL(f.ReviewURL)
	if !link.Valid {
		return nil, &URLError{Reason: link.Error}
	}

	name := strings.TrimSpace(f.ReviewerName)
	if name == "" {
		name = AnonymousReviewer
	}

	var year *int
	if f.MediaYear != nil {
		y := *f.MediaYear
		year = &y
	}
	metadata := maps.Clone(f.MediaMetadata)
	if metadata == nil {
		metadata = map[string]any{}
	}

	return &Review{
		Media: MediaReference{
			Type:     f.MediaType,
			ID:       f.MediaID,
			Title:    f.MediaTitle,
			Year:     year,
			Metadata: metadata,
		},
		Rating: Rating{
			Normalized: normalized,
			Original:   rating.Original{Value: f.RatingValue, Scale: scale},
			Percentage: Percentage(normalized),
			Stars5:     oneDecimal(normalized * 5),
			Stars10:    oneDecimal(normalized * 10),
		},
		Link: Link{
			URL:      link.URL,
			Platform: link.Platform,
		},
		Reviewer: Reviewer{
			Name:    name,
			Address: strings.TrimSpace(f.ReviewerAddress),
		},
		Metadata: Metadata{
			CreatedAt: b.clock().UTC().Truncate(time.Millisecond),
			Notes:     f.Notes,
		},
	}, nil
}

// Percentage is a normalized rating rounded to a whole percent.
func Percentage(normalized float64) int {
	return int(math.Round(normalized * 100))
}

// oneDecimal rounds exact ties at the second decimal up. FormatFloat alone
// would round them to even. A non-negative double has such a tie only when it
// is an odd multiple of 0.25, and multiplying by 4 or 10 keeps it exact.
func oneDecimal(v float64) string {
	if q := v * 4; q == math.Trunc(q) && math.Mod(q, 2) == 1 {
		v = math.Ceil(v*10) / 10
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}
