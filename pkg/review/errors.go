package review

import (
	"errors"
	"fmt"

	"github.com/elonfeng/fabricpop/pkg/rating"
)

var (
	// ErrInvalidMediaType indicates a media type outside movie, show and game.
	ErrInvalidMediaType = errors.New("review: invalid media type")
	// ErrMissingField indicates a required field was absent. See FieldError.
	ErrMissingField = errors.New("review: missing required field")
	// ErrInvalidRating is rating.ErrInvalidRating, re-exported for callers of Build.
	ErrInvalidRating = rating.ErrInvalidRating
	// ErrInvalidReviewURL indicates the review link is empty or malformed. See URLError.
	ErrInvalidReviewURL = errors.New("review: invalid review url")
)

// FieldError names the required field that was missing.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("review: %s is required", e.Field)
}

func (e *FieldError) Is(target error) bool {
	return target == ErrMissingField
}

// URLError carries the reason a review link was rejected.
type URLError struct {
	Reason string
}

func (e *URLError) Error() string {
	return "invalid review URL: " + e.Reason
}

func (e *URLError) Unwrap() error {
	return ErrInvalidReviewURL
}

// Kind returns a short machine-readable name for a validation error, or ""
// when err is not one.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidMediaType):
		return "invalid_media_type"
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	case errors.Is(err, ErrInvalidRating):
		return "invalid_rating"
	case errors.Is(err, ErrInvalidReviewURL):
		return "invalid_review_url"
	}
	return ""
}
