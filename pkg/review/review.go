package review

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/elonfeng/fabricpop/pkg/rating"
)

// MediaType identifies the kind of media being reviewed.
type MediaType string

const (
	MediaMovie MediaType = "movie"
	MediaShow  MediaType = "show"
	MediaGame  MediaType = "game"
)

// MediaTypes returns all known media types.
func MediaTypes() []MediaType {
	return []MediaType{MediaMovie, MediaShow, MediaGame}
}

// Valid reports whether t is a known media type.
func (t MediaType) Valid() bool {
	return slices.Contains(MediaTypes(), t)
}

// Label is the human-readable name used in summaries.
func (t MediaType) Label() string {
	switch t {
	case MediaMovie:
		return "Movie"
	case MediaShow:
		return "TV Show"
	case MediaGame:
		return "Video Game"
	}
	return string(t)
}

// ExternalID is a catalog identifier. JSON accepts numbers as well as strings
// since TMDB and IGDB both hand out numeric ids.
type ExternalID string

func (id *ExternalID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ExternalID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("media id must be a number or a string: %w", err)
	}
	*id = ExternalID(n.String())
	return nil
}

// MediaReference points at an item in an external catalog.
type MediaReference struct {
	Type     MediaType      `json:"type"`
	ID       ExternalID     `json:"id"`
	Title    string         `json:"title"`
	Year     *int           `json:"year"`
	Metadata map[string]any `json:"metadata"`
}

// Rating holds the normalized rating plus its display projections.
type Rating struct {
	Normalized float64         `json:"normalized"`
	Original   rating.Original `json:"original"`
	Percentage int             `json:"percentage"`
	Stars5     string          `json:"stars5"`
	Stars10    string          `json:"stars10"`
}

// Link is the externally published review.
type Link struct {
	URL      string   `json:"url"`
	Platform Platform `json:"platform"`
}

// Reviewer identifies who wrote the review.
type Reviewer struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// Metadata carries bookkeeping fields.
type Metadata struct {
	CreatedAt time.Time `json:"created"`
	Notes     string    `json:"notes,omitempty"`
}

// Review is a fully validated review record. Build is the only way to obtain
// one; it is never modified afterwards.
type Review struct {
	Media    MediaReference `json:"media"`
	Rating   Rating         `json:"rating"`
	Link     Link           `json:"review"`
	Reviewer Reviewer       `json:"reviewer"`
	Metadata Metadata       `json:"metadata"`
}
