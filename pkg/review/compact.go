package review

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elonfeng/fabricpop/pkg/rating"
)

// TimeLayout renders timestamps as ISO 8601 with millisecond precision in UTC.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Compact is the short-keyed projection of a review used for hashing and
// ledger storage. Field order is part of the format.
type Compact struct {
	Media   CompactMedia  `json:"m"`
	Rating  CompactRating `json:"r"`
	Link    string        `json:"l"`
	Address *string       `json:"a"`
	Created string        `json:"d"`
}

// CompactMedia is the media part of Compact.
type CompactMedia struct {
	Type  MediaType  `json:"t"`
	ID    ExternalID `json:"i"`
	Title string     `json:"n"`
	Year  *int       `json:"y"`
}

// CompactRating is the rating part of Compact.
type CompactRating struct {
	Normalized float64         `json:"n"`
	Original   rating.Original `json:"o"`
}

// ToCompact projects r onto its compact form. Percentage, star displays,
// platform, notes and reviewer name are dropped.
func ToCompact(r *Review) Compact {
	c := Compact{
		Media: CompactMedia{
			Type:  r.Media.Type,
			ID:    r.Media.ID,
			Title: r.Media.Title,
		},
		Rating: CompactRating{
			Normalized: r.Rating.Normalized,
			Original:   r.Rating.Original,
		},
		Link:    r.Link.URL,
		Created: r.Metadata.CreatedAt.UTC().Format(TimeLayout),
	}
	if r.Media.Year != nil {
		y := *r.Media.Year
		c.Media.Year = &y
	}
	if r.Reviewer.Address != "" {
		a := r.Reviewer.Address
		c.Address = &a
	}
	return c
}

// Bytes returns the canonical JSON encoding of c.
func (c Compact) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode compact review: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Digest returns the hex SHA-256 of the canonical encoding.
func (c Compact) Digest() (string, error) {
	b, err := c.Bytes()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// ParseTime reads a timestamp written with TimeLayout.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}
