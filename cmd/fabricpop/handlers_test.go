package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/fabricpop/pkg/review"
)

func TestReviewOptsFields(t *testing.T) {
	opts := reviewOpts{
		mediaType: "game",
		mediaID:   "1942",
		title:     "The Witcher 3",
		year:      2015,
		metadata:  map[string]string{"platforms": "PC"},
		value:     "B+",
		scale:     "letterGrade",
		url:       "https://www.youtube.com/watch?v=w3",
	}

	f := opts.fields(true)
	require.NotNil(t, f.MediaYear)
	assert.Equal(t, 2015, *f.MediaYear)
	assert.Equal(t, map[string]any{"platforms": "PC"}, f.MediaMetadata)
	assert.Nil(t, opts.fields(false).MediaYear)

	r, err := review.Build(f)
	require.NoError(t, err)
	assert.Equal(t, 87, r.Rating.Percentage)
	assert.Equal(t, review.PlatformYouTube, r.Link.Platform)
}

func TestRenderReview(t *testing.T) {
	r, err := review.Build(reviewOpts{
		mediaType: "movie", mediaID: "603", title: "Heat & Dust", value: "8", scale: "stars_10",
		url: "https://letterboxd.com/neo/film/heat/",
	}.fields(false))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, renderReview(&buf, r, "json"))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, buf.String(), "Heat & Dust")

	buf.Reset()
	require.NoError(t, renderReview(&buf, r, "compact"))
	assert.True(t, strings.HasPrefix(buf.String(), `{"m":{"t":"movie","i":"603","n":"Heat & Dust","y":null}`))

	buf.Reset()
	require.NoError(t, renderReview(&buf, r, "SUMMARY"))
	assert.Contains(t, buf.String(), `Movie Review: "Heat & Dust" (N/A)`)

	require.Error(t, renderReview(&buf, r, "xml"))
}

func TestPlatformTotals(t *testing.T) {
	got := platformTotals(map[review.Platform]int{
		review.PlatformMedium:     2,
		review.PlatformLetterboxd: 1200,
		review.PlatformYouTube:    2,
	})
	assert.Equal(t, "total: 1,204 reviews (letterboxd: 1,200, medium: 2, youtube: 2)", got)
}
