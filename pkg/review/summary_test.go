package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummary(t *testing.T) {
	r, err := NewBuilder(fixedClock).Build(matrixFields())
	require.NoError(t, err)

	want := `Movie Review: "The Matrix" (1999)
Rating: 4.5/5.0 stars (90%)
Reviewed by: Anonymous
Platform: medium
URL: https://medium.com/@x/review
Created: 3/5/2024`
	assert.Equal(t, want, Summary(r))
	assert.Equal(t, Summary(r), Summary(r))
}

func TestSummaryWithoutYear(t *testing.T) {
	f := matrixFields()
	f.MediaType = MediaGame
	f.MediaTitle = "Hades"
	f.MediaYear = nil
	f.ReviewerName = "Zag"
	f.RatingScale = "numeric_100"
	f.RatingValue = "93"
	f.ReviewURL = "https://www.youtube.com/watch?v=hades"

	r, err := NewBuilder(fixedClock).Build(f)
	require.NoError(t, err)

	want := `Video Game Review: "Hades" (N/A)
Rating: 4.7/5.0 stars (93%)
Reviewed by: Zag
Platform: youtube
URL: https://www.youtube.com/watch?v=hades
Created: 3/5/2024`
	assert.Equal(t, want, Summary(r))
}

func TestMediaTypeLabel(t *testing.T) {
	assert.Equal(t, "TV Show", MediaShow.Label())
	assert.Equal(t, "Movie", MediaMovie.Label())
}
