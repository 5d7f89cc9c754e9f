package catalog

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/elonfeng/fabricpop/pkg/rating"
	"github.com/elonfeng/fabricpop/pkg/review"
)

func intPtr(v int) *int { return &v }

const tmdbMulti = `{
  "page": 1,
  "results": [
    {"id": 603, "media_type": "movie", "title": "The Matrix", "original_title": "The Matrix",
     "overview": "A hacker learns the truth.", "poster_path": "/matrix.jpg",
     "release_date": "1999-03-31", "vote_average": 8.2, "popularity": 91.5},
    {"id": 6384, "media_type": "person", "name": "Keanu Reeves"},
    {"id": 1399, "media_type": "tv", "name": "Game of Thrones", "original_name": "Game of Thrones",
     "first_air_date": "2011-04-17", "vote_average": 8.4},
    {"id": 9, "media_type": "movie", "title": "Untitled", "release_date": ""}
  ]
}`

func TestTMDBMultiSearch(t *testing.T) {
	var gotPath, gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("query")
		w.Write([]byte(tmdbMulti))
	}))
	defer srv.Close()

	refs, err := NewTMDB(srv.URL, "read-token", "").Search(context.Background(), "matrix & co", "")
	require.NoError(t, err)

	assert.Equal(t, "/search/multi", gotPath)
	assert.Equal(t, "Bearer read-token", gotAuth)
	assert.Equal(t, "matrix & co", gotQuery)

	want := []review.MediaReference{
		{
			Type: review.MediaMovie, ID: "603", Title: "The Matrix", Year: intPtr(1999),
			Metadata: map[string]any{
				"overview": "A hacker learns the truth.", "original_title": "The Matrix",
				"poster_path": "/matrix.jpg", "vote_average": 8.2, "popularity": 91.5,
				"release_date": "1999-03-31",
			},
		},
		{
			Type: review.MediaShow, ID: "1399", Title: "Game of Thrones", Year: intPtr(2011),
			Metadata: map[string]any{
				"original_title": "Game of Thrones", "vote_average": 8.4, "release_date": "2011-04-17",
			},
		},
		{Type: review.MediaMovie, ID: "9", Title: "Untitled", Metadata: map[string]any{}},
	}
	if diff := cmp.Diff(want, refs); diff != "" {
		t.Errorf("references mismatch (-want +got):\n%s", diff)
	}
}

func TestTMDBTypedSearch(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"results":[{"id":1399,"name":"Game of Thrones","first_air_date":"2011-04-17"}]}`))
	}))
	defer srv.Close()

	refs, err := NewTMDB(srv.URL, "tok", "en-US").Search(context.Background(), "thrones", review.MediaShow)
	require.NoError(t, err)
	assert.Equal(t, "/search/tv", gotPath)
	require.Len(t, refs, 1)
	assert.Equal(t, review.MediaShow, refs[0].Type)
	assert.Equal(t, 2011, *refs[0].Year)
}

func TestTMDBErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status_message":"Invalid API key"}`))
	}))
	defer srv.Close()

	tmdb := NewTMDB(srv.URL, "bad", "")
	_, err := tmdb.Search(context.Background(), "x", review.MediaMovie)
	require.ErrorContains(t, err, "Invalid API key")

	_, err = tmdb.Search(context.Background(), "  ", review.MediaMovie)
	require.ErrorIs(t, err, ErrEmptyQuery)

	_, err = tmdb.Search(context.Background(), "x", review.MediaGame)
	require.ErrorIs(t, err, ErrNoProvider)
}

const igdbGames = `[
  {"id": 1942, "name": "The Witcher 3: Wild Hunt", "first_release_date": 1431993600,
   "rating": 92.6, "rating_count": 3000, "summary": "Geralt hunts.",
   "cover": {"id": 1, "image_id": "co1wyy"},
   "platforms": [{"id": 6, "name": "PC"}, {"id": 48, "name": "PlayStation 4"}],
   "genres": [{"id": 12, "name": "Role-playing (RPG)"}]},
  {"id": 7, "name": "Unreleased"}
]`

func TestIGDBProxySearch(t *testing.T) {
	var gotPath, gotBody, gotClientID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotClientID = r.Header.Get("Client-ID")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Write([]byte(igdbGames))
	}))
	defer srv.Close()

	refs, err := NewIGDBProxy(srv.URL+"/api/igdb/", 5).Search(context.Background(), `the "witcher"`, review.MediaGame)
	require.NoError(t, err)

	assert.Equal(t, "/api/igdb/games", gotPath)
	assert.Empty(t, gotClientID)
	assert.Contains(t, gotBody, `search "the \"witcher\"";`)
	assert.Contains(t, gotBody, "where version_parent = null;")
	assert.Contains(t, gotBody, "limit 5;")

	want := []review.MediaReference{
		{
			Type: review.MediaGame, ID: "1942", Title: "The Witcher 3: Wild Hunt", Year: intPtr(2015),
			Metadata: map[string]any{
				"release_date": "2015-05-19", "summary": "Geralt hunts.", "rating": 93.0,
				"rating_count": 3000.0, "cover_image_id": "co1wyy",
				"platforms": "PC, PlayStation 4", "genres": "Role-playing (RPG)",
			},
		},
		{Type: review.MediaGame, ID: "7", Title: "Unreleased", Metadata: map[string]any{}},
	}
	if diff := cmp.Diff(want, refs); diff != "" {
		t.Errorf("references mismatch (-want +got):\n%s", diff)
	}
}

func TestIGDBEscapesBackslash(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := NewIGDBProxy(srv.URL, 0).Search(context.Background(), `half-life\`, review.MediaGame)
	require.NoError(t, err)
	assert.Contains(t, gotBody, `search "half-life\\";`)
}

func TestIGDBDirectSendsCredentials(t *testing.T) {
	var gotAuth, gotClientID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotClientID = r.Header.Get("Client-ID")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "app-token", TokenType: "Bearer"})
	refs, err := NewIGDB(srv.URL, "client-id", ts, 0).Search(context.Background(), "zelda", "")
	require.NoError(t, err)
	assert.Empty(t, refs)
	assert.Equal(t, "Bearer app-token", gotAuth)
	assert.Equal(t, "client-id", gotClientID)
}

func TestIGDBErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Authorization Failure", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewIGDBProxy(srv.URL, 0).Search(context.Background(), "zelda", review.MediaGame)
	require.ErrorContains(t, err, "status 401")
	require.ErrorContains(t, err, "Authorization Failure")

	_, err = NewIGDBProxy(srv.URL, 0).Search(context.Background(), "zelda", review.MediaMovie)
	require.ErrorIs(t, err, ErrNoProvider)
}

type stubProvider struct {
	name  string
	calls []review.MediaType
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Search(_ context.Context, query string, t review.MediaType) ([]review.MediaReference, error) {
	s.calls = append(s.calls, t)
	return []review.MediaReference{{Type: t, ID: "1", Title: query}}, nil
}

func TestCatalogRouting(t *testing.T) {
	films := &stubProvider{name: "films"}
	games := &stubProvider{name: "games"}
	c := New()
	c.Register(films, "", review.MediaMovie, review.MediaShow)
	c.Register(games, review.MediaGame)

	_, err := c.Search(context.Background(), "halo", review.MediaGame)
	require.NoError(t, err)
	_, err = c.Search(context.Background(), "heat", review.MediaMovie)
	require.NoError(t, err)
	_, err = c.Search(context.Background(), "heat", "")
	require.NoError(t, err)

	assert.Equal(t, []review.MediaType{review.MediaGame}, games.calls)
	assert.Equal(t, []review.MediaType{review.MediaMovie, ""}, films.calls)

	_, err = c.Search(context.Background(), "", review.MediaMovie)
	require.ErrorIs(t, err, ErrEmptyQuery)

	_, err = New().Search(context.Background(), "heat", review.MediaMovie)
	require.ErrorIs(t, err, ErrNoProvider)
}

const diary = `<?xml version="1.0" encoding="utf-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:letterboxd="https://letterboxd.com" xmlns:tmdb="https://themoviedb.org">
<channel>
<title>Letterboxd - Neo</title>
<link>https://letterboxd.com/neo/</link>
<description>Letterboxd - Neo</description>
<item>
  <title>The Matrix, 1999 - ★★★★½</title>
  <link>https://letterboxd.com/neo/film/the-matrix/</link>
  <guid isPermaLink="false">letterboxd-review-1</guid>
  <pubDate>Tue, 5 Mar 2024 10:20:30 +1300</pubDate>
  <letterboxd:watchedDate>2024-03-04</letterboxd:watchedDate>
  <letterboxd:rewatch>Yes</letterboxd:rewatch>
  <letterboxd:filmTitle>The Matrix</letterboxd:filmTitle>
  <letterboxd:filmYear>1999</letterboxd:filmYear>
  <letterboxd:memberRating>4.5</letterboxd:memberRating>
  <tmdb:movieId>603</tmdb:movieId>
  <dc:creator>Neo</dc:creator>
</item>
<item>
  <title>Favourite hacker films</title>
  <link>https://letterboxd.com/neo/list/hackers/</link>
  <guid isPermaLink="false">letterboxd-list-2</guid>
  <dc:creator>Neo</dc:creator>
</item>
<item>
  <title>Hackers, 1995</title>
  <link>https://letterboxd.com/neo/film/hackers/</link>
  <guid isPermaLink="false">letterboxd-watch-3</guid>
  <letterboxd:filmTitle>Hackers</letterboxd:filmTitle>
  <letterboxd:filmYear>1995</letterboxd:filmYear>
  <dc:creator>Neo</dc:creator>
</item>
</channel>
</rss>`

func TestLetterboxdImport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(diary))
	}))
	defer srv.Close()

	fields, err := NewLetterboxd("0xabc", nil).Import(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, fields, 1)

	want := review.Fields{
		MediaType:  review.MediaMovie,
		MediaID:    "603",
		MediaTitle: "The Matrix",
		MediaYear:  intPtr(1999),
		MediaMetadata: map[string]any{
			"letterboxd_guid": "letterboxd-review-1",
			"watched_date":    "2024-03-04",
			"rewatch":         true,
		},
		RatingValue:     "4.5",
		RatingScale:     string(rating.Stars5),
		ReviewURL:       "https://letterboxd.com/neo/film/the-matrix/",
		ReviewerName:    "Neo",
		ReviewerAddress: "0xabc",
		Notes:           "Watched 2024-03-04",
	}
	if diff := cmp.Diff(want, fields[0]); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}

	r, err := review.Build(fields[0])
	require.NoError(t, err)
	assert.Equal(t, review.PlatformLetterboxd, r.Link.Platform)
	assert.Equal(t, 90, r.Rating.Percentage)
}

func TestLetterboxdBadFeed(t *testing.T) {
	_, err := NewLetterboxd("", nil).Parse(strings.NewReader("not a feed"))
	require.Error(t, err)

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	_, err = NewLetterboxd("", nil).Import(context.Background(), srv.URL)
	require.ErrorContains(t, err, "status 404")
}
