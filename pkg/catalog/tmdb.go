package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/elonfeng/fabricpop/pkg/review"
)

// TMDB searches The Movie Database for movies and TV shows.
type TMDB struct {
	client   *http.Client
	baseURL  string
	token    string
	language string
}

// NewTMDB creates a TMDB client authenticated with a v4 read token.
func NewTMDB(baseURL, readToken, language string) *TMDB {
	if language == "" {
		language = "en-US"
	}
	return &TMDB{
		client:   &http.Client{Timeout: 30 * time.Second},
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    readToken,
		language: language,
	}
}

func (t *TMDB) Name() string { return "tmdb" }

// Search queries /search/movie, /search/tv or, for an empty media type,
// /search/multi restricted to movie and tv results.
func (t *TMDB) Search(ctx context.Context, query string, mediaType review.MediaType) ([]review.MediaReference, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	kind := "multi"
	switch mediaType {
	case review.MediaMovie:
		kind = "movie"
	case review.MediaShow:
		kind = "tv"
	case "":
	default:
		return nil, fmt.Errorf("%w %q", ErrNoProvider, mediaType)
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("include_adult", "false")
	params.Set("language", t.language)
	params.Set("page", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/search/"+kind+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create tmdb request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.token)
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch tmdb search: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tmdb search: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tmdb status %d: %s", resp.StatusCode, gjson.GetBytes(body, "status_message").Str)
	}

	var refs []review.MediaReference
	for _, res := range gjson.GetBytes(body, "results").Array() {
		itemKind := kind
		if kind == "multi" {
			itemKind = res.Get("media_type").Str
		}
		switch itemKind {
		case "movie":
			refs = append(refs, tmdbReference(res, review.MediaMovie, "title", "original_title", "release_date"))
		case "tv":
			refs = append(refs, tmdbReference(res, review.MediaShow, "name", "original_name", "first_air_date"))
		}
	}
	return refs, nil
}

func tmdbReference(res gjson.Result, t review.MediaType, titleKey, originalKey, dateKey string) review.MediaReference {
	ref := review.MediaReference{
		Type:     t,
		ID:       review.ExternalID(strconv.FormatInt(res.Get("id").Int(), 10)),
		Title:    res.Get(titleKey).Str,
		Year:     yearOf(res.Get(dateKey).Str),
		Metadata: map[string]any{},
	}

	if v := res.Get("overview"); v.Str != "" {
		ref.Metadata["overview"] = v.Str
	}
	if v := res.Get(originalKey); v.Str != "" {
		ref.Metadata["original_title"] = v.Str
	}
	if v := res.Get("poster_path"); v.Str != "" {
		ref.Metadata["poster_path"] = v.Str
	}
	if v := res.Get("vote_average"); v.Exists() {
		ref.Metadata["vote_average"] = v.Float()
	}
	if v := res.Get("popularity"); v.Exists() {
		ref.Metadata["popularity"] = v.Float()
	}
	if v := res.Get(dateKey); v.Str != "" {
		ref.Metadata["release_date"] = v.Str
	}
	return ref
}

// yearOf extracts the year from a YYYY-MM-DD date.
func yearOf(date string) *int {
	if len(date) < 4 {
		return nil
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return nil
	}
	return &y
}
