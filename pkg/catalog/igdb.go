package catalog

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/elonfeng/fabricpop/pkg/review"
)

var apicalypseQuote = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// IGDB searches the Internet Game Database. Requests go either through a
// proxy that holds the Twitch credentials or directly to the API with a
// Client-ID and an OAuth bearer token.
type IGDB struct {
	client   *http.Client
	endpoint string
	clientID string
	limit    int
}

// NewIGDBProxy creates a client that posts queries to a credential-holding proxy.
func NewIGDBProxy(proxyURL string, limit int) *IGDB {
	return &IGDB{
		client:   &http.Client{Timeout: 30 * time.Second},
		endpoint: strings.TrimRight(proxyURL, "/"),
		limit:    defaultLimit(limit),
	}
}

// NewIGDB creates a client that talks to the API directly using tokens from ts.
func NewIGDB(baseURL, clientID string, ts oauth2.TokenSource, limit int) *IGDB {
	client := oauth2.NewClient(context.Background(), ts)
	client.Timeout = 30 * time.Second
	return &IGDB{
		client:   client,
		endpoint: strings.TrimRight(baseURL, "/"),
		clientID: clientID,
		limit:    defaultLimit(limit),
	}
}

func defaultLimit(n int) int {
	if n <= 0 {
		return 10
	}
	return n
}

func (g *IGDB) Name() string { return "igdb" }

// Search runs an Apicalypse text search over games, skipping editions and
// other versions of a parent game.
func (g *IGDB) Search(ctx context.Context, query string, mediaType review.MediaType) ([]review.MediaReference, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if mediaType != "" && mediaType != review.MediaGame {
		return nil, fmt.Errorf("%w %q", ErrNoProvider, mediaType)
	}

	body := fmt.Sprintf("search \"%s\";\n"+
		"fields name, cover.image_id, first_release_date, rating, rating_count, summary, platforms.name, genres.name;\n"+
		"where version_parent = null;\n"+
		"limit %d;", apicalypseQuote.Replace(query), g.limit)

	data, err := g.request(ctx, "games", body)
	if err != nil {
		return nil, err
	}

	var refs []review.MediaReference
	for _, game := range gjson.ParseBytes(data).Array() {
		refs = append(refs, igdbReference(game))
	}
	return refs, nil
}

func (g *IGDB) request(ctx context.Context, endpoint, body string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"/"+endpoint, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create igdb request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Accept", "application/json")
	if g.clientID != "" {
		req.Header.Set("Client-ID", g.clientID)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch igdb %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read igdb %s: %w", endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("igdb %s status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}

func igdbReference(game gjson.Result) review.MediaReference {
	ref := review.MediaReference{
		Type:     review.MediaGame,
		ID:       review.ExternalID(strconv.FormatInt(game.Get("id").Int(), 10)),
		Title:    game.Get("name").Str,
		Metadata: map[string]any{},
	}

	if v := game.Get("first_release_date"); v.Exists() {
		released := time.Unix(v.Int(), 0).UTC()
		year := released.Year()
		ref.Year = &year
		ref.Metadata["release_date"] = released.Format("2006-01-02")
	}
	if v := game.Get("summary"); v.Str != "" {
		ref.Metadata["summary"] = v.Str
	}
	if v := game.Get("rating"); v.Exists() {
		ref.Metadata["rating"] = math.Round(v.Float())
	}
	if v := game.Get("rating_count"); v.Exists() {
		ref.Metadata["rating_count"] = v.Float()
	}
	if v := game.Get("cover.image_id"); v.Str != "" {
		ref.Metadata["cover_image_id"] = v.Str
	}
	if names := joinNames(game.Get("platforms.#.name")); names != "" {
		ref.Metadata["platforms"] = names
	}
	if names := joinNames(game.Get("genres.#.name")); names != "" {
		ref.Metadata["genres"] = names
	}
	return ref
}

func joinNames(list gjson.Result) string {
	var names []string
	for _, n := range list.Array() {
		if n.Str != "" {
			names = append(names, n.Str)
		}
	}
	return strings.Join(names, ", ")
}
