package igdbproxy

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// refreshEarly is how long before expiry a cached token is replaced.
const refreshEarly = 60 * time.Second

// TokenSource hands out Twitch app access tokens, fetching a new one through
// the client credentials grant when the cached one is about to expire.
type TokenSource struct {
	src oauth2.TokenSource

	mu   sync.Mutex
	last *oauth2.Token
}

// NewTokenSource creates a token source for the given Twitch application.
func NewTokenSource(ctx context.Context, clientID, clientSecret, tokenURL string) *TokenSource {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	return &TokenSource{
		src: oauth2.ReuseTokenSourceWithExpiry(nil, grant{ctx: ctx, cfg: cfg}, refreshEarly),
	}
}

// grant performs one client credentials exchange per call. cfg.TokenSource
// would add its own cache with the default expiry delta.
type grant struct {
	ctx context.Context
	cfg *clientcredentials.Config
}

func (g grant) Token() (*oauth2.Token, error) {
	return g.cfg.Token(g.ctx)
}

// Token returns a valid access token.
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	tok, err := ts.src.Token()
	if err != nil {
		return nil, err
	}
	ts.mu.Lock()
	ts.last = tok
	ts.mu.Unlock()
	return tok, nil
}

// TokenState describes the cached token for health reporting.
type TokenState struct {
	Cached bool       `json:"tokenCached"`
	Expiry *time.Time `json:"tokenExpiry"`
}

// State reports whether a token has been obtained and when it expires.
func (ts *TokenSource) State() TokenState {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.last == nil {
		return TokenState{}
	}
	st := TokenState{Cached: ts.last.Valid()}
	if !ts.last.Expiry.IsZero() {
		exp := ts.last.Expiry.UTC()
		st.Expiry = &exp
	}
	return st
}
