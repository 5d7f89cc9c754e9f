package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/elonfeng/fabricpop/pkg/review"
)

var (
	// ErrEmptyQuery is returned when a search query is blank.
	ErrEmptyQuery = errors.New("search query cannot be empty")
	// ErrNoProvider is returned when no catalog serves the requested media type.
	ErrNoProvider = errors.New("no catalog for media type")
)

// Provider searches an external media catalog.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, mediaType review.MediaType) ([]review.MediaReference, error)
}

// Catalog routes searches to the provider registered for each media type.
// An empty media type means "any", which TMDB serves with a multi search.
type Catalog struct {
	providers map[review.MediaType]Provider
}

// New creates an empty catalog registry.
func New() *Catalog {
	return &Catalog{providers: make(map[review.MediaType]Provider)}
}

// Register makes p the provider for the given media types.
func (c *Catalog) Register(p Provider, types ...review.MediaType) {
	for _, t := range types {
		c.providers[t] = p
	}
}

// Provider returns the provider registered for t.
func (c *Catalog) Provider(t review.MediaType) (Provider, bool) {
	p, ok := c.providers[t]
	return p, ok
}

// Search looks up query in the catalog serving mediaType.
func (c *Catalog) Search(ctx context.Context, query string, mediaType review.MediaType) ([]review.MediaReference, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	p, ok := c.providers[mediaType]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrNoProvider, mediaType)
	}
	refs, err := p.Search(ctx, query, mediaType)
	if err != nil {
		return nil, fmt.Errorf("%s search: %w", p.Name(), err)
	}
	return refs, nil
}
