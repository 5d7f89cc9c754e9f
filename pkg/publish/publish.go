package publish

import (
	"context"
	"errors"
	"fmt"

	"github.com/elonfeng/fabricpop/pkg/review"
)

// Publication is a built review ready for submission.
type Publication struct {
	ID      string
	Review  *review.Review
	Compact []byte
	Digest  string
	Summary string
}

// NewPublication renders the compact form, digest and summary of r.
// id is the stored record ID, empty for reviews that were never saved.
func NewPublication(id string, r *review.Review) (*Publication, error) {
	c := review.ToCompact(r)
	compact, err := c.Bytes()
	if err != nil {
		return nil, err
	}
	digest, err := c.Digest()
	if err != nil {
		return nil, err
	}
	return &Publication{
		ID:      id,
		Review:  r,
		Compact: compact,
		Digest:  digest,
		Summary: review.Summary(r),
	}, nil
}

// title is the one-line heading used by chat destinations.
func (p *Publication) title() string {
	return fmt.Sprintf("%s Review: %s", p.Review.Media.Type.Label(), p.Review.Media.Title)
}

// Publisher delivers reviews to a specific destination.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, p *Publication) error
}

// Manager broadcasts publications to all registered publishers.
type Manager struct {
	publishers []Publisher
}

// NewManager creates a new publish manager.
func NewManager(publishers []Publisher) *Manager {
	return &Manager{publishers: publishers}
}

// HasPublishers returns true if at least one publisher is configured.
func (m *Manager) HasPublishers() bool {
	return len(m.publishers) > 0
}

// Broadcast sends p to every publisher and joins their errors.
func (m *Manager) Broadcast(ctx context.Context, p *Publication) error {
	var errs []error
	for _, pub := range m.publishers {
		if err := pub.Publish(ctx, p); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", pub.Name(), err))
		}
	}
	return errors.Join(errs...)
}
