package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/elonfeng/fabricpop/pkg/rating"
	"github.com/elonfeng/fabricpop/pkg/review"
)

// ErrNotFound is returned when no review matches the lookup.
var ErrNotFound = errors.New("review not found")

// Record is a stored review.
type Record struct {
	ID          string         `json:"id"`
	Digest      string         `json:"digest"`
	Review      *review.Review `json:"review"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
}

// ListOpts controls review listing.
type ListOpts struct {
	MediaType   review.MediaType
	Platform    review.Platform
	Unpublished bool
	Limit       int
}

// Store is the persistence interface.
type Store interface {
	SaveReview(ctx context.Context, r *review.Review) (rec *Record, created bool, err error)
	GetReview(ctx context.Context, id string) (*Record, error)
	ListReviews(ctx context.Context, opts ListOpts) ([]Record, error)
	CountByPlatform(ctx context.Context) (map[review.Platform]int, error)
	MarkPublished(ctx context.Context, id string, at time.Time) error

	Close() error
}

type row struct {
	ID              string         `db:"id"`
	Digest          string         `db:"digest"`
	MediaType       string         `db:"media_type"`
	MediaID         string         `db:"media_id"`
	MediaTitle      string         `db:"media_title"`
	MediaYear       sql.NullInt64  `db:"media_year"`
	MediaMetadata   string         `db:"media_metadata"`
	RatingValue     string         `db:"rating_value"`
	RatingScale     string         `db:"rating_scale"`
	Normalized      float64        `db:"normalized"`
	Percentage      int            `db:"percentage"`
	Stars5          string         `db:"stars5"`
	Stars10         string         `db:"stars10"`
	ReviewURL       string         `db:"review_url"`
	Platform        string         `db:"platform"`
	ReviewerName    string         `db:"reviewer_name"`
	ReviewerAddress string         `db:"reviewer_address"`
	Notes           string         `db:"notes"`
	CreatedAt       string         `db:"created_at"`
	PublishedAt     sql.NullString `db:"published_at"`
}

func (r row) record() (*Record, error) {
	created, err := review.ParseTime(r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at of %s: %w", r.ID, err)
	}
	meta := map[string]any{}
	if r.MediaMetadata != "" {
		if err := json.Unmarshal([]byte(r.MediaMetadata), &meta); err != nil {
			return nil, fmt.Errorf("decode metadata of %s: %w", r.ID, err)
		}
	}

	rev := &review.Review{
		Media: review.MediaReference{
			Type:     review.MediaType(r.MediaType),
			ID:       review.ExternalID(r.MediaID),
			Title:    r.MediaTitle,
			Metadata: meta,
		},
		Rating: review.Rating{
			Normalized: r.Normalized,
			Original:   rating.Original{Value: rating.Raw(r.RatingValue), Scale: rating.Scale(r.RatingScale)},
			Percentage: r.Percentage,
			Stars5:     r.Stars5,
			Stars10:    r.Stars10,
		},
		Link:     review.Link{URL: r.ReviewURL, Platform: review.Platform(r.Platform)},
		Reviewer: review.Reviewer{Name: r.ReviewerName, Address: r.ReviewerAddress},
		Metadata: review.Metadata{CreatedAt: created, Notes: r.Notes},
	}
	if r.MediaYear.Valid {
		y := int(r.MediaYear.Int64)
		rev.Media.Year = &y
	}

	rec := &Record{ID: r.ID, Digest: r.Digest, Review: rev}
	if r.PublishedAt.Valid {
		at, err := review.ParseTime(r.PublishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse published_at of %s: %w", r.ID, err)
		}
		rec.PublishedAt = &at
	}
	return rec, nil
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveReview stores r unless a review of the same media by the same reviewer
// at the same link already exists. The identity ignores the build time, notes
// and reviewer name, so rebuilding an entry maps to the stored row. When r
// duplicates a stored review, the stored record is returned unchanged with
// created set to false.
func (s *SQLiteStore) SaveReview(ctx context.Context, r *review.Review) (*Record, bool, error) {
	digest, err := review.ToCompact(r).Digest()
	if err != nil {
		return nil, false, err
	}
	metaJSON, err := json.Marshal(r.Media.Metadata)
	if err != nil {
		return nil, false, fmt.Errorf("encode metadata: %w", err)
	}
	var year sql.NullInt64
	if r.Media.Year != nil {
		year = sql.NullInt64{Int64: int64(*r.Media.Year), Valid: true}
	}

	id := uuid.NewString()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO reviews (id, digest, media_type, media_id, media_title, media_year, media_metadata,
			rating_value, rating_scale, normalized, percentage, stars5, stars10,
			review_url, platform, reviewer_name, reviewer_address, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, id, digest, r.Media.Type, r.Media.ID, r.Media.Title, year, string(metaJSON),
		r.Rating.Original.Value, r.Rating.Original.Scale, r.Rating.Normalized, r.Rating.Percentage,
		r.Rating.Stars5, r.Rating.Stars10, r.Link.URL, r.Link.Platform, r.Reviewer.Name,
		r.Reviewer.Address, r.Metadata.Notes, r.Metadata.CreatedAt.UTC().Format(review.TimeLayout))
	if err != nil {
		return nil, false, fmt.Errorf("insert review %s: %w", digest, err)
	}

	if n, _ := res.RowsAffected(); n == 1 {
		rec, err := s.GetReview(ctx, id)
		return rec, true, err
	}

	var existing row
	err = s.db.GetContext(ctx, &existing, `
		SELECT * FROM reviews
		WHERE digest = ?
			OR (media_type = ? AND media_id = ? AND review_url = ? AND reviewer_address = ?)
		LIMIT 1
	`, digest, r.Media.Type, r.Media.ID, r.Link.URL, r.Reviewer.Address)
	if err != nil {
		return nil, false, fmt.Errorf("find duplicate of %s: %w", digest, err)
	}
	rec, err := existing.record()
	return rec, false, err
}

func (s *SQLiteStore) GetReview(ctx context.Context, id string) (*Record, error) {
	return s.getBy(ctx, "id", id)
}

func (s *SQLiteStore) getBy(ctx context.Context, column, value string) (*Record, error) {
	var r row
	err := s.db.GetContext(ctx, &r, "SELECT * FROM reviews WHERE "+column+" = ?", value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get review %s: %w", value, err)
	}
	return r.record()
}

func (s *SQLiteStore) ListReviews(ctx context.Context, opts ListOpts) ([]Record, error) {
	query := "SELECT * FROM reviews WHERE 1=1"
	var args []any

	if opts.MediaType != "" {
		query += " AND media_type = ?"
		args = append(args, opts.MediaType)
	}
	if opts.Platform != "" {
		query += " AND platform = ?"
		args = append(args, opts.Platform)
	}
	if opts.Unpublished {
		query += " AND published_at IS NULL"
	}

	query += " ORDER BY created_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	var rows []row
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	records := make([]Record, 0, len(rows))
	for _, r := range rows {
		rec, err := r.record()
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}

func (s *SQLiteStore) CountByPlatform(ctx context.Context) (map[review.Platform]int, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT platform, COUNT(*) as cnt FROM reviews GROUP BY platform")
	if err != nil {
		return nil, fmt.Errorf("count reviews by platform: %w", err)
	}
	defer rows.Close()

	counts := make(map[review.Platform]int)
	for rows.Next() {
		var platform string
		var cnt int
		if err := rows.Scan(&platform, &cnt); err != nil {
			return nil, err
		}
		counts[review.Platform(platform)] = cnt
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) MarkPublished(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, "UPDATE reviews SET published_at = ? WHERE id = ?",
		at.UTC().Format(review.TimeLayout), id)
	if err != nil {
		return fmt.Errorf("mark published %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
