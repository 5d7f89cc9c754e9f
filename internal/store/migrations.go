package store

const schema = `
CREATE TABLE IF NOT EXISTS reviews (
    id               TEXT PRIMARY KEY,
    digest           TEXT NOT NULL UNIQUE,
    media_type       TEXT NOT NULL,
    media_id         TEXT NOT NULL,
    media_title      TEXT NOT NULL,
    media_year       INTEGER,
    media_metadata   TEXT NOT NULL DEFAULT '{}',
    rating_value     TEXT NOT NULL,
    rating_scale     TEXT NOT NULL,
    normalized       REAL NOT NULL,
    percentage       INTEGER NOT NULL,
    stars5           TEXT NOT NULL,
    stars10          TEXT NOT NULL,
    review_url       TEXT NOT NULL,
    platform         TEXT NOT NULL,
    reviewer_name    TEXT NOT NULL,
    reviewer_address TEXT NOT NULL DEFAULT '',
    notes            TEXT NOT NULL DEFAULT '',
    created_at       TEXT NOT NULL,
    published_at     TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_reviews_identity
    ON reviews(media_type, media_id, review_url, reviewer_address);
CREATE INDEX IF NOT EXISTS idx_reviews_platform ON reviews(platform);
CREATE INDEX IF NOT EXISTS idx_reviews_created_at ON reviews(created_at);
CREATE INDEX IF NOT EXISTS idx_reviews_published_at ON reviews(published_at);
`
