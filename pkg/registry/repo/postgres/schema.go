package postgres

import (
	"context"
	"fmt"
)

// Schema creates the registry tables. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS contents (
	id            BIGINT PRIMARY KEY,
	creator       VARCHAR(42) NOT NULL,
	content_hash  TEXT NOT NULL,
	title         TEXT NOT NULL,
	tags          TEXT[] NOT NULL DEFAULT '{}',
	price         BIGINT NOT NULL CHECK (price > 0),
	views         BIGINT NOT NULL DEFAULT 0,
	total_rating  BIGINT NOT NULL DEFAULT 0,
	total_reviews BIGINT NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS contents_creator_idx ON contents (creator);

CREATE TABLE IF NOT EXISTS content_ratings (
	content_id BIGINT NOT NULL REFERENCES contents(id),
	rater      VARCHAR(42) NOT NULL,
	rating     SMALLINT NOT NULL CHECK (rating BETWEEN 1 AND 5),
	PRIMARY KEY (content_id, rater)
);

CREATE TABLE IF NOT EXISTS proposals (
	id          BIGINT PRIMARY KEY,
	proposer    VARCHAR(42) NOT NULL,
	description TEXT NOT NULL,
	votes       BIGINT NOT NULL DEFAULT 0,
	executed    BOOLEAN NOT NULL DEFAULT false,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS proposal_votes (
	proposal_id BIGINT NOT NULL REFERENCES proposals(id),
	voter       VARCHAR(42) NOT NULL,
	PRIMARY KEY (proposal_id, voter)
);

-- append-only, duplicates allowed
CREATE TABLE IF NOT EXISTS governance_members (
	position BIGSERIAL PRIMARY KEY,
	member   VARCHAR(42) NOT NULL
);

CREATE TABLE IF NOT EXISTS registry_state (
	id     SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	paused BOOLEAN NOT NULL DEFAULT false
);

INSERT INTO registry_state (id, paused) VALUES (1, false) ON CONFLICT (id) DO NOTHING;
`

// Migrate applies Schema.
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply registry schema: %w", err)
	}
	return nil
}
