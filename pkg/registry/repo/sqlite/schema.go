package sqlite

// schema is applied on Open. Every statement is idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS contents (
	id            INTEGER PRIMARY KEY,
	creator       TEXT NOT NULL,
	content_hash  TEXT NOT NULL,
	title         TEXT NOT NULL,
	tags          TEXT NOT NULL DEFAULT '[]',
	price         INTEGER NOT NULL CHECK (price > 0),
	views         INTEGER NOT NULL DEFAULT 0,
	total_rating  INTEGER NOT NULL DEFAULT 0,
	total_reviews INTEGER NOT NULL DEFAULT 0,
	created_at    INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS contents_creator_idx ON contents (creator);

CREATE TABLE IF NOT EXISTS content_ratings (
	content_id INTEGER NOT NULL REFERENCES contents(id),
	rater      TEXT NOT NULL,
	rating     INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
	PRIMARY KEY (content_id, rater)
);

CREATE TABLE IF NOT EXISTS proposals (
	id          INTEGER PRIMARY KEY,
	proposer    TEXT NOT NULL,
	description TEXT NOT NULL,
	votes       INTEGER NOT NULL DEFAULT 0,
	executed    INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE TABLE IF NOT EXISTS proposal_votes (
	proposal_id INTEGER NOT NULL REFERENCES proposals(id),
	voter       TEXT NOT NULL,
	PRIMARY KEY (proposal_id, voter)
);

CREATE TABLE IF NOT EXISTS governance_members (
	position INTEGER PRIMARY KEY AUTOINCREMENT,
	member   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS registry_state (
	id     INTEGER PRIMARY KEY CHECK (id = 1),
	paused INTEGER NOT NULL DEFAULT 0
);

INSERT OR IGNORE INTO registry_state (id, paused) VALUES (1, 0);
`
