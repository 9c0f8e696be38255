package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS campuses (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    code       TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_campuses_code_active
    ON campuses(code) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'student' CHECK (role IN ('admin', 'staff', 'student')),
    campus_id     INTEGER REFERENCES campuses(id),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS found_items (
    id             INTEGER PRIMARY KEY,
    title          TEXT NOT NULL,
    description    TEXT,
    category       TEXT NOT NULL,
    found_location TEXT NOT NULL,
    found_at       DATETIME NOT NULL,
    campus_id      INTEGER NOT NULL REFERENCES campuses(id),
    reported_by    INTEGER REFERENCES users(id),
    image          BLOB,
    image_mime     TEXT,
    status         TEXT NOT NULL DEFAULT 'unclaimed' CHECK (status IN ('unclaimed', 'stored', 'claimed', 'returned')),
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_found_items_campus_status ON found_items(campus_id, status);

CREATE TABLE IF NOT EXISTS lost_items (
    id            INTEGER PRIMARY KEY,
    title         TEXT NOT NULL,
    description   TEXT,
    category      TEXT NOT NULL,
    lost_location TEXT NOT NULL,
    lost_at       DATETIME NOT NULL,
    campus_id     INTEGER NOT NULL REFERENCES campuses(id),
    reported_by   INTEGER REFERENCES users(id),
    status        TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'found', 'closed')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_lost_items_campus_status ON lost_items(campus_id, status);

CREATE TABLE IF NOT EXISTS matches (
    id            INTEGER PRIMARY KEY,
    found_item_id INTEGER NOT NULL REFERENCES found_items(id),
    lost_item_id  INTEGER NOT NULL REFERENCES lost_items(id),
    score         INTEGER NOT NULL DEFAULT 0,
    status        TEXT NOT NULL DEFAULT 'proposed' CHECK (status IN ('proposed', 'approved', 'returned')),
    proposed_by   INTEGER REFERENCES users(id),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (found_item_id, lost_item_id)
);

CREATE TABLE IF NOT EXISTS claims (
    id              INTEGER PRIMARY KEY,
    found_item_id   INTEGER NOT NULL REFERENCES found_items(id),
    claimant_id     INTEGER NOT NULL REFERENCES users(id),
    lost_item_id    INTEGER REFERENCES lost_items(id),
    evidence        TEXT NOT NULL,
    status          TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected', 'conflicted')),
    priority        TEXT NOT NULL DEFAULT 'low' CHECK (priority IN ('high', 'medium', 'low')),
    decision_reason TEXT,
    decided_by      INTEGER REFERENCES users(id),
    created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    decided_at      DATETIME
);

CREATE INDEX IF NOT EXISTS idx_claims_found_status ON claims(found_item_id, status);

CREATE UNIQUE INDEX IF NOT EXISTS idx_claims_one_approved
    ON claims(found_item_id) WHERE status = 'approved';

CREATE TABLE IF NOT EXISTS claim_images (
    id         INTEGER PRIMARY KEY,
    claim_id   INTEGER NOT NULL REFERENCES claims(id),
    image      BLOB NOT NULL,
    image_mime TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS claim_actions (
    id          INTEGER PRIMARY KEY,
    claim_id    INTEGER NOT NULL REFERENCES claims(id),
    actor_id    INTEGER REFERENCES users(id),
    action      TEXT NOT NULL,
    from_status TEXT,
    to_status   TEXT NOT NULL,
    reason      TEXT,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TRIGGER IF NOT EXISTS claim_actions_no_update
    BEFORE UPDATE ON claim_actions
BEGIN
    SELECT RAISE(ABORT, 'claim_actions is append-only');
END;

CREATE TRIGGER IF NOT EXISTS claim_actions_no_delete
    BEFORE DELETE ON claim_actions
BEGIN
    SELECT RAISE(ABORT, 'claim_actions is append-only');
END;

CREATE TABLE IF NOT EXISTS notifications (
    id           INTEGER PRIMARY KEY,
    event_type   TEXT NOT NULL,
    entity_type  TEXT NOT NULL,
    entity_id    INTEGER NOT NULL,
    actor_id     INTEGER,
    recipient_id INTEGER,
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id, id);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables, indexes and triggers if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
