package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB wraps sql.DB for Postgres using pgx.
type DB struct {
	Client *sql.DB
}

// NewDB creates a Postgres connection with sane defaults and runs migrations.
func NewDB(connString string) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &DB{Client: db}, nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'student',
		avatar_url    TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS courses (
		id               UUID PRIMARY KEY,
		title            TEXT NOT NULL,
		slug             TEXT UNIQUE NOT NULL,
		description      TEXT NOT NULL DEFAULT '',
		long_description TEXT NOT NULL DEFAULT '',
		duration         TEXT NOT NULL DEFAULT '',
		level            TEXT NOT NULL DEFAULT 'beginner',
		instructor_id    UUID REFERENCES users(id),
		tags             TEXT NOT NULL DEFAULT '',
		price            DOUBLE PRECISION NOT NULL DEFAULT 0,
		published        BOOLEAN NOT NULL DEFAULT FALSE,
		cover_url        TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS course_assets (
		id        UUID PRIMARY KEY,
		course_id UUID NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		filename  TEXT NOT NULL,
		url       TEXT NOT NULL,
		mime_type TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS enrollments (
		id         UUID PRIMARY KEY,
		user_id    UUID NOT NULL REFERENCES users(id),
		course_id  UUID NOT NULL REFERENCES courses(id),
		active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, course_id)
	);

	-- study_day is derived server-side from recorded_at in the configured streak
	-- time zone. The unique constraint is the at-most-one-event-per-day contract
	-- the streak engine depends on; concurrent same-day inserts collapse here.
	CREATE TABLE IF NOT EXISTS study_events (
		id            UUID PRIMARY KEY,
		enrollment_id UUID NOT NULL REFERENCES enrollments(id) ON DELETE CASCADE,
		recorded_at   TIMESTAMPTZ NOT NULL,
		study_day     DATE NOT NULL,
		UNIQUE (enrollment_id, study_day)
	);
	CREATE INDEX IF NOT EXISTS idx_study_events_enrollment ON study_events(enrollment_id);
	CREATE INDEX IF NOT EXISTS idx_study_events_day        ON study_events(study_day);

	CREATE TABLE IF NOT EXISTS notes (
		id         UUID PRIMARY KEY,
		course_id  UUID NOT NULL REFERENCES courses(id),
		author_id  UUID NOT NULL REFERENCES users(id),
		title      TEXT NOT NULL,
		content    TEXT NOT NULL DEFAULT '',
		tags       TEXT NOT NULL DEFAULT '',
		pinned     BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS note_attachments (
		id       UUID PRIMARY KEY,
		note_id  UUID NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
		filename TEXT NOT NULL,
		url      TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS activity_rollups (
		day       DATE NOT NULL,
		course_id UUID NOT NULL REFERENCES courses(id),
		events    INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (day, course_id)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
