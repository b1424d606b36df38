// Package store persists song documents and their annotation sets in
// SQLite. Annotation sets are keyed by (song, kind, language) and carry
// the lyric-source hash they were generated against; saving a song with
// changed lyrics clears every annotation set atomically with the write.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ryokun6/ryos-sub006/internal/lyrics"
	"github.com/ryokun6/ryos-sub006/internal/ruby"
)

// ErrSongNotFound is returned when the requested song does not exist.
var ErrSongNotFound = errors.New("song not found")

// ErrAnnotationNotFound is returned when no annotation set is stored for
// the requested (song, kind, language) key.
var ErrAnnotationNotFound = errors.New("annotation not found")

const schemaSQL = `
CREATE TABLE IF NOT EXISTS songs (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT '',
	artist      TEXT NOT NULL DEFAULT '',
	owner       TEXT NOT NULL DEFAULT '',
	lyrics      TEXT NOT NULL DEFAULT '',
	lyrics_hash TEXT NOT NULL DEFAULT '',
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS annotations (
	song_id     TEXT NOT NULL,
	kind        TEXT NOT NULL,
	lang        TEXT NOT NULL DEFAULT '',
	lyrics_hash TEXT NOT NULL,
	payload     TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	PRIMARY KEY (song_id, kind, lang),
	FOREIGN KEY (song_id) REFERENCES songs(id) ON DELETE CASCADE
);
`

// Song is the durable song document surface the pipeline needs: lyric
// source, its hash, and the owner consulted for forced refreshes.
type Song struct {
	ID        string
	Title     string
	Artist    string
	Owner     string
	Lyrics    string
	Hash      string
	UpdatedAt time.Time
}

// Annotation is one stored annotation set.
type Annotation struct {
	SongID    string
	Kind      string
	Lang      string
	Hash      string
	Payload   json.RawMessage
	CreatedAt time.Time
}

// Store manages song and annotation persistence backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open initializes or connects to the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GetSong loads a song document by ID.
func (s *Store) GetSong(ctx context.Context, id string) (*Song, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, artist, owner, lyrics, lyrics_hash, updated_at FROM songs WHERE id = ?`, id)

	var song Song
	var updatedAt string
	err := row.Scan(&song.ID, &song.Title, &song.Artist, &song.Owner, &song.Lyrics, &song.Hash, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSongNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load song: %w", err)
	}
	song.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &song, nil
}

// SaveSong upserts a song document. The lyric-source hash is recomputed
// from the lyrics; when it differs from what is stored, every annotation
// set for the song is cleared in the same transaction, since stale sets
// would silently misalign against the new line boundaries.
func (s *Store) SaveSong(ctx context.Context, song *Song) error {
	song.Hash = lyrics.Hash(song.Lyrics)
	song.UpdatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var oldHash string
	err = tx.QueryRowContext(ctx, `SELECT lyrics_hash FROM songs WHERE id = ?`, song.ID).Scan(&oldHash)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to read stored hash: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO songs (id, title, artist, owner, lyrics, lyrics_hash, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			artist = excluded.artist,
			owner = excluded.owner,
			lyrics = excluded.lyrics,
			lyrics_hash = excluded.lyrics_hash,
			updated_at = excluded.updated_at`,
		song.ID, song.Title, song.Artist, song.Owner, song.Lyrics, song.Hash,
		song.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save song: %w", err)
	}

	if oldHash != "" && oldHash != song.Hash {
		if _, err := tx.ExecContext(ctx, `DELETE FROM annotations WHERE song_id = ?`, song.ID); err != nil {
			return fmt.Errorf("failed to clear stale annotations: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit song: %w", err)
	}
	return nil
}

// GetAnnotation loads the stored annotation set for a key. Callers must
// check its Hash against the song's current hash before trusting it.
func (s *Store) GetAnnotation(ctx context.Context, songID, kind, lang string) (*Annotation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT song_id, kind, lang, lyrics_hash, payload, created_at
		 FROM annotations WHERE song_id = ? AND kind = ? AND lang = ?`,
		songID, kind, lang)

	var a Annotation
	var payload string
	var createdAt string
	err := row.Scan(&a.SongID, &a.Kind, &a.Lang, &a.Hash, &payload, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s/%s", ErrAnnotationNotFound, songID, kind, lang)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load annotation: %w", err)
	}
	a.Payload = json.RawMessage(payload)
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &a, nil
}

// SaveAnnotation upserts an annotation set keyed by lyric-source hash.
// Concurrent generations for the same key resolve last-write-wins here.
func (s *Store) SaveAnnotation(ctx context.Context, a *Annotation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO annotations (song_id, kind, lang, lyrics_hash, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(song_id, kind, lang) DO UPDATE SET
			lyrics_hash = excluded.lyrics_hash,
			payload = excluded.payload,
			created_at = excluded.created_at`,
		a.SongID, a.Kind, a.Lang, a.Hash, string(a.Payload),
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save annotation: %w", err)
	}
	return nil
}

// SaveTranslation persists a completed translation set.
func (s *Store) SaveTranslation(ctx context.Context, songID, lang, hash string, translations []string) error {
	payload, err := json.Marshal(translations)
	if err != nil {
		return fmt.Errorf("failed to encode translations: %w", err)
	}
	return s.SaveAnnotation(ctx, &Annotation{
		SongID: songID, Kind: "translation", Lang: lang, Hash: hash, Payload: payload,
	})
}

// SaveFurigana persists a completed furigana set.
func (s *Store) SaveFurigana(ctx context.Context, songID, hash string, segments [][]ruby.Segment) error {
	payload, err := json.Marshal(segments)
	if err != nil {
		return fmt.Errorf("failed to encode furigana: %w", err)
	}
	return s.SaveAnnotation(ctx, &Annotation{
		SongID: songID, Kind: "furigana", Hash: hash, Payload: payload,
	})
}

// SaveSoramimi persists a completed soramimi set.
func (s *Store) SaveSoramimi(ctx context.Context, songID, lang, hash string, segments [][]ruby.Segment) error {
	payload, err := json.Marshal(segments)
	if err != nil {
		return fmt.Errorf("failed to encode soramimi: %w", err)
	}
	return s.SaveAnnotation(ctx, &Annotation{
		SongID: songID, Kind: "soramimi", Lang: lang, Hash: hash, Payload: payload,
	})
}
