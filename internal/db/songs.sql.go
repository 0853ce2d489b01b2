package db

import (
	"context"
	"time"
)

const songColumns = `id, owner_id, title, artist, created_at`

func scanSong(row interface{ Scan(...interface{}) error }) (Song, error) {
	var s Song
	err := row.Scan(&s.ID, &s.OwnerID, &s.Title, &s.Artist, &s.CreatedAt)
	return s, translateErr(err)
}

type CreateSongParams struct {
	ID        string
	OwnerID   string
	Title     string
	Artist    string
	CreatedAt time.Time
}

const createSong = `INSERT INTO songs (id, owner_id, title, artist, created_at) VALUES (?, ?, ?, ?, ?)
RETURNING ` + songColumns

func (q *Queries) CreateSong(ctx context.Context, arg CreateSongParams) (Song, error) {
	row := q.db.QueryRowContext(ctx, createSong, arg.ID, arg.OwnerID, arg.Title, arg.Artist, arg.CreatedAt)
	return scanSong(row)
}

const getSongByID = `SELECT ` + songColumns + ` FROM songs WHERE id = ?`

func (q *Queries) GetSongByID(ctx context.Context, id string) (Song, error) {
	return scanSong(q.db.QueryRowContext(ctx, getSongByID, id))
}

const listSongsByOwner = `SELECT ` + songColumns + ` FROM songs WHERE owner_id = ? ORDER BY created_at DESC`

func (q *Queries) ListSongsByOwner(ctx context.Context, ownerID string) ([]Song, error) {
	return q.listSongs(ctx, listSongsByOwner, ownerID)
}

const searchSongs = `SELECT ` + songColumns + ` FROM songs
WHERE title LIKE ? ESCAPE '\' OR artist LIKE ? ESCAPE '\'
ORDER BY title ASC LIMIT ?`

// SearchSongs returns songs whose title or artist contains query
// (case-insensitive for ASCII). An empty query lists everything up to limit.
func (q *Queries) SearchSongs(ctx context.Context, query string, limit int) ([]Song, error) {
	pattern := "%" + escapeLike(query) + "%"
	return q.listSongs(ctx, searchSongs, pattern, pattern, limit)
}

func (q *Queries) listSongs(ctx context.Context, query string, args ...interface{}) ([]Song, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Song{}
	for rows.Next() {
		s, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const versionColumns = `id, song_id, teacher_id, teacher_name, content, song_key, bpm, capo, time_signature,
youtube_url, backing_track_url, monetized, price, rating, rating_count, created_at, updated_at`

func scanVersion(row interface{ Scan(...interface{}) error }) (Version, error) {
	var v Version
	var monetized int64
	err := row.Scan(&v.ID, &v.SongID, &v.TeacherID, &v.TeacherName, &v.Content, &v.Key, &v.Bpm, &v.Capo,
		&v.TimeSignature, &v.YoutubeURL, &v.BackingTrackURL, &monetized, &v.Price, &v.Rating, &v.RatingCount,
		&v.CreatedAt, &v.UpdatedAt)
	v.Monetized = monetized != 0
	return v, translateErr(err)
}

type CreateVersionParams struct {
	ID              string
	SongID          string
	TeacherID       string
	TeacherName     string
	Content         string
	Key             string
	Bpm             int64
	Capo            int64
	TimeSignature   string
	YoutubeURL      string
	BackingTrackURL string
	Monetized       bool
	Price           float64
	CreatedAt       time.Time
}

const createVersion = `INSERT INTO versions (id, song_id, teacher_id, teacher_name, content, song_key, bpm, capo,
time_signature, youtube_url, backing_track_url, monetized, price, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + versionColumns

func (q *Queries) CreateVersion(ctx context.Context, arg CreateVersionParams) (Version, error) {
	row := q.db.QueryRowContext(ctx, createVersion,
		arg.ID, arg.SongID, arg.TeacherID, arg.TeacherName, arg.Content, arg.Key, arg.Bpm, arg.Capo,
		arg.TimeSignature, nullString(arg.YoutubeURL), nullString(arg.BackingTrackURL),
		boolToInt(arg.Monetized), arg.Price, arg.CreatedAt, arg.CreatedAt)
	return scanVersion(row)
}

const getVersionByID = `SELECT ` + versionColumns + ` FROM versions WHERE id = ?`

func (q *Queries) GetVersionByID(ctx context.Context, id string) (Version, error) {
	return scanVersion(q.db.QueryRowContext(ctx, getVersionByID, id))
}

const listVersionsBySong = `SELECT ` + versionColumns + ` FROM versions WHERE song_id = ? ORDER BY rating DESC, created_at ASC`

func (q *Queries) ListVersionsBySong(ctx context.Context, songID string) ([]Version, error) {
	rows, err := q.db.QueryContext(ctx, listVersionsBySong, songID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Version{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

type UpdateVersionParams struct {
	ID              string
	Content         string
	Key             string
	Bpm             int64
	Capo            int64
	TimeSignature   string
	YoutubeURL      string
	BackingTrackURL string
	Monetized       bool
	Price           float64
	UpdatedAt       time.Time
}

const updateVersion = `UPDATE versions SET content = ?, song_key = ?, bpm = ?, capo = ?, time_signature = ?,
youtube_url = ?, backing_track_url = ?, monetized = ?, price = ?, updated_at = ?
WHERE id = ?
RETURNING ` + versionColumns

func (q *Queries) UpdateVersion(ctx context.Context, arg UpdateVersionParams) (Version, error) {
	row := q.db.QueryRowContext(ctx, updateVersion,
		arg.Content, arg.Key, arg.Bpm, arg.Capo, arg.TimeSignature,
		nullString(arg.YoutubeURL), nullString(arg.BackingTrackURL),
		boolToInt(arg.Monetized), arg.Price, arg.UpdatedAt, arg.ID)
	return scanVersion(row)
}

const deleteVersion = `DELETE FROM versions WHERE id = ?`

func (q *Queries) DeleteVersion(ctx context.Context, id string) error {
	result, err := q.db.ExecContext(ctx, deleteVersion, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
