package db

import (
	"context"
	"encoding/json"
	"time"
)

type UpsertLiveSessionParams struct {
	Code             string
	HostID           string
	HostEmail        string
	Setlist          json.RawMessage
	SongIndex        int64
	ScrollPosition   float64
	ParticipantCount int64
	Status           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Codes are reused once a session ends, so a new session overwrites the
// ended snapshot including its created_at.
const upsertLiveSession = `INSERT INTO live_sessions (code, host_id, host_email, setlist, song_index, scroll_position,
participant_count, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(code) DO UPDATE SET
    host_id = excluded.host_id,
    host_email = excluded.host_email,
    setlist = excluded.setlist,
    song_index = excluded.song_index,
    scroll_position = excluded.scroll_position,
    participant_count = excluded.participant_count,
    status = excluded.status,
    created_at = excluded.created_at,
    updated_at = excluded.updated_at`

// UpsertLiveSession stores the latest snapshot of a live performance session.
func (q *Queries) UpsertLiveSession(ctx context.Context, arg UpsertLiveSessionParams) error {
	setlist := arg.Setlist
	if len(setlist) == 0 {
		setlist = json.RawMessage("null")
	}
	_, err := q.db.ExecContext(ctx, upsertLiveSession,
		arg.Code, arg.HostID, arg.HostEmail, string(setlist), arg.SongIndex, arg.ScrollPosition,
		arg.ParticipantCount, arg.Status, arg.CreatedAt, arg.UpdatedAt)
	return err
}

const listRecentLiveSessions = `SELECT code, host_id, host_email, setlist, song_index, scroll_position,
participant_count, status, created_at, updated_at
FROM live_sessions ORDER BY updated_at DESC LIMIT ?`

// ListRecentLiveSessions returns the most recently updated snapshots.
func (q *Queries) ListRecentLiveSessions(ctx context.Context, limit int) ([]LiveSession, error) {
	rows, err := q.db.QueryContext(ctx, listRecentLiveSessions, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []LiveSession{}
	for rows.Next() {
		var s LiveSession
		var setlist string
		if err := rows.Scan(&s.Code, &s.HostID, &s.HostEmail, &setlist, &s.SongIndex, &s.ScrollPosition,
			&s.ParticipantCount, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Setlist = json.RawMessage(setlist)
		items = append(items, s)
	}
	return items, rows.Err()
}
