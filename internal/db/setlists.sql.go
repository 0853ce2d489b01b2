package db

import (
	"context"
	"encoding/json"
	"time"
)

type CreateSetlistParams struct {
	ID        string
	OwnerID   string
	Name      string
	Songs     json.RawMessage
	CreatedAt time.Time
}

const createSetlist = `INSERT INTO setlists (id, owner_id, name, songs, created_at) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) CreateSetlist(ctx context.Context, arg CreateSetlistParams) error {
	_, err := q.db.ExecContext(ctx, createSetlist, arg.ID, arg.OwnerID, arg.Name, string(arg.Songs), arg.CreatedAt)
	return translateErr(err)
}

const listSetlistsByOwner = `SELECT id, owner_id, name, songs, created_at FROM setlists WHERE owner_id = ? ORDER BY created_at DESC`

func (q *Queries) ListSetlistsByOwner(ctx context.Context, ownerID string) ([]Setlist, error) {
	rows, err := q.db.QueryContext(ctx, listSetlistsByOwner, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Setlist{}
	for rows.Next() {
		var s Setlist
		var songs string
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Name, &songs, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Songs = json.RawMessage(songs)
		items = append(items, s)
	}
	return items, rows.Err()
}

type CreatePracticeSessionParams struct {
	ID        string
	OwnerID   string
	Payload   json.RawMessage
	CreatedAt time.Time
}

const createPracticeSession = `INSERT INTO practice_sessions (id, owner_id, payload, created_at) VALUES (?, ?, ?, ?)`

func (q *Queries) CreatePracticeSession(ctx context.Context, arg CreatePracticeSessionParams) error {
	_, err := q.db.ExecContext(ctx, createPracticeSession, arg.ID, arg.OwnerID, string(arg.Payload), arg.CreatedAt)
	return translateErr(err)
}

const listPracticeSessionsByOwner = `SELECT id, owner_id, payload, created_at FROM practice_sessions WHERE owner_id = ? ORDER BY created_at DESC`

func (q *Queries) ListPracticeSessionsByOwner(ctx context.Context, ownerID string) ([]PracticeSession, error) {
	rows, err := q.db.QueryContext(ctx, listPracticeSessionsByOwner, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []PracticeSession{}
	for rows.Next() {
		var p PracticeSession
		var payload string
		if err := rows.Scan(&p.ID, &p.OwnerID, &payload, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Payload = json.RawMessage(payload)
		items = append(items, p)
	}
	return items, rows.Err()
}
