package db

import (
	"context"
	"time"
)

type CreatePurchaseParams struct {
	ID        string
	UserID    string
	VersionID string
	Price     float64
	CreatedAt time.Time
}

const createPurchase = `INSERT INTO purchases (id, user_id, version_id, price, created_at) VALUES (?, ?, ?, ?, ?)
RETURNING id, user_id, version_id, price, created_at`

// CreatePurchase records a purchase. Returns ErrConflict if the user
// already owns the version.
func (q *Queries) CreatePurchase(ctx context.Context, arg CreatePurchaseParams) (Purchase, error) {
	var p Purchase
	err := q.db.QueryRowContext(ctx, createPurchase, arg.ID, arg.UserID, arg.VersionID, arg.Price, arg.CreatedAt).
		Scan(&p.ID, &p.UserID, &p.VersionID, &p.Price, &p.CreatedAt)
	return p, translateErr(err)
}

const hasPurchased = `SELECT EXISTS(SELECT 1 FROM purchases WHERE user_id = ? AND version_id = ?)`

func (q *Queries) HasPurchased(ctx context.Context, userID, versionID string) (bool, error) {
	var exists int64
	err := q.db.QueryRowContext(ctx, hasPurchased, userID, versionID).Scan(&exists)
	return exists == 1, err
}

// PurchaseWithVersion joins a purchase to the version and song it unlocks.
type PurchaseWithVersion struct {
	Purchase
	SongTitle   string
	SongArtist  string
	TeacherName string
}

const listPurchasesByUser = `SELECT p.id, p.user_id, p.version_id, p.price, p.created_at, s.title, s.artist, v.teacher_name
FROM purchases p
JOIN versions v ON v.id = p.version_id
JOIN songs s ON s.id = v.song_id
WHERE p.user_id = ?
ORDER BY p.created_at DESC`

func (q *Queries) ListPurchasesByUser(ctx context.Context, userID string) ([]PurchaseWithVersion, error) {
	rows, err := q.db.QueryContext(ctx, listPurchasesByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []PurchaseWithVersion{}
	for rows.Next() {
		var p PurchaseWithVersion
		if err := rows.Scan(&p.ID, &p.UserID, &p.VersionID, &p.Price, &p.CreatedAt,
			&p.SongTitle, &p.SongArtist, &p.TeacherName); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
