package live

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/guitarbuddy/backend/internal/database"
	"github.com/guitarbuddy/backend/internal/db"
)

func TestQueriesPersister(t *testing.T) {
	sqlDB, err := database.New(filepath.Join(t.TempDir(), "live.db"))
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	if err := database.RunMigrations(sqlDB); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	q := db.New(sqlDB)
	p := NewQueriesPersister(q)
	ctx := context.Background()
	now := time.Now().UTC()

	snap := Snapshot{
		Code:             "ABC123",
		HostID:           "user-host",
		HostEmail:        "host@example.com",
		Setlist:          []byte(`["s1","s2"]`),
		SongIndex:        1,
		ScrollPosition:   42.5,
		ParticipantCount: 2,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := p.PersistSnapshot(ctx, snap); err != nil {
		t.Fatalf("PersistSnapshot() error = %v", err)
	}

	snap.Ended = true
	snap.UpdatedAt = now.Add(time.Second)
	if err := p.PersistSnapshot(ctx, snap); err != nil {
		t.Fatalf("PersistSnapshot(ended) error = %v", err)
	}

	rows, err := q.ListRecentLiveSessions(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecentLiveSessions() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	got := rows[0]
	if got.Status != db.LiveSessionEnded {
		t.Errorf("Status = %q, want %q", got.Status, db.LiveSessionEnded)
	}
	if got.SongIndex != 1 || got.ScrollPosition != 42.5 || got.ParticipantCount != 2 {
		t.Errorf("row = %+v", got)
	}
	if string(got.Setlist) != `["s1","s2"]` {
		t.Errorf("Setlist = %s", got.Setlist)
	}
}
