package live

import (
	"context"
	stdjson "encoding/json"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"

	"github.com/guitarbuddy/backend/internal/db"
	"github.com/guitarbuddy/backend/internal/logging"
	"github.com/guitarbuddy/backend/internal/metrics"
)

// Snapshot is a point-in-time copy of a session handed to a Persister.
type Snapshot struct {
	Code             string
	HostID           string
	HostEmail        string
	Setlist          json.RawMessage
	SongIndex        int
	ScrollPosition   float64
	ParticipantCount int
	Ended            bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Persister records session snapshots. Writes are best effort: failures are
// logged and counted but never affect the live session.
type Persister interface {
	PersistSnapshot(ctx context.Context, snap Snapshot) error
}

// LiveSessionWriter is the storage operation QueriesPersister needs.
// *db.Queries satisfies it.
type LiveSessionWriter interface {
	UpsertLiveSession(ctx context.Context, arg db.UpsertLiveSessionParams) error
}

// QueriesPersister writes snapshots to the live_sessions table.
type QueriesPersister struct {
	q LiveSessionWriter
}

func NewQueriesPersister(q LiveSessionWriter) *QueriesPersister {
	return &QueriesPersister{q: q}
}

func (p *QueriesPersister) PersistSnapshot(ctx context.Context, snap Snapshot) error {
	status := db.LiveSessionActive
	if snap.Ended {
		status = db.LiveSessionEnded
	}
	return p.q.UpsertLiveSession(ctx, db.UpsertLiveSessionParams{
		Code:             snap.Code,
		HostID:           snap.HostID,
		HostEmail:        snap.HostEmail,
		Setlist:          stdjson.RawMessage(snap.Setlist),
		SongIndex:        int64(snap.SongIndex),
		ScrollPosition:   snap.ScrollPosition,
		ParticipantCount: int64(snap.ParticipantCount),
		Status:           status,
		CreatedAt:        snap.CreatedAt,
		UpdatedAt:        snap.UpdatedAt,
	})
}

func snapshotOf(s *Session, ended bool) Snapshot {
	setlist := make(json.RawMessage, len(s.Setlist))
	copy(setlist, s.Setlist)
	return Snapshot{
		Code:             s.Code,
		HostID:           s.Host.UserID,
		HostEmail:        s.Host.Email,
		Setlist:          setlist,
		SongIndex:        s.SongIdx,
		ScrollPosition:   s.Scroll,
		ParticipantCount: len(s.participants),
		Ended:            ended,
		CreatedAt:        s.Created,
		UpdatedAt:        s.Activity,
	}
}

// persist queues a snapshot of s without blocking. Must hold c.mu.
func (c *Coordinator) persist(s *Session, ended bool) {
	if c.persistQueue == nil || c.closed {
		return
	}
	select {
	case c.persistQueue <- snapshotOf(s, ended):
	default:
		metrics.LivePersistErrors.Inc()
		slog.Warn("live snapshot queue full, dropping snapshot", slog.String("code", s.Code))
	}
}

// runPersister writes queued snapshots in order until the queue is closed.
func (c *Coordinator) runPersister() {
	defer close(c.persistDone)
	for snap := range c.persistQueue {
		ctx, cancel := context.WithTimeout(context.Background(), c.persistTimeout)
		err := c.persister.PersistSnapshot(ctx, snap)
		cancel()
		if err != nil {
			metrics.LivePersistErrors.Inc()
			slog.Warn("failed to persist live session snapshot",
				slog.String("code", snap.Code),
				slog.Any("error", logging.WrapError(err, "persist live session snapshot")))
		}
	}
}
