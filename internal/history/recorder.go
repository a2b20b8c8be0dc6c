package history

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legionlabs/spacefight-server/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS match_history (
    id BIGSERIAL PRIMARY KEY,
    room_code TEXT NOT NULL,
    mode TEXT NOT NULL,
    difficulty TEXT NOT NULL DEFAULT '',
    outcome TEXT NOT NULL,
    players TEXT[] NOT NULL,
    winner TEXT NOT NULL DEFAULT '',
    scores JSONB,
    started_at TIMESTAMPTZ NOT NULL,
    ended_at TIMESTAMPTZ NOT NULL,
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_match_history_room_code ON match_history(room_code);
`

const insertRecord = `
INSERT INTO match_history (room_code, mode, difficulty, outcome, players, winner, scores, started_at, ended_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// db is the slice of pgx the recorder needs; satisfied by pgxpool.Pool.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const recordBuffer = 64

// Recorder writes finished-match summaries to PostgreSQL. Records flow
// through a buffered channel drained by a single worker, so the room
// manager never blocks on the database; if the buffer fills, records
// are dropped with a warning rather than stalling gameplay.
type Recorder struct {
	db     db
	pool   *pgxpool.Pool // nil when constructed for tests
	logger *slog.Logger

	records  chan model.MatchRecord
	done     chan struct{}
	stopOnce sync.Once
}

// New connects to PostgreSQL, initializes the schema, and starts the
// write worker.
func New(ctx context.Context, databaseURL string, logger *slog.Logger) (*Recorder, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, err
	}

	r := newWithDB(pool, logger)
	r.pool = pool
	return r, nil
}

// newWithDB creates a recorder over an existing database handle (for testing).
func newWithDB(d db, logger *slog.Logger) *Recorder {
	r := &Recorder{
		db:      d,
		logger:  logger.With(slog.String("component", "history")),
		records: make(chan model.MatchRecord, recordBuffer),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Record enqueues a match record for durable storage. Never blocks.
func (r *Recorder) Record(record model.MatchRecord) {
	select {
	case r.records <- record:
	default:
		r.logger.Warn("match record dropped - history buffer full",
			slog.String("room", string(record.RoomCode)))
	}
}

// Close drains pending records and releases the connection pool.
func (r *Recorder) Close() {
	r.stopOnce.Do(func() {
		close(r.records)
		<-r.done
		if r.pool != nil {
			r.pool.Close()
		}
	})
}

func (r *Recorder) run() {
	defer close(r.done)
	for record := range r.records {
		if err := r.insert(record); err != nil {
			r.logger.Error("could not record match",
				slog.String("room", string(record.RoomCode)),
				slog.String("error", err.Error()))
		}
	}
}

func (r *Recorder) insert(record model.MatchRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	players := make([]string, len(record.Players))
	for i, p := range record.Players {
		players[i] = string(p)
	}

	var scores []byte
	if record.Scores != nil {
		var err error
		scores, err = json.Marshal(record.Scores)
		if err != nil {
			return err
		}
	}

	_, err := r.db.Exec(ctx, insertRecord,
		string(record.RoomCode),
		string(record.Mode),
		record.Difficulty,
		string(record.Outcome),
		players,
		string(record.Winner),
		scores,
		record.StartedAt,
		record.EndedAt,
	)
	return err
}
