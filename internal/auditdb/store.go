package auditdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a requested audit record does not exist.
var ErrNotFound = errors.New("auditdb: record not found")

// Run is one crawl invocation's audit header. ExternalID is a run-scoped
// correlation ID that also appears in every log line the crawl emits, so
// a run row can be matched back to its logs without depending on the
// database's own serial ID being known ahead of time.
type Run struct {
	ID           int64          `db:"id"`
	ExternalID   string         `db:"external_id"`
	Keyword      string         `db:"keyword"`
	SearchPeriod string         `db:"search_period"`
	SearchSlice  string         `db:"search_slice"`
	WorkerCount  int            `db:"worker_count"`
	StartedAt    time.Time      `db:"started_at"`
	FinishedAt   sql.NullTime   `db:"finished_at"`
	Status       string         `db:"status"`
	Error        sql.NullString `db:"error"`
}

// NewExternalID returns a fresh run correlation ID.
func NewExternalID() string { return uuid.NewString() }

// RunStat is one worker's progress snapshot within a run, stored in
// crawl_run_stats by RecordStat. Neither the `watch` dashboard nor the
// `report` command reads these rows.
type RunStat struct {
	RunID       int64     `db:"run_id"`
	WorkerName  string    `db:"worker_name"`
	SlicesDone  int       `db:"slices_done"`
	SlicesTotal int       `db:"slices_total"`
	ReposDone   int       `db:"repos_done"`
	ReposTotal  int       `db:"repos_total"`
	RecordedAt  time.Time `db:"recorded_at"`
}

//go:generate mockgen -destination=../../mocks/mock_auditdb_store.go -package=mocks github.com/sevigo/countpkg/internal/auditdb Store

// Store is the audit trail's data-access surface.
type Store interface {
	StartRun(ctx context.Context, r *Run) (int64, error)
	FinishRun(ctx context.Context, runID int64, status string, runErr error) error
	RecordStat(ctx context.Context, stat RunStat) error
	GetRun(ctx context.Context, runID int64) (*Run, error)
	ListRecentRuns(ctx context.Context, limit int) ([]*Run, error)
}

type postgresStore struct {
	db *sqlx.DB
}

// NewStore adapts a connected *DB into a Store.
func NewStore(db *DB) Store {
	return &postgresStore{db: db.DB}
}

func (s *postgresStore) StartRun(ctx context.Context, r *Run) (int64, error) {
	query := `
		INSERT INTO crawl_runs (external_id, keyword, search_period, search_slice, worker_count, started_at, status)
		VALUES (:external_id, :keyword, :search_period, :search_slice, :worker_count, :started_at, 'running')
		RETURNING id`
	stmt, err := s.db.PrepareNamedContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement for starting run: %w", err)
	}
	defer stmt.Close()

	var id int64
	if err := stmt.GetContext(ctx, &id, r); err != nil {
		return 0, fmt.Errorf("failed to insert crawl run: %w", err)
	}
	return id, nil
}

func (s *postgresStore) FinishRun(ctx context.Context, runID int64, status string, runErr error) error {
	query := `UPDATE crawl_runs SET status = $1, finished_at = $2, error = $3 WHERE id = $4`
	var errText sql.NullString
	if runErr != nil {
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, query, status, time.Now().UTC(), errText, runID)
	if err != nil {
		return fmt.Errorf("failed to finish crawl run %d: %w", runID, err)
	}
	return nil
}

func (s *postgresStore) RecordStat(ctx context.Context, stat RunStat) error {
	query := `
		INSERT INTO crawl_run_stats (run_id, worker_name, slices_done, slices_total, repos_done, repos_total)
		VALUES (:run_id, :worker_name, :slices_done, :slices_total, :repos_done, :repos_total)`
	_, err := s.db.NamedExecContext(ctx, query, stat)
	if err != nil {
		return fmt.Errorf("failed to record run stat: %w", err)
	}
	return nil
}

func (s *postgresStore) GetRun(ctx context.Context, runID int64) (*Run, error) {
	var r Run
	err := s.db.GetContext(ctx, &r, `SELECT * FROM crawl_runs WHERE id = $1`, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s *postgresStore) ListRecentRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []*Run
	err := s.db.SelectContext(ctx, &runs,
		`SELECT * FROM crawl_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return runs, nil
}
