// Package history records runs and their per-instance outcomes in SQLite.
// A Store subscribes to the supervisor's run events.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Mizogg/GUI-keyhunt/internal/logging"
	"github.com/Mizogg/GUI-keyhunt/internal/supervisor"
	"github.com/Mizogg/GUI-keyhunt/internal/worker"
)

// FileName is the database file created inside the data directory.
const FileName = "history.db"

// Outcome values stored per instance.
const (
	OutcomeRunning   = "running"
	OutcomeSucceeded = "succeeded"
	OutcomeExited    = "exited"
	OutcomeKilled    = "killed"
	OutcomeFailed    = "failed"
)

// Store manages the run history database.
type Store struct {
	db     *sql.DB
	dbPath string
	logger *zap.Logger
}

// NewStore creates or opens the history database in dataDir.
func NewStore(dataDir string, logger *zap.Logger) (*Store, error) {
	dbPath := filepath.Join(dataDir, FileName)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Exit events arrive from many worker goroutines at once.
	db.SetMaxOpenConns(1)

	if logger == nil {
		logger = zap.NewNop()
	}
	store := &Store{
		db:     db,
		dbPath: dbPath,
		logger: logger,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		stopped_at INTEGER,
		range TEXT NOT NULL,
		instances INTEGER NOT NULL,
		mode TEXT NOT NULL,
		crypto TEXT NOT NULL,
		command TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS instance_results (
		run_id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		sub_range TEXT NOT NULL,
		outcome TEXT NOT NULL,
		exit_code INTEGER,
		finished_at INTEGER,
		PRIMARY KEY (run_id, idx),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordRun stores a new run and one pending result per instance.
func (s *Store) RecordRun(info supervisor.RunInfo) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	command := ""
	if len(info.Invocations) > 0 {
		command = info.Invocations[0].String()
	}

	if _, err := tx.Exec(`INSERT INTO runs (id, started_at, range, instances, mode, crypto, command)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		info.ID.String(), info.Started.UnixMilli(), info.Total.String(), len(info.Ranges),
		string(info.Config.Mode), string(info.Config.Crypto), command); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for i, r := range info.Ranges {
		if _, err := tx.Exec(`INSERT INTO instance_results (run_id, idx, sub_range, outcome)
			VALUES (?, ?, ?, ?)`, info.ID.String(), i+1, r.String(), OutcomeRunning); err != nil {
			return fmt.Errorf("failed to insert instance %d: %w", i+1, err)
		}
	}

	return tx.Commit()
}

// RecordExit stores how one instance ended.
func (s *Store) RecordExit(runID uuid.UUID, index int, st worker.State) error {
	var exitCode sql.NullInt64
	if st.Phase == worker.PhaseFinished && !st.Killed {
		exitCode = sql.NullInt64{Int64: int64(st.ExitCode), Valid: true}
	}
	finished := st.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	_, err := s.db.Exec(`UPDATE instance_results SET outcome = ?, exit_code = ?, finished_at = ?
		WHERE run_id = ? AND idx = ?`,
		Outcome(st), exitCode, finished.UnixMilli(), runID.String(), index)
	return err
}

// RecordStop marks a run as stopped by the user.
func (s *Store) RecordStop(runID uuid.UUID, at time.Time) error {
	_, err := s.db.Exec(`UPDATE runs SET stopped_at = ? WHERE id = ? AND stopped_at IS NULL`,
		at.UnixMilli(), runID.String())
	return err
}

// Outcome classifies a final worker state.
func Outcome(st worker.State) string {
	switch {
	case st.Phase == worker.PhaseFailed:
		return OutcomeFailed
	case st.Killed:
		return OutcomeKilled
	case st.Phase != worker.PhaseFinished:
		return OutcomeRunning
	case st.ExitCode == 0:
		return OutcomeSucceeded
	default:
		return OutcomeExited
	}
}

// RunStarted implements supervisor.RunObserver.
func (s *Store) RunStarted(info supervisor.RunInfo) {
	if err := s.RecordRun(info); err != nil {
		s.logger.Warn("Failed to record run", zap.String(logging.FieldRunID, info.ID.String()), zap.Error(err))
	}
}

// InstanceExited implements supervisor.RunObserver.
func (s *Store) InstanceExited(runID uuid.UUID, index int, st worker.State) {
	if err := s.RecordExit(runID, index, st); err != nil {
		s.logger.Warn("Failed to record instance exit",
			zap.String(logging.FieldRunID, runID.String()),
			zap.Int(logging.FieldInstance, index),
			zap.Error(err))
	}
}

// RunStopped implements supervisor.RunObserver.
func (s *Store) RunStopped(runID uuid.UUID) {
	if err := s.RecordStop(runID, time.Now()); err != nil {
		s.logger.Warn("Failed to record run stop", zap.String(logging.FieldRunID, runID.String()), zap.Error(err))
	}
}

var _ supervisor.RunObserver = (*Store)(nil)
