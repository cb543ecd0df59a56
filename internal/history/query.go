package history

import (
	"database/sql"
	"fmt"
	"time"
)

// Run is one recorded run.
type Run struct {
	ID        string
	StartedAt time.Time
	StoppedAt *time.Time
	Range     string
	Instances int
	Mode      string
	Crypto    string
	Command   string
	Results   []Result
}

// Result is the recorded outcome of one instance.
type Result struct {
	Index      int
	SubRange   string
	Outcome    string
	ExitCode   *int
	FinishedAt *time.Time
}

// Recent returns up to limit runs, newest first, with their results.
func (s *Store) Recent(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(`SELECT id, started_at, stopped_at, range, instances, mode, crypto, command
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	var runs []Run
	for rows.Next() {
		var r Run
		var started int64
		var stopped sql.NullInt64
		if err := rows.Scan(&r.ID, &started, &stopped, &r.Range, &r.Instances, &r.Mode, &r.Crypto, &r.Command); err != nil {
			rows.Close()
			return nil, err
		}
		r.StartedAt = time.UnixMilli(started)
		r.StoppedAt = millisPtr(stopped)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range runs {
		results, err := s.results(runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Results = results
	}
	return runs, nil
}

func (s *Store) results(runID string) ([]Result, error) {
	rows, err := s.db.Query(`SELECT idx, sub_range, outcome, exit_code, finished_at
		FROM instance_results WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		var code, finished sql.NullInt64
		if err := rows.Scan(&r.Index, &r.SubRange, &r.Outcome, &code, &finished); err != nil {
			return nil, err
		}
		if code.Valid {
			c := int(code.Int64)
			r.ExitCode = &c
		}
		r.FinishedAt = millisPtr(finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

func millisPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64)
	return &t
}
