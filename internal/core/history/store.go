// Package history persists every solved position to a size-capped
// SQLite file, one row per odds update, exact coefficients included so
// nothing is lost to float conversion.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mfortuna/raceodds/internal/telemetry"

	_ "modernc.org/sqlite"
)

const (
	evictPct       float64 = 0.10 // evict oldest 10% of rows
	vacuumInterval         = 10   // incremental vacuum every N evictions

	// DefaultMaxBytes is the size budget used when the caller has no
	// configured limit.
	DefaultMaxBytes int64 = 256 << 20
)

// Row is one solved position as persisted: the score, the exact
// coefficient strings in degree order, their float conversions, and
// the midpoint probability.
type Row struct {
	ID          int64
	Ts          time.Time
	SessionID   string
	Format      string
	Win         int
	Lose        int
	Goal        int
	Coeffs      [4]string
	FloatCoeffs [4]float64
	Mid         float64
}

// Store is a FIFO SQLite history capped at maxBytes. The oldest 10%
// of rows are evicted whenever the file outgrows the budget.
type Store struct {
	db           *sql.DB
	maxBytes     int64
	mu           sync.Mutex
	cachedSize   int64
	rowCount     int64
	evictCounter int
}

// Open creates or reopens the history at path with the given size
// budget in bytes.
func Open(path string, maxBytes int64) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		`PRAGMA auto_vacuum = INCREMENTAL`,
		`CREATE TABLE IF NOT EXISTS odds_history (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			ts         TEXT    NOT NULL,
			session_id TEXT    NOT NULL,
			format     TEXT,
			win        INTEGER NOT NULL,
			lose       INTEGER NOT NULL,
			goal       INTEGER NOT NULL,

			c0         TEXT    NOT NULL,
			c1         TEXT    NOT NULL,
			c2         TEXT    NOT NULL,
			c3         TEXT    NOT NULL,

			f0         REAL,
			f1         REAL,
			f2         REAL,
			f3         REAL,

			mid        REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_oh_session ON odds_history(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_oh_ts ON odds_history(ts)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init schema (%s): %w", stmt, err)
		}
	}

	var size int64
	row := db.QueryRow(`SELECT COALESCE(page_count * page_size, 0) FROM pragma_page_count(), pragma_page_size()`)
	if err := row.Scan(&size); err != nil {
		db.Close()
		return nil, fmt.Errorf("read db size: %w", err)
	}

	var count int64
	row = db.QueryRow(`SELECT COUNT(*) FROM odds_history`)
	if err := row.Scan(&count); err != nil {
		db.Close()
		return nil, fmt.Errorf("read row count: %w", err)
	}

	telemetry.Plainf("odds history: opened %s  db_bytes=%d  rows=%d", path, size, count)

	return &Store{db: db, maxBytes: maxBytes, cachedSize: size, rowCount: count}, nil
}

func (s *Store) Insert(row Row) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT INTO odds_history (
			ts, session_id, format, win, lose, goal,
			c0, c1, c2, c3,
			f0, f1, f2, f3,
			mid
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		row.Ts.UTC().Format(time.RFC3339Nano),
		row.SessionID,
		row.Format,
		row.Win,
		row.Lose,
		row.Goal,
		row.Coeffs[0],
		row.Coeffs[1],
		row.Coeffs[2],
		row.Coeffs[3],
		row.FloatCoeffs[0],
		row.FloatCoeffs[1],
		row.FloatCoeffs[2],
		row.FloatCoeffs[3],
		row.Mid,
	)
	if err != nil {
		return 0, fmt.Errorf("history insert: %w", err)
	}

	id, _ := res.LastInsertId()
	s.rowCount++
	telemetry.Metrics.HistoryInserts.Inc()

	if s.rowCount%100 == 0 {
		s.refreshSize()
		if s.cachedSize > s.maxBytes {
			s.evict()
		}
	}

	return id, nil
}

// Recent returns the latest rows, newest first.
func (s *Store) Recent(limit int) ([]Row, error) {
	return s.query(
		`SELECT id, ts, session_id, format, win, lose, goal,
			c0, c1, c2, c3, f0, f1, f2, f3, mid
		FROM odds_history ORDER BY id DESC LIMIT ?`, limit)
}

// BySession returns one session's rows, oldest first, so the sequence
// reads like the race unfolded.
func (s *Store) BySession(sessionID string, limit int) ([]Row, error) {
	return s.query(
		`SELECT id, ts, session_id, format, win, lose, goal,
			c0, c1, c2, c3, f0, f1, f2, f3, mid
		FROM odds_history WHERE session_id = ? ORDER BY id ASC LIMIT ?`, sessionID, limit)
}

func (s *Store) query(q string, args ...any) ([]Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("history query: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var ts string
		if err := rows.Scan(
			&r.ID, &ts, &r.SessionID, &r.Format, &r.Win, &r.Lose, &r.Goal,
			&r.Coeffs[0], &r.Coeffs[1], &r.Coeffs[2], &r.Coeffs[3],
			&r.FloatCoeffs[0], &r.FloatCoeffs[1], &r.FloatCoeffs[2], &r.FloatCoeffs[3],
			&r.Mid,
		); err != nil {
			return nil, fmt.Errorf("history scan: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			r.Ts = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the resident row count.
func (s *Store) Count() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rowCount
}

// SizeBytes returns the database file size as of the last refresh.
func (s *Store) SizeBytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshSize()
	return s.cachedSize
}

func (s *Store) refreshSize() {
	var size int64
	row := s.db.QueryRow(`SELECT COALESCE(page_count * page_size, 0) FROM pragma_page_count(), pragma_page_size()`)
	if err := row.Scan(&size); err == nil {
		s.cachedSize = size
	}
}

func (s *Store) evict() {
	toDelete := int64(float64(s.rowCount) * evictPct)
	if toDelete < 1 {
		toDelete = 1
	}

	res, err := s.db.Exec(
		`DELETE FROM odds_history WHERE id IN (
			SELECT id FROM odds_history ORDER BY id ASC LIMIT ?
		)`, toDelete,
	)
	if err != nil {
		telemetry.Warnf("history evict: %v", err)
		return
	}

	deleted, _ := res.RowsAffected()
	s.rowCount -= deleted
	s.evictCounter++
	telemetry.Metrics.HistoryEvictions.Add(deleted)

	telemetry.Infof("odds history: evicted %d rows (target %d)", deleted, toDelete)

	if s.evictCounter%vacuumInterval == 0 {
		s.db.Exec(`PRAGMA incremental_vacuum`)
	}

	s.refreshSize()
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
