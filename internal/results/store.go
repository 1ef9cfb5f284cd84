package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vk/arterialgo/internal/config"
	"github.com/vk/arterialgo/internal/debugtap"
	"github.com/vk/arterialgo/internal/fsutil"

	_ "modernc.org/sqlite" // SQLite driver
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = errors.New("run not found")

// Run is one persisted simulation output.
type Run struct {
	ID        string
	Seq       int
	Label     string
	CreatedAt time.Time
	Settings  config.Settings
	Time      []float64
	Series    map[string][]float64
	Probes    []debugtap.Probe
}

// Summary describes a stored run without its series.
type Summary struct {
	ID        string    `json:"id" yaml:"id"`
	Seq       int       `json:"seq" yaml:"seq"`
	Label     string    `json:"label" yaml:"label"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Frequency float64   `json:"frequency" yaml:"frequency"`
	Samples   int       `json:"samples" yaml:"samples"`
	Series    int       `json:"series" yaml:"series"`
}

// Label is the name given to the run with sequence number seq.
func Label(seq int) string {
	return fmt.Sprintf("simulation_output_%03d", seq)
}

// Store persists runs in SQLite.
type Store struct {
	mu  sync.Mutex
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path, creating its directory when
// needed. MemoryPath gives a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != MemoryPath {
		if err := fsutil.EnsureParentDir(path); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite works best with a single writer, and an in-memory database only
	// lives as long as its one connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores run under the next sequence number and fills in its ID, Seq,
// Label and CreatedAt.
func (s *Store) Save(ctx context.Context, run *Run) error {
	if len(run.Time) == 0 {
		return fmt.Errorf("run has no samples")
	}
	for name, values := range run.Series {
		if len(values) != len(run.Time) {
			return fmt.Errorf("series %q has %d samples, want %d", name, len(values), len(run.Time))
		}
	}
	settings, err := json.Marshal(run.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var seq int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return fmt.Errorf("failed to allocate sequence: %w", err)
	}
	id := uuid.NewString()
	created := s.now().UTC()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, seq, label, created_at, frequency, time_step, duration, settings, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, seq, Label(seq), created.Format(time.RFC3339Nano),
		run.Settings.InputSignal.Frequency, run.Settings.Simulation.TimeStep, run.Settings.Simulation.SimulationTime,
		string(settings), encodeSeries(run.Time))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for name, values := range run.Series {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO series (run_id, name, data) VALUES (?, ?, ?)`,
			id, name, encodeSeries(values)); err != nil {
			return fmt.Errorf("failed to insert series %q: %w", name, err)
		}
	}
	for i, p := range run.Probes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO probes (run_id, position, segment, port, sink, output) VALUES (?, ?, ?, ?, ?, ?)`,
			id, i, p.Segment, p.Port, p.Sink, p.Output); err != nil {
			return fmt.Errorf("failed to insert probe %q: %w", p.Sink, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	run.ID, run.Seq, run.Label, run.CreatedAt = id, seq, Label(seq), created
	return nil
}

// Latest returns the run with the highest sequence number.
func (s *Store) Latest(ctx context.Context) (*Run, error) {
	return s.load(ctx, `SELECT id FROM runs ORDER BY seq DESC LIMIT 1`)
}

// Get returns the run with sequence number seq.
func (s *Store) Get(ctx context.Context, seq int) (*Run, error) {
	return s.load(ctx, `SELECT id FROM runs WHERE seq = ?`, seq)
}

// List returns every stored run in sequence order.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.seq, r.label, r.created_at, r.frequency,
		       (SELECT COUNT(*) FROM series WHERE run_id = r.id), r.time
		FROM runs r ORDER BY r.seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum     Summary
			created string
			blob    []byte
		)
		if err := rows.Scan(&sum.ID, &sum.Seq, &sum.Label, &created, &sum.Frequency, &sum.Series, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if sum.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("run %s: bad timestamp: %w", sum.Label, err)
		}
		times, err := decodeSeries(blob)
		if err != nil {
			return nil, fmt.Errorf("run %s: time: %w", sum.Label, err)
		}
		sum.Samples = len(times)
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *Store) load(ctx context.Context, query string, args ...any) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find run: %w", err)
	}

	run := &Run{ID: id, Series: make(map[string][]float64)}
	var (
		created  string
		settings string
		timeBlob []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT seq, label, created_at, settings, time FROM runs WHERE id = ?`, id).
		Scan(&run.Seq, &run.Label, &created, &settings, &timeBlob)
	if err != nil {
		return nil, fmt.Errorf("failed to read run %s: %w", id, err)
	}
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("run %s: bad timestamp: %w", run.Label, err)
	}
	if err := json.Unmarshal([]byte(settings), &run.Settings); err != nil {
		return nil, fmt.Errorf("run %s: settings: %w", run.Label, err)
	}
	if run.Time, err = decodeSeries(timeBlob); err != nil {
		return nil, fmt.Errorf("run %s: time: %w", run.Label, err)
	}

	if err := s.loadSeries(ctx, run); err != nil {
		return nil, err
	}
	if err := s.loadProbes(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *Store) loadSeries(ctx context.Context, run *Run) error {
	rows, err := s.db.QueryContext(ctx, `SELECT name, data FROM series WHERE run_id = ?`, run.ID)
	if err != nil {
		return fmt.Errorf("failed to read series of %s: %w", run.Label, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			name string
			blob []byte
		)
		if err := rows.Scan(&name, &blob); err != nil {
			return fmt.Errorf("failed to scan series: %w", err)
		}
		values, err := decodeSeries(blob)
		if err != nil {
			return fmt.Errorf("run %s: series %q: %w", run.Label, name, err)
		}
		run.Series[name] = values
	}
	return rows.Err()
}

func (s *Store) loadProbes(ctx context.Context, run *Run) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT segment, port, sink, output FROM probes WHERE run_id = ? ORDER BY position`, run.ID)
	if err != nil {
		return fmt.Errorf("failed to read probes of %s: %w", run.Label, err)
	}
	defer rows.Close()
	for rows.Next() {
		var p debugtap.Probe
		if err := rows.Scan(&p.Segment, &p.Port, &p.Sink, &p.Output); err != nil {
			return fmt.Errorf("failed to scan probe: %w", err)
		}
		run.Probes = append(run.Probes, p)
	}
	return rows.Err()
}

// DebugDB rebuilds the per-segment debug database of a stored run.
func (r *Run) DebugDB() (debugtap.DB, error) {
	return debugtap.BuildDB(r.Probes, r.Series)
}
