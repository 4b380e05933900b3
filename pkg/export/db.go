// Package export writes simulation reports to a SQLite database.
package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/sherine-k/parksim/pkg/simulation"
)

// DB wraps a SQLite connection holding one or more runs.
type DB struct {
	conn   *sqlx.DB
	logger *slog.Logger
}

// Run is one row of the runs table.
type Run struct {
	ID          string    `db:"id"`
	Park        string    `db:"park"`
	Seed        int64     `db:"seed"`
	Ticks       int       `db:"ticks"`
	TickMinutes float64   `db:"tick_minutes"`
	Agents      int       `db:"agents"`
	Rides       int       `db:"rides"`
	AvgWait     float64   `db:"avg_wait"`
	SavedAt     time.Time `db:"saved_at"`
}

// AttractionRow is one row of the attraction_stats table.
type AttractionRow struct {
	RunID           string  `db:"run_id"`
	Name            string  `db:"name"`
	StandbyRiders   int     `db:"standby_riders"`
	ExpeditedRiders int     `db:"expedited_riders"`
	AvgWait         float64 `db:"avg_wait"`
	P50Wait         float64 `db:"p50_wait"`
	P90Wait         float64 `db:"p90_wait"`
	P95Wait         float64 `db:"p95_wait"`
	MaxWait         float64 `db:"max_wait"`
	PassesIssued    int     `db:"passes_issued"`
	PassesRedeemed  int     `db:"passes_redeemed"`
	PassesExpired   int     `db:"passes_expired"`
	PassesReturned  int     `db:"passes_returned"`
	PassesDenied    int     `db:"passes_denied"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string, logger *slog.Logger) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn, logger: logger}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		park TEXT NOT NULL,
		seed INTEGER NOT NULL,
		ticks INTEGER NOT NULL,
		tick_minutes REAL NOT NULL,
		agents INTEGER NOT NULL,
		rides INTEGER NOT NULL,
		avg_wait REAL NOT NULL,
		saved_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS attraction_stats (
		run_id TEXT NOT NULL REFERENCES runs(id),
		name TEXT NOT NULL,
		standby_riders INTEGER NOT NULL,
		expedited_riders INTEGER NOT NULL,
		avg_wait REAL NOT NULL,
		p50_wait REAL NOT NULL,
		p90_wait REAL NOT NULL,
		p95_wait REAL NOT NULL,
		max_wait REAL NOT NULL,
		passes_issued INTEGER NOT NULL,
		passes_redeemed INTEGER NOT NULL,
		passes_expired INTEGER NOT NULL,
		passes_returned INTEGER NOT NULL,
		passes_denied INTEGER NOT NULL,
		PRIMARY KEY (run_id, name)
	);

	CREATE TABLE IF NOT EXISTS agent_stats (
		run_id TEXT NOT NULL REFERENCES runs(id),
		id INTEGER NOT NULL,
		archetype TEXT NOT NULL,
		age_class TEXT NOT NULL,
		arrival INTEGER NOT NULL,
		departure INTEGER NOT NULL,
		rides INTEGER NOT NULL,
		activities INTEGER NOT NULL,
		wait_minutes REAL NOT NULL,
		doing_minutes REAL NOT NULL,
		passes_obtained INTEGER NOT NULL,
		satisfaction REAL NOT NULL,
		attractions_json TEXT NOT NULL,
		PRIMARY KEY (run_id, id)
	);

	CREATE TABLE IF NOT EXISTS time_points (
		run_id TEXT NOT NULL REFERENCES runs(id),
		tick INTEGER NOT NULL,
		active INTEGER NOT NULL,
		departed INTEGER NOT NULL,
		queues_json TEXT NOT NULL,
		PRIMARY KEY (run_id, tick)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		tick INTEGER NOT NULL,
		type TEXT NOT NULL,
		agent_id INTEGER NOT NULL,
		location TEXT NOT NULL,
		message TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_run_tick ON events(run_id, tick);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveReport writes a whole report in one transaction.
func (db *DB) SaveReport(r *simulation.Report) error {
	db.logger.Info("saving report", "run", r.RunID, "agents", len(r.Agents), "events", len(r.Events))

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs
		(id, park, seed, ticks, tick_minutes, agents, rides, avg_wait, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Park, r.Seed, r.Ticks, r.TickMinutes,
		r.Totals.Agents, r.Totals.Rides, r.Totals.AvgWaitMinutes, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	if err := saveAttractions(tx, r); err != nil {
		return fmt.Errorf("save attractions: %w", err)
	}
	if err := saveAgents(tx, r); err != nil {
		return fmt.Errorf("save agents: %w", err)
	}
	if err := saveTimePoints(tx, r); err != nil {
		return fmt.Errorf("save time points: %w", err)
	}
	if err := saveEvents(tx, r); err != nil {
		return fmt.Errorf("save events: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	db.logger.Info("report saved", "run", r.RunID)
	return nil
}

func saveAttractions(tx *sqlx.Tx, r *simulation.Report) error {
	stmt, err := tx.Preparex(`INSERT INTO attraction_stats
		(run_id, name, standby_riders, expedited_riders, avg_wait, p50_wait, p90_wait, p95_wait, max_wait,
		 passes_issued, passes_redeemed, passes_expired, passes_returned, passes_denied)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range r.Attractions {
		_, err := stmt.Exec(r.RunID, a.Name, a.StandbyRiders, a.ExpeditedRiders,
			a.AvgWait, a.P50Wait, a.P90Wait, a.P95Wait, a.MaxWait,
			a.Passes.Issued, a.Passes.Redeemed, a.Passes.Expired, a.Passes.Returned, a.Passes.Denied)
		if err != nil {
			return err
		}
	}
	return nil
}

func saveAgents(tx *sqlx.Tx, r *simulation.Report) error {
	stmt, err := tx.Preparex(`INSERT INTO agent_stats
		(run_id, id, archetype, age_class, arrival, departure, rides, activities,
		 wait_minutes, doing_minutes, passes_obtained, satisfaction, attractions_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range r.Agents {
		attractions, err := json.Marshal(a.Attractions)
		if err != nil {
			return fmt.Errorf("agent %d attractions: %w", a.ID, err)
		}
		_, err = stmt.Exec(r.RunID, a.ID, a.Archetype, a.AgeClass, a.Arrival, a.Departure,
			a.Rides, a.Activities, a.WaitMinutes, a.DoingMinutes, a.PassesObtained, a.Satisfaction,
			string(attractions))
		if err != nil {
			return err
		}
	}
	return nil
}

func saveTimePoints(tx *sqlx.Tx, r *simulation.Report) error {
	stmt, err := tx.Preparex(`INSERT INTO time_points
		(run_id, tick, active, departed, queues_json) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, tp := range r.TimePoints {
		queues, err := json.Marshal(tp.Queues)
		if err != nil {
			return fmt.Errorf("time point %d queues: %w", tp.Tick, err)
		}
		if _, err := stmt.Exec(r.RunID, tp.Tick, tp.Active, tp.Departed, string(queues)); err != nil {
			return err
		}
	}
	return nil
}

func saveEvents(tx *sqlx.Tx, r *simulation.Report) error {
	stmt, err := tx.Preparex(`INSERT INTO events
		(run_id, tick, type, agent_id, location, message) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range r.Events {
		if _, err := stmt.Exec(r.RunID, e.Tick, string(e.Type), e.AgentID, e.Location, e.Message); err != nil {
			return err
		}
	}
	return nil
}

// Runs lists saved runs, newest first.
func (db *DB) Runs() ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs,
		"SELECT id, park, seed, ticks, tick_minutes, agents, rides, avg_wait, saved_at FROM runs ORDER BY saved_at DESC")
	return runs, err
}

// Attractions returns the attraction rows of one run.
func (db *DB) Attractions(runID string) ([]AttractionRow, error) {
	var rows []AttractionRow
	err := db.conn.Select(&rows, `SELECT run_id, name, standby_riders, expedited_riders,
		avg_wait, p50_wait, p90_wait, p95_wait, max_wait,
		passes_issued, passes_redeemed, passes_expired, passes_returned, passes_denied
		FROM attraction_stats WHERE run_id = ? ORDER BY name`, runID)
	return rows, err
}

// EventCount returns how many events of a type a run logged.
func (db *DB) EventCount(runID string, typ simulation.EventType) (int, error) {
	var n int
	err := db.conn.Get(&n, "SELECT COUNT(*) FROM events WHERE run_id = ? AND type = ?", runID, string(typ))
	return n, err
}
