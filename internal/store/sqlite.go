package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"vitalsched/internal/schedule"
	logx "vitalsched/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

const (
	dateFormat = "2006-01-02"
	tsFormat   = time.RFC3339
)

// DB is the SQLite persistence layer. It is not safe for concurrent use by
// itself; the Service worker serializes access to it.
type DB struct {
	db  *sql.DB
	log logx.Logger
}

// Open opens (creating if needed) the database at cfg.Path and applies
// migrations. ":memory:" is accepted for tests.
func Open(cfg Config, log logx.Logger) (*DB, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")
	_, _ = db.Exec("PRAGMA foreign_keys = ON")

	d := &DB{db: db, log: log}
	if err := d.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = d.db.ExecContext(ctx, string(b))
	return err
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *DB) Subjects(ctx context.Context) ([]Subject, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id, name FROM subjects ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Subject
	for rows.Next() {
		var s Subject
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (d *DB) PutSubject(ctx context.Context, s Subject) error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("subject id is required")
	}
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO subjects(id, name) VALUES(?,?)
		 ON CONFLICT(id) DO UPDATE SET name=excluded.name`,
		s.ID, s.Name,
	)
	return err
}

const entryColumns = `subject_id, seq_nbr, metric, note, frequency, weekdays,
	month_days, interval, at_time, starts_on, ends_on, suspended, last_triggered`

func (d *DB) Entries(ctx context.Context, subjectID string) ([]schedule.Entry, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM schedule_entries
		 WHERE subject_id = ? ORDER BY seq_nbr`, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (d *DB) Entry(ctx context.Context, key schedule.Key) (schedule.Entry, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM schedule_entries
		 WHERE subject_id = ? AND seq_nbr = ?`, key.SubjectID, key.SeqNbr)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return schedule.Entry{}, ErrNotFound
	}
	return e, err
}

// PutEntry inserts or updates an entry. A zero SeqNbr means create; the
// subject's next sequence number is assigned and returned on the entry.
// Sequence assignment and insert run in one transaction so concurrent
// creates for the same subject cannot collide.
func (d *DB) PutEntry(ctx context.Context, e schedule.Entry) (schedule.Entry, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return schedule.Entry{}, err
	}
	defer tx.Rollback()

	if e.SeqNbr == 0 {
		var next int
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq_nbr), 0) + 1 FROM schedule_entries WHERE subject_id = ?`,
			e.SubjectID).Scan(&next)
		if err != nil {
			return schedule.Entry{}, err
		}
		e.SeqNbr = next
	}
	if err := e.Validate(); err != nil {
		return schedule.Entry{}, err
	}

	var lastTriggered any
	if e.LastTriggered != nil {
		lastTriggered = e.LastTriggered.Format(tsFormat)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO schedule_entries(`+entryColumns+`)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)
		 ON CONFLICT(subject_id, seq_nbr) DO UPDATE SET
		   metric=excluded.metric, note=excluded.note, frequency=excluded.frequency,
		   weekdays=excluded.weekdays, month_days=excluded.month_days,
		   interval=excluded.interval, at_time=excluded.at_time,
		   starts_on=excluded.starts_on, ends_on=excluded.ends_on,
		   suspended=excluded.suspended, last_triggered=excluded.last_triggered`,
		e.SubjectID, e.SeqNbr, e.Metric.Name(), e.Note, e.Frequency.String(),
		schedule.FormatWeekDaySet(e.Weekdays), schedule.FormatMonthDaySet(e.MonthDays),
		e.Interval, e.At.String(),
		schedule.DateOf(e.StartsOn).Format(dateFormat), schedule.DateOf(e.EndsOn).Format(dateFormat),
		e.Suspended, lastTriggered,
	)
	if err != nil {
		return schedule.Entry{}, err
	}
	return e, tx.Commit()
}

func (d *DB) UpdateLastTriggered(ctx context.Context, key schedule.Key, at time.Time) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE schedule_entries SET last_triggered = ? WHERE subject_id = ? AND seq_nbr = ?`,
		at.Format(tsFormat), key.SubjectID, key.SeqNbr)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEntries removes one entry, or all of a subject's entries when seqNbr
// is AllEntries, and returns the entries that remain.
func (d *DB) DeleteEntries(ctx context.Context, subjectID string, seqNbr int) ([]schedule.Entry, error) {
	var err error
	if seqNbr == AllEntries {
		_, err = d.db.ExecContext(ctx,
			`DELETE FROM schedule_entries WHERE subject_id = ?`, subjectID)
	} else {
		_, err = d.db.ExecContext(ctx,
			`DELETE FROM schedule_entries WHERE subject_id = ? AND seq_nbr = ?`, subjectID, seqNbr)
	}
	if err != nil {
		return nil, err
	}
	return d.Entries(ctx, subjectID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (schedule.Entry, error) {
	var (
		e                        schedule.Entry
		metric, freq             string
		weekdays, monthDays      string
		atTime, startsOn, endsOn string
		lastTriggered            sql.NullString
	)
	err := row.Scan(&e.SubjectID, &e.SeqNbr, &metric, &e.Note, &freq,
		&weekdays, &monthDays, &e.Interval, &atTime, &startsOn, &endsOn,
		&e.Suspended, &lastTriggered)
	if err != nil {
		return schedule.Entry{}, err
	}
	if e.Metric, err = schedule.ParseMetricKind(metric); err != nil {
		return schedule.Entry{}, err
	}
	if e.Frequency, err = schedule.ParseFrequency(freq); err != nil {
		return schedule.Entry{}, err
	}
	if e.Weekdays, err = schedule.ParseWeekDaySet(weekdays); err != nil {
		return schedule.Entry{}, err
	}
	if e.MonthDays, err = schedule.ParseMonthDaySet(monthDays); err != nil {
		return schedule.Entry{}, err
	}
	if e.At, err = schedule.ParseTimeOfDay(atTime); err != nil {
		return schedule.Entry{}, err
	}
	if e.StartsOn, err = time.ParseInLocation(dateFormat, startsOn, time.Local); err != nil {
		return schedule.Entry{}, err
	}
	if e.EndsOn, err = time.ParseInLocation(dateFormat, endsOn, time.Local); err != nil {
		return schedule.Entry{}, err
	}
	if lastTriggered.Valid {
		lt, err := time.Parse(tsFormat, lastTriggered.String)
		if err != nil {
			return schedule.Entry{}, err
		}
		e.LastTriggered = &lt
	}
	return e, nil
}
