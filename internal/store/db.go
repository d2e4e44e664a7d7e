package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/christopherklint97/slotlog/internal/slot"
	_ "modernc.org/sqlite"
)

// DB keeps the weekly table in SQLite.
type DB struct {
	*sql.DB
}

// OpenDB opens (creating if needed) the SQLite table at path.
func OpenDB(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	store := &DB{db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS weeks (
			week_start TEXT PRIMARY KEY,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS slots (
			week_start TEXT NOT NULL REFERENCES weeks(week_start),
			day INTEGER NOT NULL,
			slot INTEGER NOT NULL,
			day_serial INTEGER NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			updated_at DATETIME,
			PRIMARY KEY (week_start, day, slot)
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	return nil
}

func (db *DB) Put(ctx context.Context, date time.Time, index int, label string) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	weekStart := slot.WeekStart(date)
	key := weekStart.Format("2006-01-02")

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := ensureWeek(ctx, tx, weekStart); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE slots SET label = ?, updated_at = ? WHERE week_start = ? AND day = ? AND slot = ?",
		label, time.Now().UTC().Format(time.RFC3339), key, int(date.Weekday()), index,
	); err != nil {
		return fmt.Errorf("updating slot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing slot: %w", err)
	}
	return nil
}

// ensureWeek creates the week's 7x48 grid the first time it is written to.
func ensureWeek(ctx context.Context, tx *sql.Tx, weekStart time.Time) error {
	key := weekStart.Format("2006-01-02")
	res, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO weeks (week_start) VALUES (?)", key)
	if err != nil {
		return fmt.Errorf("creating week: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO slots (week_start, day, slot, day_serial) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing week rows: %w", err)
	}
	defer stmt.Close()

	for d := 0; d < slot.DaysPerWeek; d++ {
		serial := DateSerial(weekStart.AddDate(0, 0, d))
		for i := 0; i < slot.PerDay; i++ {
			if _, err := stmt.ExecContext(ctx, key, d, i, serial); err != nil {
				return fmt.Errorf("inserting week row: %w", err)
			}
		}
	}
	return nil
}

func (db *DB) Week(ctx context.Context, weekStart time.Time) (*Week, error) {
	weekStart = slot.WeekStart(weekStart)
	rows, err := db.QueryContext(ctx,
		"SELECT day, slot, label FROM slots WHERE week_start = ? ORDER BY day, slot",
		weekStart.Format("2006-01-02"),
	)
	if err != nil {
		return nil, fmt.Errorf("querying week: %w", err)
	}
	defer rows.Close()

	w := &Week{Start: weekStart}
	for rows.Next() {
		var day, index int
		var label string
		if err := rows.Scan(&day, &index, &label); err != nil {
			return nil, fmt.Errorf("scanning slot: %w", err)
		}
		if day < 0 || day >= slot.DaysPerWeek || checkIndex(index) != nil {
			continue
		}
		w.Labels[day][index] = label
	}
	return w, rows.Err()
}
