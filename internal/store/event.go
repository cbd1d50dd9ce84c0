package store

import (
	"database/sql"

	"github.com/ayusman/turnstile/internal/counter"
)

// EventRepository provides append and query operations for crossing events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Append inserts crossing events for a job. The event log is append-only;
// rows are never updated.
func (r *EventRepository) Append(jobID string, events []counter.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO events (job_id, ts, track_id, direction, total_enter, total_exit)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.Exec(jobID, e.Timestamp, e.TrackID, string(e.Direction), e.TotalEnter, e.TotalExit); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// ListByJob returns a job's events in the order they were counted.
func (r *EventRepository) ListByJob(jobID string) ([]counter.Event, error) {
	rows, err := r.db.Query(
		`SELECT ts, track_id, direction, total_enter, total_exit
		 FROM events WHERE job_id = ? ORDER BY id`,
		jobID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []counter.Event
	for rows.Next() {
		var e counter.Event
		var direction string
		if err := rows.Scan(&e.Timestamp, &e.TrackID, &direction, &e.TotalEnter, &e.TotalExit); err != nil {
			return nil, err
		}
		e.Direction = counter.Direction(direction)
		events = append(events, e)
	}

	return events, rows.Err()
}
