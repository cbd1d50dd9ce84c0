package store

import (
	"database/sql"
	"errors"
	"time"
)

// JobStatus represents the processing state of a job row.
type JobStatus string

const (
	// JobStatusQueued means the job row exists but processing has not begun.
	JobStatusQueued JobStatus = "queued"
	// JobStatusProcessing means frames are being consumed.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusCompleted means the source was exhausted successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusError means processing stopped on a failure.
	JobStatusError JobStatus = "error"
)

// Job represents a counting job stored in the database.
type Job struct {
	ID         string
	Source     string
	Status     JobStatus
	Message    string
	Progress   float64
	TotalEnter int
	TotalExit  int
	Occupancy  int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// JobRepository provides CRUD operations for jobs.
type JobRepository struct {
	db *sql.DB
}

// Jobs returns the job repository for this store.
func (s *Store) Jobs() *JobRepository {
	return &JobRepository{db: s.db}
}

// Create inserts a new job into the database.
func (r *JobRepository) Create(j *Job) error {
	now := time.Now()
	j.CreatedAt = now
	j.UpdatedAt = now
	if j.Status == "" {
		j.Status = JobStatusQueued
	}

	_, err := r.db.Exec(
		`INSERT INTO jobs (id, source, status, message, progress, total_enter, total_exit, occupancy, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.Source, string(j.Status), j.Message, j.Progress,
		j.TotalEnter, j.TotalExit, j.Occupancy, j.CreatedAt, j.UpdatedAt,
	)
	return err
}

// GetByID retrieves a job by its ID.
func (r *JobRepository) GetByID(id string) (*Job, error) {
	j := &Job{}
	var status string

	err := r.db.QueryRow(
		`SELECT id, source, status, message, progress, total_enter, total_exit, occupancy, created_at, updated_at
		 FROM jobs WHERE id = ?`,
		id,
	).Scan(&j.ID, &j.Source, &status, &j.Message, &j.Progress,
		&j.TotalEnter, &j.TotalExit, &j.Occupancy, &j.CreatedAt, &j.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	j.Status = JobStatus(status)
	return j, nil
}

// List returns all jobs ordered by creation time, newest first.
func (r *JobRepository) List() ([]*Job, error) {
	rows, err := r.db.Query(
		`SELECT id, source, status, message, progress, total_enter, total_exit, occupancy, created_at, updated_at
		 FROM jobs ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		j := &Job{}
		var status string
		if err := rows.Scan(&j.ID, &j.Source, &status, &j.Message, &j.Progress,
			&j.TotalEnter, &j.TotalExit, &j.Occupancy, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, err
		}
		j.Status = JobStatus(status)
		jobs = append(jobs, j)
	}

	return jobs, rows.Err()
}

// UpdateStatus sets the status and message of a job.
func (r *JobRepository) UpdateStatus(id string, status JobStatus, message string) error {
	result, err := r.db.Exec(
		`UPDATE jobs SET status = ?, message = ?, updated_at = ? WHERE id = ?`,
		string(status), message, time.Now(), id,
	)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// UpdateProgress records processing progress and the running totals.
func (r *JobRepository) UpdateProgress(id string, progress float64, totalEnter, totalExit, occupancy int) error {
	result, err := r.db.Exec(
		`UPDATE jobs SET progress = ?, total_enter = ?, total_exit = ?, occupancy = ?, updated_at = ?
		 WHERE id = ?`,
		progress, totalEnter, totalExit, occupancy, time.Now(), id,
	)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// Delete removes a job and, via cascade, its events.
func (r *JobRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// checkAffected converts a zero-row update into ErrNotFound.
func checkAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
