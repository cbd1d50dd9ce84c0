package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Jobs table - one row per counting job
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			status TEXT NOT NULL CHECK(status IN ('queued', 'processing', 'completed', 'error')),
			message TEXT NOT NULL DEFAULT '',
			progress REAL NOT NULL DEFAULT 0,
			total_enter INTEGER NOT NULL DEFAULT 0,
			total_exit INTEGER NOT NULL DEFAULT 0,
			occupancy INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Events table - the append-only crossing log produced by the counter
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			ts REAL NOT NULL,
			track_id INTEGER NOT NULL,
			direction TEXT NOT NULL CHECK(direction IN ('enter', 'exit')),
			total_enter INTEGER NOT NULL,
			total_exit INTEGER NOT NULL
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_events_job_id ON events(job_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
