package watcher

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// IntentLog is the durable record spec §4.8 requires for crash
// safety: each scheduled re-ingestion is written before work starts
// and marked complete after the write path (C5/C6) finishes, so a
// restart can replay anything left pending.
type IntentLog struct {
	db *sql.DB
}

// OpenIntentLog opens (creating if absent) the sqlite-backed intent
// log at path.
func OpenIntentLog(path string) (*IntentLog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open intent log: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create intent log schema: %w", err)
	}
	return &IntentLog{db: db}, nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS intents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project TEXT NOT NULL,
	path TEXT NOT NULL,
	scheduled_at TIMESTAMP NOT NULL,
	completed_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_intents_pending ON intents(completed_at) WHERE completed_at IS NULL;
`

// Close releases the underlying database handle.
func (l *IntentLog) Close() error {
	return l.db.Close()
}

// Schedule records that project/path is about to be re-ingested,
// returning the intent id used to mark it complete.
func (l *IntentLog) Schedule(project, path string) (int64, error) {
	res, err := l.db.Exec(`INSERT INTO intents (project, path, scheduled_at) VALUES (?, ?, ?)`,
		project, path, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("schedule intent: %w", err)
	}
	return res.LastInsertId()
}

// Complete marks an intent as finished.
func (l *IntentLog) Complete(id int64) error {
	_, err := l.db.Exec(`UPDATE intents SET completed_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("complete intent: %w", err)
	}
	return nil
}

// PendingIntent is a replayable entry left incomplete by a crash.
type PendingIntent struct {
	ID      int64
	Project string
	Path    string
}

// Pending returns every intent scheduled but never completed, in
// scheduling order, for replay at startup.
func (l *IntentLog) Pending() ([]PendingIntent, error) {
	rows, err := l.db.Query(`SELECT id, project, path FROM intents WHERE completed_at IS NULL ORDER BY scheduled_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query pending intents: %w", err)
	}
	defer rows.Close()

	var out []PendingIntent
	for rows.Next() {
		var p PendingIntent
		if err := rows.Scan(&p.ID, &p.Project, &p.Path); err != nil {
			return nil, fmt.Errorf("scan pending intent: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
