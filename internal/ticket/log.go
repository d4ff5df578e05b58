package ticket

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Log is the SQLite-backed ticket audit log.
type Log struct {
	db *sql.DB
}

// OpenLog opens (or creates) the audit database at the given path.
func OpenLog(dbPath string) (*Log, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening ticket database: %w", err)
	}

	// WAL keeps concurrent ticket inserts from blocking readers.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Log{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS tickets (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			number     TEXT NOT NULL,
			session_id TEXT NOT NULL,
			type       TEXT NOT NULL DEFAULT 'quality_inspection',
			issued_at  DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tickets_session_id
			ON tickets(session_id);
	`)
	return err
}

// Close closes the database connection.
func (l *Log) Close() error {
	return l.db.Close()
}

// Insert appends a ticket record and fills in its row ID.
func (l *Log) Insert(rec *Record) error {
	result, err := l.db.Exec(
		`INSERT INTO tickets (number, session_id, type, issued_at)
		 VALUES (?, ?, ?, ?)`,
		rec.Number, rec.SessionID, rec.Type, rec.IssuedAt,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = id
	return nil
}

// BySession returns all tickets issued for a session, oldest first.
func (l *Log) BySession(sessionID string) ([]*Record, error) {
	rows, err := l.db.Query(
		`SELECT id, number, session_id, type, issued_at
		 FROM tickets
		 WHERE session_id = ?
		 ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*Record
	for rows.Next() {
		r := &Record{}
		if err := rows.Scan(&r.ID, &r.Number, &r.SessionID, &r.Type, &r.IssuedAt); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}
