package main

import (
	"database/sql"
	"fmt"
	"time"
)

// cycleRecord is one row of the sync_history reporting table. The table is
// write-only bookkeeping for operators; reconciliation never reads it, the
// mirror store stays the single source of sync state.
type cycleRecord struct {
	ID           int64
	StartedAt    time.Time
	FinishedAt   time.Time
	SourceEvents int
	MirrorEvents int
	Created      int
	Deleted      int
	Status       string
	Error        string
}

func recordCycle(db *sql.DB, rec cycleRecord) error {
	_, err := db.Exec(`INSERT INTO sync_history
		(started_at, finished_at, source_events, mirror_events, created, deleted, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.StartedAt.UTC().Format(time.RFC3339),
		rec.FinishedAt.UTC().Format(time.RFC3339),
		rec.SourceEvents, rec.MirrorEvents, rec.Created, rec.Deleted,
		rec.Status, rec.Error)
	return err
}

func recentCycles(db *sql.DB, limit int) ([]cycleRecord, error) {
	rows, err := db.Query(`SELECT id, started_at, finished_at, source_events,
		mirror_events, created, deleted, status, error
		FROM sync_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []cycleRecord
	for rows.Next() {
		var rec cycleRecord
		var startedAt, finishedAt string
		if err := rows.Scan(&rec.ID, &startedAt, &finishedAt, &rec.SourceEvents,
			&rec.MirrorEvents, &rec.Created, &rec.Deleted, &rec.Status, &rec.Error); err != nil {
			return nil, err
		}
		rec.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		rec.FinishedAt, _ = time.Parse(time.RFC3339, finishedAt)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func showHistory(db *sql.DB) error {
	recs, err := recentCycles(db, 20)
	if err != nil {
		return fmt.Errorf("reading sync history: %w", err)
	}
	if len(recs) == 0 {
		fmt.Println("📋 No sync cycles recorded yet")
		return nil
	}

	fmt.Println("📋 Recent sync cycles:")
	for _, rec := range recs {
		mark := "✅"
		if rec.Status != "ok" {
			mark = "❌"
		}
		fmt.Printf("  %s %s  %3d created, %3d deleted (%d source / %d mirror events) %s\n",
			mark,
			rec.StartedAt.Local().Format("2006-01-02 15:04:05"),
			rec.Created, rec.Deleted,
			rec.SourceEvents, rec.MirrorEvents,
			rec.Error)
	}
	return nil
}
