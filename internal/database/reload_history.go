package database

import (
	"context"
	"fmt"
	"time"
)

// Reload outcomes.
const (
	ReloadPublished = "published"
	ReloadAborted   = "aborted"
)

// ReloadRecord is one entry of the content reload history.
type ReloadRecord struct {
	ID          int64
	Version     uint64
	Fingerprint string
	Outcome     string
	Detail      string
	Monsters    int
	Traps       int
	Items       int
	Themes      int
	RecordedAt  time.Time
}

// RecordReload appends a reload outcome to the history.
func (d *Database) RecordReload(ctx context.Context, r ReloadRecord) error {
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now().UTC()
	}
	_, err := d.db.ExecContext(ctx, d.qb.Build(`
		INSERT INTO reload_history (version, fingerprint, outcome, detail, monsters, traps, items, themes, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), int64(r.Version), r.Fingerprint, r.Outcome, r.Detail, r.Monsters, r.Traps, r.Items, r.Themes, r.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to record reload: %w", err)
	}
	return nil
}

// RecentReloads returns up to limit history entries, newest first.
func (d *Database) RecentReloads(ctx context.Context, limit int) ([]ReloadRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := d.db.QueryContext(ctx, d.qb.Build(`
		SELECT id, version, fingerprint, outcome, detail, monsters, traps, items, themes, recorded_at
		FROM reload_history
		ORDER BY id DESC
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reload history: %w", err)
	}
	defer rows.Close()

	var records []ReloadRecord
	for rows.Next() {
		var r ReloadRecord
		var version int64
		if err := rows.Scan(&r.ID, &version, &r.Fingerprint, &r.Outcome, &r.Detail,
			&r.Monsters, &r.Traps, &r.Items, &r.Themes, &r.RecordedAt); err != nil {
			return nil, err
		}
		r.Version = uint64(version)
		records = append(records, r)
	}
	return records, rows.Err()
}
