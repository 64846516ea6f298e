package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lawnchairsociety/dungeonforge/internal/session"
)

// LoadGuildSession returns the stored session, or nil if the guild has none.
func (d *Database) LoadGuildSession(ctx context.Context, guildID string) (*session.GuildSession, error) {
	row := d.db.QueryRowContext(ctx, d.qb.Build(`
		SELECT theme, dungeons, last_run, runs, updated_at
		FROM guild_sessions
		WHERE guild_id = ?
	`), guildID)

	g := session.New(guildID)
	var dungeons, lastRun []byte
	err := row.Scan(&g.Theme, &dungeons, &lastRun, &g.Runs, &g.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load guild session: %w", err)
	}

	if len(dungeons) > 0 {
		if err := json.Unmarshal(dungeons, &g.Dungeons); err != nil {
			return nil, fmt.Errorf("failed to decode dungeons of guild %s: %w", guildID, err)
		}
		if g.Dungeons == nil {
			g.Dungeons = make(map[string]session.StoredDungeon)
		}
	}
	if len(lastRun) > 0 {
		var run session.RunSummary
		if err := json.Unmarshal(lastRun, &run); err != nil {
			return nil, fmt.Errorf("failed to decode last run of guild %s: %w", guildID, err)
		}
		g.LastRun = &run
	}
	return &g, nil
}

// SaveGuildSession inserts or replaces the stored session.
func (d *Database) SaveGuildSession(ctx context.Context, g *session.GuildSession) error {
	dungeons := g.Dungeons
	if dungeons == nil {
		dungeons = map[string]session.StoredDungeon{}
	}
	dungeonsJSON, err := json.Marshal(dungeons)
	if err != nil {
		return fmt.Errorf("failed to encode dungeons: %w", err)
	}

	var lastRun any
	if g.LastRun != nil {
		data, err := json.Marshal(g.LastRun)
		if err != nil {
			return fmt.Errorf("failed to encode last run: %w", err)
		}
		lastRun = string(data)
	}

	updatedAt := g.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err = d.db.ExecContext(ctx, d.qb.Build(`
		INSERT INTO guild_sessions (guild_id, theme, dungeons, last_run, runs, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (guild_id) DO UPDATE SET
			theme = excluded.theme,
			dungeons = excluded.dungeons,
			last_run = excluded.last_run,
			runs = excluded.runs,
			updated_at = excluded.updated_at
	`), g.GuildID, g.Theme, string(dungeonsJSON), lastRun, g.Runs, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to save guild session: %w", err)
	}
	return nil
}

// DeleteGuildSession removes the stored session. Deleting a missing guild is not an error.
func (d *Database) DeleteGuildSession(ctx context.Context, guildID string) error {
	if _, err := d.db.ExecContext(ctx, d.qb.Build(`DELETE FROM guild_sessions WHERE guild_id = ?`), guildID); err != nil {
		return fmt.Errorf("failed to delete guild session: %w", err)
	}
	return nil
}

// ListGuildSessions returns the ids of every stored guild, sorted.
func (d *Database) ListGuildSessions(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT guild_id FROM guild_sessions ORDER BY guild_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list guild sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GuildsUsingTheme returns the guilds whose preferred theme is themeID.
func (d *Database) GuildsUsingTheme(ctx context.Context, themeID string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, d.qb.Build(`SELECT guild_id FROM guild_sessions WHERE theme = ? ORDER BY guild_id`), themeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query guilds by theme: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
