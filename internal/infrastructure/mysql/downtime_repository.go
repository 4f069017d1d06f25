package mysql

import (
	"context"
	"database/sql"

	"tavern-bot/internal/domain"
)

type MySQLDowntimeRepository struct {
	db *sql.DB
}

func NewMySQLDowntimeRepository(db *sql.DB) *MySQLDowntimeRepository {
	return &MySQLDowntimeRepository{db: db}
}

func (r *MySQLDowntimeRepository) AppendEntry(ctx context.Context, entry *domain.DowntimeEntry) error {
	query := `
        INSERT INTO downtime_entries (id, guild_id, user_id, character_name, days, activity, recorded_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.GuildID, entry.UserID, entry.Character,
		entry.Days, entry.Activity, entry.RecordedAt)
	return err
}

func (r *MySQLDowntimeRepository) Balance(ctx context.Context, guildID, userID, character string) (int, error) {
	query := `
        SELECT COALESCE(SUM(days), 0)
        FROM downtime_entries
        WHERE guild_id = ? AND user_id = ? AND character_name = ?
    `

	var balance int
	err := r.db.QueryRowContext(ctx, query, guildID, userID, character).Scan(&balance)
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *MySQLDowntimeRepository) History(ctx context.Context, guildID, userID, character string) ([]*domain.DowntimeEntry, error) {
	query := `
        SELECT id, guild_id, user_id, character_name, days, activity, recorded_at
        FROM downtime_entries
        WHERE guild_id = ? AND user_id = ? AND character_name = ?
        ORDER BY recorded_at ASC
    `

	rows, err := r.db.QueryContext(ctx, query, guildID, userID, character)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.DowntimeEntry
	for rows.Next() {
		var entry domain.DowntimeEntry
		err := rows.Scan(&entry.ID, &entry.GuildID, &entry.UserID, &entry.Character,
			&entry.Days, &entry.Activity, &entry.RecordedAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// EnsureSchema creates the tables the repositories expect. Safe to call on
// every startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS priced_items (
            item_key     VARCHAR(128) PRIMARY KEY,
            category     VARCHAR(64)  NOT NULL DEFAULT '',
            average_cost BIGINT       NOT NULL DEFAULT 0,
            low_cost     BIGINT       NOT NULL DEFAULT 0,
            high_cost    BIGINT       NOT NULL DEFAULT 0,
            restricted   BOOLEAN      NOT NULL DEFAULT FALSE
        )`,
		`CREATE TABLE IF NOT EXISTS downtime_entries (
            id             VARCHAR(64)  PRIMARY KEY,
            guild_id       VARCHAR(64)  NOT NULL,
            user_id        VARCHAR(64)  NOT NULL,
            character_name VARCHAR(128) NOT NULL,
            days           INT          NOT NULL,
            activity       VARCHAR(255) NOT NULL DEFAULT '',
            recorded_at    DATETIME     NOT NULL,
            INDEX idx_downtime_owner (guild_id, user_id, character_name)
        )`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
