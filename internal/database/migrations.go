package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS themes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    description TEXT,
    month INTEGER NOT NULL CHECK(month BETWEEN 1 AND 12),
    year INTEGER NOT NULL,
    category TEXT,
    created_at TEXT DEFAULT (datetime('now')),
    UNIQUE (year, month)
);

CREATE TABLE IF NOT EXISTS posts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    theme_id INTEGER NOT NULL REFERENCES themes(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    type TEXT NOT NULL CHECK(type IN ('link', 'article', 'forum')),
    status TEXT NOT NULL DEFAULT 'planned'
        CHECK(status IN ('proposed', 'planned', 'researched', 'selected', 'inDraft', 'scheduled')),
    day INTEGER,
    learning_objective TEXT,
    difficulty TEXT,
    search_queries TEXT,
    sources TEXT,
    summary TEXT,
    hook TEXT,
    sections TEXT,
    key_takeaways TEXT,
    call_to_action TEXT,
    hashtags TEXT,
    created_at TEXT DEFAULT (datetime('now')),
    updated_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_posts_theme ON posts(theme_id);
CREATE INDEX IF NOT EXISTS idx_posts_status ON posts(status);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "research outcome and content violations",
		Up: func(tx *sql.Tx) error {
			for _, col := range []string{"outcome", "violations"} {
				exists, err := columnExists(tx, "posts", col)
				if err != nil {
					return err
				}
				if exists {
					continue
				}
				if _, err := tx.Exec("ALTER TABLE posts ADD COLUMN " + col + " TEXT"); err != nil {
					return err
				}
			}
			return nil
		},
	},
}

// columnExists keeps ALTER TABLE migrations re-runnable.
func columnExists(tx *sql.Tx, table, column string) (bool, error) {
	var count int
	err := tx.QueryRow(
		"SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, column,
	).Scan(&count)
	return count > 0, err
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
