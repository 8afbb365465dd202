package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/TobiSchelling/PostGenerator/internal/content"
)

// ErrThemeExists is returned when a theme already occupies a month.
var ErrThemeExists = errors.New("theme already exists for that month")

const themeColumns = "id, title, description, month, year, category"

// InsertTheme creates a theme. (Month, Year) must be free.
func (db *DB) InsertTheme(t content.Theme) (int64, error) {
	if err := content.ValidateMonth(t.Month, t.Year); err != nil {
		return 0, err
	}
	if strings.TrimSpace(t.Title) == "" {
		return 0, errors.New("theme title is empty")
	}

	result, err := db.conn.Exec(
		`INSERT INTO themes (title, description, month, year, category) VALUES (?, ?, ?, ?, ?)`,
		t.Title, nullable(t.Description), t.Month, t.Year, nullable(t.Category),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%d/%d: %w", t.Month, t.Year, ErrThemeExists)
		}
		return 0, err
	}
	return result.LastInsertId()
}

// GetAllThemes returns all themes ordered by year and month.
func (db *DB) GetAllThemes() ([]content.Theme, error) {
	rows, err := db.conn.Query("SELECT " + themeColumns + " FROM themes ORDER BY year, month")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var themes []content.Theme
	for rows.Next() {
		t, err := scanTheme(rows)
		if err != nil {
			return nil, err
		}
		themes = append(themes, *t)
	}
	return themes, rows.Err()
}

// GetTheme returns a theme by ID, or nil if none exists.
func (db *DB) GetTheme(themeID int64) (*content.Theme, error) {
	row := db.conn.QueryRow("SELECT "+themeColumns+" FROM themes WHERE id = ?", themeID)
	return optionalTheme(scanTheme(row))
}

// GetThemeByDate returns the theme for month/year, or nil if none exists.
func (db *DB) GetThemeByDate(year, month int) (*content.Theme, error) {
	row := db.conn.QueryRow("SELECT "+themeColumns+" FROM themes WHERE year = ? AND month = ?", year, month)
	return optionalTheme(scanTheme(row))
}

// UpdateTheme updates specified fields of a theme.
func (db *DB) UpdateTheme(themeID int64, u ThemeUpdate) error {
	var updates []string
	var args []any

	if u.Title != nil {
		updates = append(updates, "title = ?")
		args = append(args, *u.Title)
	}
	if u.Description != nil {
		updates = append(updates, "description = ?")
		args = append(args, *u.Description)
	}
	if u.Category != nil {
		updates = append(updates, "category = ?")
		args = append(args, *u.Category)
	}
	if u.Month != nil {
		updates = append(updates, "month = ?")
		args = append(args, *u.Month)
	}
	if u.Year != nil {
		updates = append(updates, "year = ?")
		args = append(args, *u.Year)
	}
	if len(updates) == 0 {
		return nil
	}
	args = append(args, themeID)

	query := fmt.Sprintf("UPDATE themes SET %s WHERE id = ?", strings.Join(updates, ", "))
	result, err := db.conn.Exec(query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrThemeExists
		}
		return err
	}
	return requireRow(result)
}

// DeleteTheme removes a theme and its posts.
func (db *DB) DeleteTheme(themeID int64) error {
	result, err := db.conn.Exec("DELETE FROM themes WHERE id = ?", themeID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTheme(s scanner) (*content.Theme, error) {
	var t content.Theme
	var desc, category *string
	if err := s.Scan(&t.ID, &t.Title, &desc, &t.Month, &t.Year, &category); err != nil {
		return nil, err
	}
	t.Description = deref(desc)
	t.Category = deref(category)
	return &t, nil
}

func optionalTheme(t *content.Theme, err error) (*content.Theme, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
