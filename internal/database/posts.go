package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/TobiSchelling/PostGenerator/internal/content"
)

const postColumns = `id, theme_id, title, type, status, day, learning_objective, difficulty,
	search_queries, sources, summary, hook, sections, key_takeaways, call_to_action, hashtags,
	outcome, violations, created_at, updated_at`

// SavePlannedTopics stores a curriculum as planned posts of a theme,
// replacing the theme's earlier planned posts. Returns the new post IDs in
// topic order.
func (db *DB) SavePlannedTopics(themeID int64, topics []content.DailyTopic) ([]int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM posts WHERE theme_id = ? AND status = ?", themeID, StatusPlanned); err != nil {
		return nil, fmt.Errorf("clearing planned posts: %w", err)
	}

	ids := make([]int64, 0, len(topics))
	for _, t := range topics {
		id, err := insertPost(tx, &Post{
			ThemeID:           themeID,
			Title:             t.Title,
			Type:              t.Type,
			Status:            StatusPlanned,
			Day:               t.Day,
			LearningObjective: t.LearningObjective,
			Difficulty:        t.Difficulty,
			SearchQueries:     t.SearchQueries,
		})
		if err != nil {
			return nil, fmt.Errorf("saving day %d: %w", t.Day, err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

// InsertPost stores a single post, e.g. a proposal from angle research.
func (db *DB) InsertPost(p *Post) (int64, error) {
	return insertPost(db.conn, p)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertPost(e execer, p *Post) (int64, error) {
	if p.Status == "" {
		p.Status = StatusPlanned
	}
	if p.Type == "" {
		p.Type = content.TypeArticle
	}

	queries, err := marshalList(p.SearchQueries)
	if err != nil {
		return 0, err
	}
	sources, err := marshalList(p.Sources)
	if err != nil {
		return 0, err
	}

	var day *int
	if p.Day > 0 {
		day = &p.Day
	}

	result, err := e.Exec(
		`INSERT INTO posts (theme_id, title, type, status, day, learning_objective, difficulty,
			search_queries, sources, summary, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ThemeID, p.Title, p.Type, p.Status, day, nullable(p.LearningObjective),
		nullable(string(p.Difficulty)), queries, sources, nullable(p.Summary), nullable(string(p.Outcome)),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetPost returns a post by ID, or nil if none exists.
func (db *DB) GetPost(postID int64) (*Post, error) {
	row := db.conn.QueryRow("SELECT "+postColumns+" FROM posts WHERE id = ?", postID)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetPostsForTheme returns a theme's posts ordered by day; undated
// proposals come last.
func (db *DB) GetPostsForTheme(themeID int64) ([]Post, error) {
	return db.queryPosts(
		"SELECT "+postColumns+" FROM posts WHERE theme_id = ? ORDER BY day IS NULL, day, id",
		themeID,
	)
}

// GetPostsByStatus returns a theme's posts in one status, ordered by day.
func (db *DB) GetPostsByStatus(themeID int64, status PostStatus) ([]Post, error) {
	return db.queryPosts(
		"SELECT "+postColumns+" FROM posts WHERE theme_id = ? AND status = ? ORDER BY day IS NULL, day, id",
		themeID, status,
	)
}

// GetPostTitles returns the titles of a theme's posts.
func (db *DB) GetPostTitles(themeID int64) ([]string, error) {
	rows, err := db.conn.Query("SELECT title FROM posts WHERE theme_id = ? ORDER BY id", themeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, err
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}

// ApplyResearch stores a research result on a post and marks it researched.
func (db *DB) ApplyResearch(postID int64, doc *content.Document) error {
	sources, err := marshalList(doc.Sources)
	if err != nil {
		return err
	}
	takeaways, err := marshalList(doc.KeyTakeaways)
	if err != nil {
		return err
	}
	hashtags, err := marshalList(doc.Hashtags)
	if err != nil {
		return err
	}
	violations, err := marshalList(doc.Violations)
	if err != nil {
		return err
	}
	sections, err := json.Marshal(doc.Sections)
	if err != nil {
		return fmt.Errorf("encoding sections: %w", err)
	}

	result, err := db.conn.Exec(
		`UPDATE posts SET status = ?, sources = ?, summary = ?, hook = ?, sections = ?,
			key_takeaways = ?, call_to_action = ?, hashtags = ?, outcome = ?, violations = ?,
			updated_at = datetime('now')
		WHERE id = ?`,
		StatusResearched, sources, nullable(doc.Summary), nullable(doc.Hook), string(sections),
		takeaways, nullable(doc.CallToAction), hashtags, nullable(string(doc.Outcome)), violations,
		postID,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// UpdatePostStatus moves a post to another editorial state.
func (db *DB) UpdatePostStatus(postID int64, status PostStatus) error {
	result, err := db.conn.Exec(
		"UPDATE posts SET status = ?, updated_at = datetime('now') WHERE id = ?", status, postID,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM themes", &s.Themes},
		{"SELECT COUNT(*) FROM posts", &s.Posts},
		{"SELECT COUNT(*) FROM posts WHERE status = 'planned'", &s.Planned},
		{"SELECT COUNT(*) FROM posts WHERE status = 'proposed'", &s.Proposed},
		{"SELECT COUNT(*) FROM posts WHERE status = 'researched'", &s.Researched},
		{"SELECT COUNT(*) FROM posts WHERE outcome IS NOT NULL AND outcome != 'synthesized'", &s.Degraded},
		{"SELECT COUNT(*) FROM posts WHERE violations IS NOT NULL AND violations != '[]'", &s.WithViolations},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (db *DB) queryPosts(query string, args ...any) ([]Post, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

func scanPost(s scanner) (*Post, error) {
	var p Post
	var day *int
	var objective, difficulty, queries, sources, summary, hook, sections *string
	var takeaways, cta, hashtags, outcome, violations *string

	if err := s.Scan(&p.ID, &p.ThemeID, &p.Title, &p.Type, &p.Status, &day, &objective, &difficulty,
		&queries, &sources, &summary, &hook, &sections, &takeaways, &cta, &hashtags,
		&outcome, &violations, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}

	if day != nil {
		p.Day = *day
	}
	p.LearningObjective = deref(objective)
	p.Difficulty, _ = content.ParseDifficulty(deref(difficulty))
	p.Summary = deref(summary)
	p.Hook = deref(hook)
	p.CallToAction = deref(cta)
	p.Outcome = content.Outcome(deref(outcome))

	for _, f := range []struct {
		raw  *string
		dest *[]string
	}{
		{queries, &p.SearchQueries},
		{sources, &p.Sources},
		{takeaways, &p.KeyTakeaways},
		{hashtags, &p.Hashtags},
		{violations, &p.Violations},
	} {
		if f.raw == nil {
			continue
		}
		if err := json.Unmarshal([]byte(*f.raw), f.dest); err != nil {
			*f.dest = nil
		}
	}
	if sections != nil {
		if err := json.Unmarshal([]byte(*sections), &p.Sections); err != nil {
			return nil, fmt.Errorf("decoding sections of post %d: %w", p.ID, err)
		}
	}

	return &p, nil
}

func marshalList(items []string) (*string, error) {
	if items == nil {
		return nil, nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}
