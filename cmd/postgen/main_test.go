package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/PostGenerator/internal/content"
	"github.com/TobiSchelling/PostGenerator/internal/database"
	"github.com/TobiSchelling/PostGenerator/internal/logger"
)

func TestResolveTheme(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	id, err := db.InsertTheme(content.Theme{Title: "RAG", Month: 3, Year: 2026})
	require.NoError(t, err)

	byID, err := resolveTheme(db, "1")
	require.NoError(t, err)
	assert.Equal(t, id, byID.ID)

	byMonth, err := resolveTheme(db, "2026-03")
	require.NoError(t, err)
	assert.Equal(t, id, byMonth.ID)

	_, err = resolveTheme(db, "2026-04")
	assert.ErrorContains(t, err, "not found")

	_, err = resolveTheme(db, "march")
	assert.ErrorContains(t, err, "invalid theme")
}
