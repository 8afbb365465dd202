package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/TobiSchelling/PostGenerator/internal/content"
	"github.com/TobiSchelling/PostGenerator/internal/database"
	"github.com/TobiSchelling/PostGenerator/internal/pipeline"
)

type themeJSON struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Month       int    `json:"month"`
	Year        int    `json:"year"`
	Category    string `json:"category,omitempty"`
}

type postJSON struct {
	ID                int64               `json:"id"`
	ThemeID           int64               `json:"theme_id"`
	Title             string              `json:"title"`
	Type              content.ContentType `json:"type"`
	Status            database.PostStatus `json:"status"`
	Day               int                 `json:"day,omitempty"`
	LearningObjective string              `json:"learning_objective,omitempty"`
	Difficulty        content.Difficulty  `json:"difficulty,omitempty"`
	SearchQueries     []string            `json:"search_queries"`
	Sources           []string            `json:"sources"`
	Summary           string              `json:"summary,omitempty"`
	Hook              string              `json:"hook,omitempty"`
	Sections          []content.Section   `json:"sections,omitempty"`
	KeyTakeaways      []string            `json:"key_takeaways,omitempty"`
	CallToAction      string              `json:"call_to_action,omitempty"`
	Hashtags          []string            `json:"hashtags,omitempty"`
	Outcome           content.Outcome     `json:"outcome,omitempty"`
	Violations        []string            `json:"violations,omitempty"`
	CreatedAt         string              `json:"created_at,omitempty"`
}

func toThemeJSON(t content.Theme) themeJSON {
	return themeJSON{ID: t.ID, Title: t.Title, Description: t.Description, Month: t.Month, Year: t.Year, Category: t.Category}
}

func toPostJSON(p database.Post) postJSON {
	out := postJSON{
		ID: p.ID, ThemeID: p.ThemeID, Title: p.Title, Type: p.Type, Status: p.Status,
		Day: p.Day, LearningObjective: p.LearningObjective, Difficulty: p.Difficulty,
		SearchQueries: nonNil(p.SearchQueries), Sources: nonNil(p.Sources), Summary: p.Summary,
		Hook: p.Hook, Sections: p.Sections, KeyTakeaways: p.KeyTakeaways, CallToAction: p.CallToAction,
		Hashtags: p.Hashtags, Outcome: p.Outcome, Violations: p.Violations,
	}
	if p.CreatedAt != nil {
		out.CreatedAt = *p.CreatedAt
	}
	return out
}

func toPostsJSON(posts []database.Post) []postJSON {
	out := make([]postJSON, len(posts))
	for i, p := range posts {
		out[i] = toPostJSON(p)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleListThemes(w http.ResponseWriter, r *http.Request) {
	themes, err := s.db.GetAllThemes()
	if err != nil {
		s.internalError(w, err)
		return
	}
	out := make([]themeJSON, len(themes))
	for i, t := range themes {
		out[i] = toThemeJSON(t)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTheme(w http.ResponseWriter, r *http.Request) {
	var in themeJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	theme := content.Theme{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Month:       in.Month,
		Year:        in.Year,
		Category:    in.Category,
	}
	id, err := s.db.InsertTheme(theme)
	if err != nil {
		// Validation and duplicate months are client errors.
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	theme.ID = id
	writeJSON(w, http.StatusCreated, toThemeJSON(theme))
}

func (s *Server) handleThemeByDate(w http.ResponseWriter, r *http.Request) {
	year, err1 := strconv.Atoi(r.PathValue("year"))
	month, err2 := strconv.Atoi(r.PathValue("month"))
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "invalid year or month")
		return
	}
	theme, err := s.db.GetThemeByDate(year, month)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if theme == nil {
		writeError(w, http.StatusNotFound, "no theme found for "+strconv.Itoa(month)+"/"+strconv.Itoa(year))
		return
	}
	writeJSON(w, http.StatusOK, toThemeJSON(*theme))
}

func (s *Server) handleDeleteTheme(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.db.DeleteTheme(id); err != nil {
		s.useCaseError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePlanTheme(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok || !s.requireUseCases(w) {
		return
	}
	posts, err := s.uc.PlanTheme(r.Context(), id)
	if err != nil {
		s.useCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPostsJSON(posts))
}

func (s *Server) handleProposeAngles(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok || !s.requireUseCases(w) {
		return
	}
	posts, err := s.uc.ProposeAngles(r.Context(), id)
	if err != nil {
		s.useCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPostsJSON(posts))
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	post, err := s.db.GetPost(id)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if post == nil {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	writeJSON(w, http.StatusOK, toPostJSON(*post))
}

func (s *Server) handleResearchPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok || !s.requireUseCases(w) {
		return
	}
	post, err := s.uc.ResearchPost(r.Context(), id)
	if err != nil {
		s.useCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPostJSON(*post))
}

func (s *Server) requireUseCases(w http.ResponseWriter) bool {
	if s.uc == nil {
		writeError(w, http.StatusServiceUnavailable, "no LLM provider configured")
		return false
	}
	return true
}

func (s *Server) useCaseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrThemeNotFound), errors.Is(err, pipeline.ErrPostNotFound),
		errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, pipeline.ErrNoQueries):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.internalError(w, err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.log.Error("Request failed", "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ID format")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
