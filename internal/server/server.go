package server

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/TobiSchelling/PostGenerator/internal/database"
	"github.com/TobiSchelling/PostGenerator/internal/logger"
	"github.com/TobiSchelling/PostGenerator/internal/render"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// UseCases are the write operations exposed by the JSON API.
type UseCases interface {
	PlanTheme(ctx context.Context, themeID int64) ([]database.Post, error)
	ResearchPost(ctx context.Context, postID int64) (*database.Post, error)
	ProposeAngles(ctx context.Context, themeID int64) ([]database.Post, error)
}

// Server serves the read-only pages and the JSON API.
type Server struct {
	db    *database.DB
	uc    UseCases
	pages map[string]*template.Template
	mux   *http.ServeMux
	log   *logger.Logger
}

// New creates a new Server. uc may be nil, in which case the API endpoints
// that call the model answer 503.
func New(db *database.DB, uc UseCases, log *logger.Logger) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"monthName": func(m int) string {
			if m < 1 || m > 12 {
				return strconv.Itoa(m)
			}
			return monthNames[m-1]
		},
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// For each page template, clone the base and parse the page into the clone.
	// This gives each page its own {{define "content"}} and {{define "title"}}.
	pageNames := []string{"index.html", "theme.html", "post.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{db: db, uc: uc, pages: pages, mux: http.NewServeMux(), log: log}
	s.routes()
	return s, nil
}

var monthNames = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Pages
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /themes/{id}", s.handleTheme)
	s.mux.HandleFunc("GET /posts/{id}", s.handlePost)

	// API
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/themes", s.handleListThemes)
	s.mux.HandleFunc("POST /api/themes", s.handleCreateTheme)
	s.mux.HandleFunc("GET /api/themes/{year}/{month}", s.handleThemeByDate)
	s.mux.HandleFunc("DELETE /api/themes/{id}", s.handleDeleteTheme)
	s.mux.HandleFunc("POST /api/themes/{id}/plan", s.handlePlanTheme)
	s.mux.HandleFunc("POST /api/themes/{id}/research", s.handleProposeAngles)
	s.mux.HandleFunc("GET /api/posts/{id}", s.handleGetPost)
	s.mux.HandleFunc("POST /api/posts/{id}/research", s.handleResearchPost)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	themes, err := s.db.GetAllThemes()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	stats, _ := s.db.GetStats()

	s.render(w, "index.html", map[string]any{
		"Themes": themes,
		"Stats":  stats,
	})
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	theme, err := s.db.GetTheme(id)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if theme == nil {
		http.NotFound(w, r)
		return
	}
	posts, _ := s.db.GetPostsForTheme(id)

	s.render(w, "theme.html", map[string]any{
		"Theme": theme,
		"Posts": posts,
	})
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	post, err := s.db.GetPost(id)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if post == nil {
		http.NotFound(w, r)
		return
	}

	var body string
	var degraded bool
	if post.Status != database.StatusPlanned && post.Status != database.StatusProposed {
		doc := post.Document()
		body = render.Markdown(doc)
		degraded = doc.Degraded()
	}

	s.render(w, "post.html", map[string]any{
		"Post":     post,
		"Markdown": body,
		"Degraded": degraded,
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.log.Error("Template not found", "template", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		s.log.Error("Error rendering template", "template", name, "error", err)
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port and stops when ctx ends.
func Serve(ctx context.Context, db *database.DB, uc UseCases, port int, log *logger.Logger) error {
	srv, err := New(db, uc, log)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	httpSrv := &http.Server{Addr: addr, Handler: srv.Handler()}

	errc := make(chan error, 1)
	go func() {
		log.Info("Server listening", "url", "http://"+addr)
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return httpSrv.Shutdown(context.Background())
	}
}
