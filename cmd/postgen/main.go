package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/PostGenerator/internal/config"
	"github.com/TobiSchelling/PostGenerator/internal/content"
	"github.com/TobiSchelling/PostGenerator/internal/database"
	"github.com/TobiSchelling/PostGenerator/internal/logger"
	"github.com/TobiSchelling/PostGenerator/internal/pipeline"
	"github.com/TobiSchelling/PostGenerator/internal/render"
	"github.com/TobiSchelling/PostGenerator/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	log        = logger.Nop()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	log.Sync()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "postgen",
	Short:   "Research-backed LinkedIn posts",
	Long:    "PostGenerator plans a month of topics per theme, researches each topic on the web and synthesizes structured posts.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg.ApplyEnv()

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		log, err = logger.New(level, cfg.Logging.Format)
		if err != nil {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(themeCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(researchCmd)
	rootCmd.AddCommand(anglesCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("postgen", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/postgen/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to choose the LLM provider, API key variables and search backends.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Println("Content:")
		fmt.Printf("  Themes: %d\n", stats.Themes)
		fmt.Printf("  Posts: %d\n", stats.Posts)
		fmt.Printf("  Planned: %d\n", stats.Planned)
		fmt.Printf("  Proposed: %d\n", stats.Proposed)
		fmt.Printf("  Researched: %d\n", stats.Researched)
		fmt.Println("\nResearch quality:")
		fmt.Printf("  Degraded runs: %d\n", stats.Degraded)
		fmt.Printf("  Posts with rule findings: %d\n", stats.WithViolations)
		fmt.Println("\nConfiguration:")
		fmt.Printf("  LLM provider: %s (%s)\n", cfg.LLM.Provider, cfg.LLM.Model)
		fmt.Printf("  Search backends: %s\n", strings.Join(cfg.Search.Backends, ", "))
		return nil
	},
}

// --- theme command ---

var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Manage monthly themes",
}

var (
	themeMonth       int
	themeYear        int
	themeDescription string
	themeCategory    string
)

var themeAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a theme for a month",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		now := time.Now()
		if themeMonth == 0 {
			themeMonth = int(now.Month())
		}
		if themeYear == 0 {
			themeYear = now.Year()
		}

		id, err := db.InsertTheme(content.Theme{
			Title:       args[0],
			Description: themeDescription,
			Month:       themeMonth,
			Year:        themeYear,
			Category:    themeCategory,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Added theme [%d]: %s (%d/%d)\n", id, args[0], themeMonth, themeYear)
		return nil
	},
}

var themeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all themes",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		themes, err := db.GetAllThemes()
		if err != nil {
			return err
		}
		if len(themes) == 0 {
			fmt.Println("No themes defined. Add one with: postgen theme add")
			return nil
		}

		fmt.Println("Themes:")
		fmt.Println()
		for _, t := range themes {
			posts, _ := db.GetPostsForTheme(t.ID)
			fmt.Printf("  [%d] %04d-%02d %s (%d posts)\n", t.ID, t.Year, t.Month, t.Title, len(posts))
			if t.Description != "" {
				desc := t.Description
				if len(desc) > 60 {
					desc = desc[:60] + "..."
				}
				fmt.Printf("        %s\n", desc)
			}
		}
		return nil
	},
}

var themeRemoveCmd = &cobra.Command{
	Use:   "remove [theme]",
	Short: "Remove a theme and its posts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		theme, err := resolveTheme(db, args[0])
		if err != nil {
			return err
		}
		if err := db.DeleteTheme(theme.ID); err != nil {
			return err
		}
		fmt.Printf("Removed theme [%d]: %s\n", theme.ID, theme.Title)
		return nil
	},
}

func init() {
	themeAddCmd.Flags().IntVar(&themeMonth, "month", 0, "Month (1-12), defaults to the current month")
	themeAddCmd.Flags().IntVar(&themeYear, "year", 0, "Year, defaults to the current year")
	themeAddCmd.Flags().StringVarP(&themeDescription, "description", "d", "", "Theme description")
	themeAddCmd.Flags().StringVar(&themeCategory, "category", "", "Theme category")

	themeCmd.AddCommand(themeAddCmd)
	themeCmd.AddCommand(themeListCmd)
	themeCmd.AddCommand(themeRemoveCmd)
}

// --- plan command ---

var planCmd = &cobra.Command{
	Use:   "plan [theme]",
	Short: "Plan one topic per day of the theme's month",
	Long:  "Plan one topic per day of the theme's month. The theme is an ID or YYYY-MM. Replaces earlier planned posts.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd.Context(), func(db *database.DB, pipe *pipeline.Pipeline) error {
			theme, err := resolveTheme(db, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Planning %s (%d/%d)...\n", theme.Title, theme.Month, theme.Year)
			posts, err := pipe.PlanTheme(cmd.Context(), theme.ID)
			if err != nil {
				return err
			}

			for _, p := range posts {
				fmt.Printf("  [%d] Day %2d  %-12s %s\n", p.ID, p.Day, p.Difficulty, p.Title)
			}
			fmt.Printf("\nPlanned %d posts. Run 'postgen research --theme %d' to research them.\n", len(posts), theme.ID)
			return nil
		})
	},
}

// --- research command ---

var researchTheme string

var researchCmd = &cobra.Command{
	Use:   "research [post-id]",
	Short: "Research a planned post, or every planned post of a theme",
	Args: func(cmd *cobra.Command, args []string) error {
		if researchTheme == "" && len(args) != 1 {
			return errors.New("give a post ID or --theme")
		}
		return cobra.MaximumNArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd.Context(), func(db *database.DB, pipe *pipeline.Pipeline) error {
			if researchTheme != "" {
				theme, err := resolveTheme(db, researchTheme)
				if err != nil {
					return err
				}
				results, err := pipe.ResearchPlanned(cmd.Context(), theme.ID)
				if err != nil {
					return err
				}
				if len(results) == 0 {
					fmt.Println("No planned posts. Run 'postgen plan' first.")
					return nil
				}
				for _, r := range results {
					printResult(r)
				}
				return nil
			}

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid post ID: %s", args[0])
			}
			post, err := pipe.ResearchPost(cmd.Context(), id)
			if err != nil {
				return err
			}
			printResult(pipeline.PostResult{PostID: post.ID, Day: post.Day, Title: post.Title, Document: post.Document()})
			return nil
		})
	},
}

func init() {
	researchCmd.Flags().StringVarP(&researchTheme, "theme", "t", "", "Research all planned posts of this theme (ID or YYYY-MM)")
}

func printResult(r pipeline.PostResult) {
	if r.Err != nil {
		fmt.Printf("  [%d] Day %2d  %s\n        Error: %v\n", r.PostID, r.Day, r.Title, r.Err)
		return
	}
	doc := r.Document
	mark := ""
	if doc.Degraded() {
		mark = " (degraded)"
	}
	fmt.Printf("  [%d] Day %2d  %s: %s%s, %d sources\n", r.PostID, r.Day, r.Title, doc.Outcome, mark, len(doc.Sources))
	for _, v := range doc.Violations {
		fmt.Printf("        - %s\n", v)
	}
}

// --- angles command ---

var anglesCmd = &cobra.Command{
	Use:   "angles [theme]",
	Short: "Propose new posts for a theme from research angles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd.Context(), func(db *database.DB, pipe *pipeline.Pipeline) error {
			theme, err := resolveTheme(db, args[0])
			if err != nil {
				return err
			}
			posts, err := pipe.ProposeAngles(cmd.Context(), theme.ID)
			if err != nil {
				return err
			}
			for _, p := range posts {
				fmt.Printf("  [%d] %-8s %s\n", p.ID, p.Type, p.Title)
				for _, s := range p.Sources {
					fmt.Printf("        %s\n", s)
				}
			}
			fmt.Printf("\nProposed %d posts.\n", len(posts))
			return nil
		})
	},
}

// --- export command ---

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export [theme]",
	Short: "Export a theme's researched posts as Markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		theme, err := resolveTheme(db, args[0])
		if err != nil {
			return err
		}
		posts, err := db.GetPostsByStatus(theme.ID, database.StatusResearched)
		if err != nil {
			return err
		}

		entries := make([]render.Entry, len(posts))
		for i := range posts {
			entries[i] = render.Entry{Day: posts[i].Day, Document: posts[i].Document()}
		}
		md := render.ThemeMarkdown(*theme, entries)

		if exportOut == "" || exportOut == "-" {
			fmt.Print(md)
			return nil
		}
		if err := os.WriteFile(exportOut, []byte(md), 0o644); err != nil {
			return fmt.Errorf("writing export: %w", err)
		}
		fmt.Printf("Exported %d posts to %s\n", len(posts), exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "Output file (default stdout)")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		var uc server.UseCases
		if c, err := pipeline.Build(cmd.Context(), cfg, log); err != nil {
			log.Warn("Research endpoints disabled", "error", err)
		} else {
			uc = pipeline.New(db, c, cfg.Research.TopicConcurrency, log)
		}

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(cmd.Context(), db, uc, port, log)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "postgen.db")
	return database.Open(dbPath, log)
}

func withPipeline(ctx context.Context, fn func(*database.DB, *pipeline.Pipeline) error) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	c, err := pipeline.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	return fn(db, pipeline.New(db, c, cfg.Research.TopicConcurrency, log))
}

// resolveTheme accepts a theme ID or a YYYY-MM month.
func resolveTheme(db *database.DB, ref string) (*content.Theme, error) {
	var theme *content.Theme
	var err error
	if t, perr := time.Parse("2006-01", ref); perr == nil {
		theme, err = db.GetThemeByDate(t.Year(), int(t.Month()))
	} else {
		id, perr := strconv.ParseInt(ref, 10, 64)
		if perr != nil {
			return nil, fmt.Errorf("invalid theme %q: use an ID or YYYY-MM", ref)
		}
		theme, err = db.GetTheme(id)
	}
	if err != nil {
		return nil, err
	}
	if theme == nil {
		return nil, fmt.Errorf("theme %s not found", ref)
	}
	return theme, nil
}
