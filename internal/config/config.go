package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

// EnvPrefix is the prefix for environment overrides, e.g. POSTGEN_LLM_PROVIDER.
const EnvPrefix = "POSTGEN"

type Config struct {
	LLM      LLM      `yaml:"llm"`
	Search   Search   `yaml:"search"`
	Fetch    Fetch    `yaml:"fetch"`
	Research Research `yaml:"research"`
	Output   Output   `yaml:"output"`
	Server   Server   `yaml:"server"`
	Logging  Logging  `yaml:"logging"`
}

type LLM struct {
	Provider             string  `yaml:"provider"`
	Model                string  `yaml:"model"`
	APIKeyEnv            string  `yaml:"api_key_env"`
	OpenAIModel          string  `yaml:"openai_model"`
	OpenAIAPIKeyEnv      string  `yaml:"openai_api_key_env"`
	OllamaURL            string  `yaml:"ollama_url"`
	OllamaModel          string  `yaml:"ollama_model"`
	PlanningTemperature  float64 `yaml:"planning_temperature"`
	SynthesisTemperature float64 `yaml:"synthesis_temperature"`
	MaxTokens            int     `yaml:"max_tokens"`
}

type Search struct {
	Backends      []string      `yaml:"backends"`
	FeedURL       string        `yaml:"feed_url"`
	NewsAPIKeyEnv string        `yaml:"newsapi_key_env"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    int           `yaml:"max_retries"`
	UserAgent     string        `yaml:"user_agent"`
}

type Fetch struct {
	Timeout     time.Duration `yaml:"timeout"`
	MaxChars    int           `yaml:"max_chars"`
	Concurrency int           `yaml:"concurrency"`
	UserAgent   string        `yaml:"user_agent"`
}

type Research struct {
	MaxCandidates    int `yaml:"max_candidates"`
	AngleCount       int `yaml:"angle_count"`
	TopicConcurrency int `yaml:"topic_concurrency"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ConfigDir returns the XDG config directory for postgen.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "postgen")
}

// DataDir returns the XDG data directory for postgen.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "postgen")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/postgen/config.yaml > ./config.yaml
// An empty path with a nil error means no file exists and defaults apply.
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", nil
}

// Load reads and parses a config YAML file. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, _ := parse(nil)
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		LLM: LLM{
			Provider:             "gemini",
			Model:                "gemini-3-flash-preview",
			APIKeyEnv:            "GOOGLE_API_KEY",
			OpenAIModel:          "gpt-4o-mini",
			OpenAIAPIKeyEnv:      "OPENAI_API_KEY",
			OllamaURL:            "http://localhost:11434",
			OllamaModel:          "llama3.1:8b",
			PlanningTemperature:  0.7,
			SynthesisTemperature: 0.5,
			MaxTokens:            8192,
		},
		Search: Search{
			Backends:      []string{"duckduckgo", "feed"},
			FeedURL:       "https://www.bing.com/search?format=rss&q={query}",
			NewsAPIKeyEnv: "NEWSAPI_KEY",
			Timeout:       30 * time.Second,
			MaxRetries:    2,
			UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		},
		Fetch: Fetch{
			Timeout:     15 * time.Second,
			MaxChars:    6000,
			Concurrency: 10,
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		},
		Research: Research{
			MaxCandidates:    10,
			AngleCount:       4,
			TopicConcurrency: 3,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "info", Format: "console"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides selected keys from POSTGEN_* environment variables,
// e.g. POSTGEN_LLM_PROVIDER=openai or POSTGEN_SEARCH_BACKENDS="feed newsapi".
func (c *Config) ApplyEnv() {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if s := v.GetString("llm.provider"); s != "" {
		c.LLM.Provider = s
	}
	if s := v.GetString("llm.model"); s != "" {
		c.LLM.Model = s
	}
	if backends := v.GetStringSlice("search.backends"); len(backends) > 0 {
		c.Search.Backends = backends
	}
	if p := v.GetInt("server.port"); p > 0 {
		c.Server.Port = p
	}
	if s := v.GetString("logging.level"); s != "" {
		c.Logging.Level = s
	}
	if s := v.GetString("output.data_dir"); s != "" {
		c.Output.DataDir = s
	}
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
