// Package config loads runtime settings from defaults, an optional config file,
// a .env file and the process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultPath is read when present; an explicit path must exist.
const DefaultPath = "content_machine.yaml"

// Config holds everything the entry points need.
type Config struct {
	LLM        LLMConfig    `mapstructure:"llm"`
	Search     SearchConfig `mapstructure:"search"`
	OutputDir  string       `mapstructure:"output_dir"`
	ServerAddr string       `mapstructure:"server_addr"`
	Log        LogConfig    `mapstructure:"log"`
	Defaults   RunDefaults  `mapstructure:"defaults"`
}

// LLMConfig selects the OpenAI-compatible chat endpoint.
type LLMConfig struct {
	Provider string        `mapstructure:"provider"`
	Model    string        `mapstructure:"model"`
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// SearchConfig selects the web search backend for the researcher.
type SearchConfig struct {
	Provider string `mapstructure:"provider"`
	APIKey   string `mapstructure:"api_key"`
	Results  int    `mapstructure:"results"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RunDefaults seeds CLI flags and the interactive forms.
type RunDefaults struct {
	Language     string `mapstructure:"language"`
	WordCountMin int    `mapstructure:"word_count_min"`
	WordCountMax int    `mapstructure:"word_count_max"`
	NumSources   int    `mapstructure:"num_sources"`
	UseSearch    bool   `mapstructure:"use_search"`
}

// Error reports a setting that prevents any run from starting.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

var envBindings = map[string][]string{
	"llm.provider":    {"LLM_PROVIDER"},
	"llm.model":       {"OPENAI_MODEL_NAME", "MODEL_NAME"},
	"llm.api_key":     {"OPENAI_API_KEY"},
	"llm.base_url":    {"OPENAI_BASE_URL", "OPENAI_API_BASE"},
	"llm.timeout":     {"LLM_TIMEOUT"},
	"search.provider": {"SEARCH_PROVIDER"},
	"output_dir":      {"OUTPUT_DIR"},
	"server_addr":     {"SERVER_ADDR"},
	"log.level":       {"LOG_LEVEL"},
	"log.format":      {"LOG_FORMAT"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.timeout", 5*time.Minute)
	v.SetDefault("search.provider", "serper")
	v.SetDefault("search.results", 5)
	v.SetDefault("output_dir", "output")
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	d := BuiltinDefaults()
	v.SetDefault("defaults.language", d.Language)
	v.SetDefault("defaults.word_count_min", d.WordCountMin)
	v.SetDefault("defaults.word_count_max", d.WordCountMax)
	v.SetDefault("defaults.num_sources", d.NumSources)
	v.SetDefault("defaults.use_search", d.UseSearch)
}

// BuiltinDefaults are the run defaults used when no config overrides them.
func BuiltinDefaults() RunDefaults {
	return RunDefaults{
		Language:     "Russian",
		WordCountMin: 800,
		WordCountMax: 1200,
		NumSources:   5,
		UseSearch:    true,
	}
}

// Load reads path (or DefaultPath when path is empty and the file exists),
// then .env, then the environment. It does not validate credentials; call
// Validate before starting a run.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return Config{}, fmt.Errorf("config: bind %s: %w", key, err)
		}
	}

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if explicit || !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: stat %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	cfg.normalize()
	cfg.applySearchKey()
	return cfg, nil
}

func (c *Config) normalize() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	c.Search.Provider = strings.ToLower(strings.TrimSpace(c.Search.Provider))
	c.OutputDir = strings.TrimSpace(c.OutputDir)
	if c.OutputDir == "" {
		c.OutputDir = "output"
	}
	if c.Search.Results <= 0 {
		c.Search.Results = 5
	}
}

// applySearchKey picks the credential matching the chosen provider when the
// config file did not set one.
func (c *Config) applySearchKey() {
	if c.Search.APIKey != "" {
		return
	}
	switch c.Search.Provider {
	case "tavily":
		c.Search.APIKey = os.Getenv("TAVILY_API_KEY")
	default:
		c.Search.APIKey = os.Getenv("SERPER_API_KEY")
	}
}

// Validate returns a *Error when no run can start.
func (c Config) Validate() error {
	switch c.LLM.Provider {
	case "mock":
		return nil
	case "openai":
	case "deepseek":
		if c.LLM.BaseURL == "" {
			return &Error{Field: "llm.base_url", Message: "provider deepseek requires base_url (OpenAI-compatible endpoint)"}
		}
	default:
		return &Error{Field: "llm.provider", Message: fmt.Sprintf("provider %q not supported", c.LLM.Provider)}
	}
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return &Error{Field: "llm.api_key", Message: "missing OPENAI_API_KEY; set it in .env or the config file"}
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return &Error{Field: "llm.model", Message: "model is required"}
	}
	switch c.Search.Provider {
	case "serper", "tavily":
	default:
		return &Error{Field: "search.provider", Message: fmt.Sprintf("provider %q not supported", c.Search.Provider)}
	}
	return nil
}

// Warnings lists non-fatal problems worth showing before a run.
func (c Config) Warnings(useSearch bool) []string {
	var out []string
	if useSearch && strings.TrimSpace(c.Search.APIKey) == "" {
		key := "SERPER_API_KEY"
		if c.Search.Provider == "tavily" {
			key = "TAVILY_API_KEY"
		}
		out = append(out, key+" not found. Search might fail.")
	}
	return out
}
