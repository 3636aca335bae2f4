package config

import (
	"bytes"
	_ "embed"
	encjson "encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/PurpleBooth/git-moves-together/pkg/analyzer/coupling"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Configuration errors. Each is reported before any history is read.
var (
	ErrInvalidGrouping   = errors.New("invalid grouping")
	ErrInvalidTimeWindow = errors.New("invalid time window")
	ErrInvalidMaxDays    = errors.New("invalid max days ago")
	ErrInvalidFormat     = errors.New("invalid output format")
	ErrInvalidTop        = errors.New("invalid top")
	ErrSchema            = errors.New("config does not match schema")
)

// Grouping names accepted by analysis.grouping.
const (
	GroupingIdentity   = "identity"
	GroupingTimeWindow = "time-window"
)

// Upper bounds keeping the derived durations inside time.Duration.
const (
	MaxTimeWindowMinutes = math.MaxInt64 / int64(time.Minute)
	MaxAgeDays           = math.MaxInt64 / int64(24*time.Hour)
)

// Formats lists the accepted output.format values.
var Formats = []string{"text", "json", "markdown", "md", "toon", "yaml", "yml", "html"}

// Config holds all configuration options for git-moves-together.
type Config struct {
	// Analysis settings
	Analysis AnalysisConfig `koanf:"analysis" toml:"analysis"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`

	Log LogConfig `koanf:"log" toml:"log"`

	// Watch mode settings
	Watch WatchConfig `koanf:"watch" toml:"watch"`
}

// AnalysisConfig controls how history is grouped and filtered.
type AnalysisConfig struct {
	Grouping          string `koanf:"grouping" toml:"grouping"`
	TimeWindowMinutes int    `koanf:"time_window_minutes" toml:"time_window_minutes"`
	MaxDaysAgo        *int   `koanf:"max_days_ago" toml:"max_days_ago,omitempty"` // nil reads all history
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format string `koanf:"format" toml:"format"` // text, json, markdown, toon, yaml, html
	Color  bool   `koanf:"color" toml:"color"`
	Top    int    `koanf:"top" toml:"top"` // 0 shows every pair
}

// LogConfig controls diagnostic logging on stderr.
type LogConfig struct {
	Level string `koanf:"level" toml:"level"`
}

// WatchConfig controls --watch.
type WatchConfig struct {
	DebounceMs int `koanf:"debounce_ms" toml:"debounce_ms"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Grouping: GroupingIdentity,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
		Log: LogConfig{
			Level: "warn",
		},
		Watch: WatchConfig{
			DebounceMs: 500,
		},
	}
}

//go:embed config.schema.json
var schemaJSON []byte

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("config.schema.json", doc); err != nil {
		return nil, err
	}
	return c.Compile("config.schema.json")
})

// Load loads configuration from a file, checks it against the schema and
// validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	// Determine parser based on extension
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}

	if err := checkSchema(k.Raw()); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// checkSchema validates a parsed document. Values go through JSON first so
// every parser's number types look the same to the validator.
func checkSchema(raw map[string]any) error {
	schema, err := compileSchema()
	if err != nil {
		return err
	}
	data, err := encjson.Marshal(raw)
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return err
	}
	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}

// ConfigNames are the file names LoadOrDefault looks for, in order.
var ConfigNames = []string{
	"git-moves-together.toml",
	"git-moves-together.yaml",
	"git-moves-together.yml",
	"git-moves-together.json",
	".git-moves-together.toml",
	".git-moves-together.yaml",
	".git-moves-together.yml",
	".git-moves-together.json",
}

// LoadOrDefault loads the first config found in the current directory or
// .git-moves-together/, or returns defaults when there is none. A config
// that exists but is invalid is an error.
func LoadOrDefault() (*Config, error) {
	searchDirs := []string{".", ".git-moves-together"}

	for _, dir := range searchDirs {
		for _, name := range ConfigNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return Load(path)
			}
		}
	}

	return DefaultConfig(), nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Analysis.Grouping {
	case GroupingIdentity:
		if c.Analysis.TimeWindowMinutes < 0 {
			return fmt.Errorf("%w: %d minutes", ErrInvalidTimeWindow, c.Analysis.TimeWindowMinutes)
		}
	case GroupingTimeWindow:
		if c.Analysis.TimeWindowMinutes <= 0 {
			return fmt.Errorf("%w: %d minutes, must be positive", ErrInvalidTimeWindow, c.Analysis.TimeWindowMinutes)
		}
	default:
		return fmt.Errorf("%w: %q, want %q or %q", ErrInvalidGrouping, c.Analysis.Grouping, GroupingIdentity, GroupingTimeWindow)
	}
	if int64(c.Analysis.TimeWindowMinutes) > MaxTimeWindowMinutes {
		return fmt.Errorf("%w: %d minutes, must be at most %d", ErrInvalidTimeWindow, c.Analysis.TimeWindowMinutes, MaxTimeWindowMinutes)
	}

	if days := c.Analysis.MaxDaysAgo; days != nil {
		if *days < 0 {
			return fmt.Errorf("%w: %d, must not be negative", ErrInvalidMaxDays, *days)
		}
		if int64(*days) > MaxAgeDays {
			return fmt.Errorf("%w: %d, must be at most %d", ErrInvalidMaxDays, *days, MaxAgeDays)
		}
	}

	if !isFormat(c.Output.Format) {
		return fmt.Errorf("%w: %q, want one of %s", ErrInvalidFormat, c.Output.Format, strings.Join(Formats, ", "))
	}

	if c.Output.Top < 0 {
		return fmt.Errorf("%w: %d, must not be negative", ErrInvalidTop, c.Output.Top)
	}
	return nil
}

func isFormat(s string) bool {
	for _, f := range Formats {
		if strings.EqualFold(s, f) {
			return true
		}
	}
	return false
}

// Strategy returns the grouping strategy the analysis settings describe.
func (c *Config) Strategy() (coupling.Strategy, error) {
	if c.Analysis.Grouping != GroupingTimeWindow {
		return coupling.ByIdentity(), nil
	}
	s, err := coupling.ByTimeWindow(time.Duration(c.Analysis.TimeWindowMinutes) * time.Minute)
	if err != nil {
		return coupling.Strategy{}, fmt.Errorf("%w: %v", ErrInvalidTimeWindow, err)
	}
	return s, nil
}

// MaxAge returns the age filter window. ok is false when no limit is set,
// in which case all history is read.
func (c *Config) MaxAge() (maxAge time.Duration, ok bool) {
	if c.Analysis.MaxDaysAgo == nil {
		return 0, false
	}
	return time.Duration(*c.Analysis.MaxDaysAgo) * 24 * time.Hour, true
}

// Days returns a pointer to n, for setting MaxDaysAgo.
func Days(n int) *int {
	return &n
}

// Debounce returns the watch debounce interval.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMs) * time.Millisecond
}
