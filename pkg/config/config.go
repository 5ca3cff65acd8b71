// Package config resolves run settings from flags, PROCTOP_* environment
// variables, an optional YAML file and defaults, in that order of priority.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/srodi/proctop/pkg/types"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PROCTOP_"

const (
	DefaultInterval = time.Second
	MinInterval     = 100 * time.Millisecond
)

// ErrHelp is returned when -h or -help was requested.
var ErrHelp = flag.ErrHelp

// ValidationError reports one setting that is out of range.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %q: %s", e.Field, e.Message)
}

// Config holds every run setting.
type Config struct {
	Interval   time.Duration `yaml:"interval"`
	TopK       int           `yaml:"topk"`
	HideKernel bool          `yaml:"hide-kernel"`
	User       string        `yaml:"user"`
	LogLevel   string        `yaml:"log-level"`
	LogFile    string        `yaml:"log-file"`
	LogJSON    bool          `yaml:"log-json"`
	Textfile   string        `yaml:"textfile"`
	File       string        `yaml:"-"`

	// pinned names settings fixed by a flag or the environment; file reloads
	// leave them alone.
	pinned map[string]bool
}

// Display is the subset of settings that may change while running.
type Display struct {
	TopK       int
	HideKernel bool
	User       string
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Interval:   DefaultInterval,
		TopK:       types.DefaultTopK,
		HideKernel: true,
		LogLevel:   "info",
	}
}

// Display extracts the live-reloadable settings.
func (c Config) Display() Display {
	return Display{TopK: c.TopK, HideKernel: c.HideKernel, User: c.User}
}

// Parse resolves a Config from command-line args (without the program name).
// Help output and flag errors go to stderr.
func Parse(args []string, stderr io.Writer) (Config, error) {
	fs := flag.NewFlagSet("proctop", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var flags Config
	def := Default()
	fs.DurationVar(&flags.Interval, "interval", def.Interval, "sampling interval (e.g. 500ms, 2s)")
	fs.IntVar(&flags.TopK, "topk", def.TopK, "number of processes to display")
	fs.BoolVar(&flags.HideKernel, "hide-kernel", def.HideKernel, "hide kernel threads such as kworker, ksoftirqd, etc")
	fs.StringVar(&flags.User, "user", "", "only show processes owned by this user (case-insensitive)")
	fs.StringVar(&flags.LogLevel, "log-level", def.LogLevel, "log level: trace, debug, info, warn, error")
	fs.StringVar(&flags.LogFile, "log-file", "", "append logs to this file (logging is off when empty)")
	fs.BoolVar(&flags.LogJSON, "log-json", false, "write logs as JSON instead of console text")
	fs.StringVar(&flags.Textfile, "textfile", "", "write Prometheus metrics to this file every poll")
	fs.StringVar(&flags.File, "config", "", "YAML settings file, watched for topk/hide-kernel/user changes")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	path := flags.File
	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}

	cfg := def
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.File = path
	cfg.pinned = make(map[string]bool)

	applyEnvOverrides(&cfg, fs)
	applyFlagOverrides(&cfg, &flags, fs)
	cfg.User = strings.TrimSpace(cfg.User)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile reads a YAML settings file over the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.File = path
	return cfg, nil
}

// Reload rereads c.File, keeping every setting pinned by a flag or env var.
func (c Config) Reload() (Config, error) {
	if c.File == "" {
		return c, nil
	}
	next, err := LoadFile(c.File)
	if err != nil {
		return c, err
	}
	for name := range c.pinned {
		if f, ok := fieldsByName[name]; ok {
			f(&next, &c)
		}
	}
	next.pinned = c.pinned
	next.User = strings.TrimSpace(next.User)
	if err := next.Validate(); err != nil {
		return c, err
	}
	return next, nil
}

// Validate checks every setting and joins all failures.
func (c Config) Validate() error {
	var errs []error
	if c.Interval < MinInterval {
		errs = append(errs, &ValidationError{Field: "interval", Message: fmt.Sprintf("must be at least %v, got %v", MinInterval, c.Interval)})
	}
	if c.TopK < 1 {
		errs = append(errs, &ValidationError{Field: "topk", Message: fmt.Sprintf("must be at least 1, got %d", c.TopK)})
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil || c.LogLevel == "" {
		errs = append(errs, &ValidationError{Field: "log-level", Message: fmt.Sprintf("unknown level %q", c.LogLevel)})
	}
	return errors.Join(errs...)
}

// fieldsByName copies one setting from src to dst, keyed by flag name.
var fieldsByName = map[string]func(dst, src *Config){
	"interval":    func(dst, src *Config) { dst.Interval = src.Interval },
	"topk":        func(dst, src *Config) { dst.TopK = src.TopK },
	"hide-kernel": func(dst, src *Config) { dst.HideKernel = src.HideKernel },
	"user":        func(dst, src *Config) { dst.User = src.User },
	"log-level":   func(dst, src *Config) { dst.LogLevel = src.LogLevel },
	"log-file":    func(dst, src *Config) { dst.LogFile = src.LogFile },
	"log-json":    func(dst, src *Config) { dst.LogJSON = src.LogJSON },
	"textfile":    func(dst, src *Config) { dst.Textfile = src.Textfile },
}

func applyFlagOverrides(cfg, flags *Config, fs *flag.FlagSet) {
	fs.Visit(func(f *flag.Flag) {
		if apply, ok := fieldsByName[f.Name]; ok {
			apply(cfg, flags)
			cfg.pinned[f.Name] = true
		}
	})
}
