// Package config loads view-bridge configuration from TOML with
// VIEWBRIDGE_* environment overrides.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/wippyai/view-bridge/dispatch"
	"github.com/wippyai/view-bridge/errors"
	"github.com/wippyai/view-bridge/view"
)

// Environment overrides.
const (
	EnvLogLevel         = "VIEWBRIDGE_LOG_LEVEL"
	EnvLogDevelopment   = "VIEWBRIDGE_LOG_DEVELOPMENT"
	EnvPanicPolicy      = "VIEWBRIDGE_PANIC_POLICY"
	EnvMaxNodes         = "VIEWBRIDGE_MAX_NODES"
	EnvAsyncNotify      = "VIEWBRIDGE_ASYNC_NOTIFY"
	EnvProducerModule   = "VIEWBRIDGE_PRODUCER_MODULE"
	EnvMemoryLimitPages = "VIEWBRIDGE_MEMORY_LIMIT_PAGES"
)

// Panic policies.
const (
	PanicReturn = "return"
	PanicAbort  = "abort"
)

// Config is the complete configuration.
type Config struct {
	Log      Log      `toml:"log"`
	Producer Producer `toml:"producer"`
	Boundary Boundary `toml:"boundary"`
}

// Log configures the zap logger.
type Log struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string `toml:"level"`
	// Output is a zap sink path. Empty writes to stderr.
	Output      string `toml:"output"`
	Development bool   `toml:"development"`
}

// Boundary configures call dispatch and resolution.
type Boundary struct {
	// PanicPolicy is "return" or "abort".
	PanicPolicy string `toml:"panic_policy"`
	// MaxNodes bounds one resolved view tree.
	MaxNodes int `toml:"max_nodes"`
	// AsyncNotify delivers in-process subscriber firings on a worker
	// goroutine.
	AsyncNotify bool `toml:"async_notify"`
}

// Producer selects the producer. An empty Module runs the built-in demo.
type Producer struct {
	Module           string `toml:"module"`
	MemoryLimitPages uint32 `toml:"memory_limit_pages"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:      Log{Level: "info"},
		Boundary: Boundary{PanicPolicy: PanicReturn, MaxNodes: view.DefaultMaxNodes},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		meta, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindMalformedData, err, "load "+path)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return Config{}, errors.InvalidInput(errors.PhaseConfig, "unknown keys in "+path+": "+strings.Join(keys, ", "))
		}
	}
	if err := ApplyEnv(&cfg, os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg from getenv. Unset and empty variables are
// skipped.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(getenv(EnvLogDevelopment)); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return envError(EnvLogDevelopment, err)
		}
		cfg.Log.Development = b
	}
	if v := strings.TrimSpace(getenv(EnvPanicPolicy)); v != "" {
		cfg.Boundary.PanicPolicy = strings.ToLower(v)
	}
	if v := strings.TrimSpace(getenv(EnvMaxNodes)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError(EnvMaxNodes, err)
		}
		cfg.Boundary.MaxNodes = n
	}
	if v := strings.TrimSpace(getenv(EnvAsyncNotify)); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return envError(EnvAsyncNotify, err)
		}
		cfg.Boundary.AsyncNotify = b
	}
	if v := strings.TrimSpace(getenv(EnvProducerModule)); v != "" {
		cfg.Producer.Module = v
	}
	if v := strings.TrimSpace(getenv(EnvMemoryLimitPages)); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return envError(EnvMemoryLimitPages, err)
		}
		cfg.Producer.MemoryLimitPages = uint32(n)
	}
	return nil
}

func envError(name string, err error) error {
	return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse "+name)
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log.level")
	}
	switch c.Boundary.PanicPolicy {
	case PanicReturn, PanicAbort:
	default:
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("boundary", "panic_policy").
			Value(c.Boundary.PanicPolicy).
			Detail("want %q or %q", PanicReturn, PanicAbort).
			Build()
	}
	if c.Boundary.MaxNodes < 1 {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("boundary", "max_nodes").
			Value(c.Boundary.MaxNodes).
			Detail("must be positive").
			Build()
	}
	return nil
}

// Policy maps the configured panic policy onto the dispatcher's.
func (b Boundary) Policy() dispatch.PanicPolicy {
	if b.PanicPolicy == PanicAbort {
		return dispatch.PanicAbort
	}
	return dispatch.PanicReturn
}

// Logger builds the configured logger.
func (c Config) Logger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log.level")
	}
	zc.Level = level
	if c.Log.Output != "" {
		zc.OutputPaths = []string{c.Log.Output}
	}
	return zc.Build()
}
