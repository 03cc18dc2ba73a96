// Package config loads the crash diagnostics settings from the environment
// (prefix CSTACK_) and, optionally, from a configuration file.
package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// ModuleName is the environment prefix: option "watchdog" is read from
// CSTACK_WATCHDOG.
const ModuleName = "cstack"

// Option keys, as used in a configuration file and, upper-cased after the
// prefix, in the environment.
const (
	OptionDebug           = "debug"
	OptionLogLevel        = "log_level"
	OptionWatchdog        = "watchdog"
	OptionLineTool        = "line_tool"
	OptionLineToolTimeout = "line_tool_timeout"
	OptionSymbolCache     = "symbol_cache"
	OptionLogicalDepth    = "logical_depth"
)

// Defaults applied when an option is not set.
const (
	DefaultOptionDebug           = false
	DefaultOptionLogLevel        = "warn"
	DefaultOptionWatchdog        = 10 * time.Second
	DefaultOptionLineTool        = ""
	DefaultOptionLineToolTimeout = 2 * time.Second
	DefaultOptionSymbolCache     = 4096
	DefaultOptionLogicalDepth    = 25
)

// Config holds the settings shared by the trace recorder, the symbol
// resolver and the crash handler.
type Config struct {
	// Debug raises LogLevel to "debug" when it is left at its default.
	Debug bool
	// LogLevel is a logrus level name.
	LogLevel string

	// Watchdog bounds the time the crash handler may spend reporting
	// before the process is aborted.
	Watchdog time.Duration

	// LineTool overrides the external line-number resolver command. It is
	// split into words; "{module}" and "{offset}" are substituted. Empty
	// selects the platform default.
	LineTool string
	// LineToolTimeout bounds one run of the line tool.
	LineToolTimeout time.Duration

	// SymbolCache is the number of resolved addresses kept in memory.
	SymbolCache int

	// LogicalDepth limits the goroutine groups printed in a crash report.
	LogicalDepth int
}

// NewConfig reads the configuration from the environment.
func NewConfig() (*Config, error) {
	return load(viper.New(), "")
}

// NewConfigFromFile reads the configuration from the named file, with
// environment variables taking precedence.
func NewConfigFromFile(path string) (*Config, error) {
	return load(viper.New(), path)
}

func load(v *viper.Viper, path string) (*Config, error) {
	v.SetEnvPrefix(ModuleName)
	v.AutomaticEnv()

	v.SetDefault(OptionDebug, DefaultOptionDebug)
	v.SetDefault(OptionLogLevel, DefaultOptionLogLevel)
	v.SetDefault(OptionWatchdog, DefaultOptionWatchdog)
	v.SetDefault(OptionLineTool, DefaultOptionLineTool)
	v.SetDefault(OptionLineToolTimeout, DefaultOptionLineToolTimeout)
	v.SetDefault(OptionSymbolCache, DefaultOptionSymbolCache)
	v.SetDefault(OptionLogicalDepth, DefaultOptionLogicalDepth)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", path)
		}
	}

	config := &Config{
		Debug:           v.GetBool(OptionDebug),
		LogLevel:        v.GetString(OptionLogLevel),
		Watchdog:        v.GetDuration(OptionWatchdog),
		LineTool:        v.GetString(OptionLineTool),
		LineToolTimeout: v.GetDuration(OptionLineToolTimeout),
		SymbolCache:     v.GetInt(OptionSymbolCache),
		LogicalDepth:    v.GetInt(OptionLogicalDepth),
	}
	if config.Debug && config.LogLevel == DefaultOptionLogLevel {
		config.LogLevel = "debug"
	}
	if config.Watchdog <= 0 {
		return nil, errors.Errorf("%s must be positive, got %v", OptionWatchdog, config.Watchdog)
	}
	if config.SymbolCache <= 0 {
		config.SymbolCache = DefaultOptionSymbolCache
	}

	return config, nil
}
