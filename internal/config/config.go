// Package config loads tfbind settings from an optional config file and
// TFBIND_* environment variables.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/bagtoad/tfbind/internal/nativelib"
)

// Engines accepted by the engine key.
const (
	EngineNative      = "native"
	EngineOnnxRuntime = "onnxruntime"
)

// Log config struct
type Log struct {
	Level  string
	Format string
}

// Config holds the resolved settings.
type Config struct {
	// Home is the per-user application directory holding the metadata
	// file and the default config file.
	Home string
	// ResourcesDir, when set, replaces the embedded bundle with a directory.
	ResourcesDir string
	// TempDir is the parent of fresh extraction directories.
	TempDir     string
	Engine      string
	Version     string
	OpLibraries []string
	Log         *Log
	Viper       *viper.Viper
}

func setDefaults(v *viper.Viper, home string) {
	v.SetDefault("home", home)
	v.SetDefault("engine", EngineNative)
	v.SetDefault("version", nativelib.DefaultVersion)
	v.SetDefault("libraries.ops", []string{"ops"})
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"resources": "resources.dir",
	"engine":    "engine",
	"log-level": "log.level",
	"temp-dir":  "temp_dir",
}

// Load reads configuration. path selects a config file explicitly;
// otherwise config.{yaml,json,toml} in the application directory is used
// when present. Flags named in flagKeys override file and environment
// values when set; flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	home, err := nativelib.AppDir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, home)
	v.SetEnvPrefix("TFBIND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("cannot bind flag %s: %w", name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(v.GetString("home"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	cfg := &Config{
		Home:         v.GetString("home"),
		ResourcesDir: v.GetString("resources.dir"),
		TempDir:      v.GetString("temp_dir"),
		Engine:       strings.ToLower(v.GetString("engine")),
		Version:      v.GetString("version"),
		OpLibraries:  v.GetStringSlice("libraries.ops"),
		Log:          getLogConfig(v),
		Viper:        v,
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getLogConfig(v *viper.Viper) *Log {
	return &Log{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
}

func (c *Config) validate() error {
	switch c.Engine {
	case EngineNative, EngineOnnxRuntime:
	default:
		return fmt.Errorf("unknown engine %q (want %s or %s)", c.Engine, EngineNative, EngineOnnxRuntime)
	}
	if c.ResourcesDir != "" {
		abs, err := filepath.Abs(c.ResourcesDir)
		if err != nil {
			return fmt.Errorf("invalid resources.dir: %w", err)
		}
		c.ResourcesDir = abs
	}
	return nil
}

// Libraries returns the dependency-ordered load set for the native engine.
func (c *Config) Libraries() []nativelib.Library {
	return nativelib.LibrariesWithOps(c.OpLibraries)
}
