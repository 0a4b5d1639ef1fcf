// Package config loads the TOML settings file read by the protocore tools.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/anirudhraja/protocore"
	"github.com/anirudhraja/protocore/internal/logging"
	"github.com/anirudhraja/protocore/wire"
)

// Config holds everything a tool needs to build a Protocore.
type Config struct {
	ProtoDirectories         []string
	RecursionLimit           int
	DiscardUnknown           bool
	AllowInvalidUTF8         bool
	AllowPartial             bool
	PreserveRepeatedEncoding bool
	Deterministic            bool
	LogLevel                 zerolog.Level
}

type fileConfig struct {
	ProtoDirs                []string `toml:"proto_dirs"`
	RecursionLimit           int      `toml:"recursion_limit"`
	DiscardUnknown           bool     `toml:"discard_unknown"`
	AllowInvalidUTF8         bool     `toml:"allow_invalid_utf8"`
	AllowPartial             bool     `toml:"allow_partial"`
	PreserveRepeatedEncoding bool     `toml:"preserve_repeated_encoding"`
	Deterministic            bool     `toml:"deterministic"`
	LogLevel                 string   `toml:"log_level"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		ProtoDirectories: []string{"."},
		RecursionLimit:   wire.DefaultRecursionLimit,
		LogLevel:         zerolog.InfoLevel,
	}
}

// Load reads path and applies the keys it defines on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("proto_dirs") {
		cfg.ProtoDirectories = normalizeDirs(raw.ProtoDirs)
	}
	if meta.IsDefined("recursion_limit") {
		cfg.RecursionLimit = raw.RecursionLimit
	}
	if meta.IsDefined("discard_unknown") {
		cfg.DiscardUnknown = raw.DiscardUnknown
	}
	if meta.IsDefined("allow_invalid_utf8") {
		cfg.AllowInvalidUTF8 = raw.AllowInvalidUTF8
	}
	if meta.IsDefined("allow_partial") {
		cfg.AllowPartial = raw.AllowPartial
	}
	if meta.IsDefined("preserve_repeated_encoding") {
		cfg.PreserveRepeatedEncoding = raw.PreserveRepeatedEncoding
	}
	if meta.IsDefined("deterministic") {
		cfg.Deterministic = raw.Deterministic
	}
	if meta.IsDefined("log_level") {
		lvl, ok := logging.ParseLevel(raw.LogLevel)
		if !ok {
			return Config{}, fmt.Errorf("parse log_level: unknown level %q", raw.LogLevel)
		}
		cfg.LogLevel = lvl
	}

	return cfg, cfg.Validate()
}

// Validate reports settings no Protocore can be built with.
func (c Config) Validate() error {
	var errs []error
	if c.RecursionLimit <= 0 {
		errs = append(errs, fmt.Errorf("recursion_limit must be positive, got %d", c.RecursionLimit))
	}
	if len(c.ProtoDirectories) == 0 {
		errs = append(errs, errors.New("proto_dirs must name at least one directory"))
	}
	return errors.Join(errs...)
}

// Options converts the settings to Protocore options. logger receives
// schema load and parse diagnostics.
func (c Config) Options(logger zerolog.Logger) []protocore.Option {
	return []protocore.Option{
		protocore.WithProtoDirectories(c.ProtoDirectories...),
		protocore.WithRecursionLimit(c.RecursionLimit),
		protocore.WithDiscardUnknown(c.DiscardUnknown),
		protocore.WithAllowInvalidUTF8(c.AllowInvalidUTF8),
		protocore.WithAllowPartial(c.AllowPartial),
		protocore.WithPreserveRepeatedEncoding(c.PreserveRepeatedEncoding),
		protocore.WithDeterministic(c.Deterministic),
		protocore.WithLogger(logger.Level(c.LogLevel)),
	}
}

func normalizeDirs(in []string) []string {
	out := make([]string, 0, len(in))
	for _, dir := range in {
		v := strings.TrimSpace(dir)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
