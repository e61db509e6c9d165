package config

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/joeycumines/go-nativebridge/internal/diag"
)

// Settings are the resolved, typed options.
type Settings struct {
	Verbose bool
	Log     LogSettings
	Bridge  BridgeSettings
	// ModulePaths are extra require() folders.
	ModulePaths []string
	Developer   diag.DeveloperSettings
}

type LogSettings struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxFiles   int
	BufferSize int
}

type BridgeSettings struct {
	WireFormat   string
	EventEmitter string
	SyncTimeout  time.Duration
	MaxDepth     int
}

// Resolve applies env overrides and defaults to c and parses every value.
// Unlike the warnings collected at load time, a value that does not parse
// here is an error.
func Resolve(c *Config) (Settings, error) {
	s := DefaultSchema()
	r := resolver{schema: s, config: c}

	settings := Settings{
		Verbose: r.flag("", "verbose"),
		Log: LogSettings{
			Level:      strings.ToLower(r.choice("", "log.level")),
			File:       r.lookup("", "log.file"),
			MaxSizeMB:  r.integer("", "log.max-size-mb"),
			MaxFiles:   r.integer("", "log.max-files"),
			BufferSize: r.integer("", "log.buffer-size"),
		},
		Bridge: BridgeSettings{
			WireFormat:   strings.ToLower(r.choice("", "bridge.wire-format")),
			EventEmitter: r.lookup("", "bridge.event-emitter"),
			SyncTimeout:  r.duration("", "bridge.sync-timeout"),
			MaxDepth:     r.integer("", "bridge.max-depth"),
		},
		ModulePaths: r.paths("", "script.module-paths"),
		Developer: diag.DeveloperSettings{
			Enabled:                r.flag(SectionDeveloper, "enabled"),
			LogFrames:              r.flag(SectionDeveloper, "log-frames"),
			FailOnDoubleCompletion: r.flag(SectionDeveloper, "fail-on-double-completion"),
		},
	}
	if settings.Bridge.MaxDepth < 1 {
		r.fail("bridge.max-depth", fmt.Errorf("must be at least 1, got %d", settings.Bridge.MaxDepth))
	}
	if settings.Bridge.SyncTimeout <= 0 {
		r.fail("bridge.sync-timeout", fmt.Errorf("must be positive, got %s", settings.Bridge.SyncTimeout))
	}
	if err := errors.Join(r.errs...); err != nil {
		return Settings{}, fmt.Errorf("config: %w", err)
	}
	return settings, nil
}

// LogOptions converts the log settings for diag.NewLogging. Console is
// set when verbose.
func (s Settings) LogOptions(console io.Writer) diag.LogOptions {
	level, _ := diag.ParseLevel(s.Log.Level)
	opts := diag.LogOptions{
		Level:      level,
		BufferSize: s.Log.BufferSize,
		File:       s.Log.File,
		MaxSizeMB:  s.Log.MaxSizeMB,
		MaxFiles:   s.Log.MaxFiles,
	}
	if s.Verbose {
		opts.Console = console
	}
	return opts
}

type resolver struct {
	schema *Schema
	config *Config
	errs   []error
}

func (r *resolver) fail(key string, err error) {
	r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
}

func (r *resolver) lookup(section, key string) string {
	return r.schema.Resolve(r.config, section, key)
}

func (r *resolver) choice(section, key string) string {
	v := r.lookup(section, key)
	if opt := r.schema.Lookup(section, key); opt != nil {
		if err := opt.validate(v); err != nil {
			r.fail(key, err)
		}
	}
	return v
}

func (r *resolver) flag(section, key string) bool {
	b, err := parseBool(r.lookup(section, key))
	if err != nil {
		r.fail(key, err)
	}
	return b
}

func (r *resolver) integer(section, key string) int {
	i, err := strconv.Atoi(r.lookup(section, key))
	if err != nil {
		r.fail(key, err)
	}
	return i
}

func (r *resolver) duration(section, key string) time.Duration {
	d, err := time.ParseDuration(r.lookup(section, key))
	if err != nil {
		r.fail(key, err)
	}
	return d
}

func (r *resolver) paths(section, key string) []string {
	var out []string
	for _, p := range strings.Split(r.lookup(section, key), pathListSeparator) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
