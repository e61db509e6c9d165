package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// OptionType is the expected type of an option value.
type OptionType string

const (
	TypeString OptionType = "string"
	// TypeBool accepts true/false/yes/no/1/0/on/off.
	TypeBool OptionType = "bool"
	TypeInt  OptionType = "int"
	// TypeDuration is a time.Duration literal such as "30s".
	TypeDuration OptionType = "duration"
	// TypePathList is a list of paths joined by the OS path list separator.
	TypePathList OptionType = "path-list"
	// TypeEnum accepts one of the option's Choices.
	TypeEnum OptionType = "enum"
)

var pathListSeparator = string(os.PathListSeparator)

// Option declares one configuration option.
type Option struct {
	// Key is the option name as written in the file, e.g. "log.level".
	Key  string
	Type OptionType
	// Default is the default value in its textual form.
	Default     string
	Description string
	// Section is "" for global options.
	Section string
	// EnvVar, when set, names an environment variable overriding the option.
	EnvVar string
	// Choices lists the accepted values of a TypeEnum option.
	Choices []string
}

// Schema declares the known options. It drives validation, help text, env
// overrides and typed resolution.
type Schema struct {
	options   []*Option
	bySection map[string]map[string]*Option
}

// NewSchema creates an empty Schema.
func NewSchema() *Schema {
	return &Schema{bySection: make(map[string]map[string]*Option)}
}

// Register adds opt, replacing any option with the same section and key.
func (s *Schema) Register(opts ...Option) {
	for _, opt := range opts {
		ref := new(Option)
		*ref = opt
		sec := s.bySection[opt.Section]
		if sec == nil {
			sec = make(map[string]*Option)
			s.bySection[opt.Section] = sec
		}
		if prev := sec[opt.Key]; prev != nil {
			*prev = opt
			continue
		}
		sec[opt.Key] = ref
		s.options = append(s.options, ref)
	}
}

// Lookup returns the option for key in section ("" for global), or nil.
func (s *Schema) Lookup(section, key string) *Option {
	return s.bySection[section][key]
}

// Options returns the options of section in registration order.
func (s *Schema) Options(section string) []Option {
	var out []Option
	for _, o := range s.options {
		if o.Section == section {
			out = append(out, *o)
		}
	}
	return out
}

// Sections returns the sorted names of all non-global sections.
func (s *Schema) Sections() []string {
	out := make([]string, 0, len(s.bySection))
	for sec := range s.bySection {
		if sec != "" {
			out = append(out, sec)
		}
	}
	slices.Sort(out)
	return out
}

// Resolve returns the effective value of an option: its environment
// variable if set, then the configured value, then the schema default.
// Section options fall back to a global option of the same key.
func (s *Schema) Resolve(c *Config, section, key string) string {
	opt := s.Lookup(section, key)
	if opt != nil && opt.EnvVar != "" {
		if v, ok := os.LookupEnv(opt.EnvVar); ok {
			return v
		}
	}
	if section == "" {
		if v, ok := c.GetGlobalOption(key); ok {
			return v
		}
	} else if v, ok := c.GetSectionOption(section, key); ok {
		return v
	}
	if opt != nil {
		return opt.Default
	}
	return ""
}

// ValidateConfig returns human-readable issues with c: unknown options and
// values that do not parse as their declared type. The result is sorted.
func ValidateConfig(c *Config, s *Schema) []string {
	var issues []string

	for key, value := range c.Global {
		opt := s.Lookup("", key)
		if opt == nil {
			issues = append(issues, fmt.Sprintf("unknown global option: %q (value: %q)", key, value))
			continue
		}
		if err := opt.validate(value); err != nil {
			issues = append(issues, fmt.Sprintf("global option %q: %v", key, err))
		}
	}

	for section, opts := range c.Sections {
		if _, known := s.bySection[section]; !known {
			issues = append(issues, fmt.Sprintf("unknown section: [%s]", section))
			continue
		}
		for key, value := range opts {
			opt := s.Lookup(section, key)
			if opt == nil {
				issues = append(issues, fmt.Sprintf("unknown option in [%s]: %q (value: %q)", section, key, value))
				continue
			}
			if err := opt.validate(value); err != nil {
				issues = append(issues, fmt.Sprintf("option %q in [%s]: %v", key, section, err))
			}
		}
	}

	slices.Sort(issues)
	return issues
}

func (o *Option) validate(value string) error {
	switch o.Type {
	case TypeString, TypePathList, "":
		return nil
	case TypeBool:
		if _, err := parseBool(value); err != nil {
			return fmt.Errorf("expected bool, got %q", value)
		}
	case TypeInt:
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("expected int, got %q", value)
		}
	case TypeDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("expected duration, got %q", value)
		}
	case TypeEnum:
		if !slices.Contains(o.Choices, strings.ToLower(value)) {
			return fmt.Errorf("expected one of %s, got %q", strings.Join(o.Choices, "|"), value)
		}
	default:
		return fmt.Errorf("unknown option type %q", o.Type)
	}
	return nil
}

// FormatHelp renders every option, global options first, then each section.
func (s *Schema) FormatHelp() string {
	var b strings.Builder

	if globals := s.Options(""); len(globals) > 0 {
		b.WriteString("Global Options:\n")
		for _, o := range globals {
			writeOptionHelp(&b, o)
		}
	}

	for _, sec := range s.Sections() {
		fmt.Fprintf(&b, "\n[%s] Options:\n", sec)
		for _, o := range s.Options(sec) {
			writeOptionHelp(&b, o)
		}
	}

	return b.String()
}

func writeOptionHelp(b *strings.Builder, o Option) {
	fmt.Fprintf(b, "  %-28s %s", o.Key, o.Description)
	parts := make([]string, 0, 3)
	switch o.Type {
	case "", TypeString:
	case TypeEnum:
		parts = append(parts, "one of: "+strings.Join(o.Choices, "|"))
	default:
		parts = append(parts, "type: "+string(o.Type))
	}
	if o.Default != "" {
		parts = append(parts, "default: "+o.Default)
	}
	if o.EnvVar != "" {
		parts = append(parts, "env: "+o.EnvVar)
	}
	if len(parts) > 0 {
		fmt.Fprintf(b, " (%s)", strings.Join(parts, ", "))
	}
	b.WriteString("\n")
}

// Section names.
const (
	SectionDeveloper = "developer"
)

// DefaultSchema returns the schema of every option the bridge understands.
func DefaultSchema() *Schema {
	s := NewSchema()
	s.Register(
		Option{Key: "verbose", Type: TypeBool, Default: "false", Description: "Log to stderr as well as the in-memory buffer"},

		Option{Key: "log.file", Type: TypeString, Description: "Log file path (JSON records, rotated)", EnvVar: "NB_LOG_FILE"},
		Option{Key: "log.level", Type: TypeEnum, Default: "info", Choices: []string{"debug", "info", "warn", "error"}, Description: "Minimum log level", EnvVar: "NB_LOG_LEVEL"},
		Option{Key: "log.max-size-mb", Type: TypeInt, Default: "10", Description: "Log file size in MB before rotation"},
		Option{Key: "log.max-files", Type: TypeInt, Default: "5", Description: "Rotated log files to keep"},
		Option{Key: "log.buffer-size", Type: TypeInt, Default: "1000", Description: "In-memory log buffer size (entries)"},

		Option{Key: "bridge.wire-format", Type: TypeEnum, Default: "none", Choices: []string{"none", "json", "cbor", "proto"}, Description: "Encoding each outbound batch is round tripped through", EnvVar: "NB_WIRE_FORMAT"},
		Option{Key: "bridge.event-emitter", Type: TypeString, Default: "RCTDeviceEventEmitter", Description: "Engine module receiving events"},
		Option{Key: "bridge.sync-timeout", Type: TypeDuration, Default: "5s", Description: "Timeout for calls made synchronously onto the event loop"},
		Option{Key: "bridge.max-depth", Type: TypeInt, Default: "64", Description: "Maximum nesting of values converted from the engine"},

		Option{Key: "script.module-paths", Type: TypePathList, Description: "Folders searched by require()"},

		Option{Key: "enabled", Section: SectionDeveloper, Type: TypeBool, Default: "false", Description: "Enable developer mode"},
		Option{Key: "log-frames", Section: SectionDeveloper, Type: TypeBool, Default: "false", Description: "Log every call and result frame (developer mode only)"},
		Option{Key: "fail-on-double-completion", Section: SectionDeveloper, Type: TypeBool, Default: "false", Description: "Report double completion as an error (developer mode only)"},
	)
	return s
}
