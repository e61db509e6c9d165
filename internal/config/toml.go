package config

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// LoadTOML loads configuration from a TOML document.
//
// Tables named after a schema section (e.g. [developer]) populate that
// section. Other tables are flattened into dotted global keys, so
//
//	[log]
//	level = "debug"
//
// is equivalent to the dnsmasq line "log.level debug".
func LoadTOML(r io.Reader) (*Config, error) {
	var raw map[string]any
	if _, err := toml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("error reading toml config: %w", err)
	}

	config := NewConfig()
	sections := DefaultSchema().Sections()
	for _, key := range sortedKeys(raw) {
		value := raw[key]
		table, isTable := value.(map[string]any)
		switch {
		case isTable && slices.Contains(sections, key):
			opts := make(map[string]string)
			if err := flattenTOML(opts, "", table); err != nil {
				return nil, fmt.Errorf("[%s]: %w", key, err)
			}
			config.Sections[key] = opts
		case isTable:
			if err := flattenTOML(config.Global, key+".", table); err != nil {
				return nil, err
			}
		default:
			s, err := tomlScalar(value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			config.Global[key] = s
		}
	}

	config.validate()
	return config, nil
}

func flattenTOML(dst map[string]string, prefix string, table map[string]any) error {
	for _, key := range sortedKeys(table) {
		value := table[key]
		if nested, ok := value.(map[string]any); ok {
			if err := flattenTOML(dst, prefix+key+".", nested); err != nil {
				return err
			}
			continue
		}
		s, err := tomlScalar(value)
		if err != nil {
			return fmt.Errorf("%s%s: %w", prefix, key, err)
		}
		dst[prefix+key] = s
	}
	return nil
}

// tomlScalar renders a decoded TOML value the way it would be written in
// the dnsmasq format. Arrays become path lists.
func tomlScalar(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case time.Time:
		return formatTOMLTime(v), nil
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			s, err := tomlScalar(item)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return strings.Join(parts, pathListSeparator), nil
	default:
		return "", fmt.Errorf("unsupported toml value of type %T", v)
	}
}

// formatTOMLTime keeps local dates and times local. The decoder marks them
// with zones named after the TOML type.
func formatTOMLTime(t time.Time) string {
	switch t.Location().String() {
	case "date-local":
		return t.Format(time.DateOnly)
	case "time-local":
		return t.Format("15:04:05.999999999")
	case "datetime-local":
		return t.Format("2006-01-02T15:04:05.999999999")
	default:
		return t.Format(time.RFC3339Nano)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
