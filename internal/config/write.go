package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// SetKey updates or adds an option in the config file at path, creating
// the file if needed. section is "" for global options.
//
// Dnsmasq-style files keep their comments and layout: an existing line is
// replaced in place, otherwise the option is inserted at the end of its
// section (global options go before the first section header). TOML files
// are rewritten.
func SetKey(path, section, key, value string) error {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config file: %w", err)
	}

	var out []byte
	if isTOML(path) {
		out, err = setTOMLKey(data, section, key, value)
		if err != nil {
			return err
		}
	} else {
		out = []byte(setLineKey(string(data), section, key, value))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return writeFileAtomic(path, out, 0o644)
}

func setLineKey(text, section, key, value string) string {
	var lines []string
	if text != "" {
		lines = strings.Split(text, "\n")
	}
	newLine := key
	if value != "" {
		newLine += " " + value
	}

	var current string
	insertAt := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			if current == section && insertAt < 0 {
				insertAt = i
			}
			current = strings.TrimSpace(strings.Trim(trimmed, "[]"))
			continue
		}
		if current != section || trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if name, _, _ := strings.Cut(trimmed, " "); name == key {
			lines[i] = newLine
			return strings.Join(lines, "\n")
		}
	}

	switch {
	case insertAt >= 0:
		lines = append(lines[:insertAt+1], lines[insertAt:]...)
		lines[insertAt] = newLine
	case current == section:
		// the target section runs to the end of the file
		if n := len(lines); n > 0 && lines[n-1] == "" {
			lines = append(lines[:n-1], newLine, "")
		} else {
			lines = append(lines, newLine)
		}
	default:
		if n := len(lines); n > 0 && lines[n-1] != "" {
			lines = append(lines, "")
		}
		lines = append(lines, "["+section+"]", newLine, "")
	}
	return strings.Join(lines, "\n")
}

func setTOMLKey(data []byte, section, key, value string) ([]byte, error) {
	doc := make(map[string]any)
	if len(data) > 0 {
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return nil, fmt.Errorf("reading toml config: %w", err)
		}
	}

	var typed any = value
	if opt := DefaultSchema().Lookup(section, key); opt != nil {
		var err error
		if typed, err = tomlTyped(opt, value); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
	}

	table := doc
	path := strings.Split(key, ".")
	if section != "" {
		path = append([]string{section}, path...)
	}
	for _, name := range path[:len(path)-1] {
		next, ok := table[name].(map[string]any)
		if !ok {
			next = make(map[string]any)
			table[name] = next
		}
		table = next
	}
	table[path[len(path)-1]] = typed

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, fmt.Errorf("writing toml config: %w", err)
	}
	return buf.Bytes(), nil
}

func tomlTyped(opt *Option, value string) (any, error) {
	if err := opt.validate(value); err != nil {
		return nil, err
	}
	switch opt.Type {
	case TypeBool:
		b, err := parseBool(value)
		return b, err
	case TypeInt:
		var i int64
		_, err := fmt.Sscan(value, &i)
		return i, err
	default:
		return value, nil
	}
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
