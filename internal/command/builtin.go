package command

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/joeycumines/go-nativebridge/internal/config"
)

// HelpCommand displays help information for commands.
type HelpCommand struct {
	*BaseCommand
	registry *Registry
}

func NewHelpCommand(registry *Registry) *HelpCommand {
	return &HelpCommand{
		BaseCommand: NewBaseCommand(
			"help",
			"Display help information for commands",
			"help [command]",
		),
		registry: registry,
	}
}

func (c *HelpCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stdout, "bridgectl - run scripts against native Go modules")
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Usage: bridgectl <command> [options] [args...]")
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Available commands:")

		w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
		for _, name := range c.registry.List() {
			if cmd, err := c.registry.Get(name); err == nil {
				_, _ = fmt.Fprintf(w, "  %s\t%s\n", name, cmd.Description())
			}
		}
		_ = w.Flush()

		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Use 'bridgectl help <command>' for more information about a specific command (includes flags).")
		return nil
	}

	cmd, err := c.registry.Get(args[0])
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		return err
	}

	_, _ = fmt.Fprintf(stdout, "Command: %s\n", cmd.Name())
	_, _ = fmt.Fprintf(stdout, "Description: %s\n", cmd.Description())
	_, _ = fmt.Fprintf(stdout, "Usage: bridgectl %s\n", cmd.Usage())

	// PrintDefaults on a scratch FlagSet lists the command's flags
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	buf := &bytes.Buffer{}
	fs.SetOutput(buf)
	cmd.SetupFlags(fs)
	fs.PrintDefaults()
	if buf.Len() > 0 {
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Flags:")
		_, _ = fmt.Fprint(stdout, buf.String())
	}
	return nil
}

// VersionCommand displays version information.
type VersionCommand struct {
	*BaseCommand
	version string
}

func NewVersionCommand(version string) *VersionCommand {
	return &VersionCommand{
		BaseCommand: NewBaseCommand(
			"version",
			"Display version information",
			"version",
		),
		version: version,
	}
}

func (c *VersionCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if err := noArgs(args, stderr); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "bridgectl version %s\n", c.version)
	return nil
}

// ConfigCommand reads and writes configuration options.
type ConfigCommand struct {
	*BaseCommand
	config     *config.Config
	configPath string
	section    string
	showAll    bool
}

// NewConfigCommand returns the config command. An empty configPath skips
// persisting set values.
func NewConfigCommand(cfg *config.Config, configPath string) *ConfigCommand {
	return &ConfigCommand{
		BaseCommand: NewBaseCommand(
			"config",
			"Manage configuration settings",
			"config [options] [key] [value] | config validate | config schema | config path",
		),
		config:     cfg,
		configPath: configPath,
	}
}

func (c *ConfigCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.section, "section", "", "Section of the option, e.g. "+config.SectionDeveloper)
	fs.BoolVar(&c.showAll, "all", false, "Show the effective value of every known option")
}

func (c *ConfigCommand) Execute(args []string, stdout, stderr io.Writer) error {
	schema := config.DefaultSchema()

	if len(args) == 0 {
		if c.showAll {
			c.printAll(stdout, schema)
			return nil
		}
		_, _ = fmt.Fprintln(stdout, "Configuration management:")
		_, _ = fmt.Fprintln(stdout, "  config <key>                  - Get the effective value")
		_, _ = fmt.Fprintln(stdout, "  config <key> <value>          - Set a value")
		_, _ = fmt.Fprintln(stdout, "  config -section <name> <key>  - Address a section option")
		_, _ = fmt.Fprintln(stdout, "  config -all                   - Show every option")
		_, _ = fmt.Fprintln(stdout, "  config validate               - Validate configuration")
		_, _ = fmt.Fprintln(stdout, "  config schema                 - Show configuration schema")
		_, _ = fmt.Fprintln(stdout, "  config path                   - Show the config file path")
		return nil
	}

	if len(args) == 1 {
		switch args[0] {
		case "validate":
			return c.executeValidate(stdout, schema)
		case "schema":
			_, _ = fmt.Fprint(stdout, schema.FormatHelp())
			return nil
		case "path":
			_, _ = fmt.Fprintln(stdout, c.configPath)
			return nil
		}
		key := args[0]
		if schema.Lookup(c.section, key) == nil {
			_, _ = fmt.Fprintf(stdout, "Configuration key '%s' not found\n", c.qualified(key))
			return nil
		}
		_, _ = fmt.Fprintf(stdout, "%s: %s\n", c.qualified(key), schema.Resolve(c.config, c.section, key))
		return nil
	}

	if len(args) == 2 {
		key, value := args[0], args[1]
		if c.section == "" {
			c.config.SetGlobalOption(key, value)
		} else {
			c.config.SetSectionOption(c.section, key, value)
		}
		if c.configPath != "" {
			if err := config.SetKey(c.configPath, c.section, key, value); err != nil {
				_, _ = fmt.Fprintf(stderr, "Warning: failed to persist config to disk: %v\n", err)
			}
		}
		_, _ = fmt.Fprintf(stdout, "Set configuration: %s = %s\n", c.qualified(key), value)
		return nil
	}

	_, _ = fmt.Fprintln(stderr, "Invalid number of arguments")
	return fmt.Errorf("invalid arguments")
}

func (c *ConfigCommand) qualified(key string) string {
	if c.section == "" {
		return key
	}
	return "[" + c.section + "] " + key
}

func (c *ConfigCommand) printAll(stdout io.Writer, schema *config.Schema) {
	w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
	for _, section := range append([]string{""}, schema.Sections()...) {
		if section != "" {
			_, _ = fmt.Fprintf(w, "[%s]\n", section)
		}
		for _, opt := range schema.Options(section) {
			_, _ = fmt.Fprintf(w, "  %s\t%s\n", opt.Key, schema.Resolve(c.config, section, opt.Key))
		}
	}
	_ = w.Flush()
}

func (c *ConfigCommand) executeValidate(stdout io.Writer, schema *config.Schema) error {
	issues := config.ValidateConfig(c.config, schema)
	if _, err := config.Resolve(c.config); err != nil {
		issues = append(issues, err.Error())
	}
	if len(issues) == 0 {
		_, _ = fmt.Fprintln(stdout, "Configuration is valid.")
		return nil
	}
	_, _ = fmt.Fprintf(stdout, "Configuration has %d issue(s):\n", len(issues))
	for _, issue := range issues {
		_, _ = fmt.Fprintf(stdout, "  - %s\n", issue)
	}
	return nil
}
