package command

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/joeycumines/go-nativebridge/internal/bridge"
	"github.com/joeycumines/go-nativebridge/internal/config"
	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
)

// ModulesCommand lists the native modules a script can require, as the
// engine sees them after initialisation.
type ModulesCommand struct {
	*BaseCommand
	config *config.Config
	host   hostFlags
	json   bool
}

func NewModulesCommand(cfg *config.Config) *ModulesCommand {
	return &ModulesCommand{
		BaseCommand: NewBaseCommand(
			"modules",
			"List native modules, their methods and constants",
			"modules [options] [module...]",
		),
		config: cfg,
	}
}

func (c *ModulesCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.host.fsRoot, "fs-root", "", "Include the FileSystem module, rooted here")
	fs.BoolVar(&c.json, "json", false, "Print the module configs as JSON")
}

func (c *ModulesCommand) Execute(args []string, stdout, stderr io.Writer) error {
	s, err := openSession(c.config, c.host, stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	// initialisation emits events, which have nowhere to go
	host, err := bridge.NewHost(context.Background(), s.registry, bridge.OutboundFuncs{},
		bridge.WithLogger(s.logging.Logger),
		bridge.WithEventEmitter(s.settings.Bridge.EventEmitter),
	)
	if err != nil {
		return err
	}

	configs := host.ModuleConfigs()
	if len(args) > 0 {
		want := make(map[string]bool, len(args))
		for _, name := range args {
			want[name] = true
		}
		var selected []bridge.ModuleConfig
		for _, mc := range configs {
			if want[mc.Name] {
				selected = append(selected, mc)
				delete(want, mc.Name)
			}
		}
		for name := range want {
			_, _ = fmt.Fprintf(stderr, "Unknown module: %s\n", name)
			return fmt.Errorf("%w: %s", bridge.ErrUnknownModule, name)
		}
		configs = selected
	}

	if c.json {
		items := make([]dynvalue.Value, len(configs))
		for i, mc := range configs {
			items[i] = moduleConfigValue(mc)
		}
		_, _ = fmt.Fprintln(stdout, dynvalue.NewArray(items...).String())
		return nil
	}

	w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
	for i, mc := range configs {
		if i > 0 {
			_, _ = fmt.Fprintln(w, "")
		}
		_, _ = fmt.Fprintf(w, "%s (#%d)\n", mc.Name, mc.ID)
		for _, m := range mc.Methods {
			_, _ = fmt.Fprintf(w, "  %s\t%s\n", m.Name, m.Shape)
		}
		if len(mc.Events) > 0 {
			_, _ = fmt.Fprintf(w, "  events\t%s via %s\n", strings.Join(mc.Events, ", "), mc.EventEmitter)
		}
		if obj, ok := mc.Constants.TryObject(); ok && obj.Len() > 0 {
			_, _ = fmt.Fprintf(w, "  constants\t%s\n", mc.Constants)
		}
	}
	return w.Flush()
}

func moduleConfigValue(mc bridge.ModuleConfig) dynvalue.Value {
	methods := make([]dynvalue.Value, len(mc.Methods))
	for i, m := range mc.Methods {
		methods[i] = dynvalue.NewObject(
			dynvalue.Prop("id", dynvalue.Int64(m.ID)),
			dynvalue.Prop("name", dynvalue.String(m.Name)),
			dynvalue.Prop("shape", dynvalue.String(m.Shape.String())),
		)
	}
	events := make([]dynvalue.Value, len(mc.Events))
	for i, e := range mc.Events {
		events[i] = dynvalue.String(e)
	}
	constants := mc.Constants
	if constants.IsNull() {
		constants = dynvalue.NewObject()
	}
	return dynvalue.NewObject(
		dynvalue.Prop("id", dynvalue.Int64(mc.ID)),
		dynvalue.Prop("name", dynvalue.String(mc.Name)),
		dynvalue.Prop("methods", dynvalue.NewArray(methods...)),
		dynvalue.Prop("events", dynvalue.NewArray(events...)),
		dynvalue.Prop("eventEmitter", dynvalue.String(mc.EventEmitter)),
		dynvalue.Prop("constants", constants),
	)
}
