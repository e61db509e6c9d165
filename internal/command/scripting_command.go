package command

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joeycumines/go-nativebridge/internal/config"
	"github.com/joeycumines/go-nativebridge/internal/diag"
	"github.com/joeycumines/go-nativebridge/internal/scripting"
	"github.com/joeycumines/go-nativebridge/internal/transport"
)

// RunCommand runs scripts against the builtin native modules.
type RunCommand struct {
	*BaseCommand
	config     *config.Config
	host       hostFlags
	script     string
	wireFormat string
	timeout    time.Duration
	print      bool
	strict     bool
	// ctxFactory creates the execution context. If nil, signal.NotifyContext
	// cancels it on SIGINT and SIGTERM.
	ctxFactory func() (context.Context, context.CancelFunc)
}

func NewRunCommand(cfg *config.Config) *RunCommand {
	return &RunCommand{
		BaseCommand: NewBaseCommand(
			"run",
			"Run JavaScript against the native modules",
			"run [options] [script-file...]",
		),
		config: cfg,
	}
}

func (c *RunCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.script, "e", "", "JavaScript code to execute after any script files")
	fs.StringVar(&c.host.fsRoot, "fs-root", "", "Expose this directory through the FileSystem module")
	fs.BoolVar(&c.host.fsWritable, "fs-writable", false, "Allow FileSystem.writeFile")
	fs.StringVar(&c.host.logLevel, "log-level", "", "Log level (debug, info, warn, error), overriding log.level")
	fs.BoolVar(&c.host.verbose, "v", false, "Log to stderr")
	fs.StringVar(&c.wireFormat, "wire", "", "Wire format frames are round tripped through, overriding bridge.wire-format")
	fs.DurationVar(&c.timeout, "timeout", 30*time.Second, "How long to wait for pending calls once scripts have run")
	fs.BoolVar(&c.print, "print", false, "Print the completion value of each script as JSON")
	fs.BoolVar(&c.strict, "strict", false, "Fail if any handler or script error was reported")
}

func (c *RunCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 && c.script == "" {
		_, _ = fmt.Fprintln(stderr, "nothing to run: pass a script file or -e")
		return fmt.Errorf("no script")
	}

	var ctx context.Context
	var cancel context.CancelFunc
	if c.ctxFactory != nil {
		ctx, cancel = c.ctxFactory()
	} else {
		ctx, cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	}
	defer cancel()

	s, err := openSession(c.config, c.host, stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	wireFormat := s.settings.Bridge.WireFormat
	if c.wireFormat != "" {
		wireFormat = c.wireFormat
	}
	wire, err := transport.CodecByName(wireFormat)
	if err != nil {
		return err
	}

	collector := &diag.Collector{}
	engine, err := scripting.NewEngine(ctx, s.registry, scripting.Options{
		Logger: s.logging.Logger,
		Reporter: diag.Tee(
			&diag.LogReporter{Logger: s.logging.Logger, Settings: s.settings.Developer},
			collector,
		),
		Developer:    s.settings.Developer,
		EventEmitter: s.settings.Bridge.EventEmitter,
		WireCodec:    wire,
		SyncTimeout:  s.settings.Bridge.SyncTimeout,
		MaxDepth:     s.settings.Bridge.MaxDepth,
		ModulePaths:  s.settings.ModulePaths,
	})
	if err != nil {
		return fmt.Errorf("failed to create scripting engine: %w", err)
	}
	defer engine.Close()

	for _, path := range args {
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read script %s: %w", path, err)
		}
		if err := c.runOne(engine, filepath.Base(path), string(src), stdout); err != nil {
			return err
		}
	}
	if c.script != "" {
		if err := c.runOne(engine, "command-line", c.script, stdout); err != nil {
			return err
		}
	}

	waitCtx, waitCancel := context.WithTimeout(ctx, c.timeout)
	defer waitCancel()
	if err := engine.WaitIdle(waitCtx, 5*time.Millisecond); err != nil {
		return err
	}

	if c.strict {
		if n := collector.Count(diag.KindHandler) + collector.Count(diag.KindScript); n > 0 {
			return fmt.Errorf("%d error(s) reported", n)
		}
	}
	return nil
}

func (c *RunCommand) runOne(engine *scripting.Engine, name, src string, stdout io.Writer) error {
	if !c.print {
		_, err := engine.RunScript(name, src)
		return err
	}
	v, err := engine.Eval(name, src)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(stdout, v.String())
	return nil
}
