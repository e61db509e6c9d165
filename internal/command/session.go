package command

import (
	"errors"
	"fmt"
	"io"

	"github.com/joeycumines/go-nativebridge/internal/bridge"
	"github.com/joeycumines/go-nativebridge/internal/builtin"
	"github.com/joeycumines/go-nativebridge/internal/config"
	"github.com/joeycumines/go-nativebridge/internal/diag"
)

// hostFlags are the builtin module options shared by run and modules.
type hostFlags struct {
	fsRoot     string
	fsWritable bool
	logLevel   string
	verbose    bool
}

// session is the host-side state a command runs against: resolved
// settings, logging, and the registered builtin modules.
type session struct {
	settings config.Settings
	logging  *diag.Logging
	registry *bridge.Registry
	modules  *builtin.Modules
}

func openSession(cfg *config.Config, flags hostFlags, stderr io.Writer) (*session, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	settings, err := config.Resolve(cfg)
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		if _, ok := diag.ParseLevel(flags.logLevel); !ok {
			return nil, fmt.Errorf("invalid log level: %s", flags.logLevel)
		}
		settings.Log.Level = flags.logLevel
	}
	if flags.verbose {
		settings.Verbose = true
	}

	logging, err := diag.NewLogging(settings.LogOptions(stderr))
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	for _, w := range cfg.Warnings {
		logging.Logger.Warn("config", "warning", w)
	}

	registry := bridge.NewRegistry()
	modules, err := builtin.Register(registry, builtin.Options{
		Logger:     logging.Logger,
		FSRoot:     flags.fsRoot,
		FSWritable: flags.fsWritable,
	})
	if err != nil {
		_ = logging.Close()
		return nil, err
	}
	return &session{
		settings: settings,
		logging:  logging,
		registry: registry,
		modules:  modules,
	}, nil
}

func (s *session) Close() error {
	return errors.Join(s.modules.Close(), s.logging.Close())
}
