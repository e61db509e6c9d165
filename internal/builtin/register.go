package builtin

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joeycumines/go-nativebridge/internal/bridge"
	"github.com/joeycumines/go-nativebridge/internal/builtin/calc"
	"github.com/joeycumines/go-nativebridge/internal/builtin/clock"
	"github.com/joeycumines/go-nativebridge/internal/builtin/fs"
	"github.com/joeycumines/go-nativebridge/internal/builtin/nextintegerid"
)

// Options configures the builtin modules.
type Options struct {
	Logger *slog.Logger
	// Now is the clock module's time source, defaulting to time.Now.
	Now func() time.Time
	// FSRoot enables the FileSystem module, rooted at this directory.
	FSRoot string
	// FSWritable enables FileSystem.writeFile.
	FSWritable bool
}

// Modules holds the stateful modules created during registration.
type Modules struct {
	Clock *clock.Module
	// FS is nil unless Options.FSRoot was set.
	FS *fs.Module
}

// Register registers all native Go modules with the provided registry.
// The returned Modules must be closed once the host is done with them.
func Register(registry *bridge.Registry, opts Options) (*Modules, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	mods := &Modules{
		Clock: clock.New(clock.Options{Now: opts.Now, Logger: logger}),
	}
	if opts.FSRoot != "" {
		m, err := fs.Open(fs.Options{Root: opts.FSRoot, Writable: opts.FSWritable, Logger: logger})
		if err != nil {
			_ = mods.Close()
			return nil, err
		}
		mods.FS = m
	}

	providers := []struct {
		name     string
		provider bridge.ModuleProvider
	}{
		{calc.Name, calc.Provider(logger)},
		{nextintegerid.Name, nextintegerid.Provider()},
		{clock.Name, mods.Clock.Provide},
	}
	if mods.FS != nil {
		providers = append(providers, struct {
			name     string
			provider bridge.ModuleProvider
		}{fs.Name, mods.FS.Provide})
	}
	for _, p := range providers {
		if err := registry.Register(p.name, p.provider); err != nil {
			_ = mods.Close()
			return nil, fmt.Errorf("builtin: %w", err)
		}
	}
	return mods, nil
}

// Close stops the clock's timers and closes the file system root.
func (m *Modules) Close() error {
	var errs []error
	if m.Clock != nil {
		errs = append(errs, m.Clock.Close())
	}
	if m.FS != nil {
		errs = append(errs, m.FS.Close())
	}
	return errors.Join(errs...)
}
