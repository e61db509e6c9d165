package bridge

import (
	"log/slog"

	"github.com/joeycumines/go-nativebridge/internal/diag"
	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
)

// ModuleContext is handed to initializers. It stays valid for the life of
// the host, so modules may keep it to emit from background goroutines.
type ModuleContext struct {
	host   *Host
	module *module
}

// Name returns the module name.
func (c *ModuleContext) Name() string { return c.module.name }

// Constants returns the module's flushed constants.
func (c *ModuleContext) Constants() dynvalue.Value { return c.module.constants }

// Logger returns the host logger, tagged with the module name.
func (c *ModuleContext) Logger() *slog.Logger { return c.module.logger }

// Reporter returns the host error channel.
func (c *ModuleContext) Reporter() diag.Reporter { return c.host.reporter }

// EmitEvent emits the event name on the module's event emitter, whether or
// not the module registered a handle for it.
func (c *ModuleContext) EmitEvent(name string, args ...dynvalue.Value) error {
	return Emitter{host: c.host, module: c.module.name, event: name, target: c.module.emitterName, method: "emit"}.Emit(args...)
}

// CallFunction calls the function method exported by the engine module
// jsModule.
func (c *ModuleContext) CallFunction(jsModule, method string, args ...dynvalue.Value) error {
	return Emitter{host: c.host, module: c.module.name, target: jsModule, method: method}.Emit(args...)
}
