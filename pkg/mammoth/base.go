package mammoth

import (
	"fmt"
	"sync"

	"github.com/vk/mammoth/pkg/diagnostics"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Base can be embedded by module implementations. It provides no-op
// lifecycle hooks and stores the logger handed over by the host.
type Base struct {
	mu     sync.RWMutex
	logger diagnostics.Logger
}

// RegisterLogger implements LoggerAware.
func (b *Base) RegisterLogger(logger diagnostics.Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = logger
}

// Logger returns the registered logger, or diagnostics.Discard.
func (b *Base) Logger() diagnostics.Logger {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.logger == nil {
		return diagnostics.Discard
	}
	return b.logger
}

// Log writes msg through the registered logger.
func (b *Base) Log(sev diagnostics.Severity, msg string) {
	b.Logger().Log(sev, msg)
}

// OnLoad implements Interface.
func (b *Base) OnLoad() {}

// OnValidation implements Interface.
func (b *Base) OnValidation(diagnostics.Logger) error { return nil }

// OnShutdown implements Interface.
func (b *Base) OnShutdown() {}

// DecodeConfig decodes a module's configuration value into target, which
// must be a pointer. A null or absent value leaves target untouched.
func DecodeConfig(config cty.Value, target any) error {
	if config.IsNull() || !config.IsKnown() {
		return nil
	}
	if err := gocty.FromCtyValue(config, target); err != nil {
		return fmt.Errorf("decoding module config: %w", err)
	}
	return nil
}
