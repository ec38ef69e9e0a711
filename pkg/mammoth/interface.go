package mammoth

import (
	"github.com/vk/mammoth/pkg/diagnostics"
	"github.com/zclconf/go-cty/cty"
)

// Exported symbol names looked up in every module library.
const (
	VersionSymbol   = "MammothVersion"
	ConstructSymbol = "MammothConstruct"
	DestroySymbol   = "MammothDestroy"
)

// Interface is the lifecycle every constructed module implements.
type Interface interface {
	// OnLoad is called once, right after construction.
	OnLoad()
	// OnValidation runs while the host validates its configuration, before
	// it commits to running the module.
	OnValidation(logger diagnostics.Logger) error
	// OnShutdown is called once during host teardown.
	OnShutdown()
}

// LoggerAware modules receive the host's logger before OnLoad.
type LoggerAware interface {
	RegisterLogger(logger diagnostics.Logger)
}

type (
	VersionFunc   = func() string
	ConstructFunc = func(config cty.Value) (Interface, error)
	DestroyFunc   = func(Interface)
)
