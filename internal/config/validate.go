package config

import (
	"fmt"
	"net/netip"
	"regexp"
	"strings"

	"github.com/vk/mammoth/internal/validation"
	"github.com/vk/mammoth/pkg/diagnostics"
)

var dnsHostname = regexp.MustCompile(`^(([a-zA-Z0-9]|[a-zA-Z0-9][a-zA-Z0-9\-]*[a-zA-Z0-9])\.)*([A-Za-z0-9]|[A-Za-z0-9][A-Za-z0-9\-]*[A-Za-z0-9])$`)

// ValidHostname reports whether name is a DNS name or a dotted-quad IPv4
// address.
func ValidHostname(name string) bool {
	return isDottedQuad(name) || dnsHostname.MatchString(name)
}

// isDottedQuad rejects IPv4-mapped IPv6 forms, which the ipv4 tag accepts.
func isDottedQuad(name string) bool {
	if validate.Var(name, "ipv4") != nil {
		return false
	}
	addr, err := netip.ParseAddr(name)
	return err == nil && addr.Is4() && !strings.Contains(name, ":")
}

// Prober lets module validation go beyond the library file check, for
// example by running the module's own validation hook.
type Prober interface {
	Probe(logger diagnostics.Logger, m Module, path string) error
}

// FileValidator validates a whole configuration document top-down:
// global settings, hosts, then modules.
type FileValidator struct {
	// Prober is optional.
	Prober Prober
}

// Validate implements validation.Validator.
func (v FileValidator) Validate(logger diagnostics.Logger, f *File) error {
	if err := (MammothValidator{}).Validate(logger, f.Mammoth); err != nil {
		return err
	}

	if len(f.Hosts) == 0 {
		return validation.Report(logger, diagnostics.Critical, diagnostics.ErrNoHost, "",
			"No host specified.")
	}

	modsDir := f.Mammoth.ModsDir
	if modsDir == "" && f.DeclaresModules() {
		return validation.Report(logger, diagnostics.Critical, diagnostics.ErrNoModsDir, "",
			"Modules are declared but mammoth.mods_dir is not set.")
	}

	modules := ModuleValidator{ModsDir: modsDir, Prober: v.Prober}
	err := validation.Unique[Module, string]{
		Severity: diagnostics.Critical,
		Inner:    modules,
	}.Validate(logger, f.Modules)
	if err != nil {
		return err
	}

	return validation.Unique[Host, HostIdentifier]{
		Severity: diagnostics.Critical,
		Inner:    HostValidator{Modules: modules},
	}.Validate(logger, f.Hosts)
}

// MammothValidator checks the global settings.
type MammothValidator struct{}

var (
	modsDirValidator = validation.Optional[string](validation.Path{Severity: diagnostics.Error, Kind: validation.ExistingDirectory})
	logFileValidator = validation.Optional[string](validation.Path{Severity: diagnostics.Error, Kind: validation.FilePath})
)

// Validate implements validation.Validator.
func (MammothValidator) Validate(logger diagnostics.Logger, m Mammoth) error {
	if err := modsDirValidator.Validate(logger, m.ModsDir); err != nil {
		return err
	}
	if err := logFileValidator.Validate(logger, m.LogFile); err != nil {
		return err
	}
	if m.LogSeverity != nil && !m.LogSeverity.Valid() {
		return validation.Report(logger, diagnostics.Error, diagnostics.ErrUnknown, "log_severity",
			fmt.Sprintf("Invalid log severity %d.", int(*m.LogSeverity)))
	}
	return nil
}

// BindingValidator checks that a secure binding can actually load its
// certificate pair.
type BindingValidator struct{}

var tlsFilesValidator = validation.Each[string](validation.Path{Severity: diagnostics.Critical, Kind: validation.ExistingFile})

// Validate implements validation.Validator.
func (BindingValidator) Validate(logger diagnostics.Logger, b Binding) error {
	if !b.Secure {
		return nil
	}
	if b.Cert == "" || b.Key == "" {
		return validation.Report(logger, diagnostics.Critical, diagnostics.ErrSecureBindOnInsecure, b.Addr(),
			fmt.Sprintf("Secure binding on port %d needs both cert and key.", b.Port))
	}
	if err := tlsFilesValidator.Validate(logger, []string{b.Cert, b.Key}); err != nil {
		return err
	}
	if _, err := b.TLSConfig(); err != nil {
		diagnostics.Logf(logger, diagnostics.Critical, "Cannot load TLS key pair for port %d: %v", b.Port, err)
		return err
	}
	return nil
}

// HostValidator checks one host and its modules.
type HostValidator struct {
	Modules ModuleValidator
}

var staticDirValidator = validation.Optional[string](validation.Path{Severity: diagnostics.Error, Kind: validation.ExistingDirectory})

// Validate implements validation.Validator. Checks run in order: binding,
// hostname, static directory, modules.
func (v HostValidator) Validate(logger diagnostics.Logger, h Host) error {
	return validation.All[Host](
		validation.Func[Host](validateListen),
		validation.Func[Host](validateHostname),
		validation.Func[Host](validateStaticDir),
		validation.Func[Host](v.validateModules),
	).Validate(logger, h)
}

func validateListen(logger diagnostics.Logger, h Host) error {
	return BindingValidator{}.Validate(logger, h.Listen)
}

func validateHostname(logger diagnostics.Logger, h Host) error {
	if h.Hostname == "" || ValidHostname(h.Hostname) {
		return nil
	}
	return validation.Report(logger, diagnostics.Critical, diagnostics.ErrInvalidHostname, h.Hostname,
		fmt.Sprintf("Invalid hostname %q on %s.", h.Hostname, h.describe()))
}

func validateStaticDir(logger diagnostics.Logger, h Host) error {
	return staticDirValidator.Validate(logger, h.StaticDir)
}

func (v HostValidator) validateModules(logger diagnostics.Logger, h Host) error {
	return validation.Unique[Module, string]{
		Severity: diagnostics.Critical,
		Inner:    v.Modules,
	}.Validate(logger, h.Modules)
}

// ModuleValidator checks that an enabled module points at a library file
// and, when a Prober is set, that the library accepts its configuration.
type ModuleValidator struct {
	ModsDir string
	Prober  Prober
}

var libraryValidator = validation.Path{Severity: diagnostics.Critical, Kind: validation.ExistingFile}

// Validate implements validation.Validator.
func (v ModuleValidator) Validate(logger diagnostics.Logger, m Module) error {
	if !m.Enabled {
		diagnostics.Logf(logger, diagnostics.Debug, "Module %q is disabled, skipping.", m.Name)
		return nil
	}
	if m.Name == "" {
		return validation.Report(logger, diagnostics.Critical, diagnostics.ErrUnknown, "",
			"Module without a name.")
	}

	path := m.LibraryPath(v.ModsDir)
	if err := libraryValidator.Validate(logger, path); err != nil {
		return err
	}
	if v.Prober == nil {
		return nil
	}
	return v.Prober.Probe(logger, m, path)
}
