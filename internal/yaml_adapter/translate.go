package yaml_adapter

import (
	"encoding/json"
	"fmt"

	"github.com/vk/mammoth/internal/config"
	"github.com/vk/mammoth/pkg/diagnostics"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

func translate(doc *document) (*config.File, error) {
	f := &config.File{}

	if doc.Mammoth != nil {
		f.Mammoth = config.Mammoth{ModsDir: doc.Mammoth.ModsDir, LogFile: doc.Mammoth.LogFile}
		if doc.Mammoth.LogSeverity != "" {
			sev, err := diagnostics.ParseSeverity(doc.Mammoth.LogSeverity)
			if err != nil {
				return nil, fmt.Errorf("mammoth.log_severity: %w", err)
			}
			f.Mammoth.SetLogSeverity(sev)
		}
	}

	for i, h := range doc.Hosts {
		listen, err := toCty(h.Listen)
		if err != nil {
			return nil, fmt.Errorf("host[%d].listen: %w", i, err)
		}
		binding, err := config.DecodeBinding(listen)
		if err != nil {
			return nil, fmt.Errorf("host[%d]: %w", i, err)
		}
		host := config.Host{Hostname: h.Hostname, Listen: binding, StaticDir: h.StaticDir}
		for _, m := range h.Modules {
			mod, err := translateModule(m)
			if err != nil {
				return nil, fmt.Errorf("host[%d]: %w", i, err)
			}
			host.AddModule(mod)
		}
		f.AddHost(host)
	}

	for _, m := range doc.Modules {
		mod, err := translateModule(m)
		if err != nil {
			return nil, err
		}
		f.AddModule(mod)
	}

	env, err := toCty(doc.Environment)
	if err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	f.Environment = env
	return f, nil
}

func translateModule(m modDoc) (config.Module, error) {
	if m.Name == "" {
		return config.Module{}, fmt.Errorf("mod: missing field `name`")
	}
	mod := config.NewModule(m.Name)
	if m.Enabled != nil {
		mod.Enabled = *m.Enabled
	}
	if m.Location != "" {
		mod.SetLocation(m.Location)
	}
	cfg, err := toCty(m.Config)
	if err != nil {
		return config.Module{}, fmt.Errorf("mod %q config: %w", m.Name, err)
	}
	return mod.WithConfig(cfg), nil
}

// toCty converts a decoded YAML value into a cty.Value by way of JSON, which
// infers objects, tuples, numbers, strings and bools. A nil input yields
// cty.NilVal.
func toCty(v any) (cty.Value, error) {
	if v == nil {
		return cty.NilVal, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return cty.NilVal, err
	}
	ty, err := ctyjson.ImpliedType(raw)
	if err != nil {
		return cty.NilVal, err
	}
	return ctyjson.Unmarshal(raw, ty)
}
