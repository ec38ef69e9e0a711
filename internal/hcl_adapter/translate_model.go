// This file translates the decoded HCL schema structs into the
// format-agnostic configuration model of the config package.

package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/mammoth/internal/config"
	"github.com/vk/mammoth/internal/ctxlog"
	"github.com/vk/mammoth/pkg/diagnostics"
	"github.com/zclconf/go-cty/cty"
)

func (l *Loader) translateFile(ctx context.Context, root *fileRoot) (*config.File, error) {
	f := &config.File{Environment: cty.NilVal}

	if root.Mammoth != nil {
		m, err := translateMammoth(root.Mammoth)
		if err != nil {
			return nil, err
		}
		f.Mammoth = m
	}

	for _, h := range root.Hosts {
		host, err := l.translateHost(ctx, h)
		if err != nil {
			return nil, err
		}
		f.AddHost(host)
	}

	for _, m := range root.Modules {
		mod, err := l.translateModule(ctx, m)
		if err != nil {
			return nil, err
		}
		f.AddModule(mod)
	}

	env, err := optionalValue(ctx, root.Environment, "environment")
	if err != nil {
		return nil, err
	}
	f.Environment = env
	return f, nil
}

func translateMammoth(b *mammothBlock) (config.Mammoth, error) {
	m := config.Mammoth{ModsDir: b.ModsDir, LogFile: b.LogFile}
	if b.LogSeverity != "" {
		sev, err := diagnostics.ParseSeverity(b.LogSeverity)
		if err != nil {
			return config.Mammoth{}, fmt.Errorf("mammoth.log_severity: %w", err)
		}
		m.SetLogSeverity(sev)
	}
	return m, nil
}

func (l *Loader) translateHost(ctx context.Context, b *hostBlock) (config.Host, error) {
	logger := ctxlog.FromContext(ctx)

	val, diags := b.Listen.Value(nil)
	if diags.HasErrors() {
		return config.Host{}, fmt.Errorf("host.listen: %w", diags)
	}
	binding, err := config.DecodeBinding(val)
	if err != nil {
		return config.Host{}, fmt.Errorf("%s: host %w", b.Listen.Range(), err)
	}

	host := config.Host{
		Hostname:  b.Hostname,
		Listen:    binding,
		StaticDir: b.StaticDir,
	}
	for _, m := range b.Modules {
		mod, err := l.translateModule(ctx, m)
		if err != nil {
			return config.Host{}, err
		}
		host.AddModule(mod)
	}

	logger.Debug("Translated host block.", "host", host.ID().String(), "secure", binding.Secure, "modules", len(host.Modules))
	return host, nil
}

func (l *Loader) translateModule(ctx context.Context, b *modBlock) (config.Module, error) {
	m := config.NewModule(b.Name)
	if b.Enabled != nil {
		m.Enabled = *b.Enabled
	}
	if b.Location != "" {
		m.SetLocation(b.Location)
	}

	cfg, err := optionalValue(ctx, b.Config, "config")
	if err != nil {
		return config.Module{}, fmt.Errorf("mod %q: %w", b.Name, err)
	}
	return m.WithConfig(cfg), nil
}

// optionalValue evaluates an optional attribute, returning cty.NilVal when
// it was not written in the source.
func optionalValue(ctx context.Context, expr hcl.Expression, attrName string) (cty.Value, error) {
	if !isExprDefined(ctx, expr, attrName) {
		return cty.NilVal, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("%s: %w", attrName, diags)
	}
	return val, nil
}
