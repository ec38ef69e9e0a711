package config

import (
	"crypto/tls"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/vk/mammoth/pkg/diagnostics"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

var validate = validator.New()

// Binding is the port and TLS material a host listens with. A secure
// binding always carries both Cert and Key.
type Binding struct {
	Port   uint16
	Secure bool
	Cert   string
	Key    string
}

// NewBinding returns an insecure binding on port.
func NewBinding(port uint16) Binding {
	return Binding{Port: port}
}

// WithSecurity returns a secure binding on port.
func WithSecurity(port uint16, cert, key string) Binding {
	return Binding{Port: port, Secure: true, Cert: cert, Key: key}
}

// SetSecurity turns b into a secure binding.
func (b *Binding) SetSecurity(cert, key string) {
	b.Secure = true
	b.Cert = cert
	b.Key = key
}

// ClearSecurity removes all TLS material from b.
func (b *Binding) ClearSecurity() {
	b.Secure = false
	b.Cert = ""
	b.Key = ""
}

// Addr returns the listen address of b on all interfaces.
func (b Binding) Addr() string {
	return fmt.Sprintf("0.0.0.0:%d", b.Port)
}

// TLSConfig loads the certificate pair of a secure binding.
func (b Binding) TLSConfig() (*tls.Config, error) {
	if !b.Secure {
		return nil, diagnostics.NewError(diagnostics.ErrSecureBindOnInsecure, b.Addr(), nil)
	}
	pair, err := tls.LoadX509KeyPair(b.Cert, b.Key)
	if err != nil {
		return nil, diagnostics.NewError(diagnostics.ErrTLS, b.Cert, err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{pair},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

var bindingAttrs = map[string]struct{}{"port": {}, "secure": {}, "cert": {}, "key": {}}

// DecodeBinding builds a Binding from a raw configuration value. A bare
// number is an insecure binding on that port. An object must carry port.
// An explicit secure = false yields an insecure binding whatever else is
// set; otherwise secure = true or the presence of cert or key requires
// both cert and key.
func DecodeBinding(v cty.Value) (Binding, error) {
	if v.IsNull() {
		return Binding{}, fmt.Errorf("listen: missing value")
	}
	if !v.IsWhollyKnown() {
		return Binding{}, fmt.Errorf("listen: value must be known")
	}

	ty := v.Type()
	if ty.Equals(cty.Number) {
		port, err := decodePort(v)
		if err != nil {
			return Binding{}, err
		}
		return NewBinding(port), nil
	}
	if !ty.IsObjectType() && !ty.IsMapType() {
		return Binding{}, fmt.Errorf("listen: expected a port number or an object, got %s", ty.FriendlyName())
	}

	attrs := v.AsValueMap()
	var unknown []string
	for name := range attrs {
		if _, ok := bindingAttrs[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Binding{}, fmt.Errorf("listen: unsupported field(s) %s", strings.Join(unknown, ", "))
	}

	portVal, ok := attrs["port"]
	if !ok || portVal.IsNull() {
		return Binding{}, fmt.Errorf("listen: missing field `port`")
	}
	port, err := decodePort(portVal)
	if err != nil {
		return Binding{}, err
	}

	cert, err := optionalString(attrs, "cert")
	if err != nil {
		return Binding{}, err
	}
	key, err := optionalString(attrs, "key")
	if err != nil {
		return Binding{}, err
	}

	// cert = "" does not make a binding secure.
	secure := cert != "" || key != ""
	if sv, ok := attrs["secure"]; ok && !sv.IsNull() {
		if err := gocty.FromCtyValue(sv, &secure); err != nil {
			return Binding{}, fmt.Errorf("listen.secure: %w", err)
		}
		if !secure {
			return NewBinding(port), nil
		}
	}
	if !secure {
		return NewBinding(port), nil
	}

	switch {
	case cert == "":
		return Binding{}, fmt.Errorf("listen: missing field `cert`")
	case key == "":
		return Binding{}, fmt.Errorf("listen: missing field `key`")
	}
	return WithSecurity(port, cert, key), nil
}

func decodePort(v cty.Value) (uint16, error) {
	var n int64
	if err := gocty.FromCtyValue(v, &n); err != nil {
		return 0, fmt.Errorf("listen.port: %w", err)
	}
	if err := validate.Var(n, "gte=0,lte=65535"); err != nil {
		return 0, fmt.Errorf("listen.port: %d is not a valid port", n)
	}
	return uint16(n), nil
}

// optionalString treats an empty string the same as an absent attribute.
func optionalString(attrs map[string]cty.Value, name string) (string, error) {
	v, ok := attrs[name]
	if !ok || v.IsNull() {
		return "", nil
	}
	var s string
	if err := gocty.FromCtyValue(v, &s); err != nil {
		return "", fmt.Errorf("listen.%s: %w", name, err)
	}
	return s, nil
}
