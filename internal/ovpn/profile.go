package ovpn

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Artifact placeholder keys.
const (
	KeyCACert = "cacert"
	KeyCert   = "cert"
	KeyKey    = "key"
	KeyTLS    = "ta"
	KeyDH     = "dh"
)

// ConfigLookup returns a required configuration value.
type ConfigLookup func(key string) (string, error)

// Renderer writes per-certificate profiles.
type Renderer struct {
	Fs afero.Fs

	// TemplateDir holds server.ovpn.template and client.ovpn.template.
	TemplateDir string

	// Config resolves placeholders that are not artifacts.
	Config ConfigLookup
}

// TemplatePath returns the template used for a certificate type.
func (r *Renderer) TemplatePath(certType string) string {
	return filepath.Join(r.TemplateDir, certType+".ovpn.template")
}

// Resolver returns the lookup used for a profile: the contents of the
// artifact file when present and non-empty, else the configuration value.
func (r *Renderer) Resolver(artifacts map[string]string) Resolver {
	return ResolverFunc(func(key string) (string, error) {
		if path, ok := artifacts[key]; ok {
			data, err := afero.ReadFile(r.Fs, path)
			switch {
			case err == nil && len(data) > 0:
				return string(data), nil
			case err != nil && !errors.Is(err, os.ErrNotExist):
				return "", fmt.Errorf("failed to read %s: %w", path, err)
			}
			logrus.Debugf("Artifact %s for {{%s}} is empty, using configuration", path, key)
		}
		if r.Config == nil {
			return "", &UnresolvedError{Key: key}
		}
		v, err := r.Config(key)
		if err != nil {
			return "", &UnresolvedError{Key: key, Err: err}
		}
		return v, nil
	})
}

// RenderProfile renders the template for certType and writes it to out
// with owner-only permissions.
func (r *Renderer) RenderProfile(certType, out string, artifacts map[string]string) error {
	tmplPath := r.TemplatePath(certType)
	tmpl, err := afero.ReadFile(r.Fs, tmplPath)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}

	rendered, err := Render(string(tmpl), r.Resolver(artifacts))
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", tmplPath, err)
	}

	if err := afero.WriteFile(r.Fs, out, []byte(rendered), 0600); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}
