// Package ca implements the OpenVPN certificate authority workflows:
// initialization, issuance, revocation and CRL publishing. Cryptographic
// work is delegated to openssl through openssl.Toolkit.
package ca

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/ovpnkeys/ovpnkeys/internal/audit"
	"github.com/ovpnkeys/ovpnkeys/internal/config"
	"github.com/ovpnkeys/ovpnkeys/internal/crl"
	"github.com/ovpnkeys/ovpnkeys/internal/openssl"
	"github.com/ovpnkeys/ovpnkeys/internal/ovpn"
)

const rootName = "root"

// Extension sections of openssl.cnf.
const (
	extCA     = "my_v3_ca_exts"
	extServer = "my_vpn_server_exts"
	extClient = "my_vpn_client_exts"
	extCRL    = "_crl"
)

// DHBits is the size of the generated Diffie-Hellman parameters.
const DHBits = "2048"

// CertType selects the signing extensions and profile template.
type CertType string

const (
	TypeServer CertType = "server"
	TypeClient CertType = "client"
)

// Extensions returns the openssl.cnf section used to sign t, with the CRL
// distribution point variant when withCRL is set.
func (t CertType) Extensions(withCRL bool) (string, error) {
	var exts string
	switch t {
	case TypeServer:
		exts = extServer
	case TypeClient:
		exts = extClient
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, string(t))
	}
	if withCRL {
		exts += extCRL
	}
	return exts, nil
}

// Prompter asks the operator a yes/no question.
type Prompter func(question string) (bool, error)

// CA runs workflows against one CA directory.
type CA struct {
	cfg       *config.Config
	store     *Store
	toolkit   *openssl.Toolkit
	renderer  *ovpn.Renderer
	publisher *crl.Publisher
	audit     audit.Writer
	prompt    Prompter
	out       io.Writer
}

// Options wires a CA. Store, Toolkit and Config are required.
type Options struct {
	Config    *config.Config
	Store     *Store
	Toolkit   *openssl.Toolkit
	Renderer  *ovpn.Renderer
	Publisher *crl.Publisher
	Audit     audit.Writer
	Prompt    Prompter
	Out       io.Writer
}

// New returns a CA built from opts.
func New(opts Options) *CA {
	c := &CA{
		cfg:       opts.Config,
		store:     opts.Store,
		toolkit:   opts.Toolkit,
		renderer:  opts.Renderer,
		publisher: opts.Publisher,
		audit:     opts.Audit,
		prompt:    opts.Prompt,
		out:       opts.Out,
	}
	if c.audit == nil {
		c.audit = audit.NopWriter{}
	}
	if c.out == nil {
		c.out = io.Discard
	}
	if c.renderer == nil {
		c.renderer = &ovpn.Renderer{
			Fs:          c.store.Fs(),
			TemplateDir: c.cfg.GetDefault("template_dir", "."),
			Config:      c.cfg.Get,
		}
	}
	if c.prompt == nil {
		c.prompt = func(string) (bool, error) { return false, nil }
	}
	return c
}

// Store returns the CA directory manager.
func (c *CA) Store() *Store {
	return c.store
}

func (c *CA) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *CA) logAudit(event *audit.Event) error {
	if err := audit.Log(c.audit, event); err != nil {
		logrus.Errorf("Audit: %v", err)
		return err
	}
	return nil
}
