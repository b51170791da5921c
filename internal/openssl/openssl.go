// Package openssl composes the openssl and openvpn command lines used to
// operate the CA.
package openssl

import (
	"context"

	"github.com/ovpnkeys/ovpnkeys/internal/runner"
)

// Toolkit drives the external binaries through a runner.Runner.
type Toolkit struct {
	Runner runner.Runner

	// Binary and OpenVPN name the executables ("openssl", "openvpn").
	Binary  string
	OpenVPN string

	// Config is the openssl configuration file passed with -config.
	Config string

	// Env is appended to every child environment (OVPNKEYS_CA, OVPNKEYS_CRL).
	Env []string
}

// RequestOptions configures GenRequest.
type RequestOptions struct {
	KeyOut  string
	Out     string
	Subject string
	NoPass  bool
}

// SignOptions configures SelfSign and Sign.
type SignOptions struct {
	In         string
	Out        string
	Days       string
	Extensions string
	KeyFile    string
	// Env overrides Toolkit.Env entries for this call only.
	Env []string
}

func (t *Toolkit) run(ctx context.Context, extraEnv []string, args ...string) error {
	env := append(append([]string{}, t.Env...), extraEnv...)
	return t.Runner.Run(ctx, runner.Command{Args: args, Env: env})
}

func (t *Toolkit) binary() string {
	if t.Binary == "" {
		return "openssl"
	}
	return t.Binary
}

func (t *Toolkit) openvpn() string {
	if t.OpenVPN == "" {
		return "openvpn"
	}
	return t.OpenVPN
}

// GenRequest creates an RSA key and a certificate signing request.
func (t *Toolkit) GenRequest(ctx context.Context, opts RequestOptions) error {
	args := []string{
		t.binary(), "req", "-new", "-newkey", "rsa",
		"-keyout", opts.KeyOut,
		"-out", opts.Out,
		"-config", t.Config,
		"-subj", opts.Subject,
	}
	if opts.NoPass {
		args = append(args, "-nodes")
	}
	return t.run(ctx, nil, args...)
}

// SelfSign signs the root request with its own key.
func (t *Toolkit) SelfSign(ctx context.Context, opts SignOptions) error {
	return t.run(ctx, opts.Env,
		t.binary(), "ca", "-batch", "-create_serial",
		"-out", opts.Out,
		"-days", opts.Days,
		"-keyfile", opts.KeyFile,
		"-selfsign", "-extensions", opts.Extensions,
		"-config", t.Config,
		"-infiles", opts.In,
	)
}

// Sign issues a certificate for a request in batch mode.
func (t *Toolkit) Sign(ctx context.Context, opts SignOptions) error {
	return t.run(ctx, opts.Env,
		t.binary(), "ca", "-batch",
		"-days", opts.Days,
		"-config", t.Config,
		"-extensions", opts.Extensions,
		"-out", opts.Out,
		"-infiles", opts.In,
	)
}

// Revoke marks a certificate revoked in the CA index.
func (t *Toolkit) Revoke(ctx context.Context, certPath string) error {
	return t.run(ctx, nil, t.binary(), "ca", "-revoke", certPath, "-config", t.Config)
}

// GenCRL writes a fresh CRL to out.
func (t *Toolkit) GenCRL(ctx context.Context, out string) error {
	return t.run(ctx, nil, t.binary(), "ca", "-gencrl", "-config", t.Config, "-out", out)
}

// DHParam generates Diffie-Hellman parameters.
func (t *Toolkit) DHParam(ctx context.Context, out, bits string) error {
	return t.run(ctx, nil, t.binary(), "dhparam", "-out", out, bits)
}

// GenTLSAuthKey creates the OpenVPN tls-auth shared secret.
func (t *Toolkit) GenTLSAuthKey(ctx context.Context, out string) error {
	return t.run(ctx, nil, t.openvpn(), "--genkey", "secret", out)
}
