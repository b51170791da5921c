package ca

import (
	"context"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ovpnkeys/ovpnkeys/internal/audit"
	"github.com/ovpnkeys/ovpnkeys/internal/config"
	"github.com/ovpnkeys/ovpnkeys/internal/openssl"
	"github.com/ovpnkeys/ovpnkeys/internal/ovpn"
	"github.com/ovpnkeys/ovpnkeys/internal/subject"
)

// IssueRequest describes a certificate to create. Empty subject fields
// other than Name fall back to the configuration.
type IssueRequest struct {
	Subject subject.Fields
	Type    CertType
	NoPass  bool
}

// IssueResult reports the outcome of Create.
type IssueResult struct {
	// Issued is false when the operator declined to replace an existing
	// certificate.
	Issued  bool
	Subject string
	Serial  string
	Profile string
}

// subjectFor completes the requested subject from configuration. A config
// key is required only when the request leaves its attribute empty; an
// empty config value leaves the attribute out.
func (c *CA) subjectFor(req subject.Fields) (subject.Fields, error) {
	var defaults subject.Fields
	for _, field := range []struct {
		key  string
		have string
		dst  *string
	}{
		{"country", req.Country, &defaults.Country},
		{"state", req.State, &defaults.State},
		{"organization", req.Organization, &defaults.Organization},
		{"organizational_unit", req.OrganizationalUnit, &defaults.OrganizationalUnit},
		{"email", req.Email, &defaults.Email},
	} {
		if field.have != "" {
			continue
		}
		v, err := c.cfg.Get(field.key)
		if err != nil {
			return req, err
		}
		*field.dst = v
	}
	return subject.Merge(req, defaults), nil
}

// askToRevoke returns false when a certificate for name exists and the
// operator refuses to revoke it.
func (c *CA) askToRevoke(ctx context.Context, name string) (bool, error) {
	if !c.store.Exists(name) {
		return true, nil
	}
	yes, err := c.prompt(fmt.Sprintf("Certificate for %s already exists. Revoke it?", name))
	if err != nil {
		return false, err
	}
	if !yes {
		return false, nil
	}
	if err := c.Revoke(ctx, name); err != nil {
		return false, err
	}
	return true, nil
}

// Create issues a certificate, renders its profile and deletes the
// private key from the CA directory. Nothing is rolled back on failure.
func (c *CA) Create(ctx context.Context, req IssueRequest) (*IssueResult, error) {
	name := req.Subject.Name
	if err := req.Subject.Validate(); err != nil {
		return nil, wrap("issue", "", ErrNameRequired)
	}
	exts, err := req.Type.Extensions(c.cfg.CRLURL() != "")
	if err != nil {
		return nil, wrap("issue", name, err)
	}
	fields, err := c.subjectFor(req.Subject)
	if err != nil {
		return nil, wrap("issue", name, err)
	}
	days, err := c.cfg.Get("certification_days")
	if err != nil {
		return nil, wrap("issue", name, err)
	}

	proceed, err := c.askToRevoke(ctx, name)
	if err != nil {
		return nil, wrap("issue", name, err)
	}
	if !proceed {
		c.printf("Cancelling.\n")
		return &IssueResult{}, nil
	}

	result := &IssueResult{
		Subject: subject.Build(fields),
		Profile: c.store.ProfilePath(name),
	}
	err = c.issue(ctx, name, req, exts, days, result)

	if aerr := c.logAudit(audit.NewEvent(audit.EventCertIssued, audit.ResultOf(err)).
		WithObject(audit.Object{Type: "certificate", Name: name, Serial: result.Serial, Subject: result.Subject}).
		WithContext(audit.Context{CA: c.store.Root(), CertType: string(req.Type), Reason: errString(err)})); err == nil {
		err = aerr
	}
	if err != nil {
		return nil, wrap("issue", name, err)
	}

	result.Issued = true
	c.printf("Deleted private key.\n")
	c.printf("Profile written to %s\n", result.Profile)
	c.printf("After transferring the profile, you should also delete it from the database.\n")
	return result, nil
}

func (c *CA) issue(ctx context.Context, name string, req IssueRequest, exts, days string, result *IssueResult) error {
	logrus.Infof("Generating key and CSR for %s", name)
	logrus.Infof("Built subject key: %s", result.Subject)
	if err := c.toolkit.GenRequest(ctx, openssl.RequestOptions{
		KeyOut:  c.store.KeyPath(name),
		Out:     c.store.RequestPath(name),
		Subject: result.Subject,
		NoPass:  req.NoPass,
	}); err != nil {
		return err
	}

	var env []string
	if url := c.cfg.CRLURL(); url != "" {
		env = []string{config.EnvCRL + "=URI:" + url}
	}

	logrus.Info("Signing certificate.")
	if err := c.toolkit.Sign(ctx, openssl.SignOptions{
		In:         c.store.RequestPath(name),
		Out:        c.store.CertPath(name),
		Days:       days,
		Extensions: exts,
		Env:        env,
	}); err != nil {
		return err
	}
	result.Serial = c.certSerial(name)

	if err := c.renderer.RenderProfile(string(req.Type), result.Profile, c.artifacts(name)); err != nil {
		return err
	}

	return c.store.Remove(c.store.KeyPath(name))
}

// artifacts maps profile placeholders to generated files.
func (c *CA) artifacts(name string) map[string]string {
	return map[string]string{
		ovpn.KeyCACert: c.store.CACertPath(),
		ovpn.KeyCert:   c.store.CertPath(name),
		ovpn.KeyKey:    c.store.KeyPath(name),
		ovpn.KeyTLS:    c.store.TLSAuthPath(),
		ovpn.KeyDH:     c.store.DHParamPath(),
	}
}

// certSerial extracts the serial number of an issued certificate for the
// audit log. openssl prefixes the PEM block with a text dump, which
// pem.Decode skips.
func (c *CA) certSerial(name string) string {
	data, err := c.store.ReadFile(c.store.CertPath(name))
	if err != nil {
		return ""
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return ""
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		logrus.Debugf("Could not parse %s: %v", c.store.CertPath(name), err)
		return ""
	}
	return hex.EncodeToString(cert.SerialNumber.Bytes())
}
