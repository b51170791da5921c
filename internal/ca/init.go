package ca

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ovpnkeys/ovpnkeys/internal/audit"
	"github.com/ovpnkeys/ovpnkeys/internal/openssl"
	"github.com/ovpnkeys/ovpnkeys/internal/subject"
)

// rootSubject builds the CA subject from configuration. The root
// certificate carries no email address.
func (c *CA) rootSubject() (subject.Fields, error) {
	var f subject.Fields
	for _, field := range []struct {
		key string
		dst *string
	}{
		{"root_name", &f.Name},
		{"country", &f.Country},
		{"state", &f.State},
		{"organization", &f.Organization},
		{"organizational_unit", &f.OrganizationalUnit},
	} {
		v, err := c.cfg.Get(field.key)
		if err != nil {
			return f, err
		}
		*field.dst = v
	}
	return f, f.Validate()
}

// Init creates the CA directory, the self-signed root certificate, the
// tls-auth secret, DH parameters and the first CRL. noPass leaves the
// root key unencrypted, as does the no_ca_pass setting.
func (c *CA) Init(ctx context.Context, noPass bool) (err error) {
	defer func() {
		if aerr := c.logAudit(audit.NewEvent(audit.EventCACreated, audit.ResultOf(err)).
			WithObject(audit.Object{Type: "ca", Path: c.store.Root()}).
			WithContext(audit.Context{CA: c.store.Root(), Reason: errString(err)})); err == nil {
			err = aerr
		}
	}()

	fields, err := c.rootSubject()
	if err != nil {
		return wrap("init", "", err)
	}
	days, err := c.cfg.Get("root_certification_days")
	if err != nil {
		return wrap("init", "", err)
	}
	noCAPass, err := c.cfg.Bool("no_ca_pass", false)
	if err != nil {
		return wrap("init", "", err)
	}

	if err := c.store.Init(); err != nil {
		return wrap("init", "", err)
	}
	logrus.Infof("Created CA directory %s", c.store.Root())
	logrus.Info("Initialized CRL index.")

	logrus.Info("Creating CA request and key.")
	subj := subject.Build(fields)
	logrus.Infof("Built subject key: %s", subj)
	if err := c.toolkit.GenRequest(ctx, openssl.RequestOptions{
		KeyOut:  c.store.CAKeyPath(),
		Out:     c.store.CARequestPath(),
		Subject: subj,
		NoPass:  noCAPass || noPass,
	}); err != nil {
		return wrap("init", rootName, err)
	}

	logrus.Info("Self-signing CA.")
	if err := c.toolkit.SelfSign(ctx, openssl.SignOptions{
		In:         c.store.CARequestPath(),
		Out:        c.store.CACertPath(),
		Days:       days,
		Extensions: extCA,
		KeyFile:    c.store.CAKeyPath(),
	}); err != nil {
		return wrap("init", rootName, err)
	}

	logrus.Info("Generating tls-auth key.")
	if err := c.toolkit.GenTLSAuthKey(ctx, c.store.TLSAuthPath()); err != nil {
		return wrap("init", "", err)
	}

	logrus.Info("Generating dhparam.")
	if err := c.toolkit.DHParam(ctx, c.store.DHParamPath(), DHBits); err != nil {
		return wrap("init", "", err)
	}

	if err := c.UpdateCRL(ctx); err != nil {
		return err
	}

	c.printf("CA initialized in %s\n", c.store.Root())
	c.printf("  Certificate: %s\n", c.store.CACertPath())
	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
