package ca

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ovpnkeys/ovpnkeys/internal/audit"
)

// Revoke revokes the certificate issued for name, deletes its public
// certificate and regenerates the CRL. It does nothing when no
// certificate exists for name.
func (c *CA) Revoke(ctx context.Context, name string) error {
	if name == "" {
		return wrap("revoke", "", ErrNameRequired)
	}
	if !c.store.Exists(name) {
		logrus.Debugf("No certificate for %s, nothing to revoke", name)
		return nil
	}

	err := c.revoke(ctx, name)
	if aerr := c.logAudit(audit.NewEvent(audit.EventCertRevoked, audit.ResultOf(err)).
		WithObject(audit.Object{Type: "certificate", Name: name, Path: c.store.CertPath(name)}).
		WithContext(audit.Context{CA: c.store.Root(), Reason: errString(err)})); err == nil {
		err = aerr
	}
	if err != nil {
		return wrap("revoke", name, err)
	}

	c.printf("Revoked certificate for %s\n", name)
	return c.UpdateCRL(ctx)
}

func (c *CA) revoke(ctx context.Context, name string) error {
	logrus.Infof("Revoking %s", name)
	if err := c.toolkit.Revoke(ctx, c.store.CertPath(name)); err != nil {
		return err
	}
	return c.store.Remove(c.store.CertPath(name))
}
