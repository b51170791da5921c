package ca

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ovpnkeys/ovpnkeys/internal/audit"
)

// UpdateCRL regenerates crl/crl.pem and uploads it to crl_updater when
// one is configured. Upload failures are logged and never returned.
func (c *CA) UpdateCRL(ctx context.Context) error {
	logrus.Info("Updating CRL.")
	err := c.toolkit.GenCRL(ctx, c.store.CRLPath())
	if aerr := c.logAudit(audit.NewEvent(audit.EventCRLGenerated, audit.ResultOf(err)).
		WithObject(audit.Object{Type: "crl", Path: c.store.CRLPath()}).
		WithContext(audit.Context{CA: c.store.Root(), Reason: errString(err)})); err == nil {
		err = aerr
	}
	if err != nil {
		return wrap("crl", "", err)
	}

	if !c.publisher.Enabled() {
		logrus.Info("No crl_updater specified. Not updating CRL.")
		return nil
	}
	c.publish(ctx)
	return nil
}

func (c *CA) publish(ctx context.Context) {
	status, err := c.upload(ctx)
	if err != nil {
		logrus.Warnf("CRL upload failed: %v", err)
	}
	if err == nil && status != http.StatusOK {
		err = fmt.Errorf("endpoint answered %d", status)
	}
	event := audit.NewEvent(audit.EventCRLPublished, audit.ResultOf(err)).
		WithObject(audit.Object{Type: "crl", Path: c.store.CRLPath()}).
		WithContext(audit.Context{CA: c.store.Root(), Endpoint: c.publisher.Endpoint, Status: status, Reason: errString(err)})
	_ = c.logAudit(event)
}

func (c *CA) upload(ctx context.Context) (int, error) {
	data, err := c.store.ReadFile(c.store.CRLPath())
	if err != nil {
		return 0, fmt.Errorf("failed to read CRL: %w", err)
	}
	logrus.Infof("Uploading CRL to %s", c.publisher.Endpoint)
	return c.publisher.Publish(ctx, string(data))
}
