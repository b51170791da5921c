// Package crl uploads freshly generated CRLs to a remote update endpoint.
package crl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultTimeout bounds a single upload.
const DefaultTimeout = 30 * time.Second

// maxLoggedBody caps how much of an error response is logged.
const maxLoggedBody = 64 * 1024

// UploadRequest is the JSON body accepted by the update endpoint.
type UploadRequest struct {
	CRL string `json:"crl"`
}

// Publisher POSTs CRLs to Endpoint. A zero Endpoint disables uploads.
type Publisher struct {
	Endpoint string
	Client   *http.Client
}

// NewPublisher returns a Publisher with a bounded HTTP client.
func NewPublisher(endpoint string, timeout time.Duration) *Publisher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Publisher{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether an endpoint is configured.
func (p *Publisher) Enabled() bool {
	return p != nil && p.Endpoint != ""
}

// Publish sends pem once. It returns the HTTP status, or an error when
// the request could not be made. A non-200 status is not an error; its
// body is logged.
func (p *Publisher) Publish(ctx context.Context, pem string) (int, error) {
	body, err := json.Marshal(UploadRequest{CRL: pem})
	if err != nil {
		return 0, fmt.Errorf("failed to encode CRL upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create CRL upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to post CRL to %s: %w", p.Endpoint, err)
	}
	defer resp.Body.Close()

	logrus.Infof("Got response %s", resp.Status)
	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
		logrus.Warnf("response text: %s", text)
	}
	return resp.StatusCode, nil
}
