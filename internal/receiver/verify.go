package receiver

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"

	"github.com/spf13/afero"
)

// ErrValidation is returned for CRLs that cannot be parsed, are not
// signed by the root certificate or carry no CRL number.
var ErrValidation = errors.New("validation failed")

// Verifier checks CRLs against the VPN root certificate.
type Verifier struct {
	Root *x509.Certificate
}

// LoadVerifier reads a PEM root certificate from path. Text before the
// PEM block, as written by openssl ca, is ignored.
func LoadVerifier(fs afero.Fs, path string) (*Verifier, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read root certificate: %w", err)
	}
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return nil, fmt.Errorf("no certificate found in %s", path)
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse root certificate: %w", err)
		}
		return &Verifier{Root: cert}, nil
	}
}

// Verify parses a PEM CRL, checks its signature and returns its number.
func (v *Verifier) Verify(data []byte) (*big.Int, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "X509 CRL" {
		return nil, fmt.Errorf("%w: no X509 CRL block", ErrValidation)
	}
	crl, err := x509.ParseRevocationList(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := crl.CheckSignatureFrom(v.Root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if crl.Number == nil {
		return nil, fmt.Errorf("%w: missing CRL number", ErrValidation)
	}
	return crl.Number, nil
}
