package ca

import (
	"errors"
	"fmt"
)

// CAError represents a CA workflow error with the operation and
// certificate it concerns. It supports errors.Is() and errors.As().
type CAError struct {
	Op   string // "init", "issue", "revoke", "crl"
	Name string // certificate name (if applicable)
	Err  error
}

// Error implements the error interface.
func (e *CAError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("ca %s [%s]: %v", e.Op, e.Name, e.Err)
	}
	return fmt.Sprintf("ca %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *CAError) Unwrap() error { return e.Err }

func wrap(op, name string, err error) error {
	if err == nil {
		return nil
	}
	return &CAError{Op: op, Name: name, Err: err}
}

// Sentinel errors for CA operations.
var (
	// ErrCAExists is returned by init when the CA directory is present.
	ErrCAExists = errors.New("folder already exists")

	// ErrNameRequired is returned when no certificate name was given.
	ErrNameRequired = errors.New("--name is required")

	// ErrUnknownType is returned for certificate types other than
	// server and client.
	ErrUnknownType = errors.New("unexpected certificate type")
)
