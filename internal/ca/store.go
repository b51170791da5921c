package ca

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// InitialCRLNumber is written to crlnumber when a CA is created.
const InitialCRLNumber = "1000"

// dirMode restricts every CA directory to its owner.
const dirMode os.FileMode = 0700

// Subdirectories created under the CA root.
var subdirs = []string{"certsdb", "private", "pub", "crl", "profiles", "reqs"}

// Store manages the CA directory layout.
// Directory structure:
//
//	{root}/
//	  ├── index.txt          # openssl certificate database
//	  ├── crlnumber          # openssl CRL counter
//	  ├── certsdb/           # openssl copies of issued certificates
//	  ├── private/           # root.pem, tls-auth.pem, dh2048.pem, transient keys
//	  ├── pub/               # root.crt and {name}.crt
//	  ├── reqs/              # {name}.csr
//	  ├── crl/               # crl.pem
//	  └── profiles/          # {name}.ovpn
type Store struct {
	fs   afero.Fs
	root string
}

// NewStore returns a Store rooted at root on fs.
func NewStore(fs afero.Fs, root string) *Store {
	return &Store{fs: fs, root: root}
}

// Fs returns the filesystem the store operates on.
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// Root returns the CA directory.
func (s *Store) Root() string {
	return s.root
}

// Path joins parts under the CA root.
func (s *Store) Path(parts ...string) string {
	return filepath.Join(append([]string{s.root}, parts...)...)
}

// RootExists reports whether the CA directory is present.
func (s *Store) RootExists() (bool, error) {
	return afero.Exists(s.fs, s.root)
}

// Init creates the directory tree, an empty index and the CRL counter.
// It fails with ErrCAExists, creating nothing, if the root already exists.
func (s *Store) Init() error {
	exists, err := s.RootExists()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", s.root, err)
	}
	if exists {
		return fmt.Errorf("%w: delete '%s' to start over", ErrCAExists, s.root)
	}

	if err := s.fs.MkdirAll(s.root, dirMode); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", s.root, err)
	}
	for _, d := range subdirs {
		dir := s.Path(d)
		if err := s.fs.Mkdir(dir, dirMode); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	// Mkdir honours the umask; make the restriction explicit.
	for _, dir := range append([]string{s.root}, s.paths(subdirs)...) {
		if err := s.fs.Chmod(dir, dirMode); err != nil {
			return fmt.Errorf("failed to restrict %s: %w", dir, err)
		}
	}

	if err := afero.WriteFile(s.fs, s.IndexPath(), nil, 0600); err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	if err := afero.WriteFile(s.fs, s.CRLNumberPath(), []byte(InitialCRLNumber), 0600); err != nil {
		return fmt.Errorf("failed to create crlnumber file: %w", err)
	}
	return nil
}

func (s *Store) paths(rel []string) []string {
	out := make([]string, len(rel))
	for i, r := range rel {
		out[i] = s.Path(r)
	}
	return out
}

// Exists reports whether a certificate has been issued for name.
func (s *Store) Exists(name string) bool {
	ok, err := afero.Exists(s.fs, s.CertPath(name))
	return err == nil && ok
}

// IndexPath returns the openssl index database.
func (s *Store) IndexPath() string { return s.Path("index.txt") }

// CRLNumberPath returns the openssl CRL counter file.
func (s *Store) CRLNumberPath() string { return s.Path("crlnumber") }

// KeyPath returns the private key of a certificate.
func (s *Store) KeyPath(name string) string { return s.Path("private", name+".pem") }

// RequestPath returns the signing request of a certificate.
func (s *Store) RequestPath(name string) string { return s.Path("reqs", name+".csr") }

// CertPath returns the public certificate of name.
func (s *Store) CertPath(name string) string { return s.Path("pub", name+".crt") }

// ProfilePath returns the rendered OpenVPN profile of name.
func (s *Store) ProfilePath(name string) string { return s.Path("profiles", name+".ovpn") }

// CACertPath returns the root certificate.
func (s *Store) CACertPath() string { return s.CertPath(rootName) }

// CAKeyPath returns the root private key.
func (s *Store) CAKeyPath() string { return s.KeyPath(rootName) }

// CARequestPath returns the root signing request.
func (s *Store) CARequestPath() string { return s.RequestPath(rootName) }

// TLSAuthPath returns the OpenVPN tls-auth secret.
func (s *Store) TLSAuthPath() string { return s.Path("private", "tls-auth.pem") }

// DHParamPath returns the Diffie-Hellman parameters.
func (s *Store) DHParamPath() string { return s.Path("private", "dh2048.pem") }

// CRLPath returns the current CRL.
func (s *Store) CRLPath() string { return s.Path("crl", "crl.pem") }

// ReadFile reads a file from the store's filesystem.
func (s *Store) ReadFile(path string) ([]byte, error) {
	return afero.ReadFile(s.fs, path)
}

// Remove deletes path, ignoring files that are already gone.
func (s *Store) Remove(path string) error {
	if err := s.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}
