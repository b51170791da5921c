// Package profiles provides the example configuration, openssl.cnf and
// profile templates embedded in the binary.
//
// "ovpnkeys scaffold" writes them to disk as a starting point.
package profiles

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// FS contains the embedded files.
//
//go:embed ovpnkeys.yaml.example openssl.cnf server.ovpn.template client.ovpn.template
var FS embed.FS

// Files lists the embedded files in the order they are written.
var Files = []string{
	"ovpnkeys.yaml.example",
	"openssl.cnf",
	"server.ovpn.template",
	"client.ovpn.template",
}

// Result reports what Scaffold did with one file.
type Result struct {
	Path    string
	Written bool
}

// Scaffold writes every embedded file into dir. Existing files are left
// untouched.
func Scaffold(dst afero.Fs, dir string) ([]Result, error) {
	if err := dst.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	var results []Result
	for _, name := range Files {
		path := filepath.Join(dir, name)
		exists, err := afero.Exists(dst, path)
		if err != nil {
			return results, err
		}
		if exists {
			results = append(results, Result{Path: path})
			continue
		}

		data, err := fs.ReadFile(FS, name)
		if err != nil {
			return results, err
		}
		f, err := dst.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			results = append(results, Result{Path: path})
			continue
		}
		if err != nil {
			return results, fmt.Errorf("failed to create %s: %w", path, err)
		}
		_, werr := f.Write(data)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return results, fmt.Errorf("failed to write %s: %w", path, werr)
		}
		results = append(results, Result{Path: path, Written: true})
	}
	return results, nil
}
