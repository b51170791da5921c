package audit

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// DeferredWriter opens its log file on the first Write. It lets a log
// live inside a directory that the audited operation creates.
type DeferredWriter struct {
	mu   sync.Mutex
	path string
	w    *FileWriter
}

var _ Writer = (*DeferredWriter)(nil)

// OpenDeferred returns a NopWriter for an empty path and a FileWriter when
// the parent directory of path exists. Otherwise opening is postponed to
// the first event, and the directory is never created by the writer.
func OpenDeferred(path string) (Writer, error) {
	if path == "" {
		return NopWriter{}, nil
	}
	if _, err := os.Stat(filepath.Dir(path)); err == nil {
		return NewFileWriter(path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return &DeferredWriter{path: path}, nil
}

func (d *DeferredWriter) open() (*FileWriter, error) {
	if d.w == nil {
		w, err := NewFileWriter(d.path)
		if err != nil {
			return nil, err
		}
		d.w = w
	}
	return d.w, nil
}

// Write opens the log if needed and appends event.
func (d *DeferredWriter) Write(event *Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	w, err := d.open()
	if err != nil {
		return err
	}
	return w.Write(event)
}

// Close closes the log if it was opened.
func (d *DeferredWriter) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.w == nil {
		return nil
	}
	return d.w.Close()
}

// LastHash returns GenesisHash until the log has been opened.
func (d *DeferredWriter) LastHash() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.w == nil {
		return GenesisHash
	}
	return d.w.LastHash()
}

// Path returns the file path of the audit log.
func (d *DeferredWriter) Path() string {
	return d.path
}
