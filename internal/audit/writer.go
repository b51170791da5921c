package audit

import (
	"fmt"
	"io"
)

// Writer defines the interface for audit log writers.
//
// Implementations MUST:
//   - Return an error if the write fails (audit fails = operation fails)
//   - Flush to stable storage before returning from Write
//   - Set the hash chain (HashPrev, Hash)
type Writer interface {
	// Write validates the event, chains it to the previous one and
	// persists it.
	Write(event *Event) error

	// Close flushes any pending writes and closes the writer.
	Close() error

	// LastHash returns the hash of the last written event, or
	// GenesisHash if none was written.
	LastHash() string
}

// NopWriter discards all events. Used when audit logging is disabled.
type NopWriter struct{}

var _ Writer = (*NopWriter)(nil)

func (NopWriter) Write(*Event) error { return nil }
func (NopWriter) Close() error       { return nil }
func (NopWriter) LastHash() string   { return GenesisHash }

// Open returns a FileWriter for path, or a NopWriter when path is empty.
func Open(path string) (Writer, error) {
	if path == "" {
		return NopWriter{}, nil
	}
	return NewFileWriter(path)
}

// Log writes event and wraps any failure so callers can fail the
// operation being audited.
func Log(w Writer, event *Event) error {
	if w == nil {
		return nil
	}
	if err := w.Write(event); err != nil {
		return fmt.Errorf("audit log failed: %w", err)
	}
	return nil
}

// Ensure Writer extends io.Closer for proper resource management.
var _ io.Closer = (Writer)(nil)
