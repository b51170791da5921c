// Package audit records CA operations in an append-only JSONL log.
//
// Audit logs are separate from diagnostic logs:
//   - Every event is chained to the previous one with a SHA-256 hash
//   - A failed audit write fails the operation being audited
//   - Secrets (keys, passphrases, profile contents) are never logged
//   - All timestamps are UTC
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// EventType represents the category of audit event.
type EventType string

const (
	// CA lifecycle events
	EventCACreated EventType = "CA_CREATED"

	// Certificate events
	EventCertIssued  EventType = "CERT_ISSUED"
	EventCertRevoked EventType = "CERT_REVOKED"

	// CRL events
	EventCRLGenerated EventType = "CRL_GENERATED"
	EventCRLPublished EventType = "CRL_PUBLISHED"
	EventCRLReceived  EventType = "CRL_RECEIVED"
)

// Result represents the outcome of an audited operation.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Actor represents who performed the action.
type Actor struct {
	Type string `json:"type"`           // "user" or "service"
	ID   string `json:"id"`             // username or service identifier
	Host string `json:"host,omitempty"` // hostname where action occurred
}

// Object represents what was acted upon.
type Object struct {
	Type    string `json:"type"`              // "ca", "certificate", "crl"
	Name    string `json:"name,omitempty"`    // certificate common name
	Serial  string `json:"serial,omitempty"`  // certificate or CRL serial
	Subject string `json:"subject,omitempty"` // subject string passed to openssl
	Path    string `json:"path,omitempty"`    // file path
}

// Context provides additional details about the operation.
type Context struct {
	CA       string `json:"ca,omitempty"`        // CA directory
	CertType string `json:"cert_type,omitempty"` // server or client
	Endpoint string `json:"endpoint,omitempty"`  // CRL update endpoint
	Status   int    `json:"status,omitempty"`    // HTTP status of a CRL upload
	Reason   string `json:"reason,omitempty"`    // failure reason
}

// Event represents a single audit log entry.
type Event struct {
	ID        string    `json:"id"`
	EventType EventType `json:"event_type"`
	Timestamp string    `json:"timestamp"` // RFC3339 UTC
	Actor     Actor     `json:"actor"`
	Object    Object    `json:"object"`
	Context   Context   `json:"context,omitempty"`
	Result    Result    `json:"result"`
	HashPrev  string    `json:"hash_prev"` // hash of the previous event
	Hash      string    `json:"hash"`      // hash of this event
}

// NewEvent creates an event with a fresh id, the current time and the
// invoking user as actor.
func NewEvent(eventType EventType, result Result) *Event {
	hostname, _ := os.Hostname()
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME") // Windows
	}
	if username == "" {
		username = "unknown"
	}

	return &Event{
		ID:        uuid.NewString(),
		EventType: eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Actor: Actor{
			Type: "user",
			ID:   username,
			Host: hostname,
		},
		Result: result,
	}
}

// ResultOf maps an operation error to a Result.
func ResultOf(err error) Result {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}

// WithObject sets the object field.
func (e *Event) WithObject(obj Object) *Event {
	e.Object = obj
	return e
}

// WithContext sets the context field.
func (e *Event) WithContext(ctx Context) *Event {
	e.Context = ctx
	return e
}

// WithActor overrides the default actor.
func (e *Event) WithActor(actor Actor) *Event {
	e.Actor = actor
	return e
}

// Validate checks that required fields are present.
func (e *Event) Validate() error {
	if e.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if e.Timestamp == "" {
		return fmt.Errorf("timestamp is required")
	}
	if e.Actor.Type == "" || e.Actor.ID == "" {
		return fmt.Errorf("actor type and id are required")
	}
	if e.Result == "" {
		return fmt.Errorf("result is required")
	}
	return nil
}

// CanonicalJSON returns the event without its Hash field, the input of
// the chain hash.
func (e *Event) CanonicalJSON() ([]byte, error) {
	type eventForHash struct {
		ID        string    `json:"id"`
		EventType EventType `json:"event_type"`
		Timestamp string    `json:"timestamp"`
		Actor     Actor     `json:"actor"`
		Object    Object    `json:"object"`
		Context   Context   `json:"context,omitempty"`
		Result    Result    `json:"result"`
		HashPrev  string    `json:"hash_prev"`
	}

	return json.Marshal(eventForHash{
		ID:        e.ID,
		EventType: e.EventType,
		Timestamp: e.Timestamp,
		Actor:     e.Actor,
		Object:    e.Object,
		Context:   e.Context,
		Result:    e.Result,
		HashPrev:  e.HashPrev,
	})
}

// JSON returns the full event as JSON.
func (e *Event) JSON() ([]byte, error) {
	return json.Marshal(e)
}
