// Package receiver accepts CRL uploads from ovpnkeys, verifies them
// against the VPN root certificate and serves the newest one.
package receiver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/ovpnkeys/ovpnkeys/internal/audit"
	"github.com/ovpnkeys/ovpnkeys/internal/crlstore"
	"github.com/ovpnkeys/ovpnkeys/internal/receiver/middleware"
)

// DefaultMaxSize is the largest CRL accepted, in bytes.
const DefaultMaxSize = 10 * 1024 * 1024

// Client-facing messages.
const (
	msgNotPost    = "must be a POST request"
	msgNotJSON    = "input needs to be json"
	msgNoCRL      = "no crl in json"
	msgTooBig     = "too big"
	msgValidation = "validation failed"
	msgOutdated   = "input is outdated"
	msgOK         = "OK"
)

// Options configures a Handler. Fs, Verifier, Store and Current are
// required.
type Options struct {
	Fs       afero.Fs
	Verifier *Verifier
	Store    *crlstore.Store
	// Current is the file served to OpenVPN servers, replaced atomically.
	Current string
	MaxSize int64
	Audit   audit.Writer
}

// Handler implements the upload and download endpoints.
type Handler struct {
	fs       afero.Fs
	verifier *Verifier
	store    *crlstore.Store
	current  string
	maxSize  int64
	audit    audit.Writer

	// mu covers the freshness check and the write of the current file.
	mu sync.Mutex
}

// NewHandler returns a Handler built from opts.
func NewHandler(opts Options) *Handler {
	h := &Handler{
		fs:       opts.Fs,
		verifier: opts.Verifier,
		store:    opts.Store,
		current:  opts.Current,
		maxSize:  opts.MaxSize,
		audit:    opts.Audit,
	}
	if h.maxSize <= 0 {
		h.maxSize = DefaultMaxSize
	}
	if h.audit == nil {
		h.audit = audit.NopWriter{}
	}
	return h
}

func respondText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg)
}

// Upload handles POST / with a JSON body {"crl": "<pem>"}.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondText(w, http.StatusBadRequest, msgNotPost)
		return
	}

	// JSON escaping at most doubles the PEM text.
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 2*h.maxSize+1024))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondText(w, http.StatusBadRequest, msgTooBig)
			return
		}
		respondText(w, http.StatusBadRequest, msgNotJSON)
		return
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil || len(payload) == 0 {
		respondText(w, http.StatusBadRequest, msgNotJSON)
		return
	}
	pemText, ok := payload["crl"].(string)
	if !ok {
		respondText(w, http.StatusBadRequest, msgNoCRL)
		return
	}
	if int64(len(pemText)) > h.maxSize {
		respondText(w, http.StatusBadRequest, msgTooBig)
		return
	}

	log := logrus.WithField("request_id", middleware.GetRequestID(r.Context()))

	number, err := h.verifier.Verify([]byte(pemText))
	if err != nil {
		log.Warnf("Rejected CRL: %v", err)
		h.logAudit(nil, err)
		respondText(w, http.StatusBadRequest, msgValidation)
		return
	}

	if err := h.accept(number, pemText); err != nil {
		h.logAudit(number, err)
		if errors.Is(err, crlstore.ErrOutdated) {
			log.Warnf("Rejected CRL: %v", err)
			respondText(w, http.StatusBadRequest, msgOutdated)
			return
		}
		log.Errorf("Failed to store CRL %s: %v", number, err)
		respondText(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	log.Infof("Accepted CRL number %s", number)
	h.logAudit(number, nil)
	respondText(w, http.StatusOK, msgOK)
}

// accept archives the CRL when it is newer than every known one and
// replaces the current file.
func (h *Handler) accept(number *big.Int, pemText string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	// A current file predating the archive still sets the baseline.
	if baseline, ok := h.currentNumber(); ok && number.Cmp(baseline) <= 0 {
		return fmt.Errorf("%w: %s is not newer than %s", crlstore.ErrOutdated, number, baseline)
	}
	if err := h.store.PutIfNewer(number, pemText); err != nil {
		return err
	}
	if err := h.writeCurrent([]byte(pemText)); err != nil {
		// Forget the number so the same CRL can be uploaded again.
		if derr := h.store.Delete(number); derr != nil {
			logrus.Errorf("Failed to remove CRL %s from the archive: %v", number, derr)
		}
		return err
	}
	return nil
}

func (h *Handler) currentNumber() (*big.Int, bool) {
	data, err := afero.ReadFile(h.fs, h.current)
	if err != nil {
		return nil, false
	}
	number, err := h.verifier.Verify(data)
	if err != nil {
		logrus.Debugf("Ignoring current CRL %s: %v", h.current, err)
		return nil, false
	}
	return number, true
}

// writeCurrent replaces the current CRL through a rename so readers never
// see a partial file.
func (h *Handler) writeCurrent(data []byte) error {
	tmp, err := afero.TempFile(h.fs, filepath.Dir(h.current), ".crl-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		h.fs.Remove(name)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		h.fs.Remove(name)
		return err
	}
	if err := h.fs.Chmod(name, 0644); err != nil {
		h.fs.Remove(name)
		return err
	}
	if err := h.fs.Rename(name, h.current); err != nil {
		h.fs.Remove(name)
		return fmt.Errorf("failed to replace %s: %w", h.current, err)
	}
	return nil
}

// Latest handles GET /crl.
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.Latest()
	if errors.Is(err, crlstore.ErrNotFound) {
		respondText(w, http.StatusNotFound, "no crl")
		return
	}
	if err != nil {
		logrus.Errorf("Failed to read latest CRL: %v", err)
		respondText(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	w.Header().Set("Content-Type", "application/pkix-crl")
	w.Header().Set("X-CRL-Number", rec.Number.String())
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, rec.PEM)
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	CRLNumber string `json:"crl_number,omitempty"`
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if rec, err := h.store.Latest(); err == nil {
		resp.CRLNumber = rec.Number.String()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logrus.Warnf("failed to encode health response: %v", err)
	}
}

func (h *Handler) logAudit(number *big.Int, err error) {
	obj := audit.Object{Type: "crl", Path: h.current}
	if number != nil {
		obj.Serial = number.String()
	}
	event := audit.NewEvent(audit.EventCRLReceived, audit.ResultOf(err)).
		WithObject(obj).
		WithContext(audit.Context{Reason: errString(err)})
	event.Actor = audit.Actor{Type: "service", ID: "crlreceiver"}
	if aerr := audit.Log(h.audit, event); aerr != nil {
		logrus.Errorf("Audit: %v", aerr)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
