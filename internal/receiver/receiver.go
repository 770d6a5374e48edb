// Package receiver accepts obfuscated post parameters over HTTP and hands
// back the decoded text.
package receiver

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/RowanDark/postparam"
	"github.com/RowanDark/postparam/internal/logging"
	"github.com/RowanDark/postparam/internal/observability/metrics"
)

const (
	// DefaultParamName is the form field read by /decode.
	DefaultParamName = "data"
	// DefaultMaxBody bounds request bodies.
	DefaultMaxBody int64 = 1 << 20

	textField = "text"
)

// Handler serves /decode, /encode, /healthz and /metrics.
type Handler struct {
	paramName string
	maxBody   int64
	audit     *logging.AuditLogger
	metrics   *metrics.Registry
	logger    logrus.FieldLogger
	mux       *http.ServeMux
}

// Option configures a Handler.
type Option func(*Handler)

// WithParamName sets the form field holding the obfuscated value.
func WithParamName(name string) Option {
	return func(h *Handler) {
		if name != "" {
			h.paramName = name
		}
	}
}

// WithMaxBody sets the largest accepted request body in bytes.
func WithMaxBody(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

// WithAuditLogger records every codec call on audit.
func WithAuditLogger(audit *logging.AuditLogger) Option {
	return func(h *Handler) {
		if audit != nil {
			h.audit = audit
		}
	}
}

// WithMetrics records call counts on reg and serves it at /metrics.
func WithMetrics(reg *metrics.Registry) Option {
	return func(h *Handler) {
		if reg != nil {
			h.metrics = reg
		}
	}
}

// WithLogger sets the operational logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler returns a Handler with the given options applied.
func NewHandler(opts ...Option) *Handler {
	h := &Handler{
		paramName: DefaultParamName,
		maxBody:   DefaultMaxBody,
		audit:     logging.Discard(),
		metrics:   metrics.Default(),
		logger:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.mux = http.NewServeMux()
	h.mux.HandleFunc("/decode", h.method(http.MethodPost, h.handleDecode))
	h.mux.HandleFunc("/encode", h.method(http.MethodPost, h.handleEncode))
	h.mux.HandleFunc("/healthz", h.method(http.MethodGet, handleHealth))
	h.mux.HandleFunc("/metrics", h.method(http.MethodGet, h.metrics.Handler().ServeHTTP))
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// NewServer returns an HTTP server for handler on addr. Cleartext HTTP/2 is
// accepted alongside HTTP/1.1.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (h *Handler) method(allowed string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != allowed {
			w.Header().Set("Allow", allowed)
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		next(w, r)
	}
}

func (h *Handler) handleDecode(w http.ResponseWriter, r *http.Request) {
	const op = "decode_postparam"
	value, ok := h.formValue(w, r, op, h.paramName)
	if !ok {
		return
	}

	start := time.Now()
	text, err := postparam.DecodePostParam(value)
	h.record(op, len(value), time.Since(start), err)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (h *Handler) handleEncode(w http.ResponseWriter, r *http.Request) {
	const op = "encode_postparam"
	value, ok := h.formValue(w, r, op, textField)
	if !ok {
		return
	}

	start := time.Now()
	data := postparam.EncodePostParam(value)
	h.record(op, len(value), time.Since(start), nil)
	writeJSON(w, http.StatusOK, map[string]string{"data": data})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// formValue parses the request body and returns field. On failure the error
// response has already been written.
func (h *Handler) formValue(w http.ResponseWriter, r *http.Request, op, field string) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)

	var err error
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		err = r.ParseMultipartForm(h.maxBody)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.metrics.Reject(logging.TransportHTTP, op, metrics.ReasonTooLarge)
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return "", false
		}
		writeError(w, http.StatusBadRequest, "invalid form body")
		return "", false
	}

	if !r.PostForm.Has(field) {
		writeError(w, http.StatusBadRequest, "missing form field "+field)
		return "", false
	}
	return r.PostForm.Get(field), true
}

func (h *Handler) record(op string, n int, dur time.Duration, err error) {
	h.metrics.Observe(logging.TransportHTTP, op, n, dur, err)
	if auditErr := h.audit.Codec(logging.TransportHTTP, op, n, err); auditErr != nil {
		h.logger.WithError(auditErr).Warn("failed to write audit event")
	}
	if err != nil {
		h.logger.WithFields(logrus.Fields{"op": op, "bytes": n}).WithError(err).Debug("rejected payload")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
