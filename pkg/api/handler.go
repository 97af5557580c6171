package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/orthoconv/pkg/bundle"
	"github.com/hazyhaar/orthoconv/pkg/kit"
	"github.com/hazyhaar/orthoconv/pkg/ortho"
)

// Upstream reports bundles whose remote resources changed since they were
// imported. *importer.SourceDB implements it.
type Upstream interface {
	ChangedBundles() ([]string, error)
}

// RouterOption configures NewRouter.
type RouterOption func(*handler)

// WithUpstream makes /v1/health list bundles with pending upstream changes.
func WithUpstream(u Upstream) RouterOption {
	return func(h *handler) { h.upstream = u }
}

// NewRouter returns an http.Handler with all conversion API routes.
func NewRouter(reg *bundle.Registry, logger *slog.Logger, opts ...RouterOption) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	h := &handler{eps: newEndpoints(reg, logger), reg: reg, logger: logger}
	for _, opt := range opts {
		opt(h)
	}

	mux.HandleFunc("POST /v1/convert", h.handleConvert)
	mux.HandleFunc("GET /v1/convert/batch", methodNotAllowed) // prevent GET on batch
	mux.HandleFunc("POST /v1/convert/batch", h.handleConvertBatch)
	mux.HandleFunc("GET /v1/convert/{language}", h.handleConvertQuery)
	mux.HandleFunc("GET /v1/languages", h.handleListLanguages)
	mux.HandleFunc("GET /v1/orthographies", h.handleOrthographies)
	mux.HandleFunc("GET /v1/health", h.handleHealth)

	return cors(mux)
}

type handler struct {
	eps      endpoints
	reg      *bundle.Registry
	logger   *slog.Logger
	upstream Upstream
}

// requestContext tags the request context with the transport and the caller's
// X-Request-ID (or a fresh one), and echoes the id in the response.
func requestContext(w http.ResponseWriter, r *http.Request) context.Context {
	ctx := kit.WithTransport(r.Context(), "http")
	ctx = kit.EnsureRequestID(kit.WithRequestID(ctx, r.Header.Get("X-Request-ID")))
	w.Header().Set("X-Request-ID", kit.GetRequestID(ctx))
	return ctx
}

// --- convert single text ---

type httpConvertRequest struct {
	Language string  `json:"language"`
	Text     *string `json:"text"`
	Source   string  `json:"source,omitempty"`
	Target   string  `json:"target,omitempty"`
}

func (h *handler) handleConvert(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MiB max
	var req httpConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Language == "" {
		writeError(w, http.StatusBadRequest, "missing language")
		return
	}

	resp, err := h.eps.convert(ctx, &convertReq{
		Language: req.Language,
		Text:     req.Text,
		Source:   req.Source,
		Target:   req.Target,
	})
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleConvertQuery(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(w, r)
	q := r.URL.Query()
	var text *string
	if q.Has("text") {
		v := q.Get("text")
		text = &v
	}
	resp, err := h.eps.convert(ctx, &convertReq{
		Language: r.PathValue("language"),
		Text:     text,
		Source:   q.Get("source"),
		Target:   q.Get("target"),
	})
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- convert batch ---

type httpBatchRequest struct {
	Language string   `json:"language"`
	Texts    []string `json:"texts"`
	Source   string   `json:"source,omitempty"`
	Target   string   `json:"target,omitempty"`
}

func (h *handler) handleConvertBatch(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, 4<<20) // 4 MiB max
	var req httpBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := h.eps.convertBatch(ctx, &convertBatchReq{
		Language: req.Language,
		Texts:    req.Texts,
		Source:   req.Source,
		Target:   req.Target,
	})
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- listings ---

func (h *handler) handleListLanguages(w http.ResponseWriter, r *http.Request) {
	resp, err := h.eps.listLanguages(requestContext(w, r), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleOrthographies(w http.ResponseWriter, r *http.Request) {
	resp, err := h.eps.orthographies(requestContext(w, r), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- health ---

type healthResponse struct {
	Status          string   `json:"status"`
	Bundles         int      `json:"bundles"`
	Languages       int      `json:"languages"`
	UpstreamChanged []string `json:"upstream_changed,omitempty"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Bundles:   h.reg.BundleCount(),
		Languages: h.reg.LanguageCount(),
	}
	if h.upstream != nil {
		changed, err := h.upstream.ChangedBundles()
		if err != nil {
			h.logger.Warn("upstream status unavailable", "error", err)
		}
		resp.UpstreamChanged = changed
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- helpers ---

// errorStatus maps conversion errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, bundle.ErrUnknownLanguage):
		return http.StatusNotFound
	case errors.Is(err, ortho.ErrInvalidArgument), errors.Is(err, ortho.ErrMissingParameter):
		return http.StatusBadRequest
	default:
		// ErrFailedLookup and ErrResourceLoad are configuration faults.
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
