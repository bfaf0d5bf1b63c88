// Package handlers implements the HTTP handlers for the dashboard control
// plane. Every resource route funnels into the facade; handlers only
// translate between HTTP and facade requests.
package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/widgetdeck/control-plane/internal/apperr"
	"github.com/widgetdeck/control-plane/internal/cache"
	"github.com/widgetdeck/control-plane/internal/facade"
	"github.com/widgetdeck/control-plane/internal/rules"
)

const maxBodyBytes = 1 << 20

// Service is the facade surface the handlers use.
type Service interface {
	Execute(ctx context.Context, req facade.Request) (*facade.Result, error)
	EvaluateDelivery(ctx context.Context, id int64, env rules.DeliveryEnv) (*facade.Delivery, error)
	Ping(ctx context.Context) error
}

// Handlers holds all handler dependencies.
type Handlers struct {
	Service Service
	Cache   *cache.Guard
	Version string
}

// New creates a new Handlers instance.
func New(svc Service, c *cache.Guard, version string) *Handlers {
	return &Handlers{Service: svc, Cache: c, Version: version}
}

// ── Resources ───────────────────────────────────────────────

func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	if h.serveCached(w, r) {
		return
	}
	query := make(map[string]string)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}
	h.execute(w, r, facade.Request{Verb: facade.VerbGet, Query: query})
}

func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	if h.serveCached(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h.execute(w, r, facade.Request{Verb: facade.VerbGet, ID: id})
}

func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	h.execute(w, r, facade.Request{Verb: facade.VerbPost, Payload: body})
}

func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	h.execute(w, r, facade.Request{Verb: facade.VerbPut, ID: id, Payload: body})
}

func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h.execute(w, r, facade.Request{Verb: facade.VerbDelete, ID: id})
}

// EvaluateDelivery runs a recipe's delivery condition against the posted
// environment. An empty body evaluates against an empty environment.
func (h *Handlers) EvaluateDelivery(w http.ResponseWriter, r *http.Request) {
	if facade.Resource(chi.URLParam(r, "resource")) != facade.ResourceRecipes {
		respondError(w, apperr.Unsupported("evaluate", chi.URLParam(r, "resource")))
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	var env rules.DeliveryEnv
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &env); err != nil {
			respondError(w, apperr.InvalidPayload("recipe", err, "invalid delivery environment"))
			return
		}
	}

	d, err := h.Service.EvaluateDelivery(r.Context(), id, env)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// execute fills in the resource, runs the request and writes the result.
// GET responses are cached; successful writes invalidate the cache.
func (h *Handlers) execute(w http.ResponseWriter, r *http.Request, req facade.Request) {
	req.Resource = facade.Resource(chi.URLParam(r, "resource"))
	gen := h.Cache.Generation()

	res, err := h.Service.Execute(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}

	if req.Verb == facade.VerbGet {
		body, err := json.Marshal(res.Data)
		if err != nil {
			respondError(w, err)
			return
		}
		h.Cache.Fill(gen, r.URL.RequestURI(), body)
		writeBody(w, http.StatusOK, body, "MISS")
		return
	}
	h.Cache.Invalidate()

	switch {
	case req.Verb == facade.VerbDelete:
		w.WriteHeader(http.StatusNoContent)
	case res.Created:
		respondJSON(w, http.StatusCreated, res.Data)
	default:
		respondJSON(w, http.StatusOK, res.Data)
	}
}

func (h *Handlers) serveCached(w http.ResponseWriter, r *http.Request) bool {
	body, ok := h.Cache.Get(r.URL.RequestURI())
	if !ok {
		return false
	}
	writeBody(w, http.StatusOK, body, "HIT")
	return true
}

// ── Health & info ───────────────────────────────────────────

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Ping(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "widgetdeck-control-plane",
	})
}

func (h *Handlers) VersionInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"version": h.Version,
		"service": "widgetdeck-control-plane",
	})
}

// ── Helpers ─────────────────────────────────────────────────

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondError(w, apperr.InvalidPayload("", err, "id must be a positive integer, got %q", raw))
		return 0, false
	}
	return id, true
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, apperr.InvalidPayload("", err, "cannot read request body"))
		return nil, false
	}
	return body, true
}

func writeBody(w http.ResponseWriter, status int, body []byte, cacheStatus string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", cacheStatus)
	w.WriteHeader(status)
	w.Write(body)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes {"error", "code"} with the status mapped from the
// error's kind.
func respondError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
	}
	respondJSON(w, status, map[string]string{
		"error": err.Error(),
		"code":  string(kind),
	})
}
