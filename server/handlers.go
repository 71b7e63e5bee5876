package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/c360studio/urlguard/metrics"
	"github.com/c360studio/urlguard/urlsafety"
)

// RegisterHTTPHandlers registers the validation handlers under the given prefix.
// Handlers are registered as:
//
//	POST <prefix>/link
//	POST <prefix>/image
//	POST <prefix>/ssrf
//	POST <prefix>/sanitize
//	POST <prefix>/batch
func (s *Server) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}

	mux.HandleFunc(prefix+"link", s.handleLink)
	mux.HandleFunc(prefix+"image", s.handleImage)
	mux.HandleFunc(prefix+"ssrf", s.handleSSRF)
	mux.HandleFunc(prefix+"sanitize", s.handleSanitize)
	mux.HandleFunc(prefix+"batch", s.handleBatch)
}

// URLRequest is the request body of the single-URL endpoints.
type URLRequest struct {
	URL string `json:"url"`
}

// SanitizeResponse is the response body of POST <prefix>/sanitize.
type SanitizeResponse struct {
	Sanitized  string `json:"sanitized"`
	Normalized string `json:"normalized"`
	Dangerous  bool   `json:"dangerous"`
}

// BatchRequest is the request body of POST <prefix>/batch.
type BatchRequest struct {
	// Kind is "link" or "image".
	Kind string   `json:"kind"`
	URLs []string `json:"urls"`
}

// BatchResponse is the response body of POST <prefix>/batch. Results are in
// request order.
type BatchResponse struct {
	Kind    string                       `json:"kind"`
	Results []urlsafety.ValidationResult `json:"results"`
	Denied  int                          `json:"denied"`
}

// ----------------------------------------------------------------------------
// POST <prefix>/link, <prefix>/image
// ----------------------------------------------------------------------------

func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	s.handleValidation(w, r, metrics.CheckLink, func(p urlsafety.Policy, raw string) urlsafety.ValidationResult {
		return p.ValidateLink(raw)
	})
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	s.handleValidation(w, r, metrics.CheckImage, func(p urlsafety.Policy, raw string) urlsafety.ValidationResult {
		return p.ValidateImage(raw)
	})
}

func (s *Server) handleValidation(w http.ResponseWriter, r *http.Request, check string, validate func(urlsafety.Policy, string) urlsafety.ValidationResult) {
	start := time.Now()
	var req URLRequest
	if !s.decode(w, r, &req) {
		return
	}

	res := validate(s.holder.Policy(), req.URL)
	s.metrics.RecordValidation(check, res)
	s.metrics.ObserveRequest(metrics.TransportHTTP, check, time.Since(start))
	if !res.IsValid {
		s.logger.Debug("URL denied",
			"request_id", RequestID(r.Context()),
			"check", check,
			"code", res.ErrorCode)
	}

	writeJSON(w, http.StatusOK, res)
}

// ----------------------------------------------------------------------------
// POST <prefix>/ssrf
// ----------------------------------------------------------------------------

func (s *Server) handleSSRF(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req URLRequest
	if !s.decode(w, r, &req) {
		return
	}

	res := urlsafety.CheckSSRF(req.URL)
	s.metrics.RecordVerdict(metrics.CheckSSRF, res.IsSafe, res.ErrorCode)
	s.metrics.ObserveRequest(metrics.TransportHTTP, metrics.CheckSSRF, time.Since(start))
	if !res.IsSafe {
		s.logger.Debug("SSRF check denied",
			"request_id", RequestID(r.Context()),
			"hostname", res.Hostname,
			"code", res.ErrorCode)
	}

	writeJSON(w, http.StatusOK, res)
}

// ----------------------------------------------------------------------------
// POST <prefix>/sanitize
// ----------------------------------------------------------------------------

func (s *Server) handleSanitize(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req URLRequest
	if !s.decode(w, r, &req) {
		return
	}

	resp := SanitizeResponse{
		Sanitized:  urlsafety.Sanitize(req.URL),
		Normalized: urlsafety.NormalizeURL(req.URL),
		Dangerous:  urlsafety.HasDangerousProtocol(req.URL),
	}
	s.metrics.ObserveRequest(metrics.TransportHTTP, metrics.CheckSanitize, time.Since(start))

	writeJSON(w, http.StatusOK, resp)
}

// ----------------------------------------------------------------------------
// POST <prefix>/batch
// ----------------------------------------------------------------------------

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req BatchRequest
	if !s.decode(w, r, &req) {
		return
	}

	var check string
	switch req.Kind {
	case metrics.CheckLink, metrics.CheckImage:
		check = req.Kind
	default:
		http.Error(w, fmt.Sprintf("kind must be %q or %q", metrics.CheckLink, metrics.CheckImage), http.StatusBadRequest)
		return
	}
	if limit := s.holder.Get().Server.MaxBatch; len(req.URLs) > limit {
		http.Error(w, fmt.Sprintf("batch exceeds %d URLs", limit), http.StatusRequestEntityTooLarge)
		return
	}

	policy := s.holder.Policy()
	resp := BatchResponse{Kind: check, Results: make([]urlsafety.ValidationResult, 0, len(req.URLs))}
	for _, raw := range req.URLs {
		var res urlsafety.ValidationResult
		if check == metrics.CheckLink {
			res = policy.ValidateLink(raw)
		} else {
			res = policy.ValidateImage(raw)
		}
		if !res.IsValid {
			resp.Denied++
		}
		s.metrics.RecordValidation(check, res)
		resp.Results = append(resp.Results, res)
	}
	s.metrics.ObserveRequest(metrics.TransportHTTP, metrics.CheckBatch, time.Since(start))

	s.logger.Debug("Batch validated",
		"request_id", RequestID(r.Context()),
		"kind", check,
		"urls", len(req.URLs),
		"denied", resp.Denied)

	writeJSON(w, http.StatusOK, resp)
}

// ----------------------------------------------------------------------------
// GET /healthz
// ----------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

// decode enforces POST, limits the body and decodes it into dst. It writes the
// error response itself and reports whether the handler should continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.holder.Get().Server.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		s.logger.Debug("Invalid request body", "request_id", RequestID(r.Context()), "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
