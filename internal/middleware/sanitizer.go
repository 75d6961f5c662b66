package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/user-records-service/internal/sanitize"
)

// Headers every client sends; scanning them would only produce false
// positives on legitimate values.
var skipHeaders = map[string]struct{}{
	"User-Agent":      {},
	"Accept":          {},
	"Accept-Encoding": {},
	"Accept-Language": {},
	"Connection":      {},
	"Host":            {},
	"Authorization":   {},
	"Content-Type":    {},
	"Content-Length":  {},
	"Cache-Control":   {},
	"Pragma":          {},
	"Referer":         {},
	"Cookie":          {},
}

var allowedContentTypes = map[string]struct{}{
	"application/json":                  {},
	"application/x-www-form-urlencoded": {},
	"multipart/form-data":               {},
	"text/plain":                        {},
}

// Sanitizer is the request validation gate. It runs before authentication
// and rejects oversized, malformed, or suspicious requests so they never
// reach business logic.
type Sanitizer struct {
	maxBytes     int64
	skipPrefixes []string
}

// NewSanitizer creates a gate with the given request size cap.
func NewSanitizer(maxBytes int64) *Sanitizer {
	return &Sanitizer{
		maxBytes:     maxBytes,
		skipPrefixes: []string{"/admin/", "/static/", "/media/", "/metrics"},
	}
}

// Middleware applies the gate's checks in order, each able to short-circuit
// with a rejection: size, content type, headers, query parameters, path,
// and JSON body text/structure.
func (s *Sanitizer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, prefix := range s.skipPrefixes {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		if r.ContentLength > s.maxBytes {
			log.Warn().Int64("content_length", r.ContentLength).Str("remote", r.RemoteAddr).Msg("request too large")
			respondError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Request exceeds the maximum allowed size")
			return
		}

		if isMutating(r.Method) {
			ct := contentTypeBase(r.Header.Get("Content-Type"))
			if ct != "" {
				if _, ok := allowedContentTypes[ct]; !ok {
					log.Warn().Str("content_type", ct).Str("remote", r.RemoteAddr).Msg("invalid content type")
					respondError(w, http.StatusBadRequest, "invalid_content_type", "Content type is not allowed")
					return
				}
			}
		}

		for name, values := range r.Header {
			if _, skip := skipHeaders[name]; skip {
				continue
			}
			for _, value := range values {
				if sanitize.SuspiciousValue(value) {
					log.Warn().Str("header", name).Str("remote", r.RemoteAddr).Msg("suspicious header content")
					respondError(w, http.StatusBadRequest, "suspicious_content", "Request contains potentially harmful content")
					return
				}
			}
		}

		for name, values := range r.URL.Query() {
			for _, value := range values {
				if sanitize.SuspiciousValue(value) {
					log.Warn().Str("param", name).Str("remote", r.RemoteAddr).Msg("suspicious query parameter")
					respondError(w, http.StatusBadRequest, "suspicious_content", "Query parameters contain potentially harmful content")
					return
				}
			}
		}

		if sanitize.SuspiciousValue(r.URL.Path) {
			log.Warn().Str("path", r.URL.Path).Str("remote", r.RemoteAddr).Msg("suspicious URL path")
			respondError(w, http.StatusBadRequest, "suspicious_content", "URL contains potentially harmful content")
			return
		}

		if isMutating(r.Method) && contentTypeBase(r.Header.Get("Content-Type")) == "application/json" {
			if !s.checkJSONBody(w, r) {
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// checkJSONBody reads and validates a JSON request body, leaving it
// re-readable for the handler. Returns false when a rejection was written.
func (s *Sanitizer) checkJSONBody(w http.ResponseWriter, r *http.Request) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, s.maxBytes+1))
	if err != nil {
		// A chunked body with no Content-Length can trip the outer
		// http.MaxBytesReader cap mid-read.
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Request exceeds the maximum allowed size")
			return false
		}
		respondError(w, http.StatusBadRequest, "invalid_request", "Failed to read request body")
		return false
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	if int64(len(body)) > s.maxBytes {
		respondError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Request exceeds the maximum allowed size")
		return false
	}
	if len(body) == 0 {
		return true
	}

	if !utf8.Valid(body) {
		log.Warn().Str("remote", r.RemoteAddr).Msg("invalid body encoding")
		respondError(w, http.StatusBadRequest, "invalid_encoding", "Request body contains invalid character encoding")
		return false
	}

	text := string(body)
	if sanitize.Suspicious(text) {
		log.Warn().Str("remote", r.RemoteAddr).Msg("suspicious request body")
		respondError(w, http.StatusBadRequest, "suspicious_content", "Request body contains potentially harmful content")
		return false
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		log.Warn().Str("remote", r.RemoteAddr).Msg("malformed JSON body")
		respondError(w, http.StatusBadRequest, "invalid_json", "Request body contains invalid JSON")
		return false
	}

	if err := sanitize.CheckStructure(doc); err != nil {
		log.Warn().Str("remote", r.RemoteAddr).Str("violation", err.Error()).Msg("invalid JSON structure")
		respondError(w, http.StatusBadRequest, "invalid_json_structure", "JSON structure is invalid or too complex")
		return false
	}

	return true
}

func isMutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

// contentTypeBase strips parameters such as charset or multipart boundaries.
func contentTypeBase(ct string) string {
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(strings.ToLower(ct))
}
