package server

import (
	"errors"
	"io"
	"net"
	"net/http"

	"leadbox/internal/leads"
)

// MaxFormBytes caps intake form bodies.
const MaxFormBytes = 64 << 10

// HandleLead returns the handler for one intake form.
func (s *Server) HandleLead(kind leads.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Leads == nil {
			s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Lead capture is not available"})
			return
		}

		if r.ContentLength > MaxFormBytes {
			s.respondJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "Payload too large"})
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, MaxFormBytes))
		if err != nil {
			s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Failed to read request body"})
			return
		}

		sub, err := leads.Decode(r.Header.Get("Content-Type"), body)
		if errors.Is(err, leads.ErrUnsupportedContentType) {
			s.respondJSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": "Invalid content type"})
			return
		}
		if err != nil {
			s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Malformed form body"})
			return
		}

		sub.IP = clientIP(r)
		sub.UserAgent = r.UserAgent()

		lead, err := s.Leads.Submit(r.Context(), kind, sub)
		var verr *leads.ValidationError
		switch {
		case errors.Is(err, leads.ErrSpam):
			s.respondJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
		case errors.As(err, &verr):
			s.respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"error":  "Validation failed",
				"fields": verr.Fields,
			})
		case err != nil:
			s.Logger.Error("Failed to capture lead", "kind", kind, "error", err)
			s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to save submission"})
		default:
			s.respondJSON(w, http.StatusCreated, map[string]interface{}{"ok": true, "id": lead.ID})
		}
	}
}

// clientIP strips the port RemoteAddr carries when RealIP found no header.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
