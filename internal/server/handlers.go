package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"leadbox/internal/store"
	"leadbox/internal/webhook"
)

const (
	MaxPayloadBytes       = 1_000_000 // 1 MB
	RecentDeliveriesLimit = 10        // Number of recent deliveries to return in status endpoint

	SignatureHeader = "X-Hub-Signature-256"
)

// HandleWebhook handles GitHub push deliveries. Anything that reaches the
// trigger is acknowledged with 200, whether or not a process was started.
func (s *Server) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	// ContentLength can be -1 if not set
	if r.ContentLength > MaxPayloadBytes {
		s.respondJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "Payload too large"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxPayloadBytes))
	if err != nil {
		s.Logger.Warn("Failed to read webhook body, treating as no event", "error", err)
		body = nil
	}

	if secret := s.Config.Webhook.Secret; secret != "" {
		if !VerifySignature(body, r.Header.Get(SignatureHeader), secret) {
			ip := clientIP(r)
			s.Logger.Warn("Webhook signature mismatch", "ip", ip)
			// Only failed deliveries count against the limit.
			if !s.TestMode && !s.sigFailures.GetLimiter(ip).Allow() {
				rejectRateLimited(w)
				return
			}
			s.respondJSON(w, http.StatusForbidden, map[string]string{"error": "Invalid signature"})
			return
		}
	}

	ev := webhook.Extract(r.Header.Get("Content-Type"), body)
	decision := webhook.Decide(ev, s.Config.Deploy.Branch)

	delivery := &store.Delivery{
		Unparsed: decision.Unparsed,
		Branch:   decision.Branch,
	}
	if ev != nil {
		delivery.Ref = ev.Ref
		delivery.Repository = ev.Repository
		delivery.CommitHash = stringPtrOrNil(ev.After)
	}

	if !decision.Proceed {
		s.Logger.Info("Push is not for the deploy branch, skipping",
			"branch", decision.Branch,
			"configured_branch", decision.Configured)

		delivery.Outcome = store.OutcomeSkipped
		s.recordDelivery(r, delivery)

		s.respondJSON(w, http.StatusOK, map[string]interface{}{
			"ok":               true,
			"message":          "Branch does not match configured branch, skipping deployment",
			"branch":           decision.Branch,
			"configuredBranch": decision.Configured,
		})
		return
	}

	if decision.Unparsed {
		s.Logger.Warn("No recognisable push payload, deploying anyway",
			"content_type", r.Header.Get("Content-Type"),
			"bytes", len(body))
	}

	// The deployment outlives the request, even if the client goes away.
	inv, err := s.Trigger.Fire(context.WithoutCancel(r.Context()))
	if err != nil {
		delivery.Outcome = store.OutcomeFailed
		delivery.ErrorMessage = stringPtr(err.Error())
	} else {
		delivery.Outcome = store.OutcomeTriggered
		delivery.InvocationID = stringPtr(inv.ID)
		delivery.PID = &inv.PID
	}
	s.recordDelivery(r, delivery)

	response := map[string]interface{}{
		"ok":          true,
		"message":     "Deployment triggered",
		"projectPath": s.Trigger.ProjectPath(),
		"branch":      decision.Configured,
		"note":        fmt.Sprintf("Deployment runs in the background; progress is appended to %s", s.Trigger.LogFilePath()),
	}
	if decision.Unparsed {
		response["unparsed"] = true
	}

	s.respondJSON(w, http.StatusOK, response)
}

// HandleWebhookCheck answers GET /webhook so the endpoint can be checked.
func (s *Server) HandleWebhookCheck(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":          true,
		"message":     "Webhook endpoint active",
		"timestamp":   s.now().UTC().Format(time.RFC3339),
		"projectPath": s.Trigger.ProjectPath(),
	})
}

// HandleHealth handles health check requests
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	database := "disabled"
	if s.Store != nil {
		database = "ok"
		if err := s.Store.Ping(r.Context()); err != nil {
			s.Logger.Error("Database ping failed", "error", err)
			database = "unavailable"
		}
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"version":  s.Version,
		"database": database,
	})
}

// HandleStatus reports recent webhook deliveries
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Delivery history not available without a database"})
		return
	}

	latest, err := s.Store.LatestDelivery(r.Context())
	if err != nil {
		s.Logger.Error("Failed to get latest delivery", "error", err)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch delivery status"})
		return
	}

	recent, err := s.Store.RecentDeliveries(r.Context(), RecentDeliveriesLimit)
	if err != nil {
		s.Logger.Error("Failed to get recent deliveries", "error", err)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch delivery status"})
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"branch":            s.Config.Deploy.Branch,
		"project_path":      s.Config.Deploy.ProjectPath,
		"latest_delivery":   latest,
		"recent_deliveries": recent,
	})
}

func (s *Server) recordDelivery(r *http.Request, d *store.Delivery) {
	if s.Store == nil {
		return
	}
	if _, err := s.Store.RecordDelivery(context.WithoutCancel(r.Context()), d); err != nil {
		s.Logger.Error("Failed to record webhook delivery", "error", err, "outcome", d.Outcome)
	}
}

// respondJSON sends a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.Logger.Error("Failed to encode JSON response", "error", err)
	}
}

// Helper functions
func stringPtr(s string) *string {
	return &s
}

func stringPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
