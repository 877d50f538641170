// Package leads validates and stores contact and demo requests from the
// marketing site.
package leads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"leadbox/internal/store"

	"github.com/google/uuid"
)

// Kind distinguishes the two intake forms.
type Kind string

const (
	KindContact Kind = "contact"
	KindDemo    Kind = "demo"
)

// ParseKind accepts "contact", "demo" or "" (all kinds).
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindContact, KindDemo, "":
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown lead kind %q (want contact or demo)", s)
}

// ErrSpam is returned when the honeypot field was filled in.
var ErrSpam = errors.New("submission rejected as spam")

// Submission is the form data a visitor sends.
type Submission struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Company       string `json:"company"`
	Message       string `json:"message"`
	MonthlyVolume string `json:"monthly_volume"`
	UTMSource     string `json:"utm_source"`
	UTMMedium     string `json:"utm_medium"`
	UTMCampaign   string `json:"utm_campaign"`

	// Website is a honeypot. It is hidden from people, so only bots fill it.
	Website string `json:"website"`

	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LeadStore persists validated leads.
type LeadStore interface {
	CreateLead(ctx context.Context, l *store.Lead) error
}

// Service validates submissions and hands them to a LeadStore.
type Service struct {
	store  LeadStore
	logger *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewService creates a Service.
func NewService(st LeadStore, logger *slog.Logger) *Service {
	return &Service{
		store:  st,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Submit validates sub and stores it as a lead of the given kind. It returns
// ErrSpam for honeypot hits and a *ValidationError for invalid fields.
func (s *Service) Submit(ctx context.Context, kind Kind, sub Submission) (*store.Lead, error) {
	if sub.Website != "" {
		s.logger.Info("Honeypot triggered, dropping submission", "kind", kind, "ip", sub.IP)
		return nil, ErrSpam
	}

	clean, err := Validate(kind, sub)
	if err != nil {
		return nil, err
	}

	lead := &store.Lead{
		ID:            s.newID(),
		Kind:          string(kind),
		Name:          clean.Name,
		Email:         clean.Email,
		Phone:         clean.Phone,
		Company:       clean.Company,
		Message:       clean.Message,
		MonthlyVolume: clean.MonthlyVolume,
		UTMSource:     clean.UTMSource,
		UTMMedium:     clean.UTMMedium,
		UTMCampaign:   clean.UTMCampaign,
		IP:            clean.IP,
		UserAgent:     clean.UserAgent,
		CreatedAt:     s.now().UTC(),
	}

	if err := s.store.CreateLead(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to store lead: %w", err)
	}

	s.logger.Info("Lead captured", "id", lead.ID, "kind", lead.Kind, "utm_source", lead.UTMSource)
	return lead, nil
}
