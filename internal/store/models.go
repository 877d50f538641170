package store

import "time"

// Delivery outcomes.
const (
	OutcomeTriggered = "triggered"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Delivery is one webhook delivery and what the server did with it.
type Delivery struct {
	ID           int64     `json:"id"`
	InvocationID *string   `json:"invocation_id,omitempty"`
	Outcome      string    `json:"outcome"` // triggered, skipped, failed
	Unparsed     bool      `json:"unparsed"`
	Branch       string    `json:"branch"`
	Ref          string    `json:"ref"`
	Repository   string    `json:"repository,omitempty"`
	CommitHash   *string   `json:"commit_hash,omitempty"`
	PID          *int      `json:"pid,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	ReceivedAt   time.Time `json:"received_at"`
}

// Lead is a stored contact or demo request.
type Lead struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	Company       string    `json:"company,omitempty"`
	Message       string    `json:"message,omitempty"`
	MonthlyVolume string    `json:"monthly_volume,omitempty"`
	UTMSource     string    `json:"utm_source,omitempty"`
	UTMMedium     string    `json:"utm_medium,omitempty"`
	UTMCampaign   string    `json:"utm_campaign,omitempty"`
	IP            string    `json:"ip,omitempty"`
	UserAgent     string    `json:"user_agent,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
