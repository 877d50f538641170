package webhook

import (
	"bytes"
	"encoding/json"
	"mime"
	"net/url"
	"strconv"
	"time"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"

	// FormPayloadField is the form field GitHub uses for urlencoded deliveries.
	FormPayloadField = "payload"
)

type pushPayload struct {
	Ref        string `json:"ref"`
	After      string `json:"after"`
	Repository struct {
		Name     string          `json:"name"`
		FullName string          `json:"full_name"`
		PushedAt json.RawMessage `json:"pushed_at"`
	} `json:"repository"`
}

// Extract parses a delivery body according to its content type. It returns
// nil when no event can be recognised; it never fails.
func Extract(contentType string, body []byte) *Event {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil
	}

	switch mediaType {
	case ContentTypeJSON:
		return decodeEvent(body)
	case ContentTypeForm:
		values, err := url.ParseQuery(string(body))
		if err != nil || !values.Has(FormPayloadField) {
			return nil
		}
		return decodeEvent([]byte(values.Get(FormPayloadField)))
	default:
		return nil
	}
}

func decodeEvent(data []byte) *Event {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil
	}

	var p pushPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil
	}

	ev := &Event{
		Ref:        p.Ref,
		Repository: p.Repository.FullName,
		PushedAt:   parsePushedAt(p.Repository.PushedAt),
		After:      p.After,
	}
	if ev.Repository == "" {
		ev.Repository = p.Repository.Name
	}
	return ev
}

// parsePushedAt accepts unix seconds (push events) or an RFC 3339 string.
func parsePushedAt(raw json.RawMessage) *time.Time {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	if secs, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
		t := time.Unix(secs, 0).UTC()
		return &t
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
