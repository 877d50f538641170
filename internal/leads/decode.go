package leads

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/url"
)

// ErrUnsupportedContentType is returned by Decode for anything other than a
// urlencoded form or JSON.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// Decode reads a submission from a urlencoded form or a JSON object.
func Decode(contentType string, body []byte) (Submission, error) {
	var sub Submission

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return sub, fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}

	switch mediaType {
	case "application/json":
		dec := json.NewDecoder(bytes.NewReader(body))
		if err := dec.Decode(&sub); err != nil {
			return sub, fmt.Errorf("invalid JSON body: %w", err)
		}
		return sub, nil

	case "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return sub, fmt.Errorf("invalid form body: %w", err)
		}
		sub.Name = values.Get("name")
		sub.Email = values.Get("email")
		sub.Phone = values.Get("phone")
		sub.Company = values.Get("company")
		sub.Message = values.Get("message")
		sub.MonthlyVolume = values.Get("monthly_volume")
		sub.UTMSource = values.Get("utm_source")
		sub.UTMMedium = values.Get("utm_medium")
		sub.UTMCampaign = values.Get("utm_campaign")
		sub.Website = values.Get("website")
		return sub, nil

	default:
		return sub, fmt.Errorf("%w: %s", ErrUnsupportedContentType, mediaType)
	}
}
