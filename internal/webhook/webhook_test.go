package webhook

import (
	"net/url"
	"testing"
	"time"
)

func TestExtract(t *testing.T) {
	formBody := url.Values{"payload": {`{"ref":"refs/heads/main","repository":{"full_name":"acme/site"}}`}}.Encode()

	tests := []struct {
		name        string
		contentType string
		body        string
		wantNil     bool
		wantRef     string
		wantRepo    string
	}{
		{"json push", "application/json", `{"ref":"refs/heads/main","after":"abc123","repository":{"full_name":"acme/site"}}`, false, "refs/heads/main", "acme/site"},
		{"json with charset", "application/json; charset=utf-8", `{"ref":"refs/heads/dev"}`, false, "refs/heads/dev", ""},
		{"name fallback", "application/json", `{"ref":"refs/heads/main","repository":{"name":"site"}}`, false, "refs/heads/main", "site"},
		{"form payload", "application/x-www-form-urlencoded", formBody, false, "refs/heads/main", "acme/site"},
		{"empty object", "application/json", `{}`, false, "", ""},
		{"invalid json", "application/json", `{"ref":`, true, "", ""},
		{"json array", "application/json", `["refs/heads/main"]`, true, "", ""},
		{"json string", "application/json", `"refs/heads/main"`, true, "", ""},
		{"empty body", "application/json", ``, true, "", ""},
		{"form without payload", "application/x-www-form-urlencoded", "ref=refs%2Fheads%2Fmain", true, "", ""},
		{"form with invalid payload", "application/x-www-form-urlencoded", "payload=not-json", true, "", ""},
		{"malformed form", "application/x-www-form-urlencoded", "payload=%zz", true, "", ""},
		{"plain text", "text/plain", `{"ref":"refs/heads/main"}`, true, "", ""},
		{"missing content type", "", `{"ref":"refs/heads/main"}`, true, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Extract(tt.contentType, []byte(tt.body))
			if tt.wantNil {
				if ev != nil {
					t.Fatalf("Extract() = %+v, want nil", ev)
				}
				return
			}
			if ev == nil {
				t.Fatal("Extract() = nil, want an event")
			}
			if ev.Ref != tt.wantRef {
				t.Errorf("Ref = %q, want %q", ev.Ref, tt.wantRef)
			}
			if ev.Repository != tt.wantRepo {
				t.Errorf("Repository = %q, want %q", ev.Repository, tt.wantRepo)
			}
		})
	}
}

func TestExtract_AfterAndPushedAt(t *testing.T) {
	want := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		body string
	}{
		{"unix seconds", `{"after":"abc123","repository":{"pushed_at":1790856000}}`},
		{"rfc3339", `{"after":"abc123","repository":{"pushed_at":"2026-10-01T12:00:00Z"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Extract("application/json", []byte(tt.body))
			if ev == nil {
				t.Fatal("Extract() = nil")
			}
			if ev.After != "abc123" {
				t.Errorf("After = %q, want abc123", ev.After)
			}
			if ev.PushedAt == nil || !ev.PushedAt.Equal(want) {
				t.Errorf("PushedAt = %v, want %v", ev.PushedAt, want)
			}
		})
	}

	ev := Extract("application/json", []byte(`{"repository":{"pushed_at":"yesterday"}}`))
	if ev == nil || ev.PushedAt != nil {
		t.Errorf("unparseable pushed_at should leave PushedAt nil, got %+v", ev)
	}
}

func TestEventBranch(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"refs/heads/main", "main"},
		{"refs/heads/feature/login", "feature/login"},
		{"refs/tags/v1.0", "refs/tags/v1.0"},
		{"main", "main"},
		{"", ""},
	}

	for _, tt := range tests {
		ev := &Event{Ref: tt.ref}
		if got := ev.Branch(); got != tt.want {
			t.Errorf("Branch() for %q = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name   string
		ev     *Event
		target string
		want   Decision
	}{
		{"target branch", &Event{Ref: "refs/heads/main"}, "main", Decision{Proceed: true, Branch: "main", Configured: "main"}},
		{"other branch", &Event{Ref: "refs/heads/feature-x"}, "main", Decision{Branch: "feature-x", Configured: "main"}},
		{"empty target means main", &Event{Ref: "refs/heads/main"}, "", Decision{Proceed: true, Branch: "main", Configured: "main"}},
		{"custom target", &Event{Ref: "refs/heads/production"}, "production", Decision{Proceed: true, Branch: "production", Configured: "production"}},
		{"tag ref skips", &Event{Ref: "refs/tags/main"}, "main", Decision{Branch: "refs/tags/main", Configured: "main"}},
		{"missing ref skips", &Event{}, "main", Decision{Configured: "main"}},
		{"no event fails open", nil, "main", Decision{Proceed: true, Unparsed: true, Configured: "main"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.ev, tt.target); got != tt.want {
				t.Errorf("Decide() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
