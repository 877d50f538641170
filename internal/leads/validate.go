package leads

import (
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	MaxNameLength    = 100
	MaxMessageLength = 2000
	MaxUTMLength     = 100
	MaxUserAgent     = 512

	MinPhoneDigits = 7
	MaxPhoneDigits = 15
)

// MonthlyVolumes are the accepted answers to "how many messages per month".
var MonthlyVolumes = []string{"<1k", "1k-10k", "10k-100k", "100k-1m", ">1m"}

// ValidationError lists every invalid field with a message for each.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("invalid fields: %s", strings.Join(names, ", "))
}

// Validate trims and checks a submission and returns the cleaned copy.
func Validate(kind Kind, sub Submission) (Submission, error) {
	fields := map[string]string{}

	sub.Name = strings.TrimSpace(sub.Name)
	sub.Email = strings.TrimSpace(sub.Email)
	sub.Phone = strings.TrimSpace(sub.Phone)
	sub.Company = strings.TrimSpace(sub.Company)
	sub.Message = strings.TrimSpace(sub.Message)
	sub.MonthlyVolume = strings.TrimSpace(sub.MonthlyVolume)
	sub.UTMSource = truncate(strings.TrimSpace(sub.UTMSource), MaxUTMLength)
	sub.UTMMedium = truncate(strings.TrimSpace(sub.UTMMedium), MaxUTMLength)
	sub.UTMCampaign = truncate(strings.TrimSpace(sub.UTMCampaign), MaxUTMLength)
	sub.UserAgent = truncate(sub.UserAgent, MaxUserAgent)

	switch {
	case sub.Name == "":
		fields["name"] = "is required"
	case utf8.RuneCountInString(sub.Name) > MaxNameLength:
		fields["name"] = fmt.Sprintf("must be at most %d characters", MaxNameLength)
	}

	if sub.Email == "" {
		fields["email"] = "is required"
	} else if !validEmail(sub.Email) {
		fields["email"] = "is not a valid email address"
	}

	if sub.Phone == "" {
		if kind == KindDemo {
			fields["phone"] = "is required"
		}
	} else if phone, ok := normalizePhone(sub.Phone); ok {
		sub.Phone = phone
	} else {
		fields["phone"] = fmt.Sprintf("must contain %d to %d digits", MinPhoneDigits, MaxPhoneDigits)
	}

	if utf8.RuneCountInString(sub.Message) > MaxMessageLength {
		fields["message"] = fmt.Sprintf("must be at most %d characters", MaxMessageLength)
	}

	if kind == KindDemo && sub.Company == "" {
		fields["company"] = "is required"
	}

	if sub.MonthlyVolume != "" && !validVolume(sub.MonthlyVolume) {
		fields["monthly_volume"] = fmt.Sprintf("must be one of %s", strings.Join(MonthlyVolumes, ", "))
	}

	if len(fields) > 0 {
		return sub, &ValidationError{Fields: fields}
	}
	return sub, nil
}

// validEmail accepts a bare address with a dotted domain.
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return false
	}
	at := strings.LastIndex(s, "@")
	domain := s[at+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}

// normalizePhone strips separators and returns the digits, keeping a
// leading '+'.
func normalizePhone(s string) (string, bool) {
	plus := strings.HasPrefix(s, "+")
	if plus {
		s = s[1:]
	}

	var digits strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return "", false
		}
	}

	n := digits.Len()
	if n < MinPhoneDigits || n > MaxPhoneDigits {
		return "", false
	}
	if plus {
		return "+" + digits.String(), true
	}
	return digits.String(), true
}

func validVolume(v string) bool {
	for _, allowed := range MonthlyVolumes {
		if v == allowed {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
