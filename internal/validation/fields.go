// Package validation implements the per-field rules applied before a user
// record is written. Each validator is a pure function: it returns the
// sanitized value and the first rule violation it finds. Callers aggregate
// violations across fields rather than failing fast.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/user-records-service/internal/sanitize"
)

const (
	minNameLength    = 2
	maxNameLength    = 100
	maxAddressLength = 500
	maxAddressLines  = 10
	maxLocalPart     = 64
	maxDomainLength  = 253
	maxAge           = 150
)

var (
	// Letters including the extended Latin ranges, spaces, hyphen,
	// apostrophe and period.
	nameAllowed = regexp.MustCompile(`^[a-zA-ZÀ-ÿ\x{0100}-\x{017F}\x{0180}-\x{024F}\s\-'.]+$`)

	nameBlocked = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<script.*?>`),
		regexp.MustCompile(`(?i)javascript:`),
		regexp.MustCompile(`(?i)(union|select|insert|update|delete|drop|create|alter)\s`),
		regexp.MustCompile(`[<>"]`),
		regexp.MustCompile(`[\x00-\x1f\x{7f}-\x{9f}]`),
	}

	nameBypassChars = []string{`\`, "/", "{", "}", "[", "]", "(", ")"}

	reservedNames = []string{"admin", "root", "system", "null", "undefined"}

	emailSyntax  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{6,14}$`)
	nonPhoneChar = regexp.MustCompile(`[^\d+]`)

	blockedEmailDomains = map[string]struct{}{
		"tempmail.org":      {},
		"10minutemail.com":  {},
		"mailinator.com":    {},
		"guerrillamail.com": {},
	}

	allowedTLDs = map[string]struct{}{
		"com": {}, "org": {}, "net": {}, "edu": {}, "gov": {}, "co": {},
		"io": {}, "ai": {}, "us": {}, "uk": {}, "ca": {}, "au": {},
		"de": {}, "fr": {}, "jp": {}, "br": {}, "in": {},
	}
)

// Name normalizes and validates a user name, returning the normalized form.
func Name(value string) (string, error) {
	normalized := norm.NFKC.String(value)

	if length := len([]rune(normalized)); length < minNameLength {
		return "", fmt.Errorf("name must be at least %d characters long", minNameLength)
	} else if length > maxNameLength {
		return "", fmt.Errorf("name must not exceed %d characters", maxNameLength)
	}

	if !nameAllowed.MatchString(normalized) {
		return "", fmt.Errorf("name contains invalid characters; only letters, spaces, hyphens, apostrophes and periods are allowed")
	}

	for _, p := range nameBlocked {
		if p.MatchString(normalized) {
			return "", fmt.Errorf("name contains invalid or potentially harmful content")
		}
	}

	if strings.Contains(normalized, "  ") || strings.HasPrefix(normalized, " ") || strings.HasSuffix(normalized, " ") {
		return "", fmt.Errorf("name cannot have leading/trailing spaces or multiple consecutive spaces")
	}

	for _, c := range nameBypassChars {
		if strings.Contains(normalized, c) {
			return "", fmt.Errorf("name contains invalid characters")
		}
	}

	for _, reserved := range reservedNames {
		if strings.EqualFold(normalized, reserved) {
			return "", fmt.Errorf("name %q is reserved", normalized)
		}
	}

	return normalized, nil
}

// Email lower-cases, trims and validates an email address.
func Email(value string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(value))

	if !emailSyntax.MatchString(email) {
		return "", fmt.Errorf("enter a valid email address")
	}

	at := strings.LastIndex(email, "@")
	local, domain := email[:at], email[at+1:]

	if _, blocked := blockedEmailDomains[domain]; blocked {
		return "", fmt.Errorf("email from this domain is not allowed")
	}

	tld := domain[strings.LastIndex(domain, ".")+1:]
	if _, ok := allowedTLDs[tld]; !ok {
		return "", fmt.Errorf("email domain TLD is not supported")
	}

	if strings.Contains(email, "..") || strings.HasPrefix(email, ".") || strings.HasSuffix(email, ".") {
		return "", fmt.Errorf("email format contains invalid characters")
	}

	if len(local) > maxLocalPart {
		return "", fmt.Errorf("email local part is too long (max %d characters)", maxLocalPart)
	}
	if len(domain) > maxDomainLength {
		return "", fmt.Errorf("email domain is too long (max %d characters)", maxDomainLength)
	}

	return email, nil
}

// Phone strips formatting characters and validates an international phone
// number, returning the cleaned digits.
func Phone(value string) (string, error) {
	cleaned := nonPhoneChar.ReplaceAllString(value, "")

	if strings.Count(cleaned, "+") > 1 {
		return "", fmt.Errorf("phone number can only contain one country code prefix (+)")
	}
	if !phonePattern.MatchString(cleaned) {
		return "", fmt.Errorf("enter a valid phone number in the format +1234567890 (7-15 digits)")
	}

	return cleaned, nil
}

// Address normalizes and validates a free-form address.
func Address(value string) (string, error) {
	normalized := norm.NFKC.String(value)

	if len([]rune(normalized)) > maxAddressLength {
		return "", fmt.Errorf("address must not exceed %d characters", maxAddressLength)
	}
	if sanitize.Suspicious(normalized) {
		return "", fmt.Errorf("address contains invalid or potentially harmful content")
	}
	if strings.Count(normalized, "\n") > maxAddressLines {
		return "", fmt.Errorf("address contains too many line breaks")
	}

	return normalized, nil
}

// Age validates the optional age field.
func Age(value int) error {
	if value < 0 {
		return fmt.Errorf("age cannot be negative")
	}
	if value > maxAge {
		return fmt.Errorf("age cannot exceed %d years", maxAge)
	}
	return nil
}
