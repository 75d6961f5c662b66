// Package sanitize holds the heuristic signature scan used by the request
// validation gate and by the address validator. The pattern table is compiled
// once at init and never mutated afterwards. Patterns are intentionally
// narrow: this is a heuristic gate, not a parser-based defense, and cleverly
// obfuscated payloads slipping through is an accepted trade-off.
package sanitize

import "regexp"

// maxValueLength caps individual scanned values (headers, query parameters,
// path segments). Larger values are treated as suspicious outright.
const maxValueLength = 10000

var signaturePatterns = []*regexp.Regexp{
	// SQL injection
	regexp.MustCompile(`(?i)\bunion\s+select\b.*\bfrom\b`),
	regexp.MustCompile(`(?i)\bdrop\s+table\b`),
	regexp.MustCompile(`(?i)\bdelete\s+from\b.*\bwhere\b.*['"].*['"]`),
	regexp.MustCompile(`(?i)\binsert\s+into\b.*\bvalues\b.*\([^)]*['"][^'")]*['"][^)]*\)`),
	regexp.MustCompile(`(?i)['"];.*--`),

	// XSS
	regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
	regexp.MustCompile(`(?i)javascript\s*:\s*[^;]+`),
	regexp.MustCompile(`(?i)<iframe[^>]*src\s*=`),
	regexp.MustCompile(`(?i)<object[^>]*data\s*=`),

	// Path traversal
	regexp.MustCompile(`\.\.[\\/]\.\.[\\/]\.\.[\\/]`),
	regexp.MustCompile(`[\\/]etc[\\/]passwd`),
	regexp.MustCompile(`[\\/]proc[\\/]self[\\/]`),

	// Command injection
	regexp.MustCompile("(?i)[;&|`]\\s*(rm\\s+-rf|cat\\s+/etc|wget\\s+http)"),
	regexp.MustCompile(`(?i)\$\([^)]*rm[^)]*\)`),

	// Template injection
	regexp.MustCompile(`(?i)\{\{.*(__import__|eval|exec).*\}\}`),
}

// Suspicious reports whether s matches a known attack signature or contains
// control characters other than tab, newline and carriage return.
func Suspicious(s string) bool {
	if s == "" {
		return false
	}
	for _, p := range signaturePatterns {
		if p.MatchString(s) {
			return true
		}
	}
	for _, r := range s {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return true
		}
	}
	return false
}

// SuspiciousValue is Suspicious plus a length cap for single scanned values.
func SuspiciousValue(s string) bool {
	if len(s) > maxValueLength {
		return true
	}
	return Suspicious(s)
}
