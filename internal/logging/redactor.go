package logging

import (
	"strings"
)

const redactedValue = "[REDACTED]"

// Redactor replaces the values of sensitive field keys before log entries
// are serialized.
type Redactor struct {
	sensitiveKeys map[string]bool
}

// NewRedactor creates a Redactor covering the keys an SRP exchange and its
// session layer touch. Matching is case-insensitive on the exact key.
func NewRedactor() *Redactor {
	return &Redactor{
		sensitiveKeys: map[string]bool{
			// Credentials
			"password":   true,
			"passphrase": true,
			"verifier":   true,
			"salt":       true, // public on the wire, but useless in logs and easy to confuse with secrets

			// Exchange values. A and B are public, yet logging them lets a
			// reader correlate transcripts; the rest must never appear.
			"a":           true,
			"b":           true,
			"m1":          true,
			"m2":          true,
			"proof":       true,
			"session_key": true,
			"payload":     true, // raw frames embed the values above

			// Session and transport credentials
			"token":          true,
			"session_token":  true,
			"session":        true,
			"bearer":         true,
			"authorization":  true,
			"secret":         true,
			"key":            true,
			"signature":      true,
			"hmac":           true,
			"simulation_key": true,

			// Deployment material
			"api_key":     true,
			"private_key": true,
			"tls_key":     true,
			"tls_cert":    true,
			"cert":        true,
			"certificate": true,
		},
	}
}

// AddSensitiveKey adds a custom key to the redaction list.
func (r *Redactor) AddSensitiveKey(key string) {
	r.sensitiveKeys[strings.ToLower(key)] = true
}

// RemoveSensitiveKey removes a key from the redaction list.
func (r *Redactor) RemoveSensitiveKey(key string) {
	delete(r.sensitiveKeys, strings.ToLower(key))
}

// RedactFields redacts sensitive values from a map of fields, descending
// into nested maps.
func (r *Redactor) RedactFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}

	redacted := make(map[string]any, len(fields))

	for k, v := range fields {
		if r.isSensitiveKey(k) {
			redacted[k] = redactedValue
		} else if nested, ok := v.(map[string]any); ok {
			redacted[k] = r.RedactFields(nested)
		} else {
			redacted[k] = v
		}
	}

	return redacted
}

// isSensitiveKey checks if a field key is marked as sensitive.
func (r *Redactor) isSensitiveKey(key string) bool {
	// Exact match only. Substring matching cannot work with single-letter
	// keys like "a" and "b" in the list.
	return r.sensitiveKeys[strings.ToLower(key)]
}
