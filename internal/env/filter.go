package env

import "strings"

// Name fragments that usually mark a credential.
var secretMarkers = []string{
	"_KEY",
	"_TOKEN",
	"_SECRET",
	"_PASSWORD",
	"_CREDENTIAL",
	"_APIKEY",
	"_AUTH",
	"_PRIVATE",
}

// Well-known credential variables that the markers miss.
var knownSecrets = map[string]bool{
	"DATABASE_URL":                   true,
	"SUPABASE_SERVICE_ROLE":          true,
	"AWS_ACCESS_KEY_ID":              true,
	"DOCKER_AUTH_CONFIG":             true,
	"KUBECONFIG":                     true,
	"GOOGLE_APPLICATION_CREDENTIALS": true,
	"PGPASSWORD":                     true,
}

const redacted = "[REDACTED]"

// LooksLikeSecret reports whether an environment variable name matches common
// credential naming patterns. It is a heuristic.
func LooksLikeSecret(key string) bool {
	upper := strings.ToUpper(key)
	if knownSecrets[upper] {
		return true
	}
	for _, marker := range secretMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

// Redact returns value, or a placeholder when key looks like a secret.
func Redact(key, value string) string {
	if value != "" && LooksLikeSecret(key) {
		return redacted
	}
	return value
}
