package env

import "testing"

func TestLooksLikeSecret(t *testing.T) {
	tests := []struct {
		key      string
		isSecret bool
	}{
		{"OPENAI_API_KEY", true},
		{"AWS_SECRET_ACCESS_KEY", true},
		{"GITHUB_TOKEN", true},
		{"SUPABASE_ACCESS_TOKEN", true},
		{"MY_PASSWORD", true},
		{"DB_CREDENTIALS", true},
		{"PRIVATE_KEY", true},
		{"database_url", true},
		{"KUBECONFIG", true},
		{"PATH", false},
		{"HOME", false},
		{"EDITOR", false},
		{"DEBUG", false},
		{"NODE_ENV", false},
		{"GOPATH", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			result := LooksLikeSecret(tt.key)
			if result != tt.isSecret {
				t.Errorf("LooksLikeSecret(%q) = %v, want %v", tt.key, result, tt.isSecret)
			}
		})
	}
}

func TestRedact(t *testing.T) {
	if got := Redact("GITHUB_TOKEN", "ghp_abc"); got != redacted {
		t.Errorf("Redact(GITHUB_TOKEN) = %q", got)
	}
	if got := Redact("GITHUB_TOKEN", ""); got != "" {
		t.Errorf("empty secret should stay empty, got %q", got)
	}
	if got := Redact("EDITOR", "vim"); got != "vim" {
		t.Errorf("Redact(EDITOR) = %q", got)
	}
}
