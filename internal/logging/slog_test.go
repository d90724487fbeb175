package logging

import (
	"log/slog"
	"strings"
	"testing"
)

func TestAnonymizeUser(t *testing.T) {
	tests := []struct {
		name   string
		userID string
	}{
		{name: "plain id", userID: "user-42"},
		{name: "email-like id", userID: "someone@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnonymizeUser(tt.userID)
			if !strings.HasPrefix(got, "user:") {
				t.Errorf("AnonymizeUser() = %q, want user: prefix", got)
			}
			if strings.Contains(got, tt.userID) {
				t.Errorf("AnonymizeUser() leaked the raw ID: %q", got)
			}
			// Stable: same input, same hash.
			if again := AnonymizeUser(tt.userID); again != got {
				t.Errorf("AnonymizeUser() not stable: %q vs %q", got, again)
			}
		})
	}
}

func TestAnonymizeUserEmpty(t *testing.T) {
	if got := AnonymizeUser(""); got != "" {
		t.Errorf("AnonymizeUser(\"\") = %q, want empty", got)
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken(""); got != "<empty>" {
		t.Errorf("SanitizeToken(\"\") = %q", got)
	}

	token := "ya29.secret-token-value"
	got := SanitizeToken(token)
	if strings.Contains(got, "secret") {
		t.Errorf("SanitizeToken() leaked content: %q", got)
	}
	if !strings.Contains(got, "23") {
		t.Errorf("SanitizeToken() = %q, want length indicator", got)
	}
}

func TestErrNil(t *testing.T) {
	attr := Err(nil)
	// A nil error must produce an attribute slog omits from output.
	if attr.Value.Kind() != slog.KindGroup {
		t.Errorf("Err(nil) kind = %v, want group", attr.Value.Kind())
	}
	if len(attr.Value.Group()) != 0 {
		t.Error("Err(nil) should produce an empty group")
	}
}

func TestWithProvider(t *testing.T) {
	logger := WithProvider(slog.Default(), "mstodo")
	if logger == nil {
		t.Fatal("WithProvider() returned nil")
	}
}
