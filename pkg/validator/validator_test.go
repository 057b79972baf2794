package validator

import (
	"strings"
	"testing"
)

func TestValidateRegister(t *testing.T) {
	errs := ValidateRegister("kouame@djassa.ci", "kouame", "Kouamé Yao", "Secret123", "seller")
	if errs.HasErrors() {
		t.Errorf("valid registration rejected: %v", errs)
	}

	errs = ValidateRegister("not-an-email", "k", "", "short", "admin")
	for _, field := range []string{"email", "username", "display_name", "password", "role"} {
		if _, ok := errs[field]; !ok {
			t.Errorf("expected error for field %q", field)
		}
	}
}

func TestValidatePasswordRules(t *testing.T) {
	errs := make(ValidationErrors)
	validatePassword("alllowercase1", errs)
	if msg := errs["password"]; !strings.Contains(msg, "uppercase") {
		t.Errorf("missing uppercase not reported: %q", msg)
	}
}

func TestValidateMessage(t *testing.T) {
	if errs := ValidateMessage("Bonjour", "", "", false); errs.HasErrors() {
		t.Errorf("plain message rejected: %v", errs)
	}

	// Media-only sends are allowed; the service synthesizes the content.
	if errs := ValidateMessage("", "https://cdn.djassa.ci/p/1", "image", true); errs.HasErrors() {
		t.Errorf("media-only message rejected: %v", errs)
	}

	if errs := ValidateMessage("", "", "", false); !errs.HasErrors() {
		t.Error("empty message accepted")
	}

	if errs := ValidateMessage(strings.Repeat("a", 4001), "", "", false); !errs.HasErrors() {
		t.Error("oversized message accepted")
	}

	errs := ValidateMessage("voir photo", "not a url", "gif", true)
	if _, ok := errs["media"]; !ok {
		t.Error("invalid media URL accepted")
	}
	if _, ok := errs["media_type"]; !ok {
		t.Error("invalid media type accepted")
	}
}
