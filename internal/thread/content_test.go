package thread

import (
	"testing"

	"github.com/djassa/djassa-backend/internal/domain"
)

func TestComposeContent(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		media *domain.Media
		want  string
	}{
		{"plain text", "Bonjour", nil, "Bonjour"},
		{"trims whitespace", "  Bonjour  ", nil, "Bonjour"},
		{"empty", "", nil, ""},
		{"whitespace only", "   ", nil, ""},
		{"media with name", "", &domain.Media{URL: "https://cdn.djassa.ci/f", Type: domain.MediaImage, Name: "facture.pdf"}, "Pièce jointe : facture.pdf"},
		{"media without name", "", &domain.Media{URL: "https://cdn.djassa.ci/f", Type: domain.MediaImage}, "Pièce jointe"},
		{"text wins over media", "Voici la facture", &domain.Media{URL: "https://cdn.djassa.ci/f", Type: domain.MediaImage, Name: "facture.pdf"}, "Voici la facture"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComposeContent(tt.text, tt.media); got != tt.want {
				t.Errorf("ComposeContent(%q, media) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
