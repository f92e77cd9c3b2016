package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace", "   ", ""},
		{"accents and hyphens", "Église Saint-Germain-des-Prés", "eglise saint germain pres"},
		{"elided article", "Musée d'Orsay", "musee orsay"},
		{"ampersand", "Notre-Dame & Co", "notre dame co"},
		{"english articles", "The Tower of London", "tower london"},
		{"case fold", "ARC DE TRIOMPHE", "arc triomphe"},
		{"punctuation runs", "Panthéon -- (Paris), 5e", "pantheon paris 5e"},
		{"only stop words", "Le La Les", ""},
		{"digits kept", "Pont 9", "pont 9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"Château de Vincennes", "Sainte-Chapelle", "Arc de Triomphe de l'Étoile"} {
		once := Normalize(s)
		assert.Equal(t, once, Normalize(once), s)
	}
}

func TestTokens(t *testing.T) {
	t.Parallel()

	got := Tokens("arc triomphe arc")
	assert.Len(t, got, 2)
	assert.Contains(t, got, "arc")
	assert.Contains(t, got, "triomphe")
	assert.Empty(t, Tokens(""))
}
