package grounding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"", ModeNotGrounded},
		{"off", ModeNotGrounded},
		{"none", ModeNotGrounded},
		{"disabled", ModeNotGrounded},
		{"ungrounded", ModeNotGrounded},
		{"not_grounded", ModeNotGrounded},
		{"web", ModePreferred},
		{"auto", ModePreferred},
		{"optional", ModePreferred},
		{"preferred", ModePreferred},
		{"on", ModePreferred},
		{"required", ModeEnforced},
		{"mandatory", ModeEnforced},
		{"forced", ModeEnforced},
		{"strict", ModeEnforced},
		{"enforced", ModeEnforced},
		{"ENFORCED", ModeEnforced},
		{"  Required  ", ModeEnforced},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeMode(tt.in))
		})
	}
}

func TestNormalizeMode_UnrecognizedDefaultsToNotGrounded(t *testing.T) {
	// Unknown tokens must never fail open into forced grounding.
	assert.Equal(t, ModeNotGrounded, NormalizeMode("maybe"))
	assert.Equal(t, ModeNotGrounded, NormalizeMode("grounded-ish"))
	assert.Equal(t, ModeNotGrounded, NormalizeMode("yes please"))
}
