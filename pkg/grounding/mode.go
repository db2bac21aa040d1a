// Package grounding owns the canonical grounding modes and the post-hoc
// enforcement gate that decides whether a run satisfied its requested mode.
package grounding

import "strings"

// Mode is one of the three canonical grounding modes.
type Mode string

const (
	// ModeNotGrounded: the run must not invoke any retrieval/search tool.
	ModeNotGrounded Mode = "not_grounded"
	// ModePreferred: the provider may or may not ground; both outcomes are valid.
	ModePreferred Mode = "preferred"
	// ModeEnforced: the run must produce verifiable grounding evidence.
	ModeEnforced Mode = "enforced"
)

// legacyModes maps free-text and legacy mode tokens onto the canonical set.
var legacyModes = map[string]Mode{
	"":             ModeNotGrounded,
	"off":          ModeNotGrounded,
	"none":         ModeNotGrounded,
	"no":           ModeNotGrounded,
	"disabled":     ModeNotGrounded,
	"ungrounded":   ModeNotGrounded,
	"not_grounded": ModeNotGrounded,
	"web":          ModePreferred,
	"auto":         ModePreferred,
	"optional":     ModePreferred,
	"allowed":      ModePreferred,
	"preferred":    ModePreferred,
	"on":           ModePreferred,
	"required":     ModeEnforced,
	"mandatory":    ModeEnforced,
	"forced":       ModeEnforced,
	"force":        ModeEnforced,
	"strict":       ModeEnforced,
	"enforce":      ModeEnforced,
	"enforced":     ModeEnforced,
}

// NormalizeMode maps an arbitrary mode string to a canonical Mode. Anything
// unrecognized defaults to ModeNotGrounded: the gate never fails open into
// forced grounding.
func NormalizeMode(s string) Mode {
	if mode, ok := legacyModes[strings.ToLower(strings.TrimSpace(s))]; ok {
		return mode
	}
	return ModeNotGrounded
}
