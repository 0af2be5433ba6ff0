// Package ui provides the terminal user interface for grapher.
// This file implements plain-text view capture and render fingerprints.
package ui

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// ansiRe matches ANSI escape sequences (colors, cursor movement).
var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// StripANSI removes terminal escape sequences from s, leaving the text a
// CI log or screen reader would see.
func StripANSI(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}

// PlainLines strips escape sequences and trailing whitespace from a
// rendered view and splits it into lines. Robot summaries and tests
// compare against this form.
func PlainLines(view string) []string {
	lines := strings.Split(StripANSI(view), "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return lines
}

// renderKey returns a short fingerprint of the inputs that affect one
// rendered frame. The chart caches on it, so a live drag only re-renders
// when the snapped window actually moves.
func renderKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
