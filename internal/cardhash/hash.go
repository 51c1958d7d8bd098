// Package cardhash fingerprints card content so imported cards can be matched
// across syncs without losing their review history.
package cardhash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/conorfennell/recall/internal/domain"
)

// Normalize joins the card's front, back and context after cleaning each one.
// Fields are lower-cased, trimmed and get unix line endings.
func Normalize(card domain.Card) string {
	parts := []string{card.Front, card.Back, card.Context}
	for i, p := range parts {
		p = strings.ReplaceAll(p, "\r\n", "\n")
		parts[i] = strings.TrimSpace(strings.ToLower(p))
	}
	// The newline keeps "ab"+"c" apart from "a"+"bc".
	return strings.Join(parts, "\n")
}

// Hash returns the hex SHA-256 of the normalized card.
func Hash(card domain.Card) string {
	sum := sha256.Sum256([]byte(Normalize(card)))
	return hex.EncodeToString(sum[:])
}
