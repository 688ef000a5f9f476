package security

import (
	"crypto/rand"
	"math"
	"strconv"
	"strings"
)

// MaxInputAmount is the sanity ceiling applied to raw amount input before
// any business rule runs. It is deliberately looser than the deal-amount
// ceiling (models.MaxDealAmount); keep the two constants distinct.
const MaxInputAmount = 10_000_000

// DefaultMaxText is the default truncation length for sanitized user text.
const DefaultMaxText = 1000

// DealIDLength is the length of generated deal IDs.
const DealIDLength = 8

const dealIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ParseAmount parses raw user input into an amount, stripping thousands
// separators and the rupee glyph first. It rejects non-numeric input,
// non-positive values, and values above MaxInputAmount.
func ParseAmount(raw string) (float64, bool) {
	cleaned := strings.ReplaceAll(raw, ",", "")
	cleaned = strings.ReplaceAll(cleaned, "₹", "")
	cleaned = strings.TrimSpace(cleaned)

	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(amount) || amount <= 0 || amount > MaxInputAmount {
		return 0, false
	}
	return amount, true
}

// SanitizeText trims, truncates to maxLen characters, and escapes angle
// brackets so user text cannot inject markup into rendered messages.
func SanitizeText(text string, maxLen int) string {
	sanitized := strings.TrimSpace(text)

	if runes := []rune(sanitized); len(runes) > maxLen {
		sanitized = string(runes[:maxLen])
	}

	sanitized = strings.ReplaceAll(sanitized, "<", "&lt;")
	sanitized = strings.ReplaceAll(sanitized, ">", "&gt;")

	return sanitized
}

// NewDealID returns a cryptographically random token of the given length
// over the uppercase-alphanumeric alphabet. Collisions are negligible at
// this length, and the store's uniqueness constraint on deal IDs is the
// backstop; callers retry on a collision.
func NewDealID(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i, v := range b {
		b[i] = dealIDAlphabet[int(v)%len(dealIDAlphabet)]
	}
	return string(b), nil
}
