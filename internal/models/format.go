package models

import (
	"strconv"
	"strings"
)

// FormatAmount renders an amount for display with a currency glyph,
// thousands separators, and two decimals, e.g. ₹1,234.50.
func FormatAmount(amount float64) string {
	s := strconv.FormatFloat(amount, 'f', 2, 64)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}

	dot := strings.IndexByte(s, '.')
	whole := s[:dot]
	frac := s[dot:]

	var b strings.Builder
	for i, d := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}

	return "₹" + sign + b.String() + frac
}

// FormatDealID renders a deal ID for display, e.g. #A1B2C3D4.
func FormatDealID(id string) string {
	return "#" + id
}

// Emoji returns the chat-facing marker for a deal status.
func (s DealStatus) Emoji() string {
	switch s {
	case DealStatusCreated:
		return "⏳"
	case DealStatusFunded:
		return "💰"
	case DealStatusCompleted:
		return "✅"
	case DealStatusDisputed:
		return "⚠️"
	case DealStatusCancelled:
		return "❌"
	default:
		return "🔒"
	}
}
