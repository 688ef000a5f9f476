package models

import "strings"

// Deal amount bounds in currency units.
const (
	MinDealAmount = 100
	MaxDealAmount = 500000
)

// Description and terms length bounds, applied after trimming whitespace.
const (
	MinDescriptionLen = 10
	MaxDescriptionLen = 500
	MinTermsLen       = 20
	MaxTermsLen       = 1000
)

// ValidateDealInput checks deal creation input against the business rules
// and returns the first failing rule's message, suitable for showing to the
// user as-is. Rules are checked in a fixed order: description bounds,
// amount bounds, terms bounds.
func ValidateDealInput(description string, amount float64, terms string) (bool, string) {
	if len(strings.TrimSpace(description)) < MinDescriptionLen {
		return false, "Description must be at least 10 characters"
	}

	if len(strings.TrimSpace(description)) > MaxDescriptionLen {
		return false, "Description must be less than 500 characters"
	}

	if amount <= 0 {
		return false, "Amount must be greater than 0"
	}

	if amount < MinDealAmount {
		return false, "Minimum amount is ₹100"
	}

	if amount > MaxDealAmount {
		return false, "Maximum amount is ₹5,00,000"
	}

	if len(strings.TrimSpace(terms)) < MinTermsLen {
		return false, "Terms must be at least 20 characters"
	}

	if len(strings.TrimSpace(terms)) > MaxTermsLen {
		return false, "Terms must be less than 1000 characters"
	}

	return true, "Valid"
}
