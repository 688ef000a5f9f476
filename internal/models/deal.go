package models

import (
	"fmt"
	"time"
)

// DealStatus enumerates the lifecycle states of a deal.
type DealStatus string

const (
	DealStatusCreated   DealStatus = "created"
	DealStatusFunded    DealStatus = "funded"
	DealStatusCompleted DealStatus = "completed"
	DealStatusDisputed  DealStatus = "disputed"
	DealStatusCancelled DealStatus = "cancelled"
)

// dealTransitions is the single source of truth for legal status moves.
// Statuses with no outgoing edges (completed, cancelled) are terminal.
var dealTransitions = map[DealStatus][]DealStatus{
	DealStatusCreated:   {DealStatusFunded, DealStatusCancelled},
	DealStatusFunded:    {DealStatusCompleted, DealStatusDisputed},
	DealStatusDisputed:  {DealStatusCompleted, DealStatusCancelled},
	DealStatusCompleted: {},
	DealStatusCancelled: {},
}

// ParseDealStatus converts a stored string into a DealStatus.
func ParseDealStatus(s string) (DealStatus, error) {
	status := DealStatus(s)
	if _, ok := dealTransitions[status]; !ok {
		return "", fmt.Errorf("unknown deal status: %q", s)
	}
	return status, nil
}

// Valid reports whether s is one of the known statuses.
func (s DealStatus) Valid() bool {
	_, ok := dealTransitions[s]
	return ok
}

// Terminal reports whether no further transitions are possible from s.
func (s DealStatus) Terminal() bool {
	return len(dealTransitions[s]) == 0 && s.Valid()
}

// CanTransitionTo reports whether moving from s to next is a legal
// lifecycle transition. Every caller that changes a deal's status must
// consult this table first; the store itself does not re-check.
func (s DealStatus) CanTransitionTo(next DealStatus) bool {
	for _, allowed := range dealTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Deal struct {
	ID          string
	CreatorID   int64
	Description string
	Amount      float64
	Terms       string
	Status      DealStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
