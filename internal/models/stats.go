package models

// DealStats is an aggregate snapshot over all deals, recomputed on demand.
// ActiveDeals counts deals in the created or funded state; TotalActiveValue
// sums the amounts locked in those active deals.
type DealStats struct {
	TotalDeals       int
	ActiveDeals      int
	CompletedDeals   int
	DisputedDeals    int
	CancelledDeals   int
	TotalActiveValue float64
}
