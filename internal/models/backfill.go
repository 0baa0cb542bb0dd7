package models

import "time"

// BackfillState is the durable progress record for a historical
// backfill run. It is only ever advanced, never deleted.
type BackfillState struct {
	StartDate      string     `json:"start_date"`
	DatesProcessed int        `json:"dates_processed"`
	LastDate       string     `json:"last_date"`
	Complete       bool       `json:"complete"`
	CompletedAt    *time.Time `json:"completed_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
