package model

import "time"

// ScanStatus is the terminal status of one brand's scan.
type ScanStatus string

const (
	ScanSucceeded ScanStatus = "succeeded"
	ScanNoLocator ScanStatus = "no_locator"
	ScanFailed    ScanStatus = "scrape_failed"
)

// ScanOutcome is the per-brand result of a batch run, consumable by the
// CLI summary printer and the scan_runs log without either knowing the
// other's formatting.
type ScanOutcome struct {
	BrandID     string        `json:"brand_id"`
	Status      ScanStatus    `json:"status"`
	Reason      string        `json:"reason,omitempty"` // short machine-readable reason
	Strategy    string        `json:"strategy,omitempty"`
	Locations   int           `json:"locations"`
	Added       int           `json:"added"`
	Removed     int           `json:"removed"`
	Reactivated int           `json:"reactivated"`
	Elapsed     time.Duration `json:"elapsed"`
}

// ScanRun is a row in the scan_runs log.
type ScanRun struct {
	ID          string     `json:"id"`
	BrandID     string     `json:"brand_id"`
	Status      ScanStatus `json:"status"`
	Reason      string     `json:"reason,omitempty"`
	Strategy    string     `json:"strategy,omitempty"`
	Locations   int        `json:"locations"`
	Added       int        `json:"added"`
	Removed     int        `json:"removed"`
	Reactivated int        `json:"reactivated"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TrustDecision is the trust gate's verdict over one brand's aggregate
// result set for a run.
type TrustDecision struct {
	Passed bool   `json:"passed"`
	Reason string `json:"reason"` // "ok", "empty", "too_few", "low_state_ratio"
}

// BrandAggregate is a read-model row for active-count-by-brand reporting.
type BrandAggregate struct {
	BrandID     string `json:"brand_id"`
	ActiveCount int    `json:"active_count"`
}

// StateAggregate is a read-model row for active-count-by-state reporting.
type StateAggregate struct {
	State       string `json:"state"`
	ActiveCount int    `json:"active_count"`
}
