package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusBlocked   RunStatus = "blocked"
)

// CycleRun records one poll + reconcile + notify cycle.
type CycleRun struct {
	ID            int64      `json:"id" db:"id"`
	Source        string     `json:"source" db:"source"`
	StartedAt     time.Time  `json:"started_at" db:"started_at"`
	FinishedAt    *time.Time `json:"finished_at" db:"finished_at"`
	Status        RunStatus  `json:"status" db:"status"`
	ListingsFound int        `json:"listings_found" db:"listings_found"`
	Matched       int        `json:"matched" db:"matched"`
	ListingsNew   int        `json:"listings_new" db:"listings_new"`
	Updated       int        `json:"updated" db:"updated"`
	ErrorsCount   int        `json:"errors_count" db:"errors_count"`
	ErrorMessage  string     `json:"error_message" db:"error_message"`
}

// CycleResult is what a cycle reports back to its trigger.
type CycleResult struct {
	RunID   int64     `json:"run_id"`
	New     []Listing `json:"-"`
	Updated []Listing `json:"-"`
	Found   int       `json:"found"`
	Matched int       `json:"matched"`
}

func (r *CycleResult) NewCount() int     { return len(r.New) }
func (r *CycleResult) UpdatedCount() int { return len(r.Updated) }
