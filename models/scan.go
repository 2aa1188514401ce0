package models

import (
	"sort"
	"time"
)

type Verdict string

const (
	VerdictShips   Verdict = "ships"
	VerdictUnknown Verdict = "unknown"
	VerdictNoShip  Verdict = "no_ship"
)

// Rank is the presentation order: ships, unknown, no_ship.
func (v Verdict) Rank() int {
	switch v {
	case VerdictShips:
		return 0
	case VerdictNoShip:
		return 2
	default:
		return 1
	}
}

func (v Verdict) Label() string {
	switch v {
	case VerdictShips:
		return "SHIPS"
	case VerdictNoShip:
		return "NO SHIP"
	default:
		return "UNKNOWN"
	}
}

// ClassificationResult is a listing annotated with its shipping verdict.
type ClassificationResult struct {
	Listing
	Ships     Verdict   `json:"ships"`
	Evidence  string    `json:"evidence"`
	ScannedAt time.Time `json:"scanned_at"`
}

// SortByVerdict stably groups results ships -> unknown -> no_ship, keeping
// each group's input order.
func SortByVerdict(results []ClassificationResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Ships.Rank() < results[j].Ships.Rank()
	})
}

// ScanState is the process-wide progress snapshot of the shipping scanner.
type ScanState struct {
	ID       string     `json:"id,omitempty"`
	Running  bool       `json:"running"`
	Done     int        `json:"done"`
	Total    int        `json:"total"`
	Error    string     `json:"error,omitempty"`
	Warning  string     `json:"warning,omitempty"` // search error on a later page; the scan still finished
	Blocked  bool       `json:"blocked"`
	Started  *time.Time `json:"started,omitempty"`
	Finished *time.Time `json:"finished,omitempty"`
}

// ScanStatus is what status queries return.
type ScanStatus struct {
	ScanState
	Cached int `json:"cached"`
}

type ScanStartResult string

const (
	ScanStarted        ScanStartResult = "started"
	ScanAlreadyRunning ScanStartResult = "already_running"
)
