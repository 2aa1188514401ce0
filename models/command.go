package models

import (
	"encoding/json"
	"time"
)

type CommandType string

const (
	CmdScrapeNow CommandType = "scrape_now"
	CmdScanNow   CommandType = "scan_now"
	CmdBookmark  CommandType = "bookmark"
)

type Command struct {
	ID          int64           `json:"id" db:"id"`
	Command     CommandType     `json:"command" db:"command"`
	Params      json.RawMessage `json:"params" db:"params"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at" db:"processed_at"`
}

// CommandParams carries bookmark targets. A nil Bookmarked toggles.
type CommandParams struct {
	ListingID  string `json:"listing_id,omitempty"`
	Bookmarked *bool  `json:"bookmarked,omitempty"`
}
