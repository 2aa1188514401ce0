package models

import (
	"sort"
	"strings"
	"time"
)

// Listing is one catalog entry as it moves from search page through filter,
// reconciliation and (optionally) shipping classification.
type Listing struct {
	ID            string   `json:"id"`
	Source        string   `json:"source"`
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	Location      string   `json:"location"`
	EndTime       string   `json:"end_time"`
	Price         float64  `json:"price"`
	Description   string   `json:"description"`
	MatchedModels []string `json:"matched_models,omitempty"`
}

// MatchedModelsString is the comma-joined storage form of MatchedModels.
func (l *Listing) MatchedModelsString() string {
	return strings.Join(l.MatchedModels, ",")
}

// SplitModels parses the stored comma-joined form back into tokens.
func SplitModels(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ListingRecord is the persisted form of a Listing.
type ListingRecord struct {
	Listing
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
	Bookmarked bool      `json:"bookmarked"`
}

// SortBookmarked orders bookmarked records by title, case-insensitively.
func SortBookmarked(records []ListingRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return strings.ToLower(records[i].Title) < strings.ToLower(records[j].Title)
	})
}

// SortRecent orders records newest first by last_seen, then first_seen.
func SortRecent(records []ListingRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.LastSeen.Equal(b.LastSeen) {
			return a.LastSeen.After(b.LastSeen)
		}
		return a.FirstSeen.After(b.FirstSeen)
	})
}

// Timestamp formats t the way records are stored: ISO-8601, UTC.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTimestamp is the inverse of Timestamp. Empty input yields the zero time.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		// rows written by older versions used naive isoformat without zone
		t, err = time.Parse("2006-01-02T15:04:05.999999", s)
	}
	return t.UTC(), err
}
