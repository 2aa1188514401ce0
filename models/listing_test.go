package models

import (
	"testing"
	"time"
)

func TestSplitModels(t *testing.T) {
	l := Listing{MatchedModels: []string{"t480", "x1 carbon"}}
	s := l.MatchedModelsString()
	if s != "t480,x1 carbon" {
		t.Fatalf("MatchedModelsString = %q", s)
	}
	got := SplitModels(s + ", ,")
	if len(got) != 2 || got[0] != "t480" || got[1] != "x1 carbon" {
		t.Errorf("SplitModels = %v", got)
	}
	if SplitModels("") != nil {
		t.Error("SplitModels(\"\") should be nil")
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2026, 10, 16, 8, 30, 0, 500, time.UTC)
	got, err := ParseTimestamp(Timestamp(want.In(time.FixedZone("EST", -5*3600))))
	if err != nil || !got.Equal(want) || got.Location() != time.UTC {
		t.Errorf("round trip = %v, %v", got, err)
	}

	naive, err := ParseTimestamp("2024-05-01T10:00:00.25")
	if err != nil || !naive.Equal(time.Date(2024, 5, 1, 10, 0, 0, 250000000, time.UTC)) {
		t.Errorf("naive = %v, %v", naive, err)
	}

	zero, err := ParseTimestamp("")
	if err != nil || !zero.IsZero() {
		t.Errorf("empty = %v, %v", zero, err)
	}

	if _, err := ParseTimestamp("last tuesday"); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestSortRecent(t *testing.T) {
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	records := []ListingRecord{
		{Listing: Listing{ID: "old"}, LastSeen: base, FirstSeen: base},
		{Listing: Listing{ID: "tie-older"}, LastSeen: base.Add(time.Hour), FirstSeen: base},
		{Listing: Listing{ID: "tie-newer"}, LastSeen: base.Add(time.Hour), FirstSeen: base.Add(30 * time.Minute)},
	}
	SortRecent(records)
	want := []string{"tie-newer", "tie-older", "old"}
	for i, id := range want {
		if records[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, records[i].ID, id)
		}
	}
}

func TestSortBookmarked(t *testing.T) {
	records := []ListingRecord{
		{Listing: Listing{ID: "1", Title: "thinkpad X1"}},
		{Listing: Listing{ID: "2", Title: "ThinkPad T480"}},
		{Listing: Listing{ID: "3", Title: "Lenovo"}},
	}
	SortBookmarked(records)
	if records[0].ID != "3" || records[1].ID != "2" || records[2].ID != "1" {
		t.Errorf("order = %s %s %s", records[0].ID, records[1].ID, records[2].ID)
	}
}
