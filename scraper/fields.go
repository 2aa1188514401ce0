package scraper

// Keys under which the search API has been seen to return its item array,
// tried in order.
var itemKeys = []string{"assets", "results", "items", "data"}

// Field aliases per logical attribute, tried in order. The API has renamed
// these between releases; the first non-empty value wins.
var jsonFields = struct {
	ID          []string
	Title       []string
	Price       []string
	Location    []string
	URL         []string
	EndTime     []string
	Description []string
}{
	ID:          []string{"id", "assetId", "itemId"},
	Title:       []string{"title", "description", "name"},
	Price:       []string{"currentBid", "price", "startingBid"},
	Location:    []string{"location", "city", "state"},
	URL:         []string{"url", "detailUrl"},
	EndTime:     []string{"endTime", "auctionEnd", "closeDate"},
	Description: []string{"description", "shortDescription", "summary"},
}
