package services

import (
	"strings"

	"auction_tracker/models"
)

// DefaultShipsPhrases strongly suggest the seller will ship.
var DefaultShipsPhrases = []string{
	"will ship",
	"shipping available",
	"shipping is available",
	"can ship",
	"able to ship",
	"we ship",
	"buyer pays shipping",
	"buyer pays for shipping",
	"plus shipping",
	"shipping cost",
	"shipping fee",
	"shipping charges",
	"ships to",
	"shipped to",
	"fedex",
	"usps",
	"ups pickup", // the carrier, not the verb
	"freight available",
	"delivery available",
	"remote bidder",
	"remote buyers",
	"ship at buyer",
	"shipping upon request",
}

// DefaultNoShipPhrases mark pickup-only listings. They are checked first.
var DefaultNoShipPhrases = []string{
	"no shipping",
	"no ship",
	"will not ship",
	"will not be shipped",
	"cannot ship",
	"can't ship",
	"not available for shipping",
	"does not ship",
	"pickup only",
	"pick up only",
	"pick-up only",
	"local pickup",
	"local pick up",
	"local pick-up",
	"must be picked up",
	"must pick up",
	"in-person pickup",
	"in person only",
	"on-site pickup",
	"onsite pickup",
	"no delivery",
	"buyer must remove",
	"buyer responsible for removal",
	"removal only",
	"no remote",
	"cash and carry",
}

// Classifier assigns a shipping verdict from free text using two ordered
// phrase lists.
type Classifier struct {
	NoShip []string
	Ships  []string
}

// NewClassifier lowercases the phrase lists once. Empty lists fall back to the
// built-in defaults.
func NewClassifier(ships, noShip []string) *Classifier {
	if len(ships) == 0 {
		ships = DefaultShipsPhrases
	}
	if len(noShip) == 0 {
		noShip = DefaultNoShipPhrases
	}
	return &Classifier{
		NoShip: lowerAll(noShip),
		Ships:  lowerAll(ships),
	}
}

func DefaultClassifier() *Classifier {
	return NewClassifier(nil, nil)
}

// Classify returns the verdict and the phrase that decided it. Any no-ship
// phrase wins over every ships phrase, wherever they sit in the text; within a
// list the first phrase in list order is reported.
func (c *Classifier) Classify(text string) (models.Verdict, string) {
	lower := strings.ToLower(text)
	for _, phrase := range c.NoShip {
		if strings.Contains(lower, phrase) {
			return models.VerdictNoShip, phrase
		}
	}
	for _, phrase := range c.Ships {
		if strings.Contains(lower, phrase) {
			return models.VerdictShips, phrase
		}
	}
	return models.VerdictUnknown, ""
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
