package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"auction_tracker/models"
)

func TestClassify(t *testing.T) {
	c := DefaultClassifier()

	tests := []struct {
		name     string
		text     string
		verdict  models.Verdict
		evidence string
	}{
		{"pickup only beats shipping mention", "Local pickup only, will consider shipping for a fee", models.VerdictNoShip, "pickup only"},
		{"no-ship wins regardless of position", "We ship nationwide. Buyer must remove items within 5 days.", models.VerdictNoShip, "buyer must remove"},
		{"ships", "Item will ship via FedEx Ground", models.VerdictShips, "will ship"},
		{"carrier name", "Packed and sent with USPS", models.VerdictShips, "usps"},
		{"case insensitive", "SHIPPING AVAILABLE at cost", models.VerdictShips, "shipping available"},
		{"first no-ship phrase in list order", "Pickup only. No shipping.", models.VerdictNoShip, "no shipping"},
		{"no signal", "Powers on, battery holds charge", models.VerdictUnknown, ""},
		{"empty", "", models.VerdictUnknown, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, evidence := c.Classify(tt.text)
			assert.Equal(t, tt.verdict, verdict)
			assert.Equal(t, tt.evidence, evidence)
		})
	}
}

func TestNewClassifier_CustomPhrases(t *testing.T) {
	c := NewClassifier([]string{"  Mail Order  "}, []string{"Forklift Required", ""})
	assert.Equal(t, []string{"mail order"}, c.Ships)
	assert.Equal(t, []string{"forklift required"}, c.NoShip)

	verdict, evidence := c.Classify("mail order ok, forklift required")
	assert.Equal(t, models.VerdictNoShip, verdict)
	assert.Equal(t, "forklift required", evidence)

	verdict, _ = c.Classify("will ship")
	assert.Equal(t, models.VerdictUnknown, verdict, "custom lists replace the defaults")
}
