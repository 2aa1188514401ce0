package scraper

import "testing"

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"$150.00", 150},
		{"$1,149.50", 1149.5},
		{"USD 75", 75},
		{"US $20.25", 20.25},
		{"€300", 300},
		{"  42  ", 42},
		{"150.00 current bid", 150},
		{"", 0},
		{"Call for price", 0},
		{"-5", 0},
		{"NaN", 0},
		{"Inf", 0},
	}
	for _, tt := range tests {
		if got := ParsePrice(tt.in); got != tt.want {
			t.Errorf("ParsePrice(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
