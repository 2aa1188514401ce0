package identity

import "testing"

func TestExtractID(t *testing.T) {
	tests := []struct {
		href string
		want string
	}{
		{"https://www.govdeals.com/index.cfm?fa=Main.Item&itemid=1&acctid=2&itemnum=5555", "5555"},
		{"/index.cfm?itemnum=42#photos", "42"},
		{"/en/assets/777/", "777"},
		{"https://www.govdeals.com/en/assets/1001?ref=search", "1001"},
		{"  ", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExtractID(tt.href); got != tt.want {
			t.Errorf("ExtractID(%q) = %q, want %q", tt.href, got, tt.want)
		}
	}
}

func TestPrefixed(t *testing.T) {
	tests := []struct {
		source, id, want string
	}{
		{"govdeals", "5555", "govdeals-5555"},
		{"govdeals", "govdeals-5555", "govdeals-5555"},
		{"", "5555", "5555"},
		{"govdeals", "", ""},
	}
	for _, tt := range tests {
		if got := Prefixed(tt.source, tt.id); got != tt.want {
			t.Errorf("Prefixed(%q, %q) = %q, want %q", tt.source, tt.id, got, tt.want)
		}
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		base, href, want string
	}{
		{"https://www.govdeals.com", "/en/assets/1", "https://www.govdeals.com/en/assets/1"},
		{"https://www.govdeals.com/", "en/assets/1", "https://www.govdeals.com/en/assets/1"},
		{"https://host/sub", "item/9", "https://host/sub/item/9"},
		{"https://www.govdeals.com", "https://cdn.example.test/a", "https://cdn.example.test/a"},
		{"https://www.govdeals.com", "", ""},
	}
	for _, tt := range tests {
		if got := ResolveURL(tt.base, tt.href); got != tt.want {
			t.Errorf("ResolveURL(%q, %q) = %q, want %q", tt.base, tt.href, got, tt.want)
		}
	}
}
