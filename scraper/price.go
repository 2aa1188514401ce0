package scraper

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var currencyCodes = regexp.MustCompile(`(?i)\b(usd|cad|us)\b`)

// ParsePrice reads a currency amount out of free-form text such as
// "$1,149.00" or "USD 150". Anything unparsable, negative or non-finite is 0.
func ParsePrice(text string) float64 {
	s := currencyCodes.ReplaceAllString(text, " ")
	s = strings.Map(func(r rune) rune {
		if r == ',' || unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, s)

	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
