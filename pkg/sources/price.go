package sources

import (
	"regexp"
	"strconv"
	"strings"
)

var pricePattern = regexp.MustCompile(`\d[\d\s\x{00a0}]*(?:[.,]\d{1,2})?`)

// ParsePrice extracts an amount such as "1 234 567,89 руб." or "489960.00".
// ok is false when the text holds no number.
func ParsePrice(text string) (float64, bool) {
	m := pricePattern.FindString(text)
	if m == "" {
		return 0, false
	}
	m = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\t', '\n', '\r':
			return -1
		case ',':
			return '.'
		}
		return r
	}, m)
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
