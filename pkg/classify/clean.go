package classify

import (
	"regexp"
	"strings"
)

var trailingHint = regexp.MustCompile(`\s*\([^()]*\)\s*$`)

// CleanCategories keeps only whitelisted categories. A raw value that is not
// an exact match is retried with a trailing parenthetical hint removed, so
// "Нежилое помещение (склады)" becomes "Нежилое помещение". Anything still
// unmatched is dropped. The result is deduplicated and keeps input order.
func CleanCategories(raw []string, whitelist []string) []string {
	allowed := make(map[string]bool, len(whitelist))
	for _, w := range whitelist {
		allowed[w] = true
	}

	seen := map[string]bool{}
	var cleaned []string
	for _, r := range raw {
		candidate := strings.TrimSpace(r)
		if !allowed[candidate] {
			candidate = strings.TrimSpace(trailingHint.ReplaceAllString(candidate, ""))
		}
		if !allowed[candidate] || seen[candidate] {
			continue
		}
		seen[candidate] = true
		cleaned = append(cleaned, candidate)
	}
	return cleaned
}
