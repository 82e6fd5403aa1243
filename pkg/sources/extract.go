package sources

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extract returns the field's value within sel, or "" when absent
func (f *Field) Extract(sel *goquery.Selection) string {
	if f.Selector == "" {
		return ""
	}

	target := sel
	if f.Selector != "." {
		target = sel.Find(f.Selector).First()
	}
	if target.Length() == 0 {
		return ""
	}

	var raw string
	if f.Attr != "" {
		raw, _ = target.Attr(f.Attr)
	} else {
		raw = target.Text()
	}
	raw = normalizeSpace(raw)

	if f.re == nil {
		return raw
	}
	m := f.re.FindStringSubmatch(raw)
	switch {
	case m == nil:
		return ""
	case len(m) > 1:
		return strings.TrimSpace(m[1])
	default:
		return m[0]
	}
}

// ExtractURL extracts the field and resolves it against base
func (f *Field) ExtractURL(sel *goquery.Selection, base *url.URL) string {
	return resolve(base, f.Extract(sel))
}

func resolve(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
