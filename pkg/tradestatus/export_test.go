package tradestatus

import (
	"net/url"
	"sort"

	"golang.org/x/net/html"
)

var ScanPage = scanPage

// PagerPages reports the page numbers of the chosen pager and the page it marks as current
func PagerPages(root *html.Node) (pages []int, current int, ok bool) {
	p, ok := discoverPager(root)
	if !ok {
		return nil, 0, false
	}
	for n := range p.pages {
		pages = append(pages, n)
	}
	sort.Ints(pages)
	current, _ = p.currentPage()
	return pages, current, true
}

// BuildForm builds the postback form for target and argument
func BuildForm(root *html.Node, target, argument string) url.Values {
	return buildForm(root, postback{Target: target, Argument: argument})
}
