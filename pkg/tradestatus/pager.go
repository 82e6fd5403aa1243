package tradestatus

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/lisanmuaddib/lot-ingest/pkg/domtree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	postbackPattern = regexp.MustCompile(`__doPostBack\('([^']*)','([^']*)'\)`)
	pageArgument    = regexp.MustCompile(`(?i)^page\$(\d+)$`)
	controlSuffix   = regexp.MustCompile(`(\$ctl\d+)+$`)
	digitsOnly      = regexp.MustCompile(`^\d+$`)
)

// postback is one __doPostBack(target, argument) call that opens a page
type postback struct {
	Target   string
	Argument string
	Page     int
}

// pager is a group of postback links belonging to one pager control
type pager struct {
	control string
	pages   map[int]postback
	anchors []*html.Node
}

// discoverPager groups the page's postback links by pager control and
// returns the group exposing the most distinct page numbers
func discoverPager(root *html.Node) (*pager, bool) {
	groups := map[string]*pager{}
	var order []string

	flat := domtree.FlattenHTML(root)
	for i := 0; i < flat.Len(); i++ {
		n := flat.At(i)
		if !isElement(n, atom.A) {
			continue
		}
		m := postbackPattern.FindStringSubmatch(attr(n, "href") + " " + attr(n, "onclick"))
		if m == nil {
			continue
		}
		target, argument := m[1], m[2]
		page, ok := linkPage(argument, domtree.Text(n))
		if !ok {
			continue
		}

		control := controlName(target, argument)
		g, exists := groups[control]
		if !exists {
			g = &pager{control: control, pages: map[int]postback{}}
			groups[control] = g
			order = append(order, control)
		}
		if _, dup := g.pages[page]; !dup {
			g.pages[page] = postback{Target: target, Argument: argument, Page: page}
		}
		g.anchors = append(g.anchors, n)
	}

	var best *pager
	for _, control := range order {
		if g := groups[control]; best == nil || len(g.pages) > len(best.pages) {
			best = g
		}
	}
	return best, best != nil
}

// controlName infers the pager control a link belongs to. GridView pagers
// share one target and encode the page in the argument; DataPager-style
// pagers give every link its own child control id.
func controlName(target, argument string) string {
	if argument != "" {
		return target
	}
	return controlSuffix.ReplaceAllString(target, "")
}

// linkPage reads the page a link opens from a Page$N argument or from a
// numeric link text
func linkPage(argument, text string) (int, bool) {
	if m := pageArgument.FindStringSubmatch(argument); m != nil {
		n, err := strconv.Atoi(m[1])
		return n, err == nil
	}
	text = strings.TrimSpace(text)
	if digitsOnly.MatchString(text) {
		n, err := strconv.Atoi(text)
		return n, err == nil
	}
	return 0, false
}

// next returns the lowest unvisited page after current, else the lowest
// unvisited page overall
func (p *pager) next(current int, visited map[int]bool) (postback, bool) {
	best, fallback := 0, 0
	for page := range p.pages {
		if visited[page] {
			continue
		}
		if page > current && (best == 0 || page < best) {
			best = page
		}
		if fallback == 0 || page < fallback {
			fallback = page
		}
	}
	switch {
	case best != 0:
		return p.pages[best], true
	case fallback != 0:
		return p.pages[fallback], true
	}
	return postback{}, false
}

// currentPage reads the non-link page number rendered inside the pager
// container, which is how ASP.NET pagers mark the active page
func (p *pager) currentPage() (int, bool) {
	container := p.container()
	if container == nil {
		return 0, false
	}
	var current int
	var found bool
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil && !found; c = c.NextSibling {
			if isElement(c, atom.A) {
				continue
			}
			if isElement(c, atom.Span) {
				if text := domtree.Text(c); digitsOnly.MatchString(text) {
					current, _ = strconv.Atoi(text)
					found = true
					return
				}
			}
			walk(c)
		}
	}
	walk(container)
	return current, found
}

// container is the lowest common ancestor of the pager's links
func (p *pager) container() *html.Node {
	if len(p.anchors) == 0 {
		return nil
	}
	lca := p.anchors[0].Parent
	for _, a := range p.anchors[1:] {
		for lca != nil && !isAncestor(lca, a) {
			lca = lca.Parent
		}
	}
	return lca
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
