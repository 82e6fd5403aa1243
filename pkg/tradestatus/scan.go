package tradestatus

import (
	"regexp"
	"strings"

	"github.com/lisanmuaddib/lot-ingest/pkg/domtree"
	"github.com/lisanmuaddib/lot-ingest/pkg/sources"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var lotHeader = regexp.MustCompile(`(?i)^\s*лот\s*№\s*(\d+)`)

const statusKey = "статус торгов"

// scanPage reads the outcome of every lot on the page. Only lots in want are
// kept unless want is empty.
func scanPage(root *html.Node, want map[string]bool) []LotStatus {
	flat := domtree.FlattenHTML(root)

	var found []LotStatus
	seen := map[*html.Node]bool{}
	for i := 0; i < flat.Len(); i++ {
		row := flat.At(i)
		if !isElement(row, atom.Tr) {
			continue
		}
		key, _, ok := rowPair(row)
		if !ok || !strings.Contains(key, statusKey) {
			continue
		}
		table := ancestor(row, atom.Table)
		if table == nil || seen[table] {
			continue
		}
		seen[table] = true

		number, ok := lotNumberFor(flat, row)
		if !ok || (len(want) > 0 && !want[number]) {
			continue
		}
		found = append(found, readLotTable(table, number))
	}
	return found
}

// lotNumberFor walks backward from the status row to the nearest "Лот № n"
// heading. A caption or header row inside the row's own table is found
// before anything in an earlier table. Ancestors of the row are skipped.
func lotNumberFor(flat *domtree.Flat[*html.Node], row *html.Node) (string, bool) {
	header, ok := flat.Preceding(row, func(n *html.Node) bool {
		if n.Type != html.TextNode && n.Type != html.ElementNode {
			return false
		}
		if isAncestor(n, row) {
			return false
		}
		return lotHeader.MatchString(domtree.Text(n))
	})
	if !ok {
		return "", false
	}
	m := lotHeader.FindStringSubmatch(domtree.Text(header))
	return m[1], true
}

// readLotTable reads the key/value rows belonging to table itself
func readLotTable(table *html.Node, number string) LotStatus {
	status := LotStatus{Number: number}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if isElement(c, atom.Table) {
				continue
			}
			if isElement(c, atom.Tr) {
				if key, value, ok := rowPair(c); ok {
					status.assign(key, value)
				}
				continue
			}
			walk(c)
		}
	}
	walk(table)
	return status
}

func (s *LotStatus) assign(key, value string) {
	if value == "" {
		return
	}
	switch {
	case strings.Contains(key, statusKey):
		s.TradeStatus = value
	case strings.Contains(key, "инн"):
		s.WinnerINN = &value
	case strings.Contains(key, "цена") || strings.Contains(key, "стоимост"):
		if strings.Contains(key, "начальн") {
			return
		}
		if price, ok := sources.ParsePrice(value); ok {
			s.FinalPrice = &price
		}
	case strings.Contains(key, "победител"):
		s.WinnerName = &value
	}
}

// rowPair returns the lowercased first cell and the second cell of a row
func rowPair(row *html.Node) (string, string, bool) {
	var cells []*html.Node
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if isElement(c, atom.Td) || isElement(c, atom.Th) {
			cells = append(cells, c)
		}
	}
	if len(cells) < 2 {
		return "", "", false
	}
	return strings.ToLower(domtree.Text(cells[0])), domtree.Text(cells[1]), true
}

func isElement(n *html.Node, a atom.Atom) bool {
	return n.Type == html.ElementNode && n.DataAtom == a
}

func ancestor(n *html.Node, a atom.Atom) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if isElement(p, a) {
			return p
		}
	}
	return nil
}

func isAncestor(candidate, n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p == candidate {
			return true
		}
	}
	return false
}
