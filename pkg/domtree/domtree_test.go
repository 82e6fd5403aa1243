package domtree_test

import (
	"strings"

	"github.com/lisanmuaddib/lot-ingest/pkg/domtree"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/net/html"
)

type node struct {
	name string
	kids []*node
}

func children(n *node) []*node { return n.kids }

var _ = Describe("Flatten", func() {
	It("lists nodes in document order", func() {
		c := &node{name: "c"}
		tree := &node{name: "root", kids: []*node{
			{name: "a", kids: []*node{{name: "a1"}, {name: "a2"}}},
			{name: "b", kids: []*node{c}},
		}}

		flat := domtree.Flatten(tree, children)
		var names []string
		for i := 0; i < flat.Len(); i++ {
			names = append(names, flat.At(i).name)
		}
		Expect(names).To(Equal([]string{"root", "a", "a1", "a2", "b", "c"}))

		idx, ok := flat.IndexOf(c)
		Expect(ok).To(BeTrue())
		Expect(idx).To(Equal(5))
	})

	It("finds the nearest preceding match", func() {
		target := &node{name: "row"}
		tree := &node{name: "root", kids: []*node{
			{name: "header-1"},
			{name: "table", kids: []*node{{name: "header-2"}, {name: "body", kids: []*node{target}}}},
		}}

		flat := domtree.Flatten(tree, children)
		found, ok := flat.Preceding(target, func(n *node) bool { return strings.HasPrefix(n.name, "header") })
		Expect(ok).To(BeTrue())
		Expect(found.name).To(Equal("header-2"))

		_, ok = flat.Preceding(tree, func(*node) bool { return true })
		Expect(ok).To(BeFalse())
	})

	It("works on parsed html", func() {
		doc, err := html.Parse(strings.NewReader(`<div><p>Лот № 1</p><table><tr><td>x</td></tr></table><p>Лот № 2</p><table><tr id="t"><td>y</td></tr></table></div>`))
		Expect(err).NotTo(HaveOccurred())

		flat := domtree.FlattenHTML(doc)
		var row *html.Node
		for i := 0; i < flat.Len(); i++ {
			n := flat.At(i)
			if n.Type == html.ElementNode && n.Data == "tr" && len(n.Attr) > 0 {
				row = n
			}
		}
		Expect(row).NotTo(BeNil())

		header, ok := flat.Preceding(row, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.Data == "p"
		})
		Expect(ok).To(BeTrue())
		Expect(domtree.Text(header)).To(Equal("Лот № 2"))
	})
})
