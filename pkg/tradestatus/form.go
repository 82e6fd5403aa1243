package tradestatus

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// buildForm round-trips every successful control of the page's form and
// sets only the postback event fields
func buildForm(root *html.Node, pb postback) url.Values {
	doc := goquery.NewDocumentFromNode(root)
	scope := doc.Find("form").First()
	if scope.Length() == 0 {
		scope = doc.Selection
	}

	values := url.Values{}
	scope.Find("input[name]").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		value, _ := s.Attr("value")
		switch strings.ToLower(s.AttrOr("type", "text")) {
		case "submit", "button", "image", "reset", "file":
			return
		case "checkbox", "radio":
			if _, checked := s.Attr("checked"); !checked {
				return
			}
			if value == "" {
				value = "on"
			}
		}
		values.Add(name, value)
	})
	scope.Find("select[name]").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		selected := s.Find("option[selected]")
		if selected.Length() == 0 {
			if _, multiple := s.Attr("multiple"); multiple {
				return
			}
			selected = s.Find("option").First()
		}
		selected.Each(func(_ int, o *goquery.Selection) {
			value, ok := o.Attr("value")
			if !ok {
				value = strings.TrimSpace(o.Text())
			}
			values.Add(name, value)
		})
	})
	scope.Find("textarea[name]").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		values.Add(name, s.Text())
	})

	values.Set("__EVENTTARGET", pb.Target)
	values.Set("__EVENTARGUMENT", pb.Argument)
	return values
}

// formAction resolves the form's action against the page URL
func formAction(root *html.Node, page *url.URL) string {
	doc := goquery.NewDocumentFromNode(root)
	action, ok := doc.Find("form").First().Attr("action")
	if !ok || strings.TrimSpace(action) == "" {
		return page.String()
	}
	ref, err := url.Parse(strings.TrimSpace(action))
	if err != nil {
		return page.String()
	}
	return page.ResolveReference(ref).String()
}
