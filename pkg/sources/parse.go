package sources

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var lotPrefix = regexp.MustCompile(`(?i)^(?:лот)?\s*(?:№|no\.?)?\s*`)

// AnnouncementRef is an entry of the announcement list
type AnnouncementRef struct {
	Source string
	ID     string
	URL    string
	Title  string
}

// BiddingRef points to a bidding page discovered from an announcement
type BiddingRef struct {
	Source     string
	ExternalID string
	URL        string
	Title      string
}

// LotInfo is a lot as listed on a bidding page or its own detail page
type LotInfo struct {
	Number      string
	Description string
	StartPrice  *float64
	URL         string
}

// BiddingPage is the parsed content of a bidding page
type BiddingPage struct {
	Title      string
	ResultsURL string
	Lots       []LotInfo
}

func newDocument(body string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(body)))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}
	return doc, nil
}

// ParseList extracts announcement entries from a list page
func (s *Source) ParseList(pageURL, body string) ([]AnnouncementRef, error) {
	doc, err := newDocument(body)
	if err != nil {
		return nil, err
	}
	base, _ := url.Parse(pageURL)

	var refs []AnnouncementRef
	doc.Find(s.List.Item).Each(func(_ int, item *goquery.Selection) {
		link := s.List.Link.ExtractURL(item, base)
		if link == "" {
			return
		}
		id := s.List.ID.Extract(item)
		if id == "" {
			id = link
		}
		refs = append(refs, AnnouncementRef{
			Source: s.Name,
			ID:     id,
			URL:    link,
			Title:  s.List.Title.Extract(item),
		})
	})
	return refs, nil
}

// ParseAnnouncement extracts the bidding an announcement refers to
func (s *Source) ParseAnnouncement(pageURL, body string) (BiddingRef, error) {
	doc, err := newDocument(body)
	if err != nil {
		return BiddingRef{}, err
	}
	base, _ := url.Parse(pageURL)
	root := doc.Selection

	ref := BiddingRef{
		Source:     s.Name,
		ExternalID: s.Announcement.BiddingID.Extract(root),
		URL:        s.Announcement.BiddingLink.ExtractURL(root, base),
		Title:      s.Announcement.Title.Extract(root),
	}
	if ref.URL == "" {
		return BiddingRef{}, fmt.Errorf("no bidding link on announcement page %s", pageURL)
	}
	if ref.ExternalID == "" {
		ref.ExternalID = ref.URL
	}
	return ref, nil
}

// ParseBidding extracts the bidding title, results link and lot rows
func (s *Source) ParseBidding(pageURL, body string) (BiddingPage, error) {
	doc, err := newDocument(body)
	if err != nil {
		return BiddingPage{}, err
	}
	base, _ := url.Parse(pageURL)
	root := doc.Selection

	page := BiddingPage{
		Title:      s.Bidding.Title.Extract(root),
		ResultsURL: s.Bidding.ResultsLink.ExtractURL(root, base),
	}
	doc.Find(s.Bidding.LotRow).Each(func(_ int, row *goquery.Selection) {
		number := NormalizeLotNumber(s.Bidding.LotNumber.Extract(row))
		if number == "" {
			return
		}
		lot := LotInfo{
			Number:      number,
			Description: s.Bidding.LotDescription.Extract(row),
			URL:         s.Bidding.LotLink.ExtractURL(row, base),
		}
		if price, ok := ParsePrice(s.Bidding.LotStartPrice.Extract(row)); ok {
			lot.StartPrice = &price
		}
		page.Lots = append(page.Lots, lot)
	})
	if len(page.Lots) == 0 {
		return BiddingPage{}, fmt.Errorf("no lots found on bidding page %s", pageURL)
	}
	return page, nil
}

// ParseLot fills description and start price from a lot detail page
func (s *Source) ParseLot(body string, lot *LotInfo) error {
	doc, err := newDocument(body)
	if err != nil {
		return err
	}
	root := doc.Selection

	if d := s.Lot.Description.Extract(root); d != "" {
		lot.Description = d
	}
	if price, ok := ParsePrice(s.Lot.StartPrice.Extract(root)); ok {
		lot.StartPrice = &price
	}
	if lot.Description == "" {
		return fmt.Errorf("no description found for lot %s", lot.Number)
	}
	return nil
}

// NormalizeLotNumber strips a "Лот №" style prefix and surrounding punctuation
func NormalizeLotNumber(raw string) string {
	s := lotPrefix.ReplaceAllString(strings.TrimSpace(raw), "")
	return strings.Trim(strings.TrimSpace(s), ".:")
}
