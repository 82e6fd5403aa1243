// Package sources parses registry and trading-platform pages using CSS
// selectors supplied in a JSON configuration file.
package sources

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// DefaultListPages is how many list pages a discovery pass walks when unset
const DefaultListPages = 1

// Field locates one value inside a page or a repeated block.
// With Attr empty the element text is used. Pattern, when set, must match
// the raw value; its first capture group (or the whole match) is kept.
type Field struct {
	Selector string `json:"selector"`
	Attr     string `json:"attr,omitempty"`
	Pattern  string `json:"pattern,omitempty"`

	re *regexp.Regexp
}

// ListSpec describes the announcement list page
type ListSpec struct {
	// URL may contain {page}, replaced by the 1-based page number
	URL   string `json:"url"`
	Pages int    `json:"pages"`
	Item  string `json:"item"`
	ID    Field  `json:"id"`
	Link  Field  `json:"link"`
	Title Field  `json:"title"`
}

// AnnouncementSpec describes an announcement detail page
type AnnouncementSpec struct {
	BiddingID   Field `json:"biddingId"`
	BiddingLink Field `json:"biddingLink"`
	Title       Field `json:"title"`
}

// BiddingSpec describes a bidding page on the trading platform
type BiddingSpec struct {
	Title          Field  `json:"title"`
	ResultsLink    Field  `json:"resultsLink"`
	LotRow         string `json:"lotRow"`
	LotNumber      Field  `json:"lotNumber"`
	LotDescription Field  `json:"lotDescription"`
	LotStartPrice  Field  `json:"lotStartPrice"`
	LotLink        Field  `json:"lotLink"`
}

// LotSpec describes a lot detail page
type LotSpec struct {
	Description Field `json:"description"`
	StartPrice  Field `json:"startPrice"`
}

// Source is one registry or platform configuration
type Source struct {
	Name         string           `json:"name"`
	Platform     string           `json:"platform"`
	List         ListSpec         `json:"list"`
	Announcement AnnouncementSpec `json:"announcement"`
	Bidding      BiddingSpec      `json:"bidding"`
	Lot          LotSpec          `json:"lot"`
}

// HasLotDetail reports whether lots have their own detail page to scrape
func (s *Source) HasLotDetail() bool {
	return s.Lot.Description.Selector != ""
}

// Config is the parsed sources file
type Config struct {
	Sources []Source `json:"sources"`
}

// Get returns the source with the given name
func (c *Config) Get(name string) (*Source, bool) {
	for i := range c.Sources {
		if c.Sources[i].Name == name {
			return &c.Sources[i], true
		}
	}
	return nil, false
}

// LoadConfig reads and validates a sources file.
//
// The file is JSON with the following structure:
//
//	{
//	    "sources": [
//	        {
//	            "name": "registry",
//	            "platform": "lot-online",
//	            "list": {"url": "https://example.test/list?page={page}", "pages": 3,
//	                     "item": "tr.announcement", "id": {"selector": "td.num"},
//	                     "link": {"selector": "a", "attr": "href"}},
//	            "announcement": {"biddingId": {...}, "biddingLink": {...}},
//	            "bidding": {"lotRow": "table.lots tr", "lotNumber": {...}, ...},
//	            "lot": {"description": {...}, "startPrice": {...}}
//	        }
//	    ]
//	}
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sources config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses and validates a sources document
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing sources config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks required selectors and compiles patterns
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return errors.New("no sources configured")
	}
	seen := map[string]bool{}
	for i := range c.Sources {
		s := &c.Sources[i]
		if s.Name == "" {
			return fmt.Errorf("source %d has no name", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate source %q", s.Name)
		}
		seen[s.Name] = true
		if s.Platform == "" {
			s.Platform = s.Name
		}
		if s.List.URL == "" || s.List.Item == "" || s.List.Link.Selector == "" {
			return fmt.Errorf("source %q: list url, item and link are required", s.Name)
		}
		if s.List.Pages <= 0 {
			s.List.Pages = DefaultListPages
		}
		if s.Announcement.BiddingLink.Selector == "" {
			return fmt.Errorf("source %q: announcement biddingLink is required", s.Name)
		}
		if s.Bidding.LotRow == "" || s.Bidding.LotNumber.Selector == "" {
			return fmt.Errorf("source %q: bidding lotRow and lotNumber are required", s.Name)
		}
		for _, f := range s.fields() {
			if err := f.compile(); err != nil {
				return fmt.Errorf("source %q: %w", s.Name, err)
			}
		}
	}
	return nil
}

// ListURL returns the list page URL for a 1-based page number
func (s *Source) ListURL(page int) string {
	return strings.ReplaceAll(s.List.URL, "{page}", fmt.Sprint(page))
}

func (s *Source) fields() []*Field {
	return []*Field{
		&s.List.ID, &s.List.Link, &s.List.Title,
		&s.Announcement.BiddingID, &s.Announcement.BiddingLink, &s.Announcement.Title,
		&s.Bidding.Title, &s.Bidding.ResultsLink, &s.Bidding.LotNumber,
		&s.Bidding.LotDescription, &s.Bidding.LotStartPrice, &s.Bidding.LotLink,
		&s.Lot.Description, &s.Lot.StartPrice,
	}
}

func (f *Field) compile() error {
	if f.Pattern == "" {
		return nil
	}
	re, err := regexp.Compile(f.Pattern)
	if err != nil {
		return fmt.Errorf("invalid pattern %q: %w", f.Pattern, err)
	}
	f.re = re
	return nil
}
