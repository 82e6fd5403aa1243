package classify

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Result is the model's answer for one lot
type Result struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Categories        []string `json:"categories"`
	MarketValueMin    *float64 `json:"market_value_min"`
	MarketValueMax    *float64 `json:"market_value_max"`
	Confidence        float64  `json:"confidence"`
	Region            string   `json:"region"`
	IsSharedOwnership *bool    `json:"is_shared_ownership"`
}

// Response is the JSON object the model must return
type Response struct {
	Lots []Result `json:"lots"`
}

// ParseResponse decodes a completion, tolerating a markdown code fence
func ParseResponse(completion string) (*Response, error) {
	text := strings.TrimSpace(completion)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	var resp Response
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, fmt.Errorf("malformed classification response: %w", err)
	}
	return &resp, nil
}

// byID indexes results by lot id
func (r *Response) byID() map[string]Result {
	out := make(map[string]Result, len(r.Lots))
	for _, l := range r.Lots {
		out[l.ID] = l
	}
	return out
}
