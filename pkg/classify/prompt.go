package classify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lisanmuaddib/lot-ingest/pkg/db/models"
	"github.com/tmc/langchaingo/prompts"
)

// PromptSections are the numbered instruction blocks of the classification prompt
var PromptSections = map[string]string{
	"Task": `   - You classify lots sold at bankruptcy auctions in Russia
   - Each lot has an id, a free-text description, optional cadastral numbers and a start price
   - Return one result per lot, using the same id`,

	"Rules": `   - Use only category names from the list below, spelled exactly as given
   - A lot may have several categories when it bundles different assets
   - Title is a short human-readable name of the lot, at most 120 characters, in Russian
   - Market value bounds are your estimate in rubles; use null when you cannot tell
   - is_shared_ownership is true when the lot is a share (доля) of an asset
   - Region is the Russian region where the asset is located, or an empty string`,

	"Output Format": `   - Respond with a single JSON object and nothing else
   - Schema: {"lots":[{"id":string,"title":string,"categories":[string],
     "market_value_min":number|null,"market_value_max":number|null,
     "confidence":number,"region":string,"is_shared_ownership":boolean}]}`,
}

var sectionOrder = []string{"Task", "Categories", "Rules", "Examples", "Output Format"}

const examples = `   Input: [{"id":"a","description":"Квартира 45 кв.м., г. Тверь, ул. Советская 10, КН 69:40:0100207:112"}]
   Output: {"lots":[{"id":"a","title":"Квартира 45 м² в Твери","categories":["Квартира"],"market_value_min":3500000,"market_value_max":4200000,"confidence":0.8,"region":"Тверская область","is_shared_ownership":false}]}

   Input: [{"id":"b","description":"1/2 доли в праве на земельный участок и жилой дом, Московская обл."}]
   Output: {"lots":[{"id":"b","title":"1/2 доли дома с участком в Подмосковье","categories":["Жилой дом","Земельный участок"],"market_value_min":null,"market_value_max":null,"confidence":0.6,"region":"Московская область","is_shared_ownership":true}]}`

// NewPrompt builds the classification prompt template. Its single input
// variable "lots" receives the JSON-encoded lot list.
func NewPrompt(taxonomy []Category) prompts.PromptTemplate {
	var b strings.Builder
	b.WriteString("You are an analyst of bankruptcy auction listings. Follow these instructions:\n\n")

	for i, name := range sectionOrder {
		var content string
		switch name {
		case "Categories":
			content = categoryList(taxonomy)
		case "Examples":
			content = examples
		default:
			content = PromptSections[name]
		}
		b.WriteString(fmt.Sprintf("%d. %s:\n%s\n\n", i+1, name, content))
	}
	b.WriteString("Lots:\n{{.lots}}\n")

	return prompts.NewPromptTemplate(b.String(), []string{"lots"})
}

func categoryList(taxonomy []Category) string {
	var b strings.Builder
	for _, c := range taxonomy {
		b.WriteString(fmt.Sprintf("   - %s: %s\n", c.Name, c.Hint))
	}
	return strings.TrimRight(b.String(), "\n")
}

type promptLot struct {
	ID               string   `json:"id"`
	Description      string   `json:"description"`
	CadastralNumbers []string `json:"cadastral_numbers,omitempty"`
	StartPrice       *float64 `json:"start_price,omitempty"`
}

// renderLots formats lots for the "lots" prompt variable
func renderLots(lots []models.Lot) (string, error) {
	items := make([]promptLot, len(lots))
	for i, l := range lots {
		items[i] = promptLot{
			ID:               l.ID,
			Description:      l.Description,
			CadastralNumbers: l.CadastralNumbers,
			StartPrice:       l.StartPrice,
		}
	}
	encoded, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding lots for prompt: %w", err)
	}
	return string(encoded), nil
}
