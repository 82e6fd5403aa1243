package tradestatus

import (
	"strings"
)

// Trade status labels published by the trading platforms
const (
	StatusCompleted = "Завершенные"
	StatusNotHeld   = "Торги не состоялись"
)

// FinalStatuses are the trade statuses after which a lot is not crawled again
var FinalStatuses = []string{StatusCompleted, StatusNotHeld}

// LotStatus is the trade outcome of one lot read from a results page
type LotStatus struct {
	Number      string
	TradeStatus string
	FinalPrice  *float64
	WinnerName  *string
	WinnerINN   *string
}

// ApplyOutcomeRules normalizes a scraped outcome. A completed trade without a
// final price did not take place and has no winner. A completed trade with a
// price keeps its winner. Any other status carries neither price nor winner.
func ApplyOutcomeRules(s LotStatus) LotStatus {
	if isCompleted(s.TradeStatus) {
		if s.FinalPrice == nil {
			s.TradeStatus = StatusNotHeld
			s.WinnerName = nil
			s.WinnerINN = nil
		}
		return s
	}
	s.FinalPrice = nil
	s.WinnerName = nil
	s.WinnerINN = nil
	return s
}

func isCompleted(status string) bool {
	return strings.EqualFold(strings.TrimSpace(status), StatusCompleted)
}
