package tradestatus_test

import (
	"context"
	"sync"

	"github.com/lisanmuaddib/lot-ingest/pkg/db/models"
	"github.com/lisanmuaddib/lot-ingest/pkg/store"
	"github.com/lisanmuaddib/lot-ingest/pkg/tradestatus"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
)

type fakeStore struct {
	mu       sync.Mutex
	biddings []models.Bidding
	lots     map[string][]models.Lot
	updates  map[string]store.TradeOutcome
}

func (s *fakeStore) BiddingsAwaitingOutcome(context.Context, []string) ([]models.Bidding, error) {
	return s.biddings, nil
}

func (s *fakeStore) LotsAwaitingOutcome(_ context.Context, biddingID string, _ []string) ([]models.Lot, error) {
	return s.lots[biddingID], nil
}

func (s *fakeStore) UpdateTradeOutcome(_ context.Context, biddingID, number string, outcome store.TradeOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates[biddingID+"/"+number] = outcome
	return nil
}

type fakeWalker struct {
	mu      sync.Mutex
	targets map[string][]string
	results map[string][]tradestatus.LotStatus
}

func (w *fakeWalker) Crawl(_ context.Context, pageURL string, targets []string) []tradestatus.LotStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.targets[pageURL] = targets
	return w.results[pageURL]
}

var _ = Describe("Job", func() {
	It("crawls each bidding for its pending lots and stores the outcomes", func() {
		price := 489960.00
		winner := "ООО Вектор"
		st := &fakeStore{
			biddings: []models.Bidding{
				{ID: "b1", ResultsURL: "http://etp/1"},
				{ID: "b2", ResultsURL: "http://etp/2"},
				{ID: "b3", ResultsURL: "http://etp/3"},
			},
			lots: map[string][]models.Lot{
				"b1": {{Number: "1"}, {Number: "2"}},
				"b2": {{Number: "7"}},
			},
			updates: map[string]store.TradeOutcome{},
		}
		walker := &fakeWalker{
			targets: map[string][]string{},
			results: map[string][]tradestatus.LotStatus{
				"http://etp/1": {{Number: "2", TradeStatus: tradestatus.StatusCompleted, FinalPrice: &price, WinnerName: &winner}},
				"http://etp/2": {{Number: "7", TradeStatus: tradestatus.StatusNotHeld}},
			},
		}
		logger := logrus.New()
		logger.SetLevel(logrus.PanicLevel)

		job := tradestatus.NewJob(walker, st, &tradestatus.Config{Concurrency: 2, Logger: logger})
		Expect(job.RunOnce(context.Background())).To(Succeed())

		Expect(walker.targets).To(HaveKeyWithValue("http://etp/1", []string{"1", "2"}))
		Expect(walker.targets).NotTo(HaveKey("http://etp/3"))
		Expect(st.updates).To(HaveLen(2))
		Expect(*st.updates["b1/2"].FinalPrice).To(Equal(489960.00))
		Expect(st.updates["b2/7"].Status).To(Equal(tradestatus.StatusNotHeld))
	})

	It("rejects an invalid schedule", func() {
		config := &tradestatus.Config{Schedule: "every now and then"}
		Expect(config.Validate()).To(MatchError(ContainSubstring("invalid STATUS_CRAWL_SCHEDULE")))
	})
})
