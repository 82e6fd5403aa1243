package store_test

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/lisanmuaddib/lot-ingest/pkg/db"
	"github.com/lisanmuaddib/lot-ingest/pkg/db/models"
	"github.com/lisanmuaddib/lot-ingest/pkg/store"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
)

func init() {
	if err := godotenv.Load("../../.env"); err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}
}

var _ = Describe("Store", func() {
	var (
		s       *store.Store
		ctx     context.Context
		bidding *models.Bidding
	)

	BeforeEach(func() {
		if os.Getenv("INTEGRATION_TESTS") != "true" {
			Skip("Skipping integration test")
		}

		logger := logrus.New()
		logger.SetLevel(logrus.WarnLevel)

		config, err := db.NewConfig()
		Expect(err).NotTo(HaveOccurred())
		conn, err := db.SetupDatabase(config, logger)
		Expect(err).NotTo(HaveOccurred())

		s = store.New(conn, logger)
		ctx = context.Background()

		bidding = &models.Bidding{
			ExternalID: "test-" + uuid.NewString(),
			Platform:   "test",
			URL:        "https://example.test/bidding",
			ResultsURL: "https://example.test/results",
		}
		Expect(s.UpsertBidding(ctx, bidding)).To(Succeed())
		DeferCleanup(func() {
			conn.Exec("DELETE FROM audit_events WHERE subject_id IN (SELECT id FROM lots WHERE bidding_id = ?)", bidding.ID)
			conn.Delete(&models.Bidding{}, "id = ?", bidding.ID)
		})
	})

	It("keeps the id of an existing bidding on upsert", func() {
		again := &models.Bidding{
			ExternalID: bidding.ExternalID,
			Platform:   "test",
			Title:      "renamed",
			URL:        bidding.URL,
		}
		Expect(s.UpsertBidding(ctx, again)).To(Succeed())
		Expect(again.ID).To(Equal(bidding.ID))
		Expect(again.Title).To(Equal("renamed"))
	})

	It("reports duplicate lots without touching the stored one", func() {
		lot := &models.Lot{BiddingID: bidding.ID, Number: "1", Description: "Квартира"}
		Expect(s.InsertLot(ctx, lot)).To(Succeed())

		dup := &models.Lot{BiddingID: bidding.ID, Number: "1", Description: "другое"}
		Expect(s.InsertLot(ctx, dup)).To(MatchError(store.ErrDuplicate))

		stored, err := s.GetLot(ctx, lot.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.Description).To(Equal("Квартира"))
	})

	It("selects unclassified lots for recovery", func() {
		fresh := &models.Lot{BiddingID: bidding.ID, Number: "1", Description: "Гараж"}
		recent := &models.Lot{BiddingID: bidding.ID, Number: "2", Description: "Склад"}
		done := &models.Lot{BiddingID: bidding.ID, Number: "3", Description: "Дом"}
		empty := &models.Lot{BiddingID: bidding.ID, Number: "4"}
		for _, l := range []*models.Lot{fresh, recent, done, empty} {
			Expect(s.InsertLot(ctx, l)).To(Succeed())
		}
		Expect(s.RecordAudit(ctx, recent.ID, models.AuditClassification, models.AuditFailure, "test", "boom")).To(Succeed())
		Expect(s.RecordAudit(ctx, done.ID, models.AuditClassification, models.AuditSuccess, "test", "")).To(Succeed())

		lots, err := s.UnclassifiedLots(ctx, store.RecoveryCriteria{Quiet: time.Hour, MaxFailures: 3, Limit: 1000})
		Expect(err).NotTo(HaveOccurred())

		ids := map[string]bool{}
		for _, l := range lots {
			ids[l.ID] = true
		}
		Expect(ids).To(HaveKey(fresh.ID))
		Expect(ids).NotTo(HaveKey(recent.ID))
		Expect(ids).NotTo(HaveKey(done.ID))
		Expect(ids).NotTo(HaveKey(empty.ID))
	})

	It("stores trade outcomes with nullable fields", func() {
		lot := &models.Lot{BiddingID: bidding.ID, Number: "7"}
		Expect(s.InsertLot(ctx, lot)).To(Succeed())

		price := 489960.0
		winner := "ООО Ромашка"
		Expect(s.UpdateTradeOutcome(ctx, bidding.ID, "7", store.TradeOutcome{
			Status:     "Завершенные",
			FinalPrice: &price,
			WinnerName: &winner,
		})).To(Succeed())

		stored, err := s.GetLot(ctx, lot.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(*stored.FinalPrice).To(BeNumerically("==", price))
		Expect(*stored.WinnerName).To(Equal(winner))
		Expect(stored.WinnerINN).To(BeNil())

		pending, err := s.LotsAwaitingOutcome(ctx, bidding.ID, []string{"Завершенные"})
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(BeEmpty())
	})
})
