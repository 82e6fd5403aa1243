package classify_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lisanmuaddib/lot-ingest/pkg/classify"
	"github.com/lisanmuaddib/lot-ingest/pkg/db/models"
	"github.com/lisanmuaddib/lot-ingest/pkg/guard"
	"github.com/lisanmuaddib/lot-ingest/pkg/llm"
	"github.com/lisanmuaddib/lot-ingest/pkg/store"
	"github.com/lisanmuaddib/lot-ingest/pkg/tasks"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
)

type auditRecord struct {
	LotID  string
	Status models.AuditStatus
	Source string
}

type fakeStore struct {
	lots    map[string]models.Lot
	updates map[string]store.Classification
	audits  []auditRecord
}

func newFakeStore(lots ...models.Lot) *fakeStore {
	s := &fakeStore{lots: map[string]models.Lot{}, updates: map[string]store.Classification{}}
	for _, l := range lots {
		s.lots[l.ID] = l
	}
	return s
}

func (s *fakeStore) GetLot(_ context.Context, id string) (*models.Lot, error) {
	lot, ok := s.lots[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &lot, nil
}

func (s *fakeStore) GetLots(_ context.Context, ids []string) ([]models.Lot, error) {
	var out []models.Lot
	for _, id := range ids {
		if lot, ok := s.lots[id]; ok {
			out = append(out, lot)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateClassification(_ context.Context, lotID string, c store.Classification) error {
	s.updates[lotID] = c
	return nil
}

func (s *fakeStore) RecordAudit(_ context.Context, subjectID string, _ models.AuditEventType, status models.AuditStatus, source, _ string) error {
	s.audits = append(s.audits, auditRecord{LotID: subjectID, Status: status, Source: source})
	return nil
}

func (s *fakeStore) statuses(lotID string) []models.AuditStatus {
	var out []models.AuditStatus
	for _, a := range s.audits {
		if a.LotID == lotID {
			out = append(out, a.Status)
		}
	}
	return out
}

type fakeLLM struct {
	prompts []string
	respond func(prompt string) (string, error)
}

func (f *fakeLLM) Complete(_ context.Context, prompt string, opts ...llm.Option) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if !llm.ApplyOptions(llm.Options{}, opts...).JSONMode {
		return "", errors.New("json mode not requested")
	}
	return f.respond(prompt)
}

// answerAll returns a garage result for every lot id present in the prompt
func answerAll(ids ...string) func(string) (string, error) {
	return func(prompt string) (string, error) {
		var results []string
		for _, id := range ids {
			if strings.Contains(prompt, fmt.Sprintf("%q", id)) {
				results = append(results, fmt.Sprintf(`{"id":%q,"title":"Гаражный бокс","categories":["Гараж (бокс)"],"market_value_min":100000,"market_value_max":150000,"confidence":0.9,"region":"Тверская область","is_shared_ownership":false}`, id))
			}
		}
		return `{"lots":[` + strings.Join(results, ",") + `]}`, nil
	}
}

var _ = Describe("Classifier", func() {
	var (
		ctx        context.Context
		st         *fakeStore
		model      *fakeLLM
		g          *guard.Guard
		classifier *classify.Classifier
	)

	lot := func(id, description string) models.Lot {
		return models.Lot{ID: id, Number: id, Description: description}
	}

	BeforeEach(func() {
		ctx = context.Background()
		logger := logrus.New()
		logger.SetLevel(logrus.PanicLevel)
		st = newFakeStore(
			lot("lot-1", "Гаражный бокс 18 кв.м."),
			lot("lot-2", "Гаражный бокс 20 кв.м."),
			lot("lot-3", "Гаражный бокс 22 кв.м."),
			lot("lot-empty", ""),
		)
		model = &fakeLLM{respond: answerAll("lot-1", "lot-2", "lot-3")}
		g = guard.New(guard.Config{
			Interval:          time.Millisecond,
			PaymentCooldown:   time.Hour,
			RateLimitCooldown: time.Minute,
			Logger:            logger,
		})
		var err error
		classifier, err = classify.New(classify.Config{
			Guard:     g,
			LLM:       model,
			Store:     st,
			BatchSize: 2,
			Logger:    logger,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("ClassifyLot", func() {
		It("writes cleaned categories and derived fields", func() {
			Expect(classifier.ClassifyLot(ctx, "lot-1", "scrape")).To(Succeed())

			update := st.updates["lot-1"]
			Expect(update.Categories).To(Equal([]string{"Гараж"}))
			Expect(update.Title).To(Equal("Гаражный бокс"))
			Expect(*update.MarketValueMax).To(Equal(150000.0))
			Expect(*update.IsSharedOwnership).To(BeFalse())
			Expect(update.Region).To(Equal("Тверская область"))
			Expect(st.statuses("lot-1")).To(Equal([]models.AuditStatus{models.AuditStart, models.AuditSuccess}))
		})

		It("records a failure for a malformed response", func() {
			model.respond = func(string) (string, error) { return "not json", nil }

			Expect(classifier.ClassifyLot(ctx, "lot-1", "scrape")).NotTo(Succeed())
			Expect(st.updates).To(BeEmpty())
			Expect(st.statuses("lot-1")).To(Equal([]models.AuditStatus{models.AuditStart, models.AuditFailure}))
		})

		It("records a failure when no category survives cleanup", func() {
			model.respond = func(string) (string, error) {
				return `{"lots":[{"id":"lot-1","categories":["Космос"]}]}`, nil
			}

			Expect(classifier.ClassifyLot(ctx, "lot-1", "scrape")).NotTo(Succeed())
			Expect(st.statuses("lot-1")).To(Equal([]models.AuditStatus{models.AuditStart, models.AuditFailure}))
		})

		It("skips the lot and opens the breaker when payment is required", func() {
			model.respond = func(string) (string, error) {
				return "", &llm.APIError{StatusCode: 402, Message: "insufficient credits"}
			}

			Expect(classifier.ClassifyLot(ctx, "lot-1", "scrape")).To(Succeed())
			Expect(st.statuses("lot-1")).To(Equal([]models.AuditStatus{models.AuditStart, models.AuditSkipped}))
			Expect(g.Breaker().State()).To(Equal(guard.StateOpen))

			Expect(classifier.ClassifyLot(ctx, "lot-2", "scrape")).To(Succeed())
			Expect(st.statuses("lot-2")).To(Equal([]models.AuditStatus{models.AuditSkipped}))
			Expect(model.prompts).To(HaveLen(1))
		})

		It("skips lots without a description without calling the provider", func() {
			Expect(classifier.ClassifyLot(ctx, "lot-empty", "scrape")).To(Succeed())
			Expect(st.statuses("lot-empty")).To(Equal([]models.AuditStatus{models.AuditSkipped}))
			Expect(model.prompts).To(BeEmpty())
		})

		It("returns not found for unknown lots", func() {
			Expect(classifier.ClassifyLot(ctx, "missing", "scrape")).To(MatchError(store.ErrNotFound))
		})
	})

	Describe("ClassifyBatch", func() {
		It("makes one call per chunk and matches results by id", func() {
			summary, err := classifier.ClassifyBatch(ctx, []string{"lot-1", "lot-2", "lot-3"}, "recovery")
			Expect(err).NotTo(HaveOccurred())
			Expect(summary).To(Equal(classify.Summary{Succeeded: 3}))
			Expect(model.prompts).To(HaveLen(2))
			Expect(st.updates).To(HaveKey("lot-3"))
			for _, a := range st.audits {
				Expect(a.Source).To(Equal("recovery"))
			}
		})

		It("fails lots missing from the response", func() {
			model.respond = answerAll("lot-1")

			summary, err := classifier.ClassifyBatch(ctx, []string{"lot-1", "lot-2"}, "recovery")
			Expect(err).NotTo(HaveOccurred())
			Expect(summary).To(Equal(classify.Summary{Succeeded: 1, Failed: 1}))
			Expect(st.statuses("lot-2")).To(Equal([]models.AuditStatus{models.AuditStart, models.AuditFailure}))
		})

		It("skips every remaining lot after a rate limit", func() {
			model.respond = func(string) (string, error) {
				return "", &llm.APIError{StatusCode: 429, Message: "rate limit exceeded"}
			}

			summary, err := classifier.ClassifyBatch(ctx, []string{"lot-1", "lot-2", "lot-3"}, "recovery")
			Expect(err).NotTo(HaveOccurred())
			Expect(summary).To(Equal(classify.Summary{Skipped: 3}))
			Expect(model.prompts).To(HaveLen(1))
			Expect(st.statuses("lot-1")).To(Equal([]models.AuditStatus{models.AuditStart, models.AuditSkipped}))
			Expect(st.statuses("lot-3")).To(Equal([]models.AuditStatus{models.AuditSkipped}))
			Expect(st.updates).To(BeEmpty())
		})
	})

	Describe("Enqueue", func() {
		It("audits the enqueue and runs classification against the job's store", func() {
			var jobs []tasks.Job
			queue := enqueuerFunc(func(job tasks.Job) { jobs = append(jobs, job) })
			scoped := newFakeStore(lot("lot-9", "Квартира 30 кв.м."))
			model.respond = answerAll("lot-9")

			classifier.WithStore(scoped).Enqueue(ctx, queue, func(tasks.Scope) classify.Store { return scoped }, "lot-9", "scrape")
			Expect(jobs).To(HaveLen(1))
			Expect(scoped.statuses("lot-9")).To(Equal([]models.AuditStatus{models.AuditEnqueued}))

			Expect(jobs[0].Run(ctx, nil)).To(Succeed())
			Expect(scoped.statuses("lot-9")).To(Equal([]models.AuditStatus{
				models.AuditEnqueued, models.AuditStart, models.AuditSuccess,
			}))
		})
	})
})

type enqueuerFunc func(job tasks.Job)

func (f enqueuerFunc) Enqueue(job tasks.Job) { f(job) }
