package tasks_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lisanmuaddib/lot-ingest/pkg/tasks"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type fakeScope struct {
	id     int
	closed atomic.Bool
}

func (s *fakeScope) DB() *gorm.DB { return nil }

func (s *fakeScope) Close() error {
	s.closed.Store(true)
	return nil
}

var _ = Describe("Queue", func() {
	var (
		queue  *tasks.Queue
		mu     sync.Mutex
		scopes []*fakeScope
		ran    []string
	)

	record := func(name string) {
		mu.Lock()
		defer mu.Unlock()
		ran = append(ran, name)
	}

	snapshot := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), ran...)
	}

	BeforeEach(func() {
		scopes = nil
		ran = nil
		logger := logrus.New()
		logger.SetLevel(logrus.PanicLevel)
		queue = tasks.NewQueue("test", func(ctx context.Context) (tasks.Scope, error) {
			mu.Lock()
			defer mu.Unlock()
			s := &fakeScope{id: len(scopes)}
			scopes = append(scopes, s)
			return s, nil
		}, logger)
	})

	It("dequeues in FIFO order", func() {
		queue.Enqueue(tasks.Job{Name: "a"})
		queue.Enqueue(tasks.Job{Name: "b"})
		Expect(queue.Len()).To(Equal(2))

		first, err := queue.Dequeue(context.Background())
		Expect(err).NotTo(HaveOccurred())
		second, err := queue.Dequeue(context.Background())
		Expect(err).NotTo(HaveOccurred())

		Expect([]string{first.Name, second.Name}).To(Equal([]string{"a", "b"}))
		Expect(queue.Len()).To(BeZero())
	})

	It("blocks until a job arrives", func() {
		done := make(chan string)
		go func() {
			job, _ := queue.Dequeue(context.Background())
			done <- job.Name
		}()

		Consistently(done, 50*time.Millisecond).ShouldNot(Receive())
		queue.Enqueue(tasks.Job{Name: "late"})
		Eventually(done).Should(Receive(Equal("late")))
	})

	It("returns when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := queue.Dequeue(ctx)
		Expect(err).To(MatchError(context.Canceled))
	})

	It("runs each job in its own scope and survives failures and panics", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go queue.Run(ctx)

		seen := make(chan tasks.Scope, 3)
		queue.Enqueue(tasks.Job{Name: "fails", Run: func(ctx context.Context, scope tasks.Scope) error {
			record("fails")
			seen <- scope
			return errors.New("boom")
		}})
		queue.Enqueue(tasks.Job{Name: "panics", Run: func(ctx context.Context, scope tasks.Scope) error {
			record("panics")
			seen <- scope
			panic("unexpected")
		}})
		queue.Enqueue(tasks.Job{Name: "works", Run: func(ctx context.Context, scope tasks.Scope) error {
			record("works")
			seen <- scope
			return nil
		}})

		Eventually(snapshot).Should(Equal([]string{"fails", "panics", "works"}))

		distinct := map[tasks.Scope]bool{}
		for i := 0; i < 3; i++ {
			distinct[<-seen] = true
		}
		Expect(distinct).To(HaveLen(3))

		mu.Lock()
		opened := append([]*fakeScope(nil), scopes...)
		mu.Unlock()
		Expect(opened).To(HaveLen(3))
		for _, s := range opened {
			Eventually(s.closed.Load).Should(BeTrue())
		}
	})

	It("stops the consumer on Stop", func() {
		done := make(chan error)
		go func() { done <- queue.Run(context.Background()) }()

		queue.Stop()
		Eventually(done).Should(Receive(BeNil()))
	})
})
