package workcache_test

import (
	"errors"
	"sync"
	"time"

	"github.com/lisanmuaddib/lot-ingest/pkg/workcache"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func entry(key string) workcache.Entry[string, string] {
	return workcache.Entry[string, string]{Key: key, Payload: "payload-" + key}
}

var _ = Describe("Cache", func() {
	var (
		cache *workcache.Cache[string, string]
		now   time.Time
	)

	BeforeEach(func() {
		now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		cache = workcache.New[string, string](
			workcache.WithClock(func() time.Time { return now }),
			workcache.WithMaxAttempts(3),
			workcache.WithBackoff(time.Minute, 4*time.Minute),
		)
	})

	Describe("AddMany", func() {
		It("counts only keys that were not known", func() {
			Expect(cache.AddMany(entry("a"), entry("b"))).To(Equal(2))
			Expect(cache.AddMany(entry("b"), entry("c"))).To(Equal(1))
			Expect(cache.Len()).To(Equal(3))
		})

		It("never resets a completed item back to new", func() {
			cache.AddMany(entry("a"))
			cache.MarkCompleted("a")

			Expect(cache.AddMany(entry("a"))).To(Equal(0))
			Expect(cache.AddMany(entry("a"))).To(Equal(0))

			item, ok := cache.Get("a")
			Expect(ok).To(BeTrue())
			Expect(item.Status).To(Equal(workcache.StatusCompleted))
			Expect(cache.GetPending()).To(BeEmpty())
		})

		It("keeps the original payload on re-insertion", func() {
			cache.AddMany(entry("a"))
			cache.AddMany(workcache.Entry[string, string]{Key: "a", Payload: "other"})

			item, _ := cache.Get("a")
			Expect(item.Payload).To(Equal("payload-a"))
		})
	})

	Describe("MarkCompleted", func() {
		It("ignores absent keys", func() {
			Expect(func() { cache.MarkCompleted("missing") }).NotTo(Panic())
			Expect(cache.Len()).To(Equal(0))
		})

		It("is a no-op for items already completed", func() {
			cache.AddMany(entry("a"))
			cache.MarkCompleted("a")
			cache.MarkCompleted("a")

			Expect(cache.Counts()).To(Equal(workcache.Counts{Completed: 1}))
		})
	})

	Describe("PruneCompleted", func() {
		It("removes exactly the completed items", func() {
			cache.AddMany(entry("a"), entry("b"), entry("c"))
			cache.MarkCompleted("a")
			cache.MarkCompleted("c")

			Expect(cache.PruneCompleted()).To(Equal(2))

			pending := cache.GetPending()
			Expect(pending).To(HaveLen(1))
			Expect(pending[0].Key).To(Equal("b"))
			Expect(pending[0].Status).To(Equal(workcache.StatusNew))
		})
	})

	Describe("MarkFailed", func() {
		It("delays the item with exponential backoff", func() {
			cache.AddMany(entry("a"))

			Expect(cache.MarkFailed("a", errors.New("boom"))).To(Equal(workcache.StatusNew))
			Expect(cache.GetPending()).To(BeEmpty())

			now = now.Add(time.Minute)
			Expect(cache.GetPending()).To(HaveLen(1))

			cache.MarkFailed("a", errors.New("boom again"))
			item, _ := cache.Get("a")
			Expect(item.Attempts).To(Equal(2))
			Expect(item.LastError).To(Equal("boom again"))
			Expect(item.NextAttempt).To(Equal(now.Add(2 * time.Minute)))
		})

		It("abandons the item once the attempt budget is spent", func() {
			cache.AddMany(entry("a"))
			cache.MarkFailed("a", nil)
			cache.MarkFailed("a", nil)
			Expect(cache.MarkFailed("a", nil)).To(Equal(workcache.StatusAbandoned))

			now = now.Add(time.Hour)
			Expect(cache.GetPending()).To(BeEmpty())
			Expect(cache.PruneCompleted()).To(Equal(0))
			Expect(cache.AddMany(entry("a"))).To(Equal(0))
		})

		It("does not touch completed items", func() {
			cache.AddMany(entry("a"))
			cache.MarkCompleted("a")
			Expect(cache.MarkFailed("a", errors.New("late"))).To(Equal(workcache.StatusCompleted))
		})
	})

	It("is safe for concurrent use", func() {
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				cache.AddMany(entry("shared"))
				for _, item := range cache.GetPending() {
					cache.MarkCompleted(item.Key)
				}
			}()
		}
		wg.Wait()

		Expect(cache.Len()).To(Equal(1))
		Expect(cache.Counts().Completed).To(Equal(1))
	})
})
