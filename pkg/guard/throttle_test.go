package guard_test

import (
	"context"
	"sync"
	"time"

	"github.com/lisanmuaddib/lot-ingest/pkg/guard"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Throttle", func() {
	var (
		throttle *guard.Throttle
		now      time.Time
	)

	BeforeEach(func() {
		now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		throttle = guard.NewThrottle(time.Second)
		throttle.SetClock(func() time.Time { return now })
	})

	It("lets the first call through immediately", func() {
		Expect(throttle.Reserve()).To(BeZero())
	})

	It("spaces back-to-back reservations one interval apart", func() {
		for k := 0; k < 5; k++ {
			Expect(throttle.Reserve()).To(Equal(time.Duration(k) * time.Second))
		}
	})

	It("subtracts elapsed time from the wait", func() {
		throttle.Reserve()
		throttle.Reserve()
		now = now.Add(1500 * time.Millisecond)
		Expect(throttle.Reserve()).To(Equal(500 * time.Millisecond))
	})

	It("does not bank idle time as burst credit", func() {
		throttle.Reserve()
		now = now.Add(time.Hour)
		Expect(throttle.Reserve()).To(BeZero())
		Expect(throttle.Reserve()).To(Equal(time.Second))
	})

	It("serializes concurrent waiters", func() {
		spaced := guard.NewThrottle(20 * time.Millisecond)
		start := time.Now()

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				Expect(spaced.Wait(context.Background())).To(Succeed())
			}()
		}
		wg.Wait()

		Expect(time.Since(start)).To(BeNumerically(">=", 60*time.Millisecond))
	})

	It("returns when the context is cancelled", func() {
		slow := guard.NewThrottle(time.Hour)
		Expect(slow.Wait(context.Background())).To(Succeed())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		Expect(slow.Wait(ctx)).To(MatchError(context.DeadlineExceeded))
	})
})
