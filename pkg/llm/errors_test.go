package llm_test

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lisanmuaddib/lot-ingest/pkg/llm"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Classify", func() {
	It("maps a 429 status to ErrRateLimited", func() {
		err := llm.Classify(errors.New("API returned unexpected status code: 429: Rate limit reached for requests"))
		Expect(errors.Is(err, llm.ErrRateLimited)).To(BeTrue())
		Expect(errors.Is(err, llm.ErrPaymentRequired)).To(BeFalse())
	})

	It("treats an exhausted quota as payment required even on a 429", func() {
		err := llm.Classify(errors.New("API returned unexpected status code: 429: You exceeded your current quota, please check your plan and billing details"))
		Expect(errors.Is(err, llm.ErrPaymentRequired)).To(BeTrue())
		Expect(errors.Is(err, llm.ErrRateLimited)).To(BeFalse())
	})

	It("maps a 402 status to ErrPaymentRequired", func() {
		err := llm.Classify(errors.New("API returned unexpected status code: 402: Payment Required"))
		Expect(errors.Is(err, llm.ErrPaymentRequired)).To(BeTrue())
	})

	It("keeps other status codes without a sentinel", func() {
		err := llm.Classify(errors.New("API returned unexpected status code: 500: upstream failed"))
		var apiErr *llm.APIError
		Expect(errors.As(err, &apiErr)).To(BeTrue())
		Expect(apiErr.StatusCode).To(Equal(http.StatusInternalServerError))
		Expect(errors.Is(err, llm.ErrRateLimited)).To(BeFalse())
		Expect(errors.Is(err, llm.ErrPaymentRequired)).To(BeFalse())
	})

	It("returns unrelated errors unchanged", func() {
		orig := errors.New("unexpected end of JSON input")
		Expect(llm.Classify(orig)).To(BeIdenticalTo(orig))
		Expect(llm.Classify(nil)).To(BeNil())
	})

	It("survives wrapping", func() {
		err := fmt.Errorf("classify lot: %w", llm.Classify(errors.New("429 Too Many Requests")))
		Expect(errors.Is(err, llm.ErrRateLimited)).To(BeTrue())
	})

	It("exposes a provider retry-after hint", func() {
		err := fmt.Errorf("wrapped: %w", &llm.APIError{StatusCode: http.StatusTooManyRequests, RetryAfter: 90 * time.Second})
		after, ok := llm.RetryAfter(err)
		Expect(ok).To(BeTrue())
		Expect(after).To(Equal(90 * time.Second))

		_, ok = llm.RetryAfter(errors.New("plain"))
		Expect(ok).To(BeFalse())
	})

	DescribeTable("reads the retry-after hint of a rate-limit message",
		func(message string, expected time.Duration) {
			after, ok := llm.RetryAfter(llm.Classify(errors.New(message)))
			Expect(ok).To(BeTrue())
			Expect(after).To(Equal(expected))
		},
		Entry("seconds", "API returned unexpected status code: 429: Rate limit reached for gpt-4o-mini. Please try again in 20s.", 20*time.Second),
		Entry("fractional seconds", "API returned unexpected status code: 429: Rate limit reached. Please try again in 1.5s.", 1500*time.Millisecond),
		Entry("milliseconds", "API returned unexpected status code: 429: Rate limit reached. Please try again in 450ms.", 450*time.Millisecond),
		Entry("compound duration", "API returned unexpected status code: 429: Rate limit reached. Please try again in 6m0s.", 6*time.Minute),
		Entry("spelled out", "429 Too Many Requests: retry after 30 seconds", 30*time.Second),
	)

	It("reports no hint when the message has none", func() {
		_, ok := llm.RetryAfter(llm.Classify(errors.New("API returned unexpected status code: 429: Rate limit reached for requests")))
		Expect(ok).To(BeFalse())
	})
})
