package llm

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrPaymentRequired indicates the provider account has run out of credit
	ErrPaymentRequired = errors.New("llm: payment required")
	// ErrRateLimited indicates the provider rejected the call for exceeding a rate limit
	ErrRateLimited = errors.New("llm: rate limited")
)

// APIError is a provider error carrying the HTTP status and an optional retry-after hint.
type APIError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llm api error: status=%d message=%s: %v", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("llm api error: status=%d message=%s", e.StatusCode, e.Message)
}

// Unwrap exposes the provider error and the sentinel matching the status
func (e *APIError) Unwrap() []error {
	errs := []error{}
	switch {
	case e.StatusCode == http.StatusPaymentRequired:
		errs = append(errs, ErrPaymentRequired)
	case e.StatusCode == http.StatusTooManyRequests && isQuotaMessage(e.Message):
		errs = append(errs, ErrPaymentRequired)
	case e.StatusCode == http.StatusTooManyRequests:
		errs = append(errs, ErrRateLimited)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

var paymentKeywords = []string{
	"insufficient_quota",
	"exceeded your current quota",
	"payment required",
	"billing",
	"insufficient credits",
	"status code: 402",
}

var rateLimitKeywords = []string{
	"rate limit exceeded",
	"rate_limit_exceeded",
	"too many requests",
	"429 too many requests",
	"status code: 429",
}

var statusCodePattern = regexp.MustCompile(`status code: (\d{3})`)

// retryHintPattern matches hints such as "try again in 20s", "try again in
// 1m30s", "try again in 450ms" and "retry after 30 seconds"
var retryHintPattern = regexp.MustCompile(`(?i)(?:try again in|retry after)\s+((?:\d+(?:\.\d+)?(?:ms|h|m|s))+\b|(\d+(?:\.\d+)?)\s*(seconds?|secs?|minutes?|mins?)\b)`)

// Classify maps a raw provider error onto an *APIError so callers can match
// ErrPaymentRequired and ErrRateLimited with errors.Is. Errors that already
// carry a sentinel, or that match neither, are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}

	msg := strings.ToLower(err.Error())
	status := 0
	if m := statusCodePattern.FindStringSubmatch(msg); m != nil {
		status, _ = strconv.Atoi(m[1])
	}

	switch {
	case containsAny(msg, paymentKeywords):
		return &APIError{StatusCode: http.StatusPaymentRequired, Message: err.Error(), Err: err}
	case status == http.StatusTooManyRequests || containsAny(msg, rateLimitKeywords):
		return &APIError{StatusCode: http.StatusTooManyRequests, Message: err.Error(), RetryAfter: retryHint(msg), Err: err}
	case status != 0:
		return &APIError{StatusCode: status, Message: err.Error(), Err: err}
	}
	return err
}

// RetryAfter returns the provider's retry-after hint, if the error carries one
func RetryAfter(err error) (time.Duration, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		return apiErr.RetryAfter, true
	}
	return 0, false
}

// retryHint reads a retry-after hint from a provider message, 0 when absent
func retryHint(msg string) time.Duration {
	m := retryHintPattern.FindStringSubmatch(msg)
	if m == nil {
		return 0
	}
	if m[2] == "" {
		d, err := time.ParseDuration(m[1])
		if err != nil {
			return 0
		}
		return d
	}
	n, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0
	}
	unit := time.Second
	if strings.HasPrefix(m[3], "min") {
		unit = time.Minute
	}
	return time.Duration(n * float64(unit))
}

func isQuotaMessage(msg string) bool {
	return containsAny(strings.ToLower(msg), paymentKeywords)
}

func containsAny(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}
