package gpionet

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// NewCircuitBreakerSettings returns breaker settings suited to a device:
// the breaker opens once at least 3 sessions ran in the interval and 60% of
// them failed, and stays open for timeout. Only transport and connection
// failures count, see ShouldReconnect.
func NewCircuitBreakerSettings(interval, timeout time.Duration) *gobreaker.Settings {
	return &gobreaker.Settings{
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		IsSuccessful: isBreakerSuccess,
	}
}

func isBreakerSuccess(err error) bool {
	return !ShouldReconnect(err)
}

func newCircuitBreaker(addr string, settings *gobreaker.Settings) *gobreaker.CircuitBreaker[FlushResult] {
	if settings == nil {
		return nil
	}
	s := *settings
	if s.Name == "" {
		s.Name = addr
	}
	if s.IsSuccessful == nil {
		s.IsSuccessful = isBreakerSuccess
	}
	return gobreaker.NewCircuitBreaker[FlushResult](s)
}
