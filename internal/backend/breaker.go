package backend

import (
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/five82/ticketbook/internal/metrics"
	"github.com/five82/ticketbook/internal/result"
)

// newBreaker opens after five consecutive infrastructure failures. Client
// errors such as validation or not-found never count against the backend.
func newBreaker(name string, log zerolog.Logger, m *metrics.Metrics) *gobreaker.CircuitBreaker[struct{}] {
	m.SetBreakerState(name, stateValue(gobreaker.StateClosed))
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return !countsAsFailure(result.From(err))
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			m.SetBreakerState(name, stateValue(to))
		},
	})
}

func countsAsFailure(err *result.AppError) bool {
	if err == nil {
		return false
	}
	switch err.Kind {
	case result.KindNetwork, result.KindTimeout, result.KindServer:
		return true
	}
	return false
}

func stateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return 0
}
