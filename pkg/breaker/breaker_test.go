package breaker_test

import (
	"errors"
	"testing"
	"time"

	"github.com/Astemirdum/rental-service/pkg/breaker"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_Call(t *testing.T) {
	t.Parallel()

	ok := func() error { return nil }
	fail := func() error { return errors.New("service error") }

	cb := breaker.New(10, 50*time.Millisecond, 0.5, 3)

	for i := 0; i < 20; i++ {
		require.NoError(t, cb.Call(ok))
	}

	// enough failures in the tail open the breaker
	for i := 0; i < 10; i++ {
		_ = cb.Call(fail)
	}
	require.ErrorIs(t, cb.Call(ok), breaker.ErrOpen)

	// after the timeout it probes in half-open and recovers on successes
	time.Sleep(60 * time.Millisecond)
	cb.Reset()
	for i := 0; i < 5; i++ {
		require.NoError(t, cb.Call(ok))
	}
}
