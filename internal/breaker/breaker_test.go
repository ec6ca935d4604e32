package breaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(config Config) (*Breaker, *time.Time) {
	b := New("test", config)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreaker_StartsClosed(t *testing.T) {
	b, _ := newTestBreaker(Config{})
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.CanExecute())
}

func TestBreaker_OpensAfterFailureThreshold(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 5})

	for i := 0; i < 4; i++ {
		b.RecordFailure()
		assert.Equal(t, StateClosed, b.State(), "failure %d should not open", i+1)
	}

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.CanExecute())
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 3})

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()

	// Never hit 3 consecutive failures
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenAfterTimeout(t *testing.T) {
	b, now := newTestBreaker(Config{
		FailureThreshold: 2,
		Timeout:          60 * time.Second,
		HalfOpenMaxCalls: 3,
	})

	b.RecordFailure()
	b.RecordFailure()
	require.Equal(t, StateOpen, b.State())
	assert.False(t, b.CanExecute())

	// Still open just before timeout
	*now = now.Add(59 * time.Second)
	assert.False(t, b.CanExecute())

	// Transitions on access after the timeout has elapsed
	*now = now.Add(1 * time.Second)
	assert.True(t, b.CanExecute())
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestBreaker_HalfOpenAdmitsBoundedProbes(t *testing.T) {
	b, now := newTestBreaker(Config{
		FailureThreshold: 1,
		Timeout:          time.Second,
		HalfOpenMaxCalls: 3,
		SuccessThreshold: 10, // keep it in half-open
	})

	b.RecordFailure()
	*now = now.Add(2 * time.Second)

	assert.True(t, b.CanExecute())
	assert.True(t, b.CanExecute())
	assert.True(t, b.CanExecute())
	assert.False(t, b.CanExecute(), "fourth probe must be refused")
}

func TestBreaker_HalfOpenClosesAfterSuccessThreshold(t *testing.T) {
	b, now := newTestBreaker(Config{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          time.Second,
	})

	b.RecordFailure()
	*now = now.Add(2 * time.Second)
	require.True(t, b.CanExecute())

	b.RecordSuccess()
	assert.Equal(t, StateHalfOpen, b.State())

	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State())

	snap := b.Snapshot()
	assert.Equal(t, 0, snap.FailureCount)
	assert.Nil(t, snap.LastFailureTime)
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, now := newTestBreaker(Config{
		FailureThreshold: 1,
		Timeout:          time.Second,
	})

	b.RecordFailure()
	*now = now.Add(2 * time.Second)
	require.True(t, b.CanExecute())

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.CanExecute())
}

func TestBreaker_Snapshot(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 5})

	b.RecordFailure()
	b.RecordFailure()

	snap := b.Snapshot()
	assert.Equal(t, "test", snap.Name)
	assert.Equal(t, "closed", snap.State)
	assert.Equal(t, 2, snap.FailureCount)
	require.NotNil(t, snap.LastFailureTime)
}

func TestOpenError(t *testing.T) {
	err := &OpenError{Name: "sport-direct"}
	assert.True(t, IsOpen(err))
	assert.Contains(t, err.Error(), "sport-direct")
	assert.False(t, IsOpen(assert.AnError))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	r.SetOverride("flaky", Config{FailureThreshold: 2})

	a := r.Get("stable")
	assert.Same(t, a, r.Get("stable"))

	flaky := r.Get("flaky")
	flaky.RecordFailure()
	flaky.RecordFailure()
	assert.Equal(t, StateOpen, flaky.State())

	snaps := r.Snapshots()
	assert.Len(t, snaps, 2)
}
