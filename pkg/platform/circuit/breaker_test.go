package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAndCloses(t *testing.T) {
	b := New("kafka-audit", WithFailureThreshold(2), WithSuccessThreshold(2))
	assert.Equal(t, "kafka-audit", b.Name())
	assert.Equal(t, StateClosed, b.State())

	open, change := b.RecordFailure()
	assert.False(t, open)
	assert.False(t, change.Opened)

	open, change = b.RecordFailure()
	assert.True(t, open)
	assert.True(t, change.Opened)
	assert.Equal(t, "open", b.State().String())

	open, change = b.RecordFailure()
	assert.True(t, open)
	assert.False(t, change.Opened)

	closed, change := b.RecordSuccess()
	assert.False(t, closed)
	assert.False(t, change.Closed)

	closed, change = b.RecordSuccess()
	assert.True(t, closed)
	assert.True(t, change.Closed)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerSuccessResetsFailureRun(t *testing.T) {
	b := New("x", WithFailureThreshold(2))
	b.RecordFailure()
	b.RecordSuccess()
	open, _ := b.RecordFailure()
	assert.False(t, open)
}

func TestBreakerFailureResetsRecovery(t *testing.T) {
	b := New("x", WithFailureThreshold(1), WithSuccessThreshold(2))
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	closed, _ := b.RecordSuccess()
	assert.False(t, closed)
	assert.Equal(t, StateOpen, b.State())
}

func TestInvalidOptionsKeepDefaults(t *testing.T) {
	b := New("x", WithFailureThreshold(0), nil)
	for range 4 {
		open, _ := b.RecordFailure()
		assert.False(t, open)
	}
	open, _ := b.RecordFailure()
	assert.True(t, open)
}
