package canbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// catchupLogger counts catch-up warnings emitted by the timer
type catchupLogger struct {
	testLogger
	warns []string
}

func (l *catchupLogger) Warn(format string, v ...interface{}) {
	l.warns = append(l.warns, format)
}

func newTestTimer(period time.Duration) (*Timer, *catchupLogger, *time.Time) {
	logger := &catchupLogger{}
	tm := NewTimer(period, logger)

	now := time.Now()
	tm.now = func() time.Time { return now }
	tm.deadline = now.Add(period)

	return tm, logger, &now
}

func TestTimer_NotDue(t *testing.T) {
	tm, logger, now := newTestTimer(time.Second)
	deadline := tm.deadline

	*now = now.Add(500 * time.Millisecond)
	require.False(t, tm.Check())
	require.Equal(t, deadline, tm.deadline, "deadline must not move before it is due")
	require.Empty(t, logger.warns)
}

func TestTimer_FiresOnTime(t *testing.T) {
	tm, logger, now := newTestTimer(time.Second)
	deadline := tm.deadline

	*now = deadline
	require.True(t, tm.Check())
	require.Equal(t, deadline.Add(time.Second), tm.deadline)
	require.Empty(t, logger.warns, "on-time firing is not a catch-up event")

	require.False(t, tm.Check(), "a due instant fires at most once")
}

func TestTimer_CatchUp(t *testing.T) {
	tm, logger, now := newTestTimer(time.Second)
	deadline := tm.deadline

	// 1.5 periods past the deadline: one whole missed period
	*now = deadline.Add(1500 * time.Millisecond)
	require.True(t, tm.Check())
	require.Len(t, logger.warns, 1)

	// the overdue interval plus one full period is consumed
	require.Equal(t, deadline.Add(2*time.Second), tm.deadline)

	// the same instant never re-fires
	require.False(t, tm.Check())
}

func TestTimer_CatchUpManyPeriods(t *testing.T) {
	tm, _, now := newTestTimer(100 * time.Millisecond)
	deadline := tm.deadline

	*now = deadline.Add(time.Second) // 10 missed periods
	require.True(t, tm.Check())
	require.False(t, tm.Check(), "catch-up must not cause runaway firing")

	require.Equal(t, deadline.Add(1100*time.Millisecond), tm.deadline)
}

func TestTimer_Reset(t *testing.T) {
	tm, _, now := newTestTimer(time.Second)

	// fall far behind, then realign
	*now = now.Add(10 * time.Second)
	tm.Reset()
	require.Equal(t, now.Add(time.Second), tm.deadline)
	require.False(t, tm.Check())

	*now = now.Add(time.Second)
	require.True(t, tm.Check())
}

func TestTimer_NilLogger(t *testing.T) {
	tm := NewTimer(time.Second, nil)
	now := time.Now()
	tm.now = func() time.Time { return now.Add(10 * time.Second) }

	// catch-up with no logger must not panic
	require.True(t, tm.Check())
}

func TestTimer_NonPositivePeriod(t *testing.T) {
	require.Panics(t, func() { NewTimer(0, nil) })
	require.Panics(t, func() { NewTimer(-time.Second, nil) })
}

func TestTimer_Period(t *testing.T) {
	tm := NewTimer(250*time.Millisecond, nil)
	require.Equal(t, 250*time.Millisecond, tm.Period())
}
