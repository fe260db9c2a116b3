package clock

import "time"

// Clock is the single source of "now" for the services, so tests can
// drive dwell-time checks without sleeping.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

type System struct{}

func (System) Now() time.Time                  { return time.Now().UTC() }
func (System) Since(t time.Time) time.Duration { return time.Since(t) }

// Fixed always reports the same instant. Advance it manually in tests.
type Fixed struct {
	Current time.Time
}

func NewFixed(t time.Time) *Fixed { return &Fixed{Current: t} }

func (f *Fixed) Now() time.Time { return f.Current }

func (f *Fixed) Since(t time.Time) time.Duration { return f.Current.Sub(t) }

func (f *Fixed) Advance(d time.Duration) { f.Current = f.Current.Add(d) }
