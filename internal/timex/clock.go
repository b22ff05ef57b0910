package timex

import "time"

// Clock abstracts the wall clock so reconciliation and probe timestamps can
// be pinned in tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// Real returns the system clock (UTC).
func Real() Clock { return realClock{} }

// Fixed is a Clock frozen at T. Tests move it by assigning T.
type Fixed struct {
	T time.Time
}

func (f *Fixed) Now() time.Time { return f.T }

// Add moves the clock forward by d.
func (f *Fixed) Add(d time.Duration) { f.T = f.T.Add(d) }
