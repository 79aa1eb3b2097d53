package phase

import "time"

// Clock supplies the current time and periodic tickers. The returned stop
// func releases the ticker.
type Clock interface {
	Now() time.Time
	Ticker(d time.Duration) (<-chan time.Time, func())
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Ticker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

func RealClock() Clock {
	return realClock{}
}
