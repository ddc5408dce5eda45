package chrono

import "time"

// API is the clock used by the survey engine.
//
// note: fault injection point
type API interface {
	Now() time.Time
	// Sleep pauses the caller for d. It is used purely for request pacing
	// and is not cancellable.
	Sleep(d time.Duration)
}

type StandardImpl struct{}

func NewStandardImpl() StandardImpl {
	return StandardImpl{}
}

func (StandardImpl) Now() time.Time {
	return time.Now()
}

func (StandardImpl) Sleep(d time.Duration) {
	time.Sleep(d)
}
