package capture

import "time"

// pacer throttles frame emission to a fixed target rate. Deliveries that
// arrive before the next scheduled instant are dropped by the caller.
type pacer struct {
	interval time.Duration
	next     time.Time
}

func newPacer(fps int, now time.Time) *pacer {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &pacer{
		interval: time.Second / time.Duration(fps),
		next:     now,
	}
}

// due reports whether a delivery at now may be emitted.
func (p *pacer) due(now time.Time) bool {
	return !now.Before(p.next)
}

// advance schedules the next emission. Nominally that is one interval past
// the previous schedule; when the wall clock has already overrun it, the
// schedule restarts from now so a burst of late deliveries does not flush
// out as a catch-up flood.
func (p *pacer) advance(now time.Time) {
	p.next = p.next.Add(p.interval)
	if p.next.Before(now) {
		p.next = now.Add(p.interval)
	}
}
