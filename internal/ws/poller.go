package ws

import (
	"sync"
	"time"
)

// Poller adapts a broadcaster's sampling interval: it snaps back to the base
// interval on any change and doubles, up to the max, once the pane has been
// quiet for threshold consecutive passes.
type Poller struct {
	mu        sync.Mutex
	base      time.Duration
	max       time.Duration
	threshold int
	current   time.Duration
	streak    int
}

// NewPoller creates a Poller. max is raised to base and threshold to 1 when
// given smaller values.
func NewPoller(base, max time.Duration, threshold int) *Poller {
	if max < base {
		max = base
	}
	if threshold < 1 {
		threshold = 1
	}
	return &Poller{
		base:      base,
		max:       max,
		threshold: threshold,
		current:   base,
	}
}

// OnChange resets the streak and the interval.
func (p *Poller) OnChange() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.streak = 0
	p.current = p.base
}

// OnNoChange extends the streak and backs off once it reaches the threshold.
func (p *Poller) OnNoChange() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.streak++
	if p.streak >= p.threshold {
		p.current = min(p.current*2, p.max)
	}
}

// Interval is the delay before the next pass.
func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Streak is the number of consecutive passes without change.
func (p *Poller) Streak() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.streak
}

func (p *Poller) Base() time.Duration { return p.base }
func (p *Poller) Max() time.Duration  { return p.max }
