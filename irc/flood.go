// Copyright (c) 2020 the ircclient authors
// released under the MIT license

package irc

import (
	"time"
)

// The pacer throttles outbound lines so the server never sees a burst
// large enough to trigger an excess-flood disconnect. Lines beyond the
// burst allowance are delayed, never dropped, and keep their order.

// FloodConfig tunes the outbound pacer.
type FloodConfig struct {
	Enabled           bool          `yaml:"-"`
	Burst             uint          // lines that may be sent back-to-back
	LinesPerInterval  uint          `yaml:"lines-per-interval"`
	Interval          time.Duration // window over which LinesPerInterval applies
	Cooldown          time.Duration // quiet time that restores the burst allowance
}

type pacerState uint

const (
	// initially, the client is "bursting" and can send n lines without
	// being throttled
	pacerBursting pacerState = iota
	// after that, it is "throttled" and we sleep between lines until
	// they are spaced sufficiently far apart
	pacerThrottled
)

// Pacer delays outbound lines that are submitted too rapidly. It is
// intentionally not threadsafe: it must only be touched from the write
// loop that drains the outbound queue.
type Pacer struct {
	config    FloodConfig
	nowFunc   func() time.Time
	sleepFunc func(time.Duration)

	state      pacerState
	burstCount uint // lines sent in the current burst
	lastTouch  time.Time
}

// Initialize sets up the pacer.
func (pacer *Pacer) Initialize(config FloodConfig) {
	pacer.config = config
	pacer.nowFunc = time.Now
	pacer.sleepFunc = time.Sleep
	pacer.state = pacerBursting
}

// Touch registers a new outbound line, sleeping if necessary to delay it.
func (pacer *Pacer) Touch() {
	if !pacer.config.Enabled {
		return
	}

	now := pacer.nowFunc()
	// if lastTouch.IsZero(), treat it as "very far in the past", which is fine
	elapsed := now.Sub(pacer.lastTouch)
	pacer.lastTouch = now

	if pacer.state == pacerBursting {
		// determine if the previous burst is over
		if elapsed > pacer.config.Cooldown {
			pacer.burstCount = 0
		}

		pacer.burstCount++
		if pacer.burstCount > pacer.config.Burst {
			// reset burst window for next time
			pacer.burstCount = 0
			// transition to throttling
			pacer.state = pacerThrottled
			// continue to throttling logic
		} else {
			return
		}
	}

	if pacer.state == pacerThrottled {
		if elapsed > pacer.config.Cooldown {
			// let them burst again
			pacer.state = pacerBursting
			pacer.burstCount = 1
			return
		}
		// space lines out by at least interval/linesPerInterval
		sleepDuration := time.Duration((int64(pacer.config.Interval) / int64(pacer.config.LinesPerInterval)) - int64(elapsed))
		if sleepDuration > 0 {
			pacer.sleepFunc(sleepDuration)
			// the touch time should take into account the time we slept
			pacer.lastTouch = pacer.nowFunc()
		}
	}
}
