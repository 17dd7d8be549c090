// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package ircx

import (
	"sync"
	"time"
)

// minSendInterval is the floor on time between successive writes, enforced
// by Client.Send whether or not a Pacer is configured, unless
// Config.AllowFlood is set.
const minSendInterval = 50 * time.Millisecond

// DefaultMaxBurst and DefaultCounterPeriod are the parameters used by
// NewPacer's zero-value convenience constructor, NewDefaultPacer.
const (
	DefaultMaxBurst      = 4
	DefaultCounterPeriod = 2 * time.Second
)

// Pacer implements the token-bucket-like flood preventer: get_send_delay()
// and handle_message_sent() from the protocol's flood-control algorithm,
// state machine implemented directly rather than delegated to a generic
// rate limiter.
//
// counter tracks how many messages have been sent within the last
// counterPeriod, decreasing by one for each full counterPeriod that elapses.
// A caller should call
// GetSendDelay before writing, wait the returned duration, write, then call
// HandleMessageSent.
type Pacer struct {
	mu sync.Mutex

	maxBurst      float64
	counterPeriod time.Duration

	counter       float64
	lastDecrement time.Time
}

// NewPacer returns a Pacer with the given burst allowance and decay period.
func NewPacer(maxBurst int, counterPeriod time.Duration) *Pacer {
	return &Pacer{
		maxBurst:      float64(maxBurst),
		counterPeriod: counterPeriod,
		lastDecrement: time.Now(),
	}
}

// NewDefaultPacer returns a Pacer using DefaultMaxBurst/DefaultCounterPeriod.
func NewDefaultPacer() *Pacer {
	return NewPacer(DefaultMaxBurst, DefaultCounterPeriod)
}

// GetSendDelay returns how long the caller must wait before it may send the
// next message. A nil Pacer always returns 0 (no pacing).
func (p *Pacer) GetSendDelay() time.Duration {
	if p == nil {
		return 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(p.lastDecrement)

	p.counter -= float64(elapsed / p.counterPeriod)
	if p.counter < 0 {
		p.counter = 0
	}

	p.lastDecrement = now.Add(-(elapsed % p.counterPeriod))

	if p.counter < p.maxBurst {
		return 0
	}

	return p.counterPeriod - now.Sub(p.lastDecrement)
}

// HandleMessageSent records that a message was just sent, incrementing the
// burst counter. A nil Pacer is a no-op.
func (p *Pacer) HandleMessageSent() {
	if p == nil {
		return
	}

	p.mu.Lock()
	p.counter++
	p.mu.Unlock()
}
