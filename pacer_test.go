// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package ircx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacerBurstThenThrottle(t *testing.T) {
	p := NewPacer(4, 2*time.Second)

	for i := 0; i < 4; i++ {
		require.Zero(t, p.GetSendDelay(), "send %d of burst should not be delayed", i+1)
		p.HandleMessageSent()
	}

	delay := p.GetSendDelay()
	assert.Greater(t, delay, time.Duration(0), "fifth send should be delayed")
	assert.LessOrEqual(t, delay, 2*time.Second, "delay should never exceed counterPeriod")
}

func TestPacerDecaysOverTime(t *testing.T) {
	p := NewPacer(4, 2*time.Second)

	for i := 0; i < 4; i++ {
		p.HandleMessageSent()
	}

	p.lastDecrement = p.lastDecrement.Add(-2 * time.Second)

	require.Zero(t, p.GetSendDelay(), "counter should have decayed back under max burst after one full period")
}

func TestPacerNilIsNoOp(t *testing.T) {
	var p *Pacer
	assert.Zero(t, p.GetSendDelay())
	p.HandleMessageSent() // must not panic
}
