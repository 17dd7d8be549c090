// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package ircx

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

// saslTimeout bounds how long the client will wait on each leg of the
// AUTHENTICATE exchange before giving up.
const saslTimeout = 20 * time.Second

// saslChunkSize is the maximum number of bytes sent per AUTHENTICATE line.
// Payloads are split into chunks of exactly this size, with a final chunk
// shorter than saslChunkSize (or a lone "+") marking the end of the blob.
const saslChunkSize = 400

// SASLMech represents a SASL authentication mechanism. Set Config.SASL to a
// SASLMech to have the client negotiate the "sasl" capability and complete
// the AUTHENTICATE exchange during connection registration.
type SASLMech interface {
	// Method returns the mechanism name as advertised in the initial
	// "AUTHENTICATE <mechanism>" request (e.g. "PLAIN").
	Method() string

	// Authenticate performs the mechanism-specific half of the exchange.
	// It is called once the server has replied "AUTHENTICATE +",
	// confirming that it's ready for the encoded credentials.
	Authenticate(c *Client) error
}

// SASLPlain implements the SASL "PLAIN" mechanism (RFC 4616), the most
// commonly supported SASL mechanism on IRC networks.
type SASLPlain struct {
	// Identity is the authorization identity. Leave empty unless
	// authenticating on behalf of another account.
	Identity string
	User     string
	Pass     string
}

// Method returns "PLAIN".
func (sasl *SASLPlain) Method() string {
	return "PLAIN"
}

// Authenticate sends the base64-encoded "identity\x00user\x00pass" blob and
// waits for the server to confirm success or failure.
func (sasl *SASLPlain) Authenticate(c *Client) error {
	payload := sasl.Identity + "\x00" + sasl.User + "\x00" + sasl.Pass

	if err := sendSASL(c, base64.StdEncoding.EncodeToString([]byte(payload))); err != nil {
		return err
	}

	return waitSASLResult(c)
}

// authenticateSASL runs the full CAP->AUTHENTICATE handshake for the
// mechanism configured on c.Config.SASL. It is invoked from handleCAP once
// the server has ACKed the "sasl" capability, and always ends by letting
// the server know negotiation is done via CAP END, win or lose.
func (c *Client) authenticateSASL() {
	defer c.write(&Event{Command: CAP, Params: []string{CAP_END}})

	mech := c.Config.SASL
	if mech == nil {
		return
	}

	c.debug.Printf("authenticating with SASL %s", mech.Method())

	c.write(&Event{Command: AUTHENTICATE, Params: []string{mech.Method()}})

	if err := waitAuthenticateContinue(c); err != nil {
		c.debug.Printf("SASL authentication aborted: %s", err)
		return
	}

	if err := mech.Authenticate(c); err != nil {
		c.debug.Printf("SASL authentication failed: %s", err)
	}
}

// sendSASL writes the base64 blob in AUTHENTICATE-sized chunks, terminated
// by a short chunk (or a lone "+" if the blob is an exact multiple of
// saslChunkSize).
func sendSASL(c *Client, encoded string) error {
	for len(encoded) >= saslChunkSize {
		c.write(&Event{Command: AUTHENTICATE, Params: []string{encoded[:saslChunkSize]}})
		encoded = encoded[saslChunkSize:]
	}

	if encoded == "" {
		encoded = "+"
	}
	c.write(&Event{Command: AUTHENTICATE, Params: []string{encoded}})

	return nil
}

// waitAuthenticateContinue waits for the server's "AUTHENTICATE +",
// indicating that it's ready to receive the encoded credentials.
func waitAuthenticateContinue(c *Client) error {
	result := make(chan error, 1)

	c.Handlers.AddTmp(AUTHENTICATE, saslTimeout, func(client *Client, e Event) bool {
		if len(e.Params) > 0 && e.Params[0] == "+" {
			result <- nil
		} else {
			result <- fmt.Errorf("unexpected AUTHENTICATE response: %s", e.String())
		}
		return true
	})

	select {
	case err := <-result:
		return err
	case <-time.After(saslTimeout):
		return errors.New("timed out waiting for server to continue SASL authentication")
	}
}

// waitSASLResult waits for the server's final verdict on the AUTHENTICATE
// exchange: success, failure, or abort.
func waitSASLResult(c *Client) error {
	result := make(chan error, 1)

	ids := make([]string, 0, 4)
	add := func(cmd string, toErr func(e Event) error) {
		cuid, _ := c.Handlers.AddTmp(cmd, saslTimeout, func(client *Client, e Event) bool {
			result <- toErr(e)
			return true
		})
		ids = append(ids, cuid)
	}

	add(RPL_SASLSUCCESS, func(e Event) error { return nil })
	add(ERR_SASLFAIL, func(e Event) error { return fmt.Errorf("SASL authentication failed: %s", e.Trailing) })
	add(ERR_SASLTOOLONG, func(e Event) error { return errors.New("SASL authentication failed: credentials too long") })
	add(ERR_SASLABORTED, func(e Event) error { return errors.New("SASL authentication aborted") })

	defer func() {
		for _, cuid := range ids {
			c.Handlers.Remove(cuid)
		}
	}()

	select {
	case err := <-result:
		return err
	case <-time.After(saslTimeout):
		return errors.New("timed out waiting for SASL authentication result")
	}
}
