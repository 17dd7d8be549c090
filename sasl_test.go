// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package ircx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSASLPlainMethod(t *testing.T) {
	sasl := &SASLPlain{User: "test", Pass: "example"}
	assert.Equal(t, "PLAIN", sasl.Method())
}

func TestPossibleCapListAdvertisesSASL(t *testing.T) {
	c := New(Config{
		Server: "irc.example.com",
		Nick:   "test",
		User:   "user",
		SASL:   &SASLPlain{User: "test", Pass: "example"},
	})

	ls := possibleCapList(c)
	_, ok := ls["sasl"]
	require.True(t, ok, "possibleCapList() should advertise sasl when Config.SASL is set")

	c2 := New(Config{Server: "irc.example.com", Nick: "test", User: "user"})
	ls2 := possibleCapList(c2)
	_, ok = ls2["sasl"]
	assert.False(t, ok, "possibleCapList() should not advertise sasl when Config.SASL is unset")
}

func TestWaitAuthenticateContinue(t *testing.T) {
	c, conn, server := genMockConn()
	defer c.Close()

	go func() {
		err := c.MockConnect(server)
		if err != nil {
			panic(err)
		}
	}()

	go mockReadBuffer(conn)

	result := make(chan error, 1)
	go func() {
		result <- waitAuthenticateContinue(c)
	}()

	conn.Write([]byte("AUTHENTICATE +\r\n"))

	err := <-result
	require.NoError(t, err)
}
