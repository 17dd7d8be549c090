// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package ircx

import "fmt"

// ErrInvalidTarget is returned when a method is supplied a nickname,
// channel, or other target which does not pass basic protocol validation
// (see IsValidNick, IsValidChannel, IsValidUser).
type ErrInvalidTarget struct {
	Target string // Target is the invalid nick/channel/user supplied.
}

func (e *ErrInvalidTarget) Error() string { return "invalid target: " + e.Target }

// ErrInvalidArgument is returned synchronously, before anything is sent,
// when a caller passes a malformed nickname, channel name, target, or an
// out-of-range count.
type ErrInvalidArgument struct {
	Reason string
}

func (e *ErrInvalidArgument) Error() string { return "invalid argument: " + e.Reason }

// ErrInvalidMessage is returned synchronously when an outbound event fails
// character or parameter-count validation, e.g. it has more than 15
// parameters or encodes to a line longer than the wire limit.
type ErrInvalidMessage struct {
	Reason string
}

func (e *ErrInvalidMessage) Error() string { return "invalid message: " + e.Reason }

// ErrProtocolViolation is emitted when inbound data violates protocol
// expectations, e.g. a MODE target that is neither a channel nor the local
// nick, or an ISUPPORT PREFIX value whose mode/prefix lengths differ. The
// connection continues unless the violation is unrecoverable.
type ErrProtocolViolation struct {
	Reason string
}

func (e *ErrProtocolViolation) Error() string { return "protocol violation: " + e.Reason }

// ErrNumericProtocolError wraps a server-sent numeric in the 400-599 range.
// It is surfaced via the ProtocolError event and is never fatal on its own.
type ErrNumericProtocolError struct {
	Code    string
	Params  []string
	Message string
}

func (e *ErrNumericProtocolError) Error() string {
	return fmt.Sprintf("numeric protocol error %s: %s", e.Code, e.Message)
}

// ErrTransport wraps a socket or TLS failure. NotConnected/ConnectionReset
// style failures trigger a clean disconnect; others are surfaced and then
// the connection is disconnected.
type ErrTransport struct {
	Reason string
	Err    error
}

func (e *ErrTransport) Error() string { return "transport error: " + e.Reason }
func (e *ErrTransport) Unwrap() error { return e.Err }

// ErrDisposed is returned for any operation attempted on an already-disposed
// session.
type ErrDisposed struct{}

func (e *ErrDisposed) Error() string { return "operation on disposed session" }

// ErrTimeout is returned when QUIT's grace period elapses before the server
// closes the connection, forcing a disconnect.
type ErrTimeout struct {
	Reason string
}

func (e *ErrTimeout) Error() string { return "timeout: " + e.Reason }
