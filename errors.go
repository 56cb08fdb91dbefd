// Copyright 2018 Johan Lindh. All rights reserved.
// Use of this source code is governed by the MIT license, see the LICENSE file.

package tieba

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrClosed is returned when the Client has been closed.
	ErrClosed = errors.New("tieba: client closed")
	// ErrNoSessionKey is returned when an encrypted frame is encoded or
	// decoded before the handshake has established a session key.
	ErrNoSessionKey = errors.New("tieba: no session key")
	// ErrBadCiphertext is returned when an encrypted payload is not a
	// whole number of cipher blocks.
	ErrBadCiphertext = errors.New("tieba: ciphertext is not a multiple of the block size")
	// ErrNotConnected is returned when the websocket is not usable.
	ErrNotConnected = errors.New("tieba: websocket not connected")
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "deadline exceeded" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// IsTimeout returns true if the cause of err reports a timeout.
func IsTimeout(err error) bool {
	if t, ok := errors.Cause(err).(interface{ Timeout() bool }); ok {
		return t.Timeout()
	}
	return false
}

// ProtocolError is returned when an inbound frame cannot be decoded.
type ProtocolError struct {
	Header FrameHeader // the header of the offending frame, may be nil
	Err    error       // the underlying decode error
}

func (e ProtocolError) Error() string {
	if e.Header != nil {
		return fmt.Sprintf("protocol error: %v: %v", e.Header, e.Err)
	}
	return fmt.Sprintf("protocol error: %v", e.Err)
}

// Cause returns the underlying decode error.
func (e ProtocolError) Cause() error { return e.Err }

// ConnectError is returned when the websocket could not be established.
type ConnectError struct {
	// Err is the original error that caused the connect attempt to fail.
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect error: %v", e.Err)
}

// Cause returns the original dial error.
func (e *ConnectError) Cause() error { return e.Err }

// HandshakeError is returned when the server rejects the session key.
type HandshakeError struct {
	Code    int64
	Message string
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake rejected: %d %s", e.Code, e.Message)
}

// APIError is a nonzero error code reported by an endpoint.
type APIError struct {
	Code    int64
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}
