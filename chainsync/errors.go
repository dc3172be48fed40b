// Copyright 2025 R5 Labs
// This file is part of the R5 Core library.
//
// This software is provided "as is", without warranty of any kind,
// express or implied, including but not limited to the warranties
// of merchantability, fitness for a particular purpose and
// noninfringement. In no event shall the authors or copyright
// holders be liable for any claim, damages, or other liability,
// whether in an action of contract, tort or otherwise, arising
// from, out of or in connection with the software or the use or
// other dealings in the software.

package chainsync

import "fmt"

// disposition classifies how the orchestration layer should react to an
// error surfaced by one of the protocol handlers. Errors are always local
// to the offending connection (§7): the handler never aborts the process
// on peer behavior.
type disposition int

const (
	// dropOnly tears down the connection, nothing else.
	dropOnly disposition = iota
	// dropAndIPFail tears down the connection and records an IP-level
	// failure so the transport avoids an immediate reconnect.
	dropAndIPFail
	// yieldIdle is not really an error: it is the Core Gate's "not
	// called" fallback, always a safe stall, never a drop.
	yieldIdle
)

// protocolError carries a disposition alongside a human-readable message.
type protocolError struct {
	disposition disposition
	msg         string
}

func (e *protocolError) Error() string { return e.msg }

func errDrop(format string, args ...interface{}) *protocolError {
	return &protocolError{disposition: dropOnly, msg: fmt.Sprintf(format, args...)}
}

func errDropIPFail(format string, args ...interface{}) *protocolError {
	return &protocolError{disposition: dropAndIPFail, msg: fmt.Sprintf(format, args...)}
}

// errOutdated is the "software out of date" refusal (§4.2, §7): loud,
// operator-visible, and always fatal to the handshake.
func errOutdated(format string, args ...interface{}) *protocolError {
	return &protocolError{disposition: dropOnly, msg: "software out of date: " + fmt.Sprintf(format, args...)}
}

// errInvariantViolation marks an internal assertion failure (§7): full
// context is logged by the caller, and the connection is dropped like any
// other protocol violation, but it is never propagated to other peers.
func errInvariantViolation(format string, args ...interface{}) *protocolError {
	return &protocolError{disposition: dropOnly, msg: "internal invariant violated: " + fmt.Sprintf(format, args...)}
}
