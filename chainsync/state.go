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

// Package chainsync is the per-connection state machine and its three
// cross-cutting disciplines: the Core Gate (mutual exclusion with the
// blockchain store), the global synchronized flag (a quorum vote across
// peers), and the bounded-batch fetch pipeline that actually moves blocks
// and transactions. See SPEC_FULL.md for the module map.
package chainsync

import (
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/time/rate"

	"github.com/r5-labs/relaynode/common"
)

// State is a connection's position in the handshake/sync state machine.
type State int

const (
	// BeforeHandshake is the initial state of every connection.
	BeforeHandshake State = iota
	// Synchronizing means we are actively requesting chain history or
	// objects from this peer.
	Synchronizing
	// Idle means we yielded (Core Gate closed) and are waiting for the
	// next inbound event or idle tick to resume.
	Idle
	// Normal means this connection is caught up: both object sets are
	// empty and last_response_height == remote_blockchain_height-1.
	Normal
)

func (s State) String() string {
	switch s {
	case BeforeHandshake:
		return "BeforeHandshake"
	case Synchronizing:
		return "Synchronizing"
	case Idle:
		return "Idle"
	case Normal:
		return "Normal"
	default:
		return "Unknown"
	}
}

// Connection is the per-peer record described in §3 of the spec. It is
// conceptually owned by the transport and only mutated by the handler
// while processing that peer's inbound event; the transport guarantees at
// most one in-flight message per connection, so no locking is needed for
// the fields below beyond what protects the map holding these records
// (see Handler.conns).
type Connection struct {
	Peer    common.PeerID
	IsIncome bool

	RemoteIP   string
	RemotePort uint16
	StartedAt  time.Time
	LastRecv   time.Time
	LastSend   time.Time
	RecvCount  uint64
	SendCount  uint64

	State State

	RemoteVersion           string
	RemoteBlockchainHeight  uint64
	LastResponseHeight      uint64

	// NeededObjects is an ordered queue: the peer announced these and we
	// have not yet requested them. Order matters (oldest first), so it is
	// a slice, not a set.
	NeededObjects []common.BlockHash

	// RequestedObjects is currently in flight to this peer. Order never
	// matters here, only membership, so a real set keeps the invariant
	// check (RequestedObjects ∩ NeededObjects = ∅) a cheap O(1) lookup
	// per element instead of a linear scan.
	RequestedObjects mapset.Set[common.BlockHash]

	CallbackRequestCount int

	limiter *rate.Limiter
}

// NewConnection creates a Connection in its initial BeforeHandshake state.
func NewConnection(peer common.PeerID, isIncome bool, remoteIP string, remotePort uint16) *Connection {
	return &Connection{
		Peer:             peer,
		IsIncome:         isIncome,
		RemoteIP:         remoteIP,
		RemotePort:       remotePort,
		StartedAt:        time.Now(),
		State:            BeforeHandshake,
		RequestedObjects: mapset.NewThreadUnsafeSet[common.BlockHash](),
		limiter:          rate.NewLimiter(rate.Limit(gossipRelayPerSecond), gossipRelayBurst),
	}
}

// checkInvariants returns an invariant-violation error if the connection's
// object sets overlap, if a Normal connection still has pending work, or
// if CallbackRequestCount is negative. HandleResponseChainEntry and
// requestMissingObjects call it after filling NeededObjects and
// RequestedObjects, per §8 "Invariants to verify for all runs".
func (c *Connection) checkInvariants() error {
	for _, id := range c.NeededObjects {
		if c.RequestedObjects.Contains(id) {
			return errInvariantViolation("requested_objects ∩ needed_objects != ∅")
		}
	}
	if c.State == Normal {
		if len(c.NeededObjects) != 0 || c.RequestedObjects.Cardinality() != 0 {
			return errInvariantViolation("Normal state with non-empty object sets")
		}
	}
	if c.CallbackRequestCount < 0 {
		return errInvariantViolation("callback_request_count < 0")
	}
	return nil
}
