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

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/r5-labs/relaynode/common"
)

func registerConn(h *Handler, ep *fakeEndpoint, id byte, state State, height uint64) *Connection {
	c := NewConnection(peerID(id), false, "1.2.3.4", 30303)
	c.State = state
	c.RemoteBlockchainHeight = height
	ep.registry[c.Peer] = c
	h.RegisterConnection(c)
	return c
}

// Scenario 6: quorum flip. 4 of 6 peers Normal with remote height > 1
// flips the global synchronized flag false->true exactly once, setting the
// sticky been_synchronized flag; later, when only 1 Idle peer remains, the
// flag flips back to false with no second banner firing.
func TestOnIdleQuorumFlip(t *testing.T) {
	h, _, ep := newTestHandler(t)

	for i := byte(0); i < 4; i++ {
		registerConn(h, ep, i, Normal, 100)
	}
	registerConn(h, ep, 4, Synchronizing, 50)
	registerConn(h, ep, 5, Idle, 0)

	require.False(t, h.Synchronized())
	h.OnIdle()
	require.True(t, h.Synchronized())
	require.True(t, h.BeenSynchronized())

	// A second tick at the same quorum must not fire the banner twice; the
	// CompareAndSwap guard makes this a no-op transition-wise, observable
	// only via the flag staying true.
	h.OnIdle()
	require.True(t, h.Synchronized())

	// Drop everyone but a single Idle peer.
	h.connsMu.Lock()
	h.conns = make(map[common.PeerID]*Connection)
	h.connsMu.Unlock()
	ep.registry = make(map[common.PeerID]*Connection)
	registerConn(h, ep, 6, Idle, 0)

	h.OnIdle()
	require.False(t, h.Synchronized())
	require.True(t, h.BeenSynchronized(), "been_synchronized is sticky once set")
}

func TestOnIdleNoConnectionsStaysUnsynchronized(t *testing.T) {
	h, _, _ := newTestHandler(t)
	h.OnIdle()
	require.False(t, h.Synchronized())
}
