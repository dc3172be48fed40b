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

	"github.com/r5-labs/relaynode/corechain/mock"
	"github.com/r5-labs/relaynode/transport"
)

// Scenario from §4.6/§8: a Normal-state connection only admits gossip once
// the global synchronized verdict is set, the peer is caught up, and it has
// reported more than genesis.
func TestNotifyNewBlockIgnoredBeforeSynchronized(t *testing.T) {
	h, _, ep := newTestHandler(t)
	c := NewConnection(peerID(10), false, "1.2.3.4", 30303)
	c.State = Normal
	c.RemoteBlockchainHeight = 5

	require.NoError(t, h.HandleNotifyNewBlock(c, transport.NotifyNewBlock{}))
	require.Empty(t, ep.relayedBlocks)
}

// Scenario 5: orphan announcement. A Normal peer announces a block whose
// parent we do not have; the connection falls back to Synchronizing and a
// RequestChain is sent, without notifying any other peer.
func TestNotifyNewBlockOrphanTriggersResync(t *testing.T) {
	h, _, ep := newTestHandler(t)
	h.synchronized.Store(true)

	c := NewConnection(peerID(11), false, "1.2.3.4", 30303)
	c.State = Normal
	c.RemoteBlockchainHeight = 10

	other := NewConnection(peerID(12), false, "5.6.7.8", 30303)
	ep.registry[c.Peer] = c
	ep.registry[other.Peer] = other

	orphanBlob := mock.EncodeBlockBlob(peerIDAsHash(0xff), 9, nil)
	err := h.HandleNotifyNewBlock(c, transport.NotifyNewBlock{Block: orphanBlob, Hop: 3})
	require.NoError(t, err)

	require.Equal(t, Synchronizing, c.State)
	require.Len(t, ep.requestChains, 1)
	require.Empty(t, ep.relayedBlocks, "an orphan announcement must never be relayed onward")
}

// A block that extends our chain is relayed with an incremented hop count
// to every other connection, and core_current_height advances.
func TestNotifyNewBlockAddedToMainChainRelays(t *testing.T) {
	h, store, ep := newTestHandler(t)
	h.synchronized.Store(true)

	c := NewConnection(peerID(13), false, "1.2.3.4", 30303)
	c.State = Normal
	c.RemoteBlockchainHeight = 10

	store.AppendBlock(nil)
	top, topID := store.BlockchainTop()
	newBlob := mock.EncodeBlockBlob(topID, top+1, nil)

	err := h.HandleNotifyNewBlock(c, transport.NotifyNewBlock{Block: newBlob, Hop: 1})
	require.NoError(t, err)
	require.Equal(t, Normal, c.State)
	require.Len(t, ep.relayedBlocks, 1)
	require.Equal(t, uint32(2), ep.relayedBlocks[0].Hop)
}

// HandleNotifyNewTransactions relays only the subset the verifier marks
// should_be_relayed, and never touches the peer's object sets.
func TestNotifyNewTransactionsRelaysFilteredSet(t *testing.T) {
	h, _, ep := newTestHandler(t)
	h.synchronized.Store(true)

	c := NewConnection(peerID(14), false, "1.2.3.4", 30303)
	c.State = Normal
	c.RemoteBlockchainHeight = 10

	err := h.HandleNotifyNewTransactions(c, transport.NotifyNewTransactions{
		Txs: [][]byte{[]byte("tx-a"), []byte("tx-b")},
	})
	require.NoError(t, err)
	require.Len(t, ep.relayedTxs, 1)
	require.Len(t, ep.relayedTxs[0].Txs, 2)
}

// An empty transaction blob fails verification in the mock store and drops
// the connection with an IP failure recorded.
func TestNotifyNewTransactionsDropsOnVerificationFailure(t *testing.T) {
	h, _, _ := newTestHandler(t)
	h.synchronized.Store(true)

	c := NewConnection(peerID(15), false, "1.2.3.4", 30303)
	c.State = Normal
	c.RemoteBlockchainHeight = 10

	err := h.HandleNotifyNewTransactions(c, transport.NotifyNewTransactions{Txs: [][]byte{nil}})
	require.Error(t, err)
}
