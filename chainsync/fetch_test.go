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
	"github.com/r5-labs/relaynode/corechain/mock"
	"github.com/r5-labs/relaynode/transport"
)

// Scenario 1: ahead peer, happy path. The remote store has 5 more blocks
// than local; the handler drives the full RequestChain/ResponseChainEntry
// /RequestGetObjects/ResponseGetObjects loop to termination.
func TestFetchHappyPath(t *testing.T) {
	h, localStore, ep := newTestHandler(t)
	h.beenSynchronized.Store(true)

	remote := mock.New()
	for i := 0; i < 5; i++ {
		remote.AppendBlock(nil)
	}
	remoteLength := remote.CurrentBlockchainHeight()

	c := NewConnection(peerID(1), false, "1.2.3.4", 30303)
	ep.registry[c.Peer] = c

	require.NoError(t, h.ProcessPayloadSyncData(c, transport.SyncData{CurrentHeight: remoteLength}, true))
	require.Equal(t, Synchronizing, c.State)

	c.CallbackRequestCount = 1
	require.NoError(t, h.OnCallback(c))
	req := ep.lastRequestChain()

	supplement, start, total, rooted := remote.FindBlockchainSupplement(req.BlockIDs)
	require.True(t, rooted)
	require.NoError(t, h.HandleResponseChainEntry(c, transport.ResponseChainEntry{
		BlockIDs: supplement, StartHeight: start, TotalHeight: total,
	}))
	require.Len(t, ep.requestGetObjects, 1)

	for len(ep.requestGetObjects) > 0 {
		getReq := ep.requestGetObjects[len(ep.requestGetObjects)-1]
		ep.requestGetObjects = ep.requestGetObjects[:len(ep.requestGetObjects)-1]

		resp := remote.HandleGetObjects(toCoreRequest(getReq))
		wire := transport.ResponseGetObjects{CurrentBlockchainHeight: resp.CurrentBlockchainHeight}
		for _, b := range resp.Blocks {
			wire.Blocks = append(wire.Blocks, transport.ResponseGetObjectsBlockEntry{BlockBlob: b.BlockBlob, TxBlobs: b.TxBlobs})
		}
		require.NoError(t, h.HandleResponseGetObjects(c, wire))
	}

	require.Equal(t, Normal, c.State)
	require.Empty(t, c.NeededObjects)
	require.Equal(t, 0, c.RequestedObjects.Cardinality())
	require.Equal(t, remoteLength, localStore.CurrentBlockchainHeight())
}

// Boundary behavior: ResponseGetObjects where the second block is already
// in the store transitions to Idle, clears both object sets, and does not
// drop the connection.
func TestFetchOvertakenBySecondBlock(t *testing.T) {
	h, localStore, _ := newTestHandler(t)
	h.beenSynchronized.Store(true)

	c := NewConnection(peerID(2), false, "1.2.3.4", 30303)

	id1, blob1 := localStore.AppendBlock(nil)
	id2, blob2 := localStore.AppendBlock(nil)
	c.RequestedObjects.Add(id1)
	c.RequestedObjects.Add(id2)

	resp := transport.ResponseGetObjects{
		CurrentBlockchainHeight: 3,
		Blocks: []transport.ResponseGetObjectsBlockEntry{
			{BlockBlob: blob1},
			{BlockBlob: blob2},
		},
	}
	require.NoError(t, h.HandleResponseGetObjects(c, resp))
	require.Equal(t, Idle, c.State)
	require.Empty(t, c.NeededObjects)
	require.Equal(t, 0, c.RequestedObjects.Cardinality())
}

func TestHandleRequestGetObjectsOverCapIsDropped(t *testing.T) {
	h, _, _ := newTestHandler(t)
	c := NewConnection(peerID(3), true, "1.2.3.4", 30303)

	req := transport.RequestGetObjects{}
	for i := 0; i < MaxBlocksRequestCount+1; i++ {
		req.Blocks = append(req.Blocks, peerIDAsHash(byte(i)))
	}
	err := h.HandleRequestGetObjects(c, req)
	require.Error(t, err)
}

func TestHandleRequestGetObjectsBeforeBeenSynchronized(t *testing.T) {
	h, _, _ := newTestHandler(t)
	c := NewConnection(peerID(4), true, "1.2.3.4", 30303)
	err := h.HandleRequestGetObjects(c, transport.RequestGetObjects{})
	require.Error(t, err)
}

func TestResponseChainEntryEmptyIsDropped(t *testing.T) {
	h, _, _ := newTestHandler(t)
	c := NewConnection(peerID(5), false, "1.2.3.4", 30303)
	err := h.HandleResponseChainEntry(c, transport.ResponseChainEntry{})
	require.Error(t, err)
}

func TestResponseChainEntryExceedingTotalIsDropped(t *testing.T) {
	h, localStore, _ := newTestHandler(t)
	c := NewConnection(peerID(6), false, "1.2.3.4", 30303)
	_, topID := localStore.BlockchainTop()

	err := h.HandleResponseChainEntry(c, transport.ResponseChainEntry{
		BlockIDs: []common.Hash{topID}, StartHeight: 6, TotalHeight: 5,
	})
	require.Error(t, err)
}
