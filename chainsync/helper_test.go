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
	"sync"

	"github.com/r5-labs/relaynode/common"
	"github.com/r5-labs/relaynode/corechain"
	"github.com/r5-labs/relaynode/transport"
)

// fakeEndpoint is a recording transport.Endpoint used across the test
// suite in place of a real P2P transport, in the spirit of the teacher's
// mock peer/pipe test helpers.
type fakeEndpoint struct {
	mu sync.Mutex

	registry map[common.PeerID]*Connection

	dropped    []common.PeerID
	ipFails    []string
	callbacks  []common.PeerID
	stopSignal bool
	idleSyncs  [][]common.PeerID

	syncData            []transport.SyncData
	requestChains       []transport.RequestChain
	responseChainEntries []transport.ResponseChainEntry
	requestGetObjects   []transport.RequestGetObjects
	responseGetObjects  []transport.ResponseGetObjects
	relayedBlocks       []transport.NotifyNewBlock
	relayedTxs          []transport.NotifyNewTransactions
}

func newFakeEndpoint() *fakeEndpoint {
	return &fakeEndpoint{registry: make(map[common.PeerID]*Connection)}
}

func (f *fakeEndpoint) ForEachConnection(visit func(common.PeerID) bool) {
	f.mu.Lock()
	peers := make([]common.PeerID, 0, len(f.registry))
	for p := range f.registry {
		peers = append(peers, p)
	}
	f.mu.Unlock()
	for _, p := range peers {
		if !visit(p) {
			return
		}
	}
}

func (f *fakeEndpoint) DropConnection(peer common.PeerID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropped = append(f.dropped, peer)
	delete(f.registry, peer)
}

func (f *fakeEndpoint) AddIPFail(ip string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ipFails = append(f.ipFails, ip)
}

func (f *fakeEndpoint) RequestCallback(peer common.PeerID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callbacks = append(f.callbacks, peer)
}

func (f *fakeEndpoint) IsStopSignalSent() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopSignal
}

func (f *fakeEndpoint) DoIdleSyncWithPeers(peers []common.PeerID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.idleSyncs = append(f.idleSyncs, peers)
}

func (f *fakeEndpoint) PostSyncData(_ common.PeerID, payload transport.SyncData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncData = append(f.syncData, payload)
	return nil
}

func (f *fakeEndpoint) PostRequestChain(_ common.PeerID, payload transport.RequestChain) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requestChains = append(f.requestChains, payload)
	return nil
}

func (f *fakeEndpoint) PostResponseChainEntry(_ common.PeerID, payload transport.ResponseChainEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responseChainEntries = append(f.responseChainEntries, payload)
	return nil
}

func (f *fakeEndpoint) PostRequestGetObjects(_ common.PeerID, payload transport.RequestGetObjects) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requestGetObjects = append(f.requestGetObjects, payload)
	return nil
}

func (f *fakeEndpoint) PostResponseGetObjects(_ common.PeerID, payload transport.ResponseGetObjects) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responseGetObjects = append(f.responseGetObjects, payload)
	return nil
}

func (f *fakeEndpoint) RelayNewBlock(payload transport.NotifyNewBlock, _ common.PeerID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.relayedBlocks = append(f.relayedBlocks, payload)
}

func (f *fakeEndpoint) RelayNewTransactions(payload transport.NotifyNewTransactions, _ common.PeerID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.relayedTxs = append(f.relayedTxs, payload)
}

func (f *fakeEndpoint) lastRequestChain() transport.RequestChain {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requestChains[len(f.requestChains)-1]
}

func (f *fakeEndpoint) lastRequestGetObjects() transport.RequestGetObjects {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requestGetObjects[len(f.requestGetObjects)-1]
}

var _ transport.Endpoint = (*fakeEndpoint)(nil)

func peerID(b byte) common.PeerID {
	var p common.PeerID
	p[0] = b
	return p
}

// peerIDAsHash builds a throwaway common.Hash distinguished only by its
// first byte, for tests that just need N distinct block ids.
func peerIDAsHash(b byte) common.Hash {
	var h common.Hash
	h[0] = b
	return h
}

// toCoreRequest converts a wire RequestGetObjects into the corechain
// request shape a corechain.Store expects, bypassing the handler's own
// server-side handling so tests can drive a remote mock.Store directly.
func toCoreRequest(req transport.RequestGetObjects) corechain.GetObjectsRequest {
	return corechain.GetObjectsRequest{Blocks: req.Blocks, Txs: req.Txs}
}
