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

package transport

import "github.com/r5-labs/relaynode/common"

// Endpoint is the capability set consumed from the P2P transport (§6 of
// the spec). The handler never manages sockets, peer discovery or framing;
// it only iterates, drops, requests callbacks and posts messages through
// this seam.
type Endpoint interface {
	// ForEachConnection is a synchronous, snapshot iterator: it holds the
	// transport's connection-table lock for its duration. visit should do
	// only bounded read/compute and must never call DropConnection or any
	// other method that could reacquire that lock; return false to stop
	// iterating early.
	ForEachConnection(visit func(peer common.PeerID) bool)

	// DropConnection tears down the named connection.
	DropConnection(peer common.PeerID)

	// AddIPFail records a protocol-level failure against the peer's
	// remote IP, so the transport can avoid an immediate reconnect.
	AddIPFail(ip string)

	// RequestCallback asks the transport to reinvoke the handler's
	// on_callback for peer once any in-flight reply to it has been
	// flushed.
	RequestCallback(peer common.PeerID)

	// IsStopSignalSent reports the transport-wide shutdown signal.
	IsStopSignalSent() bool

	// DoIdleSyncWithPeers forces an idle-resync handshake with every peer
	// named, used to wake peers that stalled in Idle.
	DoIdleSyncWithPeers(peers []common.PeerID)

	// PostSyncData, PostRequestChain, ... send one typed message to a
	// single peer.
	PostSyncData(peer common.PeerID, payload SyncData) error
	PostRequestChain(peer common.PeerID, payload RequestChain) error
	PostResponseChainEntry(peer common.PeerID, payload ResponseChainEntry) error
	PostRequestGetObjects(peer common.PeerID, payload RequestGetObjects) error
	PostResponseGetObjects(peer common.PeerID, payload ResponseGetObjects) error

	// RelayNewBlock and RelayNewTransactions gossip to every connection
	// except the excluded source peer.
	RelayNewBlock(payload NotifyNewBlock, exclude common.PeerID)
	RelayNewTransactions(payload NotifyNewTransactions, exclude common.PeerID)
}

// Stub is a no-op Endpoint implementing the same capability set as a real
// transport, so the handler never needs a nil check at a call site
// (DESIGN NOTES, "Stub endpoint"). It is the default when no transport is
// attached, e.g. in tests that only exercise pure state transitions.
type Stub struct{}

func (Stub) ForEachConnection(func(common.PeerID) bool)        {}
func (Stub) DropConnection(common.PeerID)                       {}
func (Stub) AddIPFail(string)                                   {}
func (Stub) RequestCallback(common.PeerID)                      {}
func (Stub) IsStopSignalSent() bool                             { return false }
func (Stub) DoIdleSyncWithPeers([]common.PeerID)                {}
func (Stub) PostSyncData(common.PeerID, SyncData) error         { return nil }
func (Stub) PostRequestChain(common.PeerID, RequestChain) error { return nil }
func (Stub) PostResponseChainEntry(common.PeerID, ResponseChainEntry) error {
	return nil
}
func (Stub) PostRequestGetObjects(common.PeerID, RequestGetObjects) error {
	return nil
}
func (Stub) PostResponseGetObjects(common.PeerID, ResponseGetObjects) error {
	return nil
}
func (Stub) RelayNewBlock(NotifyNewBlock, common.PeerID)          {}
func (Stub) RelayNewTransactions(NotifyNewTransactions, common.PeerID) {}

var _ Endpoint = Stub{}
