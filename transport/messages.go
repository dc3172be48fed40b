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

// Package transport declares the wire message shapes and the capability
// set consumed from the P2P endpoint (§6 of the spec). Framing, peer
// discovery and connection lifecycle are the transport's own concern and
// are not specified here; the handler only publishes messages through it
// and receives callbacks from it.
package transport

import "github.com/r5-labs/relaynode/common"

// SyncData is the handshake payload describing a node's current chain tip.
type SyncData struct {
	ClientVersion         string
	CurrentHeight         uint64
	TopID                 common.BlockHash
	LastCheckpointHeight  uint64
}

// NotifyNewBlock announces a freshly mined/received block.
type NotifyNewBlock struct {
	Block   []byte
	Txs     [][]byte
	Hop     uint32
}

// NotifyNewTransactions announces a batch of transactions.
type NotifyNewTransactions struct {
	Txs [][]byte
}

// RequestChain carries a short chain history used to locate a common
// ancestor.
type RequestChain struct {
	BlockIDs []common.BlockHash
}

// ResponseChainEntry is the reply to RequestChain: a contiguous run of ids
// from the replier's chain, with the absolute height of the first one.
type ResponseChainEntry struct {
	BlockIDs     []common.BlockHash
	StartHeight  uint64
	TotalHeight  uint64
}

// RequestGetObjects asks for a batch of block and transaction bodies.
type RequestGetObjects struct {
	Blocks []common.BlockHash
	Txs    []common.TxHash
}

// ResponseGetObjectsBlockEntry is one block's wire payload in a
// ResponseGetObjects: the raw block blob plus every embedded transaction's
// raw blob, in the order the block references them.
type ResponseGetObjectsBlockEntry struct {
	BlockBlob []byte
	TxBlobs   [][]byte
}

// ResponseGetObjects is the reply to RequestGetObjects.
type ResponseGetObjects struct {
	Blocks                  []ResponseGetObjectsBlockEntry
	Txs                     [][]byte
	MissedIDs               []common.Hash
	CurrentBlockchainHeight uint64
}
