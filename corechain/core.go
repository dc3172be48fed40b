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

// Package corechain declares the capability set the sync handler consumes
// from the blockchain store, transaction pool, verifier and mining loop.
// This is deliberately an interface, not a concrete type: the handler never
// bakes a particular store implementation into its compile-time identity
// (DESIGN NOTES, "Template parameterization over the core type"). Concrete
// implementations are injected at construction; see corechain/mock for the
// one this repository ships for tests and standalone/demo operation.
package corechain

import "github.com/r5-labs/relaynode/common"

// GetObjectsRequest asks the store for a batch of blocks and transactions
// by id.
type GetObjectsRequest struct {
	Blocks []common.BlockHash
	Txs    []common.TxHash
}

// BlockEntry is one block's wire payload as returned by the store: the raw
// block blob plus the raw blobs of every transaction it embeds.
type BlockEntry struct {
	BlockBlob []byte
	TxBlobs   [][]byte
}

// GetObjectsResponse is the store's answer to a GetObjectsRequest.
type GetObjectsResponse struct {
	Blocks                 []BlockEntry
	Txs                    [][]byte
	MissedIDs              []common.Hash
	CurrentBlockchainHeight uint64
}

// IncomingTxResult reports the outcome of validating one transaction blob.
type IncomingTxResult struct {
	VerificationFailed bool
	ShouldBeRelayed    bool
}

// IncomingBlockResult reports the outcome of validating and attempting to
// insert one block blob.
type IncomingBlockResult struct {
	VerificationFailed bool
	AddedToMainChain    bool
	MarkedAsOrphaned    bool
	Height              uint64
}

// Store is the capability set consumed from Core (§6 of the spec): the
// blockchain store, the verifier, the transaction pool and the mining loop,
// exposed as a single seam the handler depends on.
type Store interface {
	// HaveBlock reports whether the store already has the given block.
	HaveBlock(id common.BlockHash) bool

	// BlockchainTop returns the local chain's top index and id.
	BlockchainTop() (heightIndex uint64, topID common.BlockHash)

	// CurrentBlockchainHeight returns the local chain length (top index + 1).
	CurrentBlockchainHeight() uint64

	// GenesisID returns the id of the genesis block.
	GenesisID() common.BlockHash

	// TopCheckpointHeight returns the height of the highest checkpoint the
	// local node knows about.
	TopCheckpointHeight() uint64

	// ShortChainHistory returns an exponentially spaced sequence of local
	// block ids, densest near the tip, ending with the genesis id.
	ShortChainHistory() []common.BlockHash

	// FindBlockchainSupplement locates the newest id in ids that the local
	// chain also has and returns the contiguous run of local ids starting
	// with that shared id, together with the absolute height of the first
	// returned id and the local chain's total length.
	FindBlockchainSupplement(ids []common.BlockHash) (blockIDs []common.BlockHash, startHeight, totalHeight uint64, rooted bool)

	// ParseBlockShape reads just enough of a block blob to pre-validate it
	// before committing to the ingest phase (§4.5 step 3): its own id and
	// the ids of the transactions it references, without running full
	// verification.
	ParseBlockShape(blob []byte) (id common.BlockHash, txHashes []common.TxHash, err error)

	// HandleGetObjects gathers the requested blocks/transactions.
	HandleGetObjects(req GetObjectsRequest) GetObjectsResponse

	// HandleIncomingTx validates and optionally pools one transaction blob.
	HandleIncomingTx(blob []byte, keepInMempool bool) IncomingTxResult

	// HandleIncomingBlock validates and attempts to insert one block blob.
	HandleIncomingBlock(blob []byte) IncomingBlockResult

	// PauseMine/ResumeMine bracket the ingest critical section.
	PauseMine()
	ResumeMine()

	// LockTxPool/UnlockTxPool bracket the ingest critical section.
	LockTxPool()
	UnlockTxPool()

	// StartBatchExclusiveOperation/FinishBatchExclusiveOperation bracket
	// the ingest phase's store batch.
	StartBatchExclusiveOperation()
	FinishBatchExclusiveOperation(commit bool)

	// CallIfNoBatchExclusiveOperation is the Core Gate primitive: it runs
	// fn only if no exclusive batch operation is in progress, and reports
	// whether fn was actually invoked.
	CallIfNoBatchExclusiveOperation(fn func()) (called bool)

	// OnIdle and OnSynchronized forward periodic/one-shot notifications
	// into the store for its own maintenance.
	OnIdle()
	OnSynchronized()
}
