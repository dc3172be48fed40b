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

// Package mock is a bundled in-memory corechain.Store, used by unit tests
// and by the standalone/demo mode of cmd/relaynode. It models the store's
// exclusive-batch-operation mutual exclusion with a weighted semaphore of
// size 1: acquiring it non-blockingly is exactly the Core Gate's "not
// called" fallback when a real store would be mid-reorg or mid-prune.
package mock

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"golang.org/x/crypto/sha3"
	"golang.org/x/sync/semaphore"

	"github.com/r5-labs/relaynode/common"
	"github.com/r5-labs/relaynode/corechain"
)

// HashBlob derives a deterministic Hash from an arbitrary blob, used both by
// this mock store and by tests that need to construct BlockHash/TxHash
// values without a real codec.
func HashBlob(blob []byte) common.Hash {
	sum := sha3.Sum256(blob)
	return common.BytesToHash(sum[:])
}

// EncodeBlockBlob builds the block wire format this mock store
// understands: parent id (32 bytes), height (8 bytes BE), tx count (4
// bytes BE), then each referenced transaction's hash (32 bytes). This
// keeps ParseBlockShape a pure, allocation-light read with no dependency
// on the rest of the store.
func EncodeBlockBlob(parent common.BlockHash, height uint64, txs [][]byte) []byte {
	buf := make([]byte, 0, common.HashLength+8+4+len(txs)*common.HashLength)
	buf = append(buf, parent[:]...)
	var h8 [8]byte
	binary.BigEndian.PutUint64(h8[:], height)
	buf = append(buf, h8[:]...)
	var n4 [4]byte
	binary.BigEndian.PutUint32(n4[:], uint32(len(txs)))
	buf = append(buf, n4[:]...)
	for _, tx := range txs {
		id := HashBlob(tx)
		buf = append(buf, id[:]...)
	}
	return buf
}

func decodeBlockBlob(blob []byte) (parent common.BlockHash, height uint64, txHashes []common.TxHash, err error) {
	minLen := common.HashLength + 8 + 4
	if len(blob) < minLen {
		return parent, 0, nil, fmt.Errorf("mock: block blob too short (%d bytes)", len(blob))
	}
	parent = common.BytesToHash(blob[:common.HashLength])
	height = binary.BigEndian.Uint64(blob[common.HashLength : common.HashLength+8])
	count := binary.BigEndian.Uint32(blob[common.HashLength+8 : minLen])
	want := minLen + int(count)*common.HashLength
	if len(blob) != want {
		return parent, height, nil, fmt.Errorf("mock: block blob length %d does not match declared tx count %d", len(blob), count)
	}
	for i := 0; i < int(count); i++ {
		off := minLen + i*common.HashLength
		txHashes = append(txHashes, common.BytesToHash(blob[off:off+common.HashLength]))
	}
	return parent, height, txHashes, nil
}

type block struct {
	id     common.BlockHash
	parent common.BlockHash
	blob   []byte
	txs    [][]byte
	height uint64
}

// Store is a linear, in-memory blockchain: no forks, no real consensus,
// just enough bookkeeping to drive the handler's protocol logic in tests.
type Store struct {
	mu sync.RWMutex

	genesis common.BlockHash
	chain   []block // index == height
	byID    map[common.BlockHash]int

	checkpointHeight uint64

	gate *semaphore.Weighted

	mempool map[common.TxHash][]byte

	txPoolLocked bool
}

// New creates a Store seeded with a single genesis block.
func New() *Store {
	genesisBlob := []byte("genesis")
	genesisID := HashBlob(genesisBlob)
	s := &Store{
		genesis: genesisID,
		byID:    make(map[common.BlockHash]int),
		gate:    semaphore.NewWeighted(1),
		mempool: make(map[common.TxHash][]byte),
	}
	s.chain = append(s.chain, block{id: genesisID, blob: genesisBlob, height: 0})
	s.byID[genesisID] = 0
	return s
}

// AppendBlock is a test/demo helper that extends the chain directly,
// bypassing HandleIncomingBlock's validation pipeline. It returns the new
// block's id and its blob (suitable for feeding back through
// HandleIncomingBlock or HandleGetObjects in another Store).
func (s *Store) AppendBlock(txs [][]byte) (common.BlockHash, []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(txs)
}

func (s *Store) appendLocked(txs [][]byte) (common.BlockHash, []byte) {
	parent := s.chain[len(s.chain)-1].id
	height := uint64(len(s.chain))
	blob := EncodeBlockBlob(parent, height, txs)
	id := HashBlob(blob)
	b := block{id: id, parent: parent, blob: blob, txs: txs, height: height}
	s.chain = append(s.chain, b)
	s.byID[id] = int(height)
	for _, tx := range txs {
		s.mempool[HashBlob(tx)] = tx
	}
	return id, blob
}

// SetCheckpoint sets the height reported by TopCheckpointHeight, for tests
// of the "software out of date" refusal path.
func (s *Store) SetCheckpoint(h uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpointHeight = h
}

// Lock acquires the exclusive-batch slot for the duration of fn, so tests
// can exercise the Core Gate's "not called" fallback deterministically.
func (s *Store) Lock(fn func()) {
	s.gate.Acquire(context.Background(), 1)
	defer s.gate.Release(1)
	fn()
}

func (s *Store) HaveBlock(id common.BlockHash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[id]
	return ok
}

func (s *Store) BlockchainTop() (uint64, common.BlockHash) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	top := s.chain[len(s.chain)-1]
	return top.height, top.id
}

func (s *Store) CurrentBlockchainHeight() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.chain))
}

func (s *Store) GenesisID() common.BlockHash { return s.genesis }

func (s *Store) TopCheckpointHeight() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkpointHeight
}

// ShortChainHistory returns ids at heights top, top-1, top-3, top-7, top-15,
// ... (each gap twice the previous one), densest near the tip, ending at
// genesis (height 0).
func (s *Store) ShortChainHistory() []common.BlockHash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	top := uint64(len(s.chain) - 1)
	var out []common.BlockHash
	step := uint64(1)
	h := top
	for {
		out = append(out, s.chain[h].id)
		if h == 0 {
			break
		}
		if h < step {
			h = 0
			continue
		}
		h -= step
		step *= 2
	}
	return out
}

func (s *Store) FindBlockchainSupplement(ids []common.BlockHash) ([]common.BlockHash, uint64, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := uint64(len(s.chain))
	for _, id := range ids {
		idx, ok := s.byID[id]
		if !ok {
			continue
		}
		start := uint64(idx)
		var out []common.BlockHash
		for i := idx; i < len(s.chain); i++ {
			out = append(out, s.chain[i].id)
		}
		return out, start, total, true
	}
	return nil, 0, total, false
}

func (s *Store) ParseBlockShape(blob []byte) (common.BlockHash, []common.TxHash, error) {
	_, _, txHashes, err := decodeBlockBlob(blob)
	if err != nil {
		return common.Hash{}, nil, err
	}
	return HashBlob(blob), txHashes, nil
}

func (s *Store) HandleGetObjects(req corechain.GetObjectsRequest) corechain.GetObjectsResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	resp := corechain.GetObjectsResponse{CurrentBlockchainHeight: uint64(len(s.chain))}
	for _, id := range req.Blocks {
		idx, ok := s.byID[id]
		if !ok {
			resp.MissedIDs = append(resp.MissedIDs, id)
			continue
		}
		b := s.chain[idx]
		resp.Blocks = append(resp.Blocks, corechain.BlockEntry{BlockBlob: b.blob, TxBlobs: b.txs})
	}
	for _, id := range req.Txs {
		if blob, ok := s.mempool[id]; ok {
			resp.Txs = append(resp.Txs, blob)
		} else {
			resp.MissedIDs = append(resp.MissedIDs, id)
		}
	}
	return resp
}

func (s *Store) HandleIncomingTx(blob []byte, keepInMempool bool) corechain.IncomingTxResult {
	if len(blob) == 0 {
		return corechain.IncomingTxResult{VerificationFailed: true}
	}
	if keepInMempool {
		s.mu.Lock()
		s.mempool[HashBlob(blob)] = blob
		s.mu.Unlock()
	}
	return corechain.IncomingTxResult{ShouldBeRelayed: true}
}

func (s *Store) HandleIncomingBlock(blob []byte) corechain.IncomingBlockResult {
	parent, height, _, err := decodeBlockBlob(blob)
	if err != nil {
		return corechain.IncomingBlockResult{VerificationFailed: true}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	top := s.chain[len(s.chain)-1]
	if parent != top.id || height != top.height+1 {
		return corechain.IncomingBlockResult{MarkedAsOrphaned: true}
	}
	id := HashBlob(blob)
	s.chain = append(s.chain, block{id: id, parent: parent, blob: blob, height: height})
	s.byID[id] = int(height)
	return corechain.IncomingBlockResult{AddedToMainChain: true, Height: height}
}

func (s *Store) PauseMine()  {}
func (s *Store) ResumeMine() {}

func (s *Store) LockTxPool() {
	s.mu.Lock()
	s.txPoolLocked = true
	s.mu.Unlock()
}

func (s *Store) UnlockTxPool() {
	s.mu.Lock()
	s.txPoolLocked = false
	s.mu.Unlock()
}

func (s *Store) StartBatchExclusiveOperation() {
	s.gate.Acquire(context.Background(), 1)
}

func (s *Store) FinishBatchExclusiveOperation(commit bool) {
	s.gate.Release(1)
}

func (s *Store) CallIfNoBatchExclusiveOperation(fn func()) bool {
	if !s.gate.TryAcquire(1) {
		return false
	}
	defer s.gate.Release(1)
	fn()
	return true
}

func (s *Store) OnIdle()         {}
func (s *Store) OnSynchronized() {}

var _ corechain.Store = (*Store)(nil)
