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
	"github.com/r5-labs/relaynode/common"
	"github.com/r5-labs/relaynode/transport"
)

// HandleRequestChain answers a peer's RequestChain (§4.4). While we have
// never been synchronized, we reply with just the genesis stub so a
// still-syncing node does not burden peers with real chain work they
// cannot yet trust us to have.
func (h *Handler) HandleRequestChain(c *Connection, req transport.RequestChain) error {
	if !h.BeenSynchronized() {
		return h.ep.PostResponseChainEntry(c.Peer, transport.ResponseChainEntry{
			BlockIDs:    []common.BlockHash{h.store.GenesisID()},
			StartHeight: 0,
			TotalHeight: 1,
		})
	}

	var resp transport.ResponseChainEntry
	called := h.withGate(func() {
		blockIDs, start, total, rooted := h.store.FindBlockchainSupplement(req.BlockIDs)
		if !rooted {
			resp = transport.ResponseChainEntry{
				BlockIDs:    []common.BlockHash{h.store.GenesisID()},
				StartHeight: 0,
				TotalHeight: total,
			}
			return
		}
		resp = transport.ResponseChainEntry{BlockIDs: blockIDs, StartHeight: start, TotalHeight: total}
	})
	if !called {
		return h.ep.PostResponseChainEntry(c.Peer, transport.ResponseChainEntry{
			BlockIDs:    []common.BlockHash{h.store.GenesisID()},
			StartHeight: 0,
			TotalHeight: 1,
		})
	}
	return h.ep.PostResponseChainEntry(c.Peer, resp)
}

// HandleResponseChainEntry processes a peer's reply to our RequestChain
// (§4.4): it locates the ids we are missing and appends them to the
// connection's NeededObjects queue, then kicks the fetch pipeline.
func (h *Handler) HandleResponseChainEntry(c *Connection, resp transport.ResponseChainEntry) error {
	if len(resp.BlockIDs) == 0 {
		return errDropIPFail("empty ResponseChainEntry")
	}

	var gateErr error
	called := h.withGate(func() {
		if !h.store.HaveBlock(resp.BlockIDs[0]) {
			gateErr = errDrop("ResponseChainEntry not rooted in our chain")
			return
		}
		c.RemoteBlockchainHeight = resp.TotalHeight
		c.LastResponseHeight = resp.StartHeight + uint64(len(resp.BlockIDs)) - 1
		if c.LastResponseHeight > resp.TotalHeight {
			gateErr = errDrop("last_response_height %d exceeds total_height %d", c.LastResponseHeight, resp.TotalHeight)
			return
		}
		for _, id := range resp.BlockIDs {
			if !h.store.HaveBlock(id) {
				c.NeededObjects = append(c.NeededObjects, id)
			}
		}
	})
	if !called {
		c.State = Idle
		return nil
	}
	if gateErr != nil {
		return gateErr
	}
	if err := c.checkInvariants(); err != nil {
		return err
	}
	return h.requestMissingObjects(c, false)
}
