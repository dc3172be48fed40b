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

import "github.com/r5-labs/relaynode/transport"

// HandleNotifyNewBlock admits and relays a freshly mined/received block
// (§4.6). Acceptance requires the global quorum verdict, a caught-up peer,
// and a peer that has told us it has more than the genesis block.
func (h *Handler) HandleNotifyNewBlock(c *Connection, n transport.NotifyNewBlock) error {
	if !h.Synchronized() || c.State != Normal || c.RemoteBlockchainHeight <= 1 {
		return nil
	}
	if !c.limiter.Allow() {
		return errDrop("peer exceeded its block-gossip rate budget")
	}

	for _, tx := range n.Txs {
		if res := h.store.HandleIncomingTx(tx, true); res.VerificationFailed {
			return errDropIPFail("embedded transaction in NotifyNewBlock failed verification")
		}
	}

	h.store.PauseMine()
	res := h.store.HandleIncomingBlock(n.Block)
	h.store.ResumeMine()

	if res.VerificationFailed {
		return errDropIPFail("NotifyNewBlock failed verification")
	}

	if res.AddedToMainChain {
		h.setCoreCurrentHeight(res.Height)
		relay := n
		relay.Hop = n.Hop + 1
		h.ep.RelayNewBlock(relay, c.Peer)
		return nil
	}

	if res.MarkedAsOrphaned {
		c.State = Synchronizing
		var req transport.RequestChain
		called := h.withGate(func() {
			req = transport.RequestChain{BlockIDs: h.store.ShortChainHistory()}
		})
		if !called {
			c.State = Idle
			return nil
		}
		return h.ep.PostRequestChain(c.Peer, req)
	}
	return nil
}

// HandleNotifyNewTransactions admits and relays a batch of gossiped
// transactions (§4.6). Transactions are not kept in the mempool pending
// relay decision — the verifier's should_be_relayed verdict decides that.
func (h *Handler) HandleNotifyNewTransactions(c *Connection, n transport.NotifyNewTransactions) error {
	if !h.Synchronized() || c.State != Normal || c.RemoteBlockchainHeight <= 1 {
		return nil
	}
	if !c.limiter.Allow() {
		return errDrop("peer exceeded its transaction-gossip rate budget")
	}

	var relay [][]byte
	for _, tx := range n.Txs {
		res := h.store.HandleIncomingTx(tx, false)
		if res.VerificationFailed {
			return errDropIPFail("gossiped transaction failed verification")
		}
		if res.ShouldBeRelayed {
			relay = append(relay, tx)
		}
	}
	if len(relay) > 0 {
		h.ep.RelayNewTransactions(transport.NotifyNewTransactions{Txs: relay}, c.Peer)
	}
	return nil
}
