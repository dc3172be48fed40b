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
	"github.com/google/uuid"

	"github.com/r5-labs/relaynode/transport"
)

// OnCallback is invoked by the transport after a handshake reply has been
// flushed (§4.3). It kicks off synchronization by sending the first
// RequestChain. When it sends one, it stamps a fresh correlation id on the
// debug log line recording that request.
func (h *Handler) OnCallback(c *Connection) error {
	if c.CallbackRequestCount <= 0 {
		return errInvariantViolation("on_callback invoked with callback_request_count=%d", c.CallbackRequestCount)
	}
	c.CallbackRequestCount--
	if h.metr != nil {
		h.metr.CallbacksFired.Inc()
	}

	if c.State != Synchronizing {
		return nil
	}

	round := uuid.New().String()
	var req transport.RequestChain
	called := h.withGate(func() {
		req = transport.RequestChain{BlockIDs: h.store.ShortChainHistory()}
	})
	if !called {
		c.State = Idle
		return nil
	}
	h.log.Debug("on_callback: requesting chain", "peer", c.Peer, "round", round, "history_len", len(req.BlockIDs))
	return h.ep.PostRequestChain(c.Peer, req)
}
