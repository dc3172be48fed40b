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
	"github.com/fatih/color"

	"github.com/r5-labs/relaynode/common"
)

var synchronizedBanner = color.New(color.FgGreen, color.Bold)

// OnIdle is the periodic tick that drives the Global Sync-State Supervisor
// (§4.7): it counts peers in Normal state reporting more than genesis,
// derives the quorum verdict with ½-up / ⅓-down hysteresis, and forwards
// its own tick to the core for periodic maintenance.
func (h *Handler) OnIdle() {
	var synced, total int
	h.ep.ForEachConnection(func(peer common.PeerID) bool {
		total++
		if c, ok := h.connection(peer); ok && c.State == Normal && c.RemoteBlockchainHeight > 1 {
			synced++
		}
		return true
	})

	switch {
	case total > 0 && synced > 0 && synced > total/2:
		if h.synchronized.CompareAndSwap(false, true) {
			h.beenSynchronized.Store(true)
			h.synchronizedOnce.Store(true)
			synchronizedBanner.Println("you are now synchronized with the network")
			h.log.Info("synchronized with network", "synced_peers", synced, "total_peers", total)
			h.store.OnSynchronized()
			if h.metr != nil {
				h.metr.SynchronizedTransitions.Inc()
				h.metr.Synchronized.Set(1)
			}
		}
	case total == 0 || synced*3 < total:
		if h.synchronized.CompareAndSwap(true, false) {
			h.synchronizedOnce.Store(false)
			h.log.Debug("lost network quorum", "synced_peers", synced, "total_peers", total)
			if h.metr != nil {
				h.metr.Synchronized.Set(0)
			}
		}
	}

	if h.metr != nil {
		h.metr.SyncedPeers.Set(float64(synced))
		h.metr.TotalPeers.Set(float64(total))
	}
	h.store.OnIdle()
}
