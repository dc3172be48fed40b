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
	"sync/atomic"

	"github.com/VictoriaMetrics/fastcache"

	"github.com/r5-labs/relaynode/common"
	"github.com/r5-labs/relaynode/corechain"
	"github.com/r5-labs/relaynode/log"
	"github.com/r5-labs/relaynode/metrics"
	"github.com/r5-labs/relaynode/transport"
)

// Protocol constants (§6, fixed).
const (
	// BlocksSynchronizingDefaultCount is the batch size drained from a
	// connection's NeededObjects queue per RequestGetObjects.
	BlocksSynchronizingDefaultCount = 100

	// MaxBlocksRequestCount and MaxTxsRequestCount are the server-side
	// caps on an inbound RequestGetObjects.
	MaxBlocksRequestCount = 500
	MaxTxsRequestCount    = 500

	// dupSuppressionCacheBytes sizes the process-wide recently-ingested
	// cache consulted by request_missing_objects(check_having=true) to
	// cheaply recognize a block a concurrent peer already delivered.
	dupSuppressionCacheBytes = 8 * 1024 * 1024

	gossipRelayPerSecond = 32
	gossipRelayBurst     = 64
)

// Config configures a Handler at construction.
type Config struct {
	// ExplicitSetOnline forces BeenSynchronized=true at startup, mirroring
	// the --explicit-set-online CLI flag: an operator override for
	// bootstrapping the first node of a new network.
	ExplicitSetOnline bool
}

// Handler is the single per-process instance of the protocol handler
// (DESIGN NOTES, "Global handler instance"): it owns GlobalHandlerState
// exclusively and drives every Connection through the state machine.
type Handler struct {
	store corechain.Store
	ep    transport.Endpoint
	log   *log.Logger
	metr  *metrics.Registry

	connsMu sync.RWMutex
	conns   map[common.PeerID]*Connection

	synchronized     atomic.Bool
	beenSynchronized atomic.Bool
	wantStop         atomic.Bool

	maxHeightSeen     atomic.Uint64
	coreCurrentHeight atomic.Uint64
	coreInitialHeight atomic.Uint64
	coreHeightSetOnce sync.Once

	dupCache *fastcache.Cache

	outdatedBannerOnce sync.Once
	synchronizedOnce   atomic.Bool // set on the low->high edge and cleared on the high->low edge in OnIdle; the banner itself is guarded by the CompareAndSwap on synchronized.
}

// New constructs a Handler. store and ep are the injected capability sets
// (§6); passing transport.Stub{} is valid when no transport is attached
// yet (tests, deinit).
func New(store corechain.Store, ep transport.Endpoint, metr *metrics.Registry, cfg Config) *Handler {
	if ep == nil {
		ep = transport.Stub{}
	}
	h := &Handler{
		store:    store,
		ep:       ep,
		log:      log.New("component", "chainsync"),
		metr:     metr,
		conns:    make(map[common.PeerID]*Connection),
		dupCache: fastcache.New(dupSuppressionCacheBytes),
	}
	if cfg.ExplicitSetOnline {
		h.beenSynchronized.Store(true)
		h.log.Info("forced online by operator (--explicit-set-online)")
	}
	return h
}

// RegisterConnection adds a freshly created connection, owned by the
// transport, to the handler's bookkeeping. Call this once per new peer
// before any message is dispatched for it.
func (h *Handler) RegisterConnection(c *Connection) {
	h.connsMu.Lock()
	defer h.connsMu.Unlock()
	h.conns[c.Peer] = c
}

// RemoveConnection drops the handler's record of a connection the
// transport has torn down.
func (h *Handler) RemoveConnection(peer common.PeerID) {
	h.connsMu.Lock()
	defer h.connsMu.Unlock()
	delete(h.conns, peer)
}

// connection looks up a tracked connection by peer id.
func (h *Handler) connection(peer common.PeerID) (*Connection, bool) {
	h.connsMu.RLock()
	defer h.connsMu.RUnlock()
	c, ok := h.conns[peer]
	return c, ok
}

// drop tears the connection down through the transport and removes it
// from local bookkeeping.
func (h *Handler) drop(c *Connection, reason string, ipFail bool) {
	h.log.Debug("dropping connection", "peer", c.Peer, "reason", reason, "ip_fail", ipFail)
	if ipFail {
		h.ep.AddIPFail(c.RemoteIP)
	}
	h.ep.DropConnection(c.Peer)
	h.RemoveConnection(c.Peer)
	if h.metr != nil {
		h.metr.ConnectionsDrops.Inc()
	}
}

// handleErr applies a protocolError's disposition uniformly: this is the
// single place error classification (§7) turns into a transport action.
func (h *Handler) handleErr(c *Connection, err error) {
	pe, ok := err.(*protocolError)
	if !ok {
		h.log.Error("unclassified error, dropping connection", "peer", c.Peer, "err", err)
		h.drop(c, err.Error(), false)
		return
	}
	switch pe.disposition {
	case dropOnly:
		h.drop(c, pe.msg, false)
	case dropAndIPFail:
		h.drop(c, pe.msg, true)
	case yieldIdle:
		// Not actually reachable via this path; yieldIdle is handled
		// inline at each Core Gate call site.
	}
}

// Synchronized reports the current quorum-derived verdict.
func (h *Handler) Synchronized() bool { return h.synchronized.Load() }

// BeenSynchronized reports the sticky, process-lifetime verdict.
func (h *Handler) BeenSynchronized() bool { return h.beenSynchronized.Load() }

// RequestStop asks long-running ingest loops to wind down at their next
// poll point, preserving whatever partial batch they have committed.
func (h *Handler) RequestStop() { h.wantStop.Store(true) }

func (h *Handler) stopRequested() bool {
	return h.wantStop.Load() || h.ep.IsStopSignalSent()
}

// bumpMaxHeightSeen keeps max_height_seen monotone non-decreasing (§8).
func (h *Handler) bumpMaxHeightSeen(height uint64) {
	for {
		cur := h.maxHeightSeen.Load()
		if height <= cur {
			return
		}
		if h.maxHeightSeen.CompareAndSwap(cur, height) {
			if h.metr != nil {
				h.metr.MaxHeightSeen.Set(float64(height))
			}
			return
		}
	}
}

// initCoreHeightsOnce sets core_initial_height exactly once, the first
// time the handler observes a remote peer ahead of us (§4.2).
func (h *Handler) initCoreHeightsOnce(height uint64) {
	h.coreHeightSetOnce.Do(func() {
		h.coreInitialHeight.Store(height)
		h.coreCurrentHeight.Store(height)
	})
}

func (h *Handler) setCoreCurrentHeight(height uint64) {
	h.coreCurrentHeight.Store(height)
	if h.metr != nil {
		h.metr.CoreHeight.Set(float64(height))
	}
}
