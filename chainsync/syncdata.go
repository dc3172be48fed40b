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
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/r5-labs/relaynode/common"
	"github.com/r5-labs/relaynode/transport"
)

// EncodeSyncData writes the wire representation of a handshake payload:
// a length-prefixed version string, then three fixed-width fields. This is
// the Sync-Data Codec (§2 item 1, §4.2): the only payload exchanged before
// a connection has a State beyond BeforeHandshake.
func EncodeSyncData(w io.Writer, d transport.SyncData) error {
	if len(d.ClientVersion) > 0xffff {
		return fmt.Errorf("chainsync: client version too long (%d bytes)", len(d.ClientVersion))
	}
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(d.ClientVersion)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := io.WriteString(w, d.ClientVersion); err != nil {
		return err
	}
	var fixed [8 + common.HashLength + 8]byte
	binary.BigEndian.PutUint64(fixed[0:8], d.CurrentHeight)
	copy(fixed[8:8+common.HashLength], d.TopID[:])
	binary.BigEndian.PutUint64(fixed[8+common.HashLength:], d.LastCheckpointHeight)
	_, err := w.Write(fixed[:])
	return err
}

// DecodeSyncData reverses EncodeSyncData.
func DecodeSyncData(r io.Reader) (transport.SyncData, error) {
	var d transport.SyncData
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return d, err
	}
	n := binary.BigEndian.Uint16(lenBuf[:])
	versionBuf := make([]byte, n)
	if _, err := io.ReadFull(r, versionBuf); err != nil {
		return d, err
	}
	d.ClientVersion = string(versionBuf)
	var fixed [8 + common.HashLength + 8]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return d, err
	}
	d.CurrentHeight = binary.BigEndian.Uint64(fixed[0:8])
	d.TopID = common.BytesToHash(fixed[8 : 8+common.HashLength])
	d.LastCheckpointHeight = binary.BigEndian.Uint64(fixed[8+common.HashLength:])
	return d, nil
}

// EncodeSyncDataBytes and DecodeSyncDataBytes are the []byte-oriented
// convenience wrappers exercised by the round-trip law in §8:
// encode(decode(blob)) == blob for any well-formed blob.
func EncodeSyncDataBytes(d transport.SyncData) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeSyncData(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeSyncDataBytes(b []byte) (transport.SyncData, error) {
	return DecodeSyncData(bytes.NewReader(b))
}

// payloadSyncData builds the local tip descriptor described in §4.2:
// current height as length (top index + 1), top id, latest checkpoint
// height and client version. If the Core Gate is closed, it returns the
// genesis stub (height 1, top_id = genesis) so no peer attempts to sync
// from us while we are mid exclusive-batch-operation.
func (h *Handler) payloadSyncData(clientVersion string) transport.SyncData {
	var out transport.SyncData
	called := h.withGate(func() {
		topIndex, topID := h.store.BlockchainTop()
		out = transport.SyncData{
			ClientVersion:        clientVersion,
			CurrentHeight:        topIndex + 1,
			TopID:                topID,
			LastCheckpointHeight: h.store.TopCheckpointHeight(),
		}
	})
	if !called {
		out = transport.SyncData{
			ClientVersion: clientVersion,
			CurrentHeight: 1,
			TopID:         h.store.GenesisID(),
		}
	}
	return out
}

// GetPayloadSyncData is the public entry point for producing our own
// handshake payload, called when dialing out or replying to a peer's
// initial SyncData.
func (h *Handler) GetPayloadSyncData(clientVersion string) transport.SyncData {
	return h.payloadSyncData(clientVersion)
}

// ProcessPayloadSyncData handles an inbound SyncData, whether it is the
// peer's initial handshake or a later re-exchange while Idle (§4.2, §4.8).
func (h *Handler) ProcessPayloadSyncData(c *Connection, hshd transport.SyncData, isInitial bool) error {
	c.RemoteVersion = hshd.ClientVersion
	c.RemoteBlockchainHeight = hshd.CurrentHeight

	if c.State == BeforeHandshake && !isInitial {
		return nil // duplicate
	}
	if c.State == Synchronizing {
		return nil // already syncing
	}
	if !h.BeenSynchronized() && !c.IsIncome && hshd.CurrentHeight == 1 && isInitial {
		return errDrop("outbound peer claims height 1 while we have never been synchronized")
	}

	var gateErr error
	called := h.withGate(func() {
		if h.store.HaveBlock(hshd.TopID) {
			c.State = Normal
			return
		}
		if hshd.LastCheckpointHeight > h.store.TopCheckpointHeight() && h.store.CurrentBlockchainHeight() <= hshd.LastCheckpointHeight {
			gateErr = h.outdatedRefusal(c, hshd)
			return
		}
		c.State = Synchronizing
		c.RemoteBlockchainHeight = hshd.CurrentHeight
		c.CallbackRequestCount++
		h.ep.RequestCallback(c.Peer)
		h.bumpMaxHeightSeen(hshd.CurrentHeight)
		h.initCoreHeightsOnce(h.store.CurrentBlockchainHeight())
	})
	if !called {
		c.State = Idle
		return nil
	}
	return gateErr
}

// outdatedRefusal implements §4.2's "software outdated" branch: loud once
// per process, quieter on every subsequent occurrence so a flood of stale
// peers doesn't spam the operator (SPEC_FULL.md, supplemented feature 2).
func (h *Handler) outdatedRefusal(c *Connection, hshd transport.SyncData) error {
	h.outdatedBannerOnce.Do(func() {
		h.log.Error("local node is behind a checkpoint this peer already has — software update required",
			"peer", c.Peer, "local_height", h.store.CurrentBlockchainHeight(), "peer_checkpoint_height", hshd.LastCheckpointHeight)
	})
	h.log.Debug("refusing outdated handshake", "peer", c.Peer)
	return errOutdated("local height %d below peer checkpoint height %d", h.store.CurrentBlockchainHeight(), hshd.LastCheckpointHeight)
}
