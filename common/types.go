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

// Package common holds the small set of value types shared by every layer
// of the sync handler: opaque, fixed-size identifiers with no behavior of
// their own beyond equality, hashing and hex formatting.
package common

import (
	"encoding/hex"
	"fmt"
)

// HashLength is the expected length of a Hash, in bytes.
const HashLength = 32

// Hash is an opaque, fixed-size identifier. Both BlockHash and TxHash are
// aliases of Hash: the protocol never distinguishes their representation,
// only the context a value is used in.
type Hash [HashLength]byte

// BlockHash identifies a block.
type BlockHash = Hash

// TxHash identifies a transaction.
type TxHash = Hash

// BytesToHash right-aligns b into a Hash, truncating from the left if b is
// longer than HashLength.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// Bytes returns a copy of the hash as a byte slice.
func (h Hash) Bytes() []byte { return h[:] }

// Hex returns the 0x-prefixed hex encoding of the hash.
func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

// String implements fmt.Stringer.
func (h Hash) String() string { return h.Hex() }

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool { return h == Hash{} }

// PeerID is an opaque, fixed-size peer identifier assigned by the
// transport. The handler never interprets its bytes.
type PeerID [32]byte

// String returns a short, log-friendly representation (first 8 bytes).
func (p PeerID) String() string {
	return fmt.Sprintf("%x", p[:8])
}

// IsZero reports whether p is the zero peer id.
func (p PeerID) IsZero() bool { return p == PeerID{} }
