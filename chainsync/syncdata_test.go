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
	"testing"

	"github.com/google/gofuzz"
	"github.com/stretchr/testify/require"

	"github.com/r5-labs/relaynode/transport"
)

// TestSyncDataRoundTrip checks the round-trip law from §8: encoding a
// decoded blob must reproduce it exactly, for well-formed input.
func TestSyncDataRoundTrip(t *testing.T) {
	f := fuzz.New().NilChance(0).NumElements(0, 64)
	for i := 0; i < 200; i++ {
		var d transport.SyncData
		f.Fuzz(&d)

		blob, err := EncodeSyncDataBytes(d)
		require.NoError(t, err)

		decoded, err := DecodeSyncDataBytes(blob)
		require.NoError(t, err)
		require.Equal(t, d, decoded)

		reencoded, err := EncodeSyncDataBytes(decoded)
		require.NoError(t, err)
		require.Equal(t, blob, reencoded)
	}
}

func TestSyncDataRejectsOversizeVersion(t *testing.T) {
	d := transport.SyncData{ClientVersion: string(make([]byte, 1<<16))}
	_, err := EncodeSyncDataBytes(d)
	require.Error(t, err)
}
