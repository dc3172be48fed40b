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

// withGate runs fn only if the store is not mid exclusive-batch-operation,
// and reports whether fn actually ran. This is the Core Gate primitive
// (§4.1): every read/mutation of the blockchain store goes through it.
// Callers are responsible for the per-site fallback policy on a "not
// called" outcome — there is no single correct fallback, it depends on
// which handler is calling (§4.1 lists the four policies in use).
func (h *Handler) withGate(fn func()) (called bool) {
	return h.store.CallIfNoBatchExclusiveOperation(fn)
}
