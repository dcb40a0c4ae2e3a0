package engine

import "github.com/fundhive-network/fundhive/internal/domain"

// ─── Execution Guard ────────────────────────────────────────────────────────
// Every state-mutating entry point acquires the lock on entry and
// releases it on every exit path. A call that arrives while the lock is
// held — currency transfers and receipt mints can call back into the
// engine before the outer call finishes — fails immediately with
// ErrReentrantCall. Acquire-or-fail, never a fatal abort, never a
// blocking wait.
//
// Batch operations acquire the lock once for the whole batch and run
// each inner operation through the lock-free internal path, so a batch
// cannot deadlock against itself.

// acquire takes the reentrancy lock or fails fast.
func (e *Engine) acquire() error {
	if !e.locked.CompareAndSwap(false, true) {
		reentrancyRejections.Inc()
		return domain.ErrReentrantCall
	}
	return nil
}

// releaseLock clears the lock flag. Deferred by every guarded entry
// point so the flag clears on success and on error alike.
func (e *Engine) releaseLock() {
	e.locked.Store(false)
}
