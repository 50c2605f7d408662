package registry

import "time"

// sweepLoop runs for the lifetime of a Registry, periodically evicting
// stale queries whose pull side never called Deregister.
func (r *Registry) sweepLoop() {
	ticker := time.NewTicker(r.evictionTTL / 4)
	defer ticker.Stop()
	for {
		select {
		case <-r.stopSweep:
			return
		case <-ticker.C:
			r.sweepOnce()
		}
	}
}

// sweepOnce evicts any query whose EOS has been emitted, queue is drained,
// and that has sat untouched past the configured TTL: a pull side that
// crashed after EOS without calling Deregister must not leak an entry
// forever.
func (r *Registry) sweepOnce() {
	cutoff := time.Now().Add(-r.evictionTTL).UnixNano()
	for _, sh := range r.shards {
		sh.mu.Lock()
		for qid, e := range sh.entries {
			if !e.eosEmitted.Load() {
				continue
			}
			if len(e.pages) > 0 {
				continue
			}
			if e.lastDrainAt.Load() > cutoff {
				continue
			}
			e.close()
			delete(sh.entries, qid)
			if r.log != nil {
				r.log.Warn("evicted stale query", "qid", qid)
			}
		}
		sh.mu.Unlock()
	}
}
