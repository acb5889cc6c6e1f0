// Package ledger tracks the percentage of each host resource committed to
// active agents. All mutation goes through one mutex so concurrent
// arbitration rounds can never interleave reservations.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tunewise/tunewise/internal/models"
)

// ErrInsufficient is returned when an all-or-nothing reservation would push
// any resource past 100%.
var ErrInsufficient = errors.New("insufficient resource headroom")

// maxPercent is the hard cap per resource type across all holders.
const maxPercent = 100.0

// Ledger is the bookkeeping structure for committed resource percentages.
type Ledger struct {
	mu        sync.Mutex
	committed map[models.ResourceType]float64
	holdings  map[models.AgentType]map[models.ResourceType]float64
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		committed: make(map[models.ResourceType]float64),
		holdings:  make(map[models.AgentType]map[models.ResourceType]float64),
	}
}

// ReserveAll reserves the exact requested percentages for the holder, or
// nothing at all. Used for non-negotiable requirements.
func (l *Ledger) ReserveAll(holder models.AgentType, requests map[models.ResourceType]float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for res, pct := range requests {
		if pct < 0 {
			return fmt.Errorf("negative request for %s: %v", res, pct)
		}
		if l.committed[res]+pct > maxPercent {
			return fmt.Errorf("%w: %s needs %.1f%%, %.1f%% available",
				ErrInsufficient, res, pct, maxPercent-l.committed[res])
		}
	}

	l.commit(holder, requests, 1.0)
	return nil
}

// ReserveUpTo reserves as much of the request as headroom allows, scaling
// every requested resource down by the same factor so the grant keeps the
// request's proportions. It returns the granted percentages and the factor
// applied (1.0 means the full request fit). A zero-value factor means no
// headroom existed and nothing was reserved.
func (l *Ledger) ReserveUpTo(holder models.AgentType, requests map[models.ResourceType]float64) (map[models.ResourceType]float64, float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	factor := 1.0
	for res, pct := range requests {
		if pct <= 0 {
			continue
		}
		headroom := maxPercent - l.committed[res]
		if headroom <= 0 {
			factor = 0
			break
		}
		if f := headroom / pct; f < factor {
			factor = f
		}
	}

	if factor <= 0 {
		return nil, 0
	}

	granted := l.commit(holder, requests, factor)
	return granted, factor
}

// commit records the scaled request against the holder. Caller holds mu.
func (l *Ledger) commit(holder models.AgentType, requests map[models.ResourceType]float64, factor float64) map[models.ResourceType]float64 {
	granted := make(map[models.ResourceType]float64, len(requests))
	h := l.holdings[holder]
	if h == nil {
		h = make(map[models.ResourceType]float64)
		l.holdings[holder] = h
	}
	for res, pct := range requests {
		if pct <= 0 {
			continue
		}
		g := pct * factor
		l.committed[res] += g
		if l.committed[res] > maxPercent {
			// Float drift only; clamp so the invariant holds exactly.
			g -= l.committed[res] - maxPercent
			l.committed[res] = maxPercent
		}
		h[res] += g
		granted[res] = g
	}
	return granted
}

// Release returns everything held by the given agent to the pool.
func (l *Ledger) Release(holder models.AgentType) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for res, pct := range l.holdings[holder] {
		l.committed[res] -= pct
		if l.committed[res] < 0 {
			l.committed[res] = 0
		}
	}
	delete(l.holdings, holder)
}

// ReleaseAll clears every reservation.
func (l *Ledger) ReleaseAll() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.committed = make(map[models.ResourceType]float64)
	l.holdings = make(map[models.AgentType]map[models.ResourceType]float64)
}

// Committed returns the committed percentage for one resource type.
func (l *Ledger) Committed(res models.ResourceType) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.committed[res]
}

// Snapshot returns a copy of all committed percentages.
func (l *Ledger) Snapshot() map[models.ResourceType]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[models.ResourceType]float64, len(l.committed))
	for res, pct := range l.committed {
		out[res] = pct
	}
	return out
}

// Holdings returns a copy of one agent's current reservations.
func (l *Ledger) Holdings(holder models.AgentType) map[models.ResourceType]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[models.ResourceType]float64, len(l.holdings[holder]))
	for res, pct := range l.holdings[holder] {
		out[res] = pct
	}
	return out
}
