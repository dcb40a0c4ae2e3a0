package engine

import (
	"github.com/fundhive-network/fundhive/internal/domain"
)

// ─── Boot-time Restore ──────────────────────────────────────────────────────

// VoteRecord is one persisted milestone vote.
type VoteRecord struct {
	Campaign uint64
	Index    int
	Voter    domain.AccountID
	Weight   domain.Amount
	Approve  bool
}

// ClaimRecord is one persisted refund-claim marker.
type ClaimRecord struct {
	Campaign uint64
	Donor    domain.AccountID
	Amount   domain.Amount
}

// RestoreState is the durable keyed state loaded from storage at boot.
type RestoreState struct {
	Campaigns   []domain.Campaign
	Donations   map[uint64][]domain.Donation
	Rounds      []domain.MatchingRound
	Votes       []VoteRecord
	Claims      []ClaimRecord
	PoolBalance domain.Amount
}

// Restore replaces the engine's in-memory state with a loaded snapshot.
// Donor aggregates are rebuilt from the ledger, which keeps the
// invariant Σ(ledger amounts) == raised authoritative in one place.
// Must be called before the engine serves any traffic.
func (e *Engine) Restore(s RestoreState) {
	for i := range s.Campaigns {
		c := s.Campaigns[i]
		e.campaigns[c.ID] = &c
		if c.ID >= e.nextCampaign {
			e.nextCampaign = c.ID + 1
		}
	}
	for id, ledger := range s.Donations {
		e.donations[id] = append([]domain.Donation(nil), ledger...)
		for _, d := range ledger {
			if e.donors[id] == nil {
				e.donors[id] = make(map[domain.AccountID]domain.Amount)
			}
			e.donors[id][d.Donor] += d.Amount
			e.donorTotals[d.Donor] += d.Amount
			e.donorCounts[d.Donor]++
		}
	}
	for i := range s.Rounds {
		r := s.Rounds[i]
		e.rounds[r.ID] = &r
		if r.ID >= e.nextRound {
			e.nextRound = r.ID + 1
		}
		// The newest undistributed round resumes as current.
		if !r.Distributed && r.ID > e.currentRound {
			e.currentRound = r.ID
		}
	}
	for _, v := range s.Votes {
		e.votes[voteKey{Campaign: v.Campaign, Index: v.Index, Voter: v.Voter}] = v.Weight
	}
	for _, cl := range s.Claims {
		e.claims[refundKey{Campaign: cl.Campaign, Donor: cl.Donor}] = cl.Amount
	}
	e.poolBalance = s.PoolBalance
	matchingPoolBalance.Set(float64(s.PoolBalance))
}
