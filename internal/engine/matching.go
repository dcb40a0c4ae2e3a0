package engine

import (
	"time"

	"github.com/fundhive-network/fundhive/internal/domain"
)

// ─── Matching Engine ────────────────────────────────────────────────────────
// Quadratic-funding score for a campaign = (Σ √donation)², with the
// deterministic integer square root from the domain package. A round's
// pool is allocated as floor(score × pool / Σscores); the remainder
// units lost to integer division accrue to no one. Accepted rounding
// behavior, not redistributed.

// FundMatchingPool adds to the global matching-pool balance. Admin only.
func (e *Engine) FundMatchingPool(caller domain.AccountID, amount domain.Amount) error {
	if err := e.acquire(); err != nil {
		return err
	}
	defer e.releaseLock()

	if !e.isAdmin(caller) {
		return domain.ErrNotAdmin
	}
	balance, err := domain.CheckedAdd(e.poolBalance, amount)
	if err != nil {
		return err
	}
	e.poolBalance = balance
	if e.store != nil {
		if err := e.store.SavePoolBalance(balance); err != nil {
			return err
		}
	}
	e.emit(Event{Type: EventMatchingPoolFunded, Account: caller, Amount: amount})
	matchingPoolBalance.Set(float64(balance))
	return nil
}

// CreateMatchingRound carves pool out of the matching-pool balance and
// opens a new round for duration. Admin only. The new round becomes
// current: campaigns created or donated to while it is open participate.
func (e *Engine) CreateMatchingRound(caller domain.AccountID, pool domain.Amount, duration time.Duration) (uint64, error) {
	if err := e.acquire(); err != nil {
		return 0, err
	}
	defer e.releaseLock()

	if !e.isAdmin(caller) {
		return 0, domain.ErrNotAdmin
	}
	if pool == 0 || pool > e.poolBalance {
		return 0, domain.ErrInvalidPoolAmount
	}

	balance, err := domain.CheckedSub(e.poolBalance, pool)
	if err != nil {
		return 0, err
	}

	r := &domain.MatchingRound{
		ID:      e.nextRound,
		Pool:    pool,
		EndTime: e.now().Add(duration),
	}
	e.rounds[r.ID] = r
	e.nextRound++
	e.currentRound = r.ID
	e.poolBalance = balance

	if e.store != nil {
		if err := e.store.SaveRound(r); err != nil {
			return 0, err
		}
		if err := e.store.SavePoolBalance(balance); err != nil {
			return 0, err
		}
	}
	e.emit(Event{Type: EventMatchingRoundCreated, Round: r.ID, Account: caller, Amount: pool})
	matchingPoolBalance.Set(float64(balance))
	return r.ID, nil
}

// joinableRound returns the open round an untagged campaign would
// enroll in, or nil. Read-only: enrollment itself is committed by the
// caller together with the campaign write.
func (e *Engine) joinableRound(c *domain.Campaign, now time.Time) *domain.MatchingRound {
	if c.MatchingRound != 0 || e.currentRound == 0 {
		return nil
	}
	r, ok := e.rounds[e.currentRound]
	if !ok || !r.Open(now) {
		return nil
	}
	return r
}

// enrolled returns a copy of r with one campaign appended, for staging
// the persisted round row before the in-memory append.
func enrolled(r *domain.MatchingRound, campaignID uint64) *domain.MatchingRound {
	staged := *r
	staged.Campaigns = append(append([]uint64(nil), r.Campaigns...), campaignID)
	return &staged
}

// DistributeMatching scores every campaign in a round and allocates the
// pool. Admin only, only after the round has ended, exactly once.
func (e *Engine) DistributeMatching(caller domain.AccountID, roundID uint64) error {
	if err := e.acquire(); err != nil {
		return err
	}
	defer e.releaseLock()

	if !e.isAdmin(caller) {
		return domain.ErrNotAdmin
	}
	r, ok := e.rounds[roundID]
	if !ok {
		return domain.ErrRoundNotFound
	}
	if r.Distributed {
		return domain.ErrAlreadyDistributed
	}
	if !e.now().After(r.EndTime) {
		return domain.ErrRoundStillOpen
	}

	scores := make(map[uint64]domain.Amount, len(r.Campaigns))
	var total domain.Amount
	for _, id := range r.Campaigns {
		score, err := domain.QFScore(e.donations[id])
		if err != nil {
			return err
		}
		scores[id] = score
		total, err = domain.CheckedAdd(total, score)
		if err != nil {
			return err
		}
	}

	var allocated domain.Amount
	if total > 0 {
		for _, id := range r.Campaigns {
			score := scores[id]
			if score == 0 {
				continue
			}
			share, err := domain.CheckedMulDiv(score, r.Pool, total)
			if err != nil {
				return err
			}
			c, err := e.campaign(id)
			if err != nil {
				return err
			}
			c.MatchingAmount = share
			allocated += share
			if err := e.persistCampaign(c); err != nil {
				return err
			}
		}
	}

	r.Distributed = true
	if roundID == e.currentRound {
		e.currentRound = 0
	}
	if e.store != nil {
		if err := e.store.SaveRound(r); err != nil {
			return err
		}
	}
	e.emit(Event{Type: EventMatchingDistributed, Round: roundID, Account: caller, Amount: allocated})
	matchingDistributed.Add(float64(allocated))
	return nil
}

// EstimateMatching recomputes a campaign's share of its round's pool on
// demand, for display, without mutating any state. Returns zero for a
// campaign outside any round or with zero score.
func (e *Engine) EstimateMatching(campaignID uint64) (domain.Amount, error) {
	c, err := e.campaign(campaignID)
	if err != nil {
		return 0, err
	}
	if c.MatchingRound == 0 {
		return 0, nil
	}
	r, ok := e.rounds[c.MatchingRound]
	if !ok {
		return 0, domain.ErrRoundNotFound
	}
	if r.Distributed {
		return c.MatchingAmount, nil
	}

	var total, own domain.Amount
	for _, id := range r.Campaigns {
		score, err := domain.QFScore(e.donations[id])
		if err != nil {
			return 0, err
		}
		if id == campaignID {
			own = score
		}
		total, err = domain.CheckedAdd(total, score)
		if err != nil {
			return 0, err
		}
	}
	if total == 0 || own == 0 {
		return 0, nil
	}
	return domain.CheckedMulDiv(own, r.Pool, total)
}

// GetRound returns a copy of one matching round.
func (e *Engine) GetRound(id uint64) (domain.MatchingRound, error) {
	r, ok := e.rounds[id]
	if !ok {
		return domain.MatchingRound{}, domain.ErrRoundNotFound
	}
	out := *r
	out.Campaigns = append([]uint64(nil), r.Campaigns...)
	return out, nil
}
