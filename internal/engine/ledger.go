package engine

import (
	"fmt"
	"sort"

	"github.com/fundhive-network/fundhive/internal/domain"
)

// ─── Donation Ledger & Fee Engine ───────────────────────────────────────────
// The ledger records gross amounts; the platform fee is transferred to
// the treasury at donation time. Withdrawal re-derives the fee from the
// gross raised total, so both computations use the same FeeFor helper
// and the same configured basis points.

// Donate records a contribution from caller to a campaign.
//
// The deadline is checked at call time: if it has passed, the campaign
// fails as a side effect and the donation is rejected, which is the
// lazy evaluation path that retires stale Active campaigns.
func (e *Engine) Donate(caller domain.AccountID, campaignID uint64, amount domain.Amount) error {
	if err := e.acquire(); err != nil {
		return err
	}
	defer e.releaseLock()
	return e.donate(caller, campaignID, amount)
}

func (e *Engine) donate(caller domain.AccountID, campaignID uint64, amount domain.Amount) error {
	c, err := e.campaign(campaignID)
	if err != nil {
		return err
	}
	if c.State != domain.StateActive {
		return domain.ErrCampaignNotActive
	}

	now := e.now()
	if c.DeadlinePassed(now) {
		if err := e.setState(c, domain.StateFailed); err != nil {
			return err
		}
		if err := e.persistCampaign(c); err != nil {
			return err
		}
		return domain.ErrDeadlinePassed
	}

	if amount < e.cfg.MinDonation || amount > e.cfg.MaxDonation {
		return domain.ErrInvalidAmount
	}

	// Checked fee and totals before any state is written.
	fee, err := domain.FeeFor(amount, e.cfg.FeeBps)
	if err != nil {
		return err
	}
	raised, err := domain.CheckedAdd(c.Raised, amount)
	if err != nil {
		return err
	}
	donorTotal, err := domain.CheckedAdd(e.donorTotalFor(campaignID, caller), amount)
	if err != nil {
		return err
	}
	lifetime, err := domain.CheckedAdd(e.donorTotals[caller], amount)
	if err != nil {
		return err
	}

	// The fee leaves for the treasury immediately; the ledger still
	// records the gross amount.
	if fee > 0 {
		if err := e.transfer.Transfer(e.cfg.Treasury, fee); err != nil {
			return domain.ErrTransferFailed
		}
	}

	d := domain.Donation{Donor: caller, Amount: amount, Timestamp: now}
	r := e.joinableRound(c, now)
	goalReached := raised >= c.Goal

	// Persist the staged outcome before touching memory: if the store
	// rejects it, the caller's retry finds the ledger exactly as it was.
	if e.store != nil {
		next := *c
		next.Raised = raised
		next.DonationCount = c.DonationCount + 1
		if r != nil {
			next.MatchingRound = r.ID
		}
		if goalReached {
			next.State = domain.StateSuccessful
		}
		var staged *domain.MatchingRound
		if r != nil {
			staged = enrolled(r, c.ID)
		}
		if err := e.store.CommitDonation(&next, d, staged); err != nil {
			return fmt.Errorf("persist donation to campaign %d: %w", campaignID, err)
		}
	}

	e.donations[campaignID] = append(e.donations[campaignID], d)
	if e.donors[campaignID] == nil {
		e.donors[campaignID] = make(map[domain.AccountID]domain.Amount)
	}
	e.donors[campaignID][caller] = donorTotal
	e.donorTotals[caller] = lifetime
	e.donorCounts[caller]++

	c.Raised = raised
	c.DonationCount++
	if r != nil {
		c.MatchingRound = r.ID
		r.Campaigns = append(r.Campaigns, c.ID)
	}
	if goalReached {
		if err := e.setState(c, domain.StateSuccessful); err != nil {
			return err
		}
	}

	e.emit(Event{Type: EventDonationReceived, Campaign: campaignID, Account: caller, Amount: amount})
	donationsReceived.Inc()
	donationVolume.Add(float64(amount))
	feesCollected.Add(float64(fee))

	// Best-effort receipt mint: failure is an event, never an error.
	if e.minter != nil {
		if err := e.minter.MintReceipt(caller, campaignID, c.Title, amount, now); err != nil {
			e.emit(Event{Type: EventReceiptMintFailed, Campaign: campaignID, Account: caller, Amount: amount, Note: err.Error()})
			receiptMintFailures.Inc()
		}
	}
	return nil
}

// donorTotalFor returns caller's gross total donated to one campaign.
func (e *Engine) donorTotalFor(campaignID uint64, donor domain.AccountID) domain.Amount {
	return e.donors[campaignID][donor]
}

// ─── Donor Statistics ───────────────────────────────────────────────────────

// DonorStats returns one account's lifetime donation count and total.
func (e *Engine) DonorStats(account domain.AccountID) domain.DonorStats {
	return domain.DonorStats{
		Account:       account,
		DonationCount: e.donorCounts[account],
		TotalDonated:  e.donorTotals[account],
	}
}

// Leaderboard returns the top donors by lifetime gross total.
func (e *Engine) Leaderboard(limit int) []domain.DonorStats {
	out := make([]domain.DonorStats, 0, len(e.donorTotals))
	for account := range e.donorTotals {
		out = append(out, e.DonorStats(account))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalDonated != out[j].TotalDonated {
			return out[i].TotalDonated > out[j].TotalDonated
		}
		return out[i].Account < out[j].Account
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}
