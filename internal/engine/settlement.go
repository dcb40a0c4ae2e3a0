package engine

import (
	"fmt"

	"github.com/fundhive-network/fundhive/internal/domain"
)

// ─── Settlement: Withdrawal & Refund ────────────────────────────────────────

// Withdraw settles a campaign to its beneficiary. Owner or admin.
//
// Rules, in order: a Withdrawn campaign rejects; settlement requires
// Successful state or a passed deadline; an unsuccessful campaign with
// nothing raised fails terminally without a transfer (not an error);
// otherwise the net payable — gross raised minus the fee already taken
// at donation time, plus any matching allocation — moves to the
// beneficiary and the campaign becomes Withdrawn.
func (e *Engine) Withdraw(caller domain.AccountID, campaignID uint64) error {
	if err := e.acquire(); err != nil {
		return err
	}
	defer e.releaseLock()
	return e.withdraw(caller, campaignID)
}

func (e *Engine) withdraw(caller domain.AccountID, campaignID uint64) error {
	c, err := e.campaign(campaignID)
	if err != nil {
		return err
	}
	if caller != c.Owner && !e.isAdmin(caller) {
		return domain.ErrNotOwner
	}
	if c.State == domain.StateWithdrawn {
		return domain.ErrAlreadyWithdrawn
	}

	successful := c.State == domain.StateSuccessful
	deadlinePassed := c.DeadlinePassed(e.now())
	if !successful && !deadlinePassed {
		return domain.ErrDeadlineNotReached
	}

	// Nothing raised after the deadline: terminal, no transfer, no error.
	if !successful && c.Raised == 0 {
		if c.State == domain.StateActive {
			if err := e.setState(c, domain.StateFailed); err != nil {
				return err
			}
		}
		return e.persistCampaign(c)
	}

	// Lazy deadline evaluation: an unsuccessful Active campaign fails
	// here before its remaining funds settle.
	if c.State == domain.StateActive && !successful {
		if err := e.setState(c, domain.StateFailed); err != nil {
			return err
		}
	}

	fee, err := domain.FeeFor(c.Raised, e.cfg.FeeBps)
	if err != nil {
		return err
	}
	net, err := domain.CheckedSub(c.Raised, fee)
	if err != nil {
		return err
	}
	net, err = domain.CheckedAdd(net, c.MatchingAmount)
	if err != nil {
		return err
	}

	if err := e.transfer.Transfer(c.Beneficiary, net); err != nil {
		return domain.ErrTransferFailed
	}

	if err := e.setState(c, domain.StateWithdrawn); err != nil {
		return err
	}
	if err := e.persistCampaign(c); err != nil {
		return err
	}
	e.emit(Event{Type: EventFundsWithdrawn, Campaign: campaignID, Account: c.Beneficiary, Amount: net})
	withdrawalsSettled.Inc()
	return nil
}

// WithdrawBatch settles up to MaxBatch campaigns under one guard
// acquisition, tallying per-item outcomes instead of aborting.
func (e *Engine) WithdrawBatch(caller domain.AccountID, ids []uint64) (domain.BatchResult, error) {
	if err := e.acquire(); err != nil {
		return domain.BatchResult{}, err
	}
	defer e.releaseLock()

	if len(ids) > e.cfg.MaxBatch {
		return domain.BatchResult{}, domain.ErrBatchTooLarge
	}

	var res domain.BatchResult
	for _, id := range ids {
		if err := e.withdraw(caller, id); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("campaign %d: %v", id, err))
			continue
		}
		res.Successful++
		res.SuccessIDs = append(res.SuccessIDs, id)
	}
	return res, nil
}

// ClaimRefund returns a donor's gross donations from a Failed campaign,
// once per donor. If the transfer fails the claim marker is rolled back
// so the donor may retry.
func (e *Engine) ClaimRefund(caller domain.AccountID, campaignID uint64) error {
	if err := e.acquire(); err != nil {
		return err
	}
	defer e.releaseLock()

	c, err := e.campaign(campaignID)
	if err != nil {
		return err
	}
	if c.State != domain.StateFailed {
		return domain.ErrCampaignNotFailed
	}

	key := refundKey{Campaign: campaignID, Donor: caller}
	if _, claimed := e.claims[key]; claimed {
		return domain.ErrAlreadyClaimed
	}

	total := e.donorTotalFor(campaignID, caller)
	if total == 0 {
		return domain.ErrNoDonation
	}

	// Mark before transferring so a reentrant claim during the transfer
	// hits the guard, then the already-claimed check; roll back on
	// transfer failure so the donor may retry.
	e.claims[key] = total
	if err := e.transfer.Transfer(caller, total); err != nil {
		delete(e.claims, key)
		return domain.ErrTransferFailed
	}

	if e.store != nil {
		if err := e.store.SaveRefundClaim(campaignID, caller, total); err != nil {
			return err
		}
	}
	e.emit(Event{Type: EventRefundClaimed, Campaign: campaignID, Account: caller, Amount: total})
	refundsClaimed.Inc()
	return nil
}
