package engine

import (
	"time"

	"github.com/fundhive-network/fundhive/internal/domain"
)

// ─── Milestone Governance ───────────────────────────────────────────────────
// Milestone-gated campaigns release funds in index order, each tranche
// gated by donor-weighted approval. A donor's voting weight is their
// gross total contribution to the campaign, looked up from the ledger,
// never re-entered by the caller.

// AddMilestones replaces a campaign's milestone list and switches it to
// milestone-gated payout. Owner only, campaign still Active.
// Percentages must sum to exactly 10000 basis points.
func (e *Engine) AddMilestones(caller domain.AccountID, campaignID uint64, ins []domain.MilestoneInput) error {
	if err := e.acquire(); err != nil {
		return err
	}
	defer e.releaseLock()

	c, err := e.campaign(campaignID)
	if err != nil {
		return err
	}
	if caller != c.Owner {
		return domain.ErrNotOwner
	}
	if c.State != domain.StateActive {
		return domain.ErrMilestonesLocked
	}

	var sum uint64
	for _, in := range ins {
		if in.Description == "" {
			return domain.ErrEmptyMilestoneDesc
		}
		if len(in.Description) > domain.MaxMilestoneDesc {
			return domain.ErrMilestoneDescTooLong
		}
		sum += uint64(in.Bps)
	}
	if sum != domain.TotalBps {
		return domain.ErrInvalidMilestones
	}

	now := e.now()
	milestones := make([]domain.Milestone, len(ins))
	for i, in := range ins {
		milestones[i] = domain.Milestone{
			Description: in.Description,
			Bps:         in.Bps,
			Deadline:    now.Add(time.Duration(in.DurationDays) * 24 * time.Hour),
		}
	}
	c.Milestones = milestones
	c.MilestoneMode = true

	if err := e.persistCampaign(c); err != nil {
		return err
	}
	e.emit(Event{Type: EventMilestonesAdded, Campaign: campaignID, Account: caller, Index: len(milestones)})
	return nil
}

// milestone resolves a campaign and one of its milestones.
func (e *Engine) milestone(campaignID uint64, index int) (*domain.Campaign, *domain.Milestone, error) {
	c, err := e.campaign(campaignID)
	if err != nil {
		return nil, nil, err
	}
	if index < 0 || index >= len(c.Milestones) {
		return nil, nil, domain.ErrMilestoneNotFound
	}
	return c, &c.Milestones[index], nil
}

// ActivateMilestoneVoting opens voting on one milestone. Owner only.
// The campaign must have settled funds (Successful or Withdrawn), the
// previous milestone must be released, and the milestone's own voting
// deadline must not have passed.
func (e *Engine) ActivateMilestoneVoting(caller domain.AccountID, campaignID uint64, index int) error {
	if err := e.acquire(); err != nil {
		return err
	}
	defer e.releaseLock()

	c, m, err := e.milestone(campaignID, index)
	if err != nil {
		return err
	}
	if caller != c.Owner {
		return domain.ErrNotOwner
	}
	if c.State != domain.StateSuccessful && c.State != domain.StateWithdrawn {
		return domain.ErrCampaignNotSettled
	}
	if index > 0 && !c.Milestones[index-1].Released {
		return domain.ErrPreviousNotReleased
	}
	if m.Released {
		return domain.ErrAlreadyReleased
	}
	if e.now().After(m.Deadline) {
		return domain.ErrVotingClosed
	}

	m.VotingActive = true
	if err := e.persistCampaign(c); err != nil {
		return err
	}
	e.emit(Event{Type: EventMilestoneVotingActivated, Campaign: campaignID, Account: caller, Index: index})
	return nil
}

// VoteOnMilestone casts a donor's weighted vote, exactly once per
// (campaign, milestone, voter). Weight is the donor's gross total
// contribution to the campaign.
func (e *Engine) VoteOnMilestone(caller domain.AccountID, campaignID uint64, index int, approve bool) error {
	if err := e.acquire(); err != nil {
		return err
	}
	defer e.releaseLock()

	c, m, err := e.milestone(campaignID, index)
	if err != nil {
		return err
	}
	if !m.VotingActive {
		return domain.ErrVotingNotActive
	}

	weight := e.donorTotalFor(campaignID, caller)
	if weight == 0 {
		return domain.ErrNoDonation
	}

	key := voteKey{Campaign: campaignID, Index: index, Voter: caller}
	if _, voted := e.votes[key]; voted {
		return domain.ErrAlreadyVoted
	}

	if approve {
		total, err := domain.CheckedAdd(m.VotesFor, weight)
		if err != nil {
			return err
		}
		m.VotesFor = total
	} else {
		total, err := domain.CheckedAdd(m.VotesAgainst, weight)
		if err != nil {
			return err
		}
		m.VotesAgainst = total
	}
	e.votes[key] = weight

	if e.store != nil {
		if err := e.store.SaveVote(campaignID, index, caller, weight, approve); err != nil {
			return err
		}
		if err := e.store.SaveCampaign(c); err != nil {
			return err
		}
	}
	e.emit(Event{Type: EventMilestoneVoted, Campaign: campaignID, Account: caller, Index: index, Amount: weight})
	return nil
}

// ReleaseMilestoneFunds pays out one approved milestone tranche to the
// beneficiary: floor((raised + matching) × bps / 10000). Owner or admin.
// Requires voting active, votes cast, and ≥66% weighted approval.
// Releasing the final milestone completes the campaign (Withdrawn).
func (e *Engine) ReleaseMilestoneFunds(caller domain.AccountID, campaignID uint64, index int) error {
	if err := e.acquire(); err != nil {
		return err
	}
	defer e.releaseLock()

	c, m, err := e.milestone(campaignID, index)
	if err != nil {
		return err
	}
	if caller != c.Owner && !e.isAdmin(caller) {
		return domain.ErrNotOwner
	}
	if m.Released {
		return domain.ErrAlreadyReleased
	}
	if !m.VotingActive {
		return domain.ErrVotingNotActive
	}
	if index > 0 && !c.Milestones[index-1].Released {
		return domain.ErrPreviousNotReleased
	}

	pct, voted, err := m.ApprovalPct()
	if err != nil {
		return err
	}
	if !voted {
		return domain.ErrNoVotes
	}
	if pct < domain.ApprovalThresholdPct {
		return domain.ErrApprovalTooLow
	}

	payable, err := domain.CheckedAdd(c.Raised, c.MatchingAmount)
	if err != nil {
		return err
	}
	tranche, err := domain.CheckedMulDiv(payable, domain.Amount(m.Bps), domain.TotalBps)
	if err != nil {
		return err
	}
	if err := e.transfer.Transfer(c.Beneficiary, tranche); err != nil {
		return domain.ErrTransferFailed
	}

	m.Released = true
	m.VotingActive = false

	if c.AllMilestonesReleased() && c.State == domain.StateSuccessful {
		if err := e.setState(c, domain.StateWithdrawn); err != nil {
			return err
		}
	}
	if err := e.persistCampaign(c); err != nil {
		return err
	}
	e.emit(Event{Type: EventMilestoneFundsReleased, Campaign: campaignID, Account: c.Beneficiary, Index: index, Amount: tranche})
	milestoneReleases.Inc()
	return nil
}

// GetMilestones returns a copy of a campaign's milestone list.
func (e *Engine) GetMilestones(campaignID uint64) ([]domain.Milestone, error) {
	c, err := e.campaign(campaignID)
	if err != nil {
		return nil, err
	}
	return append([]domain.Milestone(nil), c.Milestones...), nil
}
