// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture — it depends on nothing.
package domain

import "time"

// ─── Accounts & Amounts ─────────────────────────────────────────────────────

// AccountID identifies an account in the host environment.
// The zero value is the reserved zero account and is never a valid
// owner, beneficiary, or donor.
type AccountID string

// ZeroAccount is the reserved all-zeroes account.
const ZeroAccount AccountID = ""

// Amount is a native-currency amount in the smallest indivisible unit.
type Amount = uint64

// ─── Campaign Lifecycle ─────────────────────────────────────────────────────

// CampaignState is the lifecycle state of a campaign.
// Transitions are strictly monotonic: Active → {Successful, Failed},
// Successful → Withdrawn, Failed → Withdrawn. Never reversed.
type CampaignState string

const (
	StateActive     CampaignState = "ACTIVE"
	StateSuccessful CampaignState = "SUCCESSFUL"
	StateFailed     CampaignState = "FAILED"
	StateWithdrawn  CampaignState = "WITHDRAWN"
)

// CanTransition reports whether a state change respects monotonicity.
func (s CampaignState) CanTransition(to CampaignState) bool {
	switch s {
	case StateActive:
		return to == StateSuccessful || to == StateFailed
	case StateSuccessful:
		return to == StateWithdrawn
	case StateFailed:
		return to == StateWithdrawn
	default:
		return false
	}
}

// Terminal reports whether no further funds can enter the campaign.
func (s CampaignState) Terminal() bool {
	return s != StateActive
}

// ─── Campaign ───────────────────────────────────────────────────────────────

// Field limits enforced at creation.
const (
	MaxTitleLen       = 100
	MaxDescriptionLen = 1000
	MaxMilestoneDesc  = 200

	// MinCampaignDuration / MaxCampaignDuration bound the deadline
	// relative to creation time.
	MinCampaignDuration = time.Hour
	MaxCampaignDuration = 365 * 24 * time.Hour
)

// Campaign is a fundraising effort with a goal, deadline, and beneficiary.
// `Raised` is the gross sum of donations; the platform fee is deducted at
// donation time but the ledger and this field record gross amounts.
type Campaign struct {
	ID             uint64        `json:"id"`
	Owner          AccountID     `json:"owner"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Goal           Amount        `json:"goal"`
	Raised         Amount        `json:"raised"`
	Deadline       time.Time     `json:"deadline"`
	State          CampaignState `json:"state"`
	Beneficiary    AccountID     `json:"beneficiary"`
	DonationCount  uint64        `json:"donation_count"`
	MatchingRound  uint64        `json:"matching_round,omitempty"` // 0 = none
	MatchingAmount Amount        `json:"matching_amount"`
	Milestones     []Milestone   `json:"milestones,omitempty"`
	MilestoneMode  bool          `json:"milestone_mode"`
	CreatedAt      time.Time     `json:"created_at"`
}

// DeadlinePassed reports whether the campaign deadline is behind now.
// Deadline evaluation is lazy: a campaign stays nominally Active until
// an operation that reads it performs this comparison.
func (c *Campaign) DeadlinePassed(now time.Time) bool {
	return now.After(c.Deadline)
}

// AllMilestonesReleased reports whether every milestone has been paid out.
func (c *Campaign) AllMilestonesReleased() bool {
	if len(c.Milestones) == 0 {
		return false
	}
	for i := range c.Milestones {
		if !c.Milestones[i].Released {
			return false
		}
	}
	return true
}

// ─── Donation ───────────────────────────────────────────────────────────────

// Donation is one append-only ledger entry. Entries are never mutated
// after insertion; a refund is recorded as a separate claim marker, not
// as a change to the entries it covers.
type Donation struct {
	Donor     AccountID `json:"donor"`
	Amount    Amount    `json:"amount"` // gross, before platform fee
	Timestamp time.Time `json:"timestamp"`
}

// ─── Milestone ──────────────────────────────────────────────────────────────

// Basis points: integer units of 1/100 of a percent. A campaign's
// milestone percentages must sum to exactly TotalBps at creation.
const TotalBps = 10_000

// ApprovalThresholdPct is the minimum weighted approval percentage
// (integer division) required to release a milestone.
const ApprovalThresholdPct = 66

// Milestone is a percentage-of-funds release gate requiring
// donor-weighted approval. Milestones release strictly in index order.
type Milestone struct {
	Description  string    `json:"description"`
	Bps          uint32    `json:"bps"` // share of payable funds, in basis points
	Deadline     time.Time `json:"deadline"`
	VotesFor     Amount    `json:"votes_for"`     // currency-weighted
	VotesAgainst Amount    `json:"votes_against"` // currency-weighted
	Released     bool      `json:"released"`      // settable exactly once
	VotingActive bool      `json:"voting_active"`
}

// ApprovalPct returns the integer approval percentage, and whether any
// votes were cast at all. Vote weights are currency amounts, so the
// intermediate products use checked arithmetic.
func (m *Milestone) ApprovalPct() (pct uint64, voted bool, err error) {
	total, err := CheckedAdd(m.VotesFor, m.VotesAgainst)
	if err != nil {
		return 0, true, err
	}
	if total == 0 {
		return 0, false, nil
	}
	pctAmount, err := CheckedMulDiv(m.VotesFor, 100, total)
	if err != nil {
		return 0, true, err
	}
	return uint64(pctAmount), true, nil
}

// MilestoneInput is the creation form for one milestone.
type MilestoneInput struct {
	Description  string `json:"description"`
	Bps          uint32 `json:"bps"`
	DurationDays uint32 `json:"duration_days"` // days until voting deadline
}

// ─── Matching Round ─────────────────────────────────────────────────────────

// MatchingRound is a time-boxed pool of funds distributed across
// participating campaigns proportional to their quadratic-funding score.
// Created by admin action; mutated exactly once by distribution.
type MatchingRound struct {
	ID          uint64    `json:"id"`
	Pool        Amount    `json:"pool"`
	EndTime     time.Time `json:"end_time"`
	Distributed bool      `json:"distributed"` // settable exactly once
	Campaigns   []uint64  `json:"campaigns"`   // participating campaign ids
}

// Open reports whether the round still accepts participants.
func (r *MatchingRound) Open(now time.Time) bool {
	return !r.Distributed && !now.After(r.EndTime)
}

// ─── Donor Statistics ───────────────────────────────────────────────────────

// DonorStats summarizes one account's lifetime giving.
type DonorStats struct {
	Account       AccountID `json:"account"`
	DonationCount uint64    `json:"donation_count"`
	TotalDonated  Amount    `json:"total_donated"`
}

// BatchResult is the structured tally returned by batch operations.
// Batches never abort on first error: each inner operation succeeds or
// fails independently under a single guard acquisition.
type BatchResult struct {
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	SuccessIDs []uint64 `json:"success_ids,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}
