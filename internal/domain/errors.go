package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// One distinct error per failure condition — no variant is reused for
// semantically different failures. Domain errors are pure: no
// infrastructure dependency, and never a panic.

var (
	// Not-found
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrRoundNotFound     = errors.New("matching round not found")
	ErrMilestoneNotFound = errors.New("milestone index out of range")

	// Authorization
	ErrNotOwner = errors.New("caller is not the campaign owner")
	ErrNotAdmin = errors.New("caller is not the platform admin")

	// Input validation
	ErrEmptyTitle           = errors.New("title must not be empty")
	ErrTitleTooLong         = errors.New("title exceeds 100 characters")
	ErrDescriptionTooLong   = errors.New("description exceeds 1000 characters")
	ErrInvalidGoal          = errors.New("goal must be positive and within the ceiling")
	ErrInvalidDeadline      = errors.New("deadline must be between 1 hour and 1 year from now")
	ErrZeroBeneficiary      = errors.New("beneficiary must not be the zero account")
	ErrInvalidAmount        = errors.New("donation amount outside allowed bounds")
	ErrInvalidMilestones    = errors.New("milestone percentages must sum to 10000 basis points")
	ErrEmptyMilestoneDesc   = errors.New("milestone description must not be empty")
	ErrMilestoneDescTooLong = errors.New("milestone description exceeds 200 characters")
	ErrInvalidPoolAmount    = errors.New("pool amount exceeds available matching-pool balance")

	// State conflict
	ErrCampaignNotActive   = errors.New("campaign is not active")
	ErrCampaignNotFailed   = errors.New("campaign has not failed")
	ErrCampaignNotSettled  = errors.New("campaign funds are not settled")
	ErrDeadlinePassed      = errors.New("campaign deadline has passed")
	ErrDeadlineNotReached  = errors.New("campaign deadline has not been reached")
	ErrAlreadyWithdrawn    = errors.New("funds already withdrawn")
	ErrAlreadyClaimed      = errors.New("refund already claimed")
	ErrAlreadyVoted        = errors.New("vote already cast for this milestone")
	ErrAlreadyReleased     = errors.New("milestone already released")
	ErrAlreadyDistributed  = errors.New("matching round already distributed")
	ErrRoundStillOpen      = errors.New("matching round has not ended")
	ErrVotingNotActive     = errors.New("milestone voting is not active")
	ErrVotingClosed        = errors.New("milestone voting deadline has passed")
	ErrPreviousNotReleased = errors.New("previous milestone has not been released")
	ErrNoVotes             = errors.New("no votes have been cast")
	ErrApprovalTooLow      = errors.New("weighted approval below 66 percent")
	ErrNoDonation          = errors.New("caller has no donations to this campaign")
	ErrMilestonesLocked    = errors.New("milestones can only be set while the campaign is active")
	ErrInvalidTransition   = errors.New("campaign state transition not allowed")

	// Arithmetic
	ErrArithmeticOverflow = errors.New("checked arithmetic overflow")

	// Transfer
	ErrTransferFailed = errors.New("currency transfer failed")

	// Reentrancy
	ErrReentrantCall = errors.New("reentrant call rejected")

	// Capacity
	ErrBatchTooLarge = errors.New("batch size exceeds configured maximum")
)
