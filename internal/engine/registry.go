package engine

import (
	"fmt"
	"time"

	"github.com/fundhive-network/fundhive/internal/domain"
)

// ─── Campaign Registry ──────────────────────────────────────────────────────

// CampaignInput is the creation form for one campaign.
type CampaignInput struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Goal        domain.Amount    `json:"goal"`
	Deadline    time.Time        `json:"deadline"`
	Beneficiary domain.AccountID `json:"beneficiary"`
}

// validateCampaignInput runs every creation check without writing any
// state, so a failed create leaves nothing behind.
func (e *Engine) validateCampaignInput(in CampaignInput, now time.Time) error {
	if in.Title == "" {
		return domain.ErrEmptyTitle
	}
	if len(in.Title) > domain.MaxTitleLen {
		return domain.ErrTitleTooLong
	}
	if len(in.Description) > domain.MaxDescriptionLen {
		return domain.ErrDescriptionTooLong
	}
	if in.Goal == 0 || in.Goal > e.cfg.GoalCeiling {
		return domain.ErrInvalidGoal
	}
	if in.Beneficiary == domain.ZeroAccount {
		return domain.ErrZeroBeneficiary
	}
	if in.Deadline.Before(now.Add(domain.MinCampaignDuration)) ||
		in.Deadline.After(now.Add(domain.MaxCampaignDuration)) {
		return domain.ErrInvalidDeadline
	}
	return nil
}

// CreateCampaign registers a new campaign and returns its id.
// A campaign created while a matching round is open participates in it.
func (e *Engine) CreateCampaign(caller domain.AccountID, in CampaignInput) (uint64, error) {
	if err := e.acquire(); err != nil {
		return 0, err
	}
	defer e.releaseLock()
	return e.createCampaign(caller, in)
}

// createCampaign is the lock-free internal path, shared with batches.
func (e *Engine) createCampaign(caller domain.AccountID, in CampaignInput) (uint64, error) {
	now := e.now()
	if err := e.validateCampaignInput(in, now); err != nil {
		return 0, err
	}

	c := &domain.Campaign{
		ID:          e.nextCampaign,
		Owner:       caller,
		Title:       in.Title,
		Description: in.Description,
		Goal:        in.Goal,
		Deadline:    in.Deadline,
		State:       domain.StateActive,
		Beneficiary: in.Beneficiary,
		CreatedAt:   now,
	}
	r := e.joinableRound(c, now)
	if r != nil {
		c.MatchingRound = r.ID
	}

	// Persist before committing to memory: a store failure leaves the
	// id unconsumed and nothing registered.
	if e.store != nil {
		var staged *domain.MatchingRound
		if r != nil {
			staged = enrolled(r, c.ID)
		}
		if err := e.store.CommitCampaign(c, staged); err != nil {
			return 0, fmt.Errorf("persist campaign %d: %w", c.ID, err)
		}
	}

	e.campaigns[c.ID] = c
	e.nextCampaign++
	if r != nil {
		r.Campaigns = append(r.Campaigns, c.ID)
	}

	e.emit(Event{Type: EventCampaignCreated, Campaign: c.ID, Account: caller, Amount: in.Goal})
	campaignsCreated.Inc()
	return c.ID, nil
}

// CreateCampaignsBatch creates up to MaxBatch campaigns under a single
// guard acquisition. An oversize batch fails whole, creating nothing.
// Individual failures are tallied, not fatal.
func (e *Engine) CreateCampaignsBatch(caller domain.AccountID, ins []CampaignInput) (domain.BatchResult, error) {
	if err := e.acquire(); err != nil {
		return domain.BatchResult{}, err
	}
	defer e.releaseLock()

	if len(ins) > e.cfg.MaxBatch {
		return domain.BatchResult{}, domain.ErrBatchTooLarge
	}

	var res domain.BatchResult
	for i, in := range ins {
		id, err := e.createCampaign(caller, in)
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("item %d: %v", i, err))
			continue
		}
		res.Successful++
		res.SuccessIDs = append(res.SuccessIDs, id)
	}
	return res, nil
}

// Cancel moves an Active campaign to Failed. Owner or admin only.
// Donors of a cancelled campaign become refund-eligible.
func (e *Engine) Cancel(caller domain.AccountID, id uint64) error {
	if err := e.acquire(); err != nil {
		return err
	}
	defer e.releaseLock()

	c, err := e.campaign(id)
	if err != nil {
		return err
	}
	if caller != c.Owner && !e.isAdmin(caller) {
		return domain.ErrNotOwner
	}
	if c.State != domain.StateActive {
		return domain.ErrCampaignNotActive
	}

	if err := e.setState(c, domain.StateFailed); err != nil {
		return err
	}
	if err := e.persistCampaign(c); err != nil {
		return err
	}
	e.emit(Event{Type: EventCampaignCancelled, Campaign: id, Account: caller})
	return nil
}

// ─── Read Accessors ─────────────────────────────────────────────────────────

// GetCampaign returns a copy of one campaign.
func (e *Engine) GetCampaign(id uint64) (domain.Campaign, error) {
	c, err := e.campaign(id)
	if err != nil {
		return domain.Campaign{}, err
	}
	return *c, nil
}

// CampaignDetails bundles a campaign with a page of its donations.
type CampaignDetails struct {
	Campaign  domain.Campaign   `json:"campaign"`
	Donations []domain.Donation `json:"donations"`
	Total     int               `json:"total_donations"`
}

// GetCampaignDetails returns a campaign and a donation page.
// Offset and limit are clamped to the ledger length.
func (e *Engine) GetCampaignDetails(id uint64, offset, limit int) (CampaignDetails, error) {
	c, err := e.campaign(id)
	if err != nil {
		return CampaignDetails{}, err
	}
	ledger := e.donations[id]
	lo, hi := clampPage(len(ledger), offset, limit)
	page := make([]domain.Donation, hi-lo)
	copy(page, ledger[lo:hi])
	return CampaignDetails{Campaign: *c, Donations: page, Total: len(ledger)}, nil
}

// CampaignsPaginated returns a slice of the ordered id range.
func (e *Engine) CampaignsPaginated(offset, limit int) []domain.Campaign {
	count := int(e.nextCampaign - 1)
	lo, hi := clampPage(count, offset, limit)
	out := make([]domain.Campaign, 0, hi-lo)
	for id := uint64(lo + 1); id <= uint64(hi); id++ {
		if c, ok := e.campaigns[id]; ok {
			out = append(out, *c)
		}
	}
	return out
}

// ActiveCampaigns returns every campaign still nominally Active.
// Deadline evaluation is lazy: a past-deadline campaign appears here
// until a donate or withdraw touches it.
func (e *Engine) ActiveCampaigns() []domain.Campaign {
	out := make([]domain.Campaign, 0)
	for id := uint64(1); id < e.nextCampaign; id++ {
		c, ok := e.campaigns[id]
		if ok && c.State == domain.StateActive {
			out = append(out, *c)
		}
	}
	return out
}

// CampaignCount returns the number of campaigns ever created.
func (e *Engine) CampaignCount() int { return int(e.nextCampaign - 1) }

// clampPage clamps an offset/limit window to [0, count].
func clampPage(count, offset, limit int) (lo, hi int) {
	if offset < 0 {
		offset = 0
	}
	if offset > count {
		offset = count
	}
	if limit <= 0 || offset+limit > count {
		return offset, count
	}
	return offset, offset + limit
}
