// Package engine implements the crowdfunding settlement engine: the
// campaign lifecycle state machine, the donation ledger and fee
// accounting, quadratic-funding matching, milestone governance, and
// withdrawal/refund settlement.
//
// The engine executes inside a deterministic, single-call-atomic host:
// caller identity arrives as an argument, time comes from an injectable
// clock, currency moves through a Transferrer collaborator, and every
// committed mutation appends to an ordered event log. Entry points run
// to completion one at a time; the only concurrency hazard is
// reentrancy, handled by an explicit acquire-or-fail lock (guard.go).
package engine

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fundhive-network/fundhive/internal/domain"
)

// ─── Collaborators ──────────────────────────────────────────────────────────

// Transferrer is the host's native-currency transfer primitive.
// A transfer either fully succeeds or reports an error; the engine
// never retries on its own.
type Transferrer interface {
	Transfer(to domain.AccountID, amount domain.Amount) error
}

// ReceiptMinter mints a donation-receipt token in an external system.
// Calls are best-effort: a mint failure never fails the donation, it is
// surfaced only through a ReceiptMintFailed event.
type ReceiptMinter interface {
	MintReceipt(to domain.AccountID, campaignID uint64, title string, amount domain.Amount, at time.Time) error
}

// Persister is the durable keyed storage behind the engine. Mutations
// that touch more than one row go through the Commit methods, which
// must apply all writes or none; the engine calls them before it
// commits the mutation to memory, so a persistence failure leaves both
// sides unchanged. A nil Persister runs the engine purely in memory.
type Persister interface {
	SaveCampaign(c *domain.Campaign) error
	CommitCampaign(c *domain.Campaign, r *domain.MatchingRound) error
	CommitDonation(c *domain.Campaign, d domain.Donation, r *domain.MatchingRound) error
	SaveRound(r *domain.MatchingRound) error
	SaveVote(campaignID uint64, index int, voter domain.AccountID, weight domain.Amount, approve bool) error
	SaveRefundClaim(campaignID uint64, donor domain.AccountID, amount domain.Amount) error
	SavePoolBalance(balance domain.Amount) error
	AppendEvent(e Event) error
}

// ─── Configuration ──────────────────────────────────────────────────────────

// Config holds the platform-wide settings. Admin and treasury are
// explicit fields on the engine instance, not ambient globals, so
// isolated instances can coexist in tests.
type Config struct {
	Admin       domain.AccountID // platform administrator account
	Treasury    domain.AccountID // receives the platform fee
	FeeBps      uint32           // platform fee in basis points
	MinDonation domain.Amount    // dust threshold
	MaxDonation domain.Amount    // single-donation ceiling
	GoalCeiling domain.Amount    // maximum campaign goal
	MaxBatch    int              // maximum batch operation size
}

// DefaultConfig returns the reference platform settings: a 3% fee and
// a 50-item batch ceiling.
func DefaultConfig() Config {
	return Config{
		Admin:       "admin",
		Treasury:    "treasury",
		FeeBps:      300,
		MinDonation: 1_000_000,
		MaxDonation: 1_000_000_000_000_000,
		GoalCeiling: 1_000_000_000_000_000_000,
		MaxBatch:    50,
	}
}

// ─── Engine ─────────────────────────────────────────────────────────────────

type refundKey struct {
	Campaign uint64
	Donor    domain.AccountID
}

type voteKey struct {
	Campaign uint64
	Index    int
	Voter    domain.AccountID
}

// Engine owns all durable platform state. It is not safe for parallel
// use: the host guarantees one entry point at a time, and the
// reentrancy guard rejects (never blocks) a call that arrives while
// another is in progress.
type Engine struct {
	cfg    Config
	locked atomic.Bool // reentrancy guard flag

	campaigns map[uint64]*domain.Campaign
	donations map[uint64][]domain.Donation                    // campaign id → append-only ledger
	donors    map[uint64]map[domain.AccountID]domain.Amount   // campaign id → donor → gross total
	claims    map[refundKey]domain.Amount                     // refund-claim markers
	votes     map[voteKey]domain.Amount                       // cast vote weights
	rounds    map[uint64]*domain.MatchingRound

	donorTotals map[domain.AccountID]domain.Amount // lifetime gross per donor
	donorCounts map[domain.AccountID]uint64

	poolBalance  domain.Amount
	currentRound uint64 // 0 = no round open
	nextCampaign uint64
	nextRound    uint64

	events []Event

	transfer Transferrer
	minter   ReceiptMinter
	store    Persister

	// Injectable clock for deterministic tests.
	now func() time.Time
}

// New creates an engine with the given collaborators. minter and store
// may be nil: receipts are then skipped and state is memory-only.
func New(cfg Config, transfer Transferrer, minter ReceiptMinter, store Persister) *Engine {
	return &Engine{
		cfg:          cfg,
		campaigns:    make(map[uint64]*domain.Campaign),
		donations:    make(map[uint64][]domain.Donation),
		donors:       make(map[uint64]map[domain.AccountID]domain.Amount),
		claims:       make(map[refundKey]domain.Amount),
		votes:        make(map[voteKey]domain.Amount),
		rounds:       make(map[uint64]*domain.MatchingRound),
		donorTotals:  make(map[domain.AccountID]domain.Amount),
		donorCounts:  make(map[domain.AccountID]uint64),
		nextCampaign: 1,
		nextRound:    1,
		transfer:     transfer,
		minter:       minter,
		store:        store,
		now:          time.Now,
	}
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config { return e.cfg }

// PoolBalance returns the undistributed matching-pool balance.
func (e *Engine) PoolBalance() domain.Amount { return e.poolBalance }

// CurrentRound returns the id of the open matching round, or 0.
func (e *Engine) CurrentRound() uint64 { return e.currentRound }

// isAdmin reports whether the caller is the platform admin.
func (e *Engine) isAdmin(caller domain.AccountID) bool {
	return caller == e.cfg.Admin
}

// campaign fetches a campaign or returns ErrCampaignNotFound.
func (e *Engine) campaign(id uint64) (*domain.Campaign, error) {
	c, ok := e.campaigns[id]
	if !ok {
		return nil, domain.ErrCampaignNotFound
	}
	return c, nil
}

// setState applies a lifecycle transition, enforcing monotonicity, and
// records the CampaignStateChanged event.
func (e *Engine) setState(c *domain.Campaign, to domain.CampaignState) error {
	if !c.State.CanTransition(to) {
		return fmt.Errorf("%w: %s cannot become %s", domain.ErrInvalidTransition, c.State, to)
	}
	c.State = to
	e.emit(Event{Type: EventCampaignStateChanged, Campaign: c.ID, State: to})
	campaignStateChanges.WithLabelValues(string(to)).Inc()
	return nil
}

// persistCampaign writes a campaign through to durable storage.
func (e *Engine) persistCampaign(c *domain.Campaign) error {
	if e.store == nil {
		return nil
	}
	if err := e.store.SaveCampaign(c); err != nil {
		return fmt.Errorf("persist campaign %d: %w", c.ID, err)
	}
	return nil
}
