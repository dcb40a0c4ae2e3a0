package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/fundhive-network/fundhive/internal/domain"
)

// ─── Donation Tests ─────────────────────────────────────────────────────────

func TestDonate_FeeSplit(t *testing.T) {
	eng, transfer, _ := newTestEngine(t)
	id := mustCreate(t, eng, "alice")

	mustDonate(t, eng, "bob", id, 1_000_000)

	// 3% of the gross goes to the treasury at donation time; the ledger
	// and the raised total keep the gross.
	if got := transfer.received(eng.cfg.Treasury); got != 30_000 {
		t.Errorf("treasury received %d, want 30000", got)
	}
	c, _ := eng.GetCampaign(id)
	if c.Raised != 1_000_000 {
		t.Errorf("raised = %d, want gross 1000000", c.Raised)
	}
	if c.DonationCount != 1 {
		t.Errorf("donation count = %d, want 1", c.DonationCount)
	}
}

func TestDonate_AmountBounds(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	id := mustCreate(t, eng, "alice")

	if err := eng.Donate("bob", id, eng.cfg.MinDonation-1); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("below min = %v, want ErrInvalidAmount", err)
	}
	if err := eng.Donate("bob", id, eng.cfg.MaxDonation+1); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("above max = %v, want ErrInvalidAmount", err)
	}
	if err := eng.Donate("bob", id, eng.cfg.MinDonation); err != nil {
		t.Errorf("exact min rejected: %v", err)
	}
}

func TestDonate_LedgerSumEqualsRaised(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	id := mustCreate(t, eng, "alice")

	amounts := []domain.Amount{1_000_000, 2_500_000, 1_000_000, 3_333_333}
	for _, a := range amounts {
		mustDonate(t, eng, "bob", id, a)
	}

	var sum domain.Amount
	for _, d := range eng.donations[id] {
		sum += d.Amount
	}
	c, _ := eng.GetCampaign(id)
	if sum != c.Raised {
		t.Errorf("ledger sum %d != raised %d", sum, c.Raised)
	}
	if got := eng.donorTotalFor(id, "bob"); got != sum {
		t.Errorf("donor total %d != ledger sum %d", got, sum)
	}
}

func TestDonate_GoalReachedFlipsSuccessful(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	id := mustCreate(t, eng, "alice") // goal 10_000_000

	mustDonate(t, eng, "bob", id, 9_000_000)
	c, _ := eng.GetCampaign(id)
	if c.State != domain.StateActive {
		t.Fatalf("state below goal = %s, want ACTIVE", c.State)
	}

	// The donation that lands exactly on the goal flips the state.
	mustDonate(t, eng, "carol", id, 1_000_000)
	c, _ = eng.GetCampaign(id)
	if c.State != domain.StateSuccessful {
		t.Errorf("state at goal = %s, want SUCCESSFUL", c.State)
	}

	if err := eng.Donate("dana", id, 1_000_000); !errors.Is(err, domain.ErrCampaignNotActive) {
		t.Errorf("donate after success = %v, want ErrCampaignNotActive", err)
	}
}

func TestDonate_PastDeadlineFailsCampaign(t *testing.T) {
	eng, _, clk := newTestEngine(t)
	id := mustCreate(t, eng, "alice")

	clk.Advance(31 * 24 * time.Hour)

	err := eng.Donate("bob", id, 1_000_000)
	if !errors.Is(err, domain.ErrDeadlinePassed) {
		t.Fatalf("err = %v, want ErrDeadlinePassed", err)
	}
	// Lazy evaluation: the rejected donation is what retired the campaign.
	c, _ := eng.GetCampaign(id)
	if c.State != domain.StateFailed {
		t.Errorf("state = %s, want FAILED", c.State)
	}
	if c.Raised != 0 || c.DonationCount != 0 {
		t.Errorf("rejected donation left raised = %d count = %d", c.Raised, c.DonationCount)
	}
}

func TestDonate_AtDeadlineInstantAccepted(t *testing.T) {
	eng, _, clk := newTestEngine(t)
	id := mustCreate(t, eng, "alice")

	clk.Advance(30 * 24 * time.Hour) // exactly the deadline
	if err := eng.Donate("bob", id, 1_000_000); err != nil {
		t.Errorf("donation at the deadline instant rejected: %v", err)
	}
}

func TestDonate_TransferFailureRejects(t *testing.T) {
	eng, transfer, _ := newTestEngine(t)
	id := mustCreate(t, eng, "alice")

	transfer.fail = true
	if err := eng.Donate("bob", id, 1_000_000); !errors.Is(err, domain.ErrTransferFailed) {
		t.Fatalf("err = %v, want ErrTransferFailed", err)
	}
	c, _ := eng.GetCampaign(id)
	if c.Raised != 0 || len(eng.donations[id]) != 0 {
		t.Error("failed fee transfer left ledger state behind")
	}
}

func TestDonate_NotFound(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	if err := eng.Donate("bob", 7, 1_000_000); !errors.Is(err, domain.ErrCampaignNotFound) {
		t.Errorf("err = %v, want ErrCampaignNotFound", err)
	}
}

// ─── Receipt Mint Tests ─────────────────────────────────────────────────────

func TestDonate_MintReceipt(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	minter := &mockMinter{}
	eng.minter = minter
	id := mustCreate(t, eng, "alice")

	mustDonate(t, eng, "bob", id, 1_000_000)
	if minter.mints != 1 {
		t.Errorf("mints = %d, want 1", minter.mints)
	}
}

func TestDonate_MintFailureIsBestEffort(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	eng.minter = &mockMinter{fail: true}
	id := mustCreate(t, eng, "alice")

	// The donation still succeeds; only an event records the mint failure.
	mustDonate(t, eng, "bob", id, 1_000_000)
	c, _ := eng.GetCampaign(id)
	if c.Raised != 1_000_000 {
		t.Errorf("raised = %d, want 1000000", c.Raised)
	}

	evs := eng.Events(1)
	if len(evs) != 1 || evs[0].Type != EventReceiptMintFailed {
		t.Errorf("last event = %+v, want ReceiptMintFailed", evs)
	}
}

// ─── Donor Statistics Tests ─────────────────────────────────────────────────

func TestDonorStats(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	a := mustCreate(t, eng, "alice")
	b := mustCreate(t, eng, "alice")

	mustDonate(t, eng, "bob", a, 1_000_000)
	mustDonate(t, eng, "bob", b, 2_000_000)

	stats := eng.DonorStats("bob")
	if stats.DonationCount != 2 || stats.TotalDonated != 3_000_000 {
		t.Errorf("stats = %+v", stats)
	}
	if empty := eng.DonorStats("nobody"); empty.DonationCount != 0 || empty.TotalDonated != 0 {
		t.Errorf("unknown donor stats = %+v", empty)
	}
}

func TestLeaderboard(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	id := mustCreate(t, eng, "alice")

	mustDonate(t, eng, "carol", id, 3_000_000)
	mustDonate(t, eng, "bob", id, 1_000_000)
	mustDonate(t, eng, "dana", id, 3_000_000)

	top := eng.Leaderboard(2)
	if len(top) != 2 {
		t.Fatalf("leaderboard length = %d, want 2", len(top))
	}
	// Equal totals break ties by account, ascending.
	if top[0].Account != "carol" || top[1].Account != "dana" {
		t.Errorf("leaderboard = %s, %s", top[0].Account, top[1].Account)
	}
}

func TestDonate_PersistFailureLeavesLedgerUnchanged(t *testing.T) {
	eng, transfer, _ := newTestEngine(t)
	store := &flakyStore{}
	eng.store = store
	id := mustCreate(t, eng, "alice")

	store.fail = true
	if err := eng.Donate("bob", id, 2_000_000); err == nil {
		t.Fatal("expected persist failure to surface")
	}
	c, err := eng.GetCampaign(id)
	if err != nil {
		t.Fatal(err)
	}
	if c.Raised != 0 || c.DonationCount != 0 {
		t.Errorf("raised = %d count = %d, want 0/0 after persist failure", c.Raised, c.DonationCount)
	}
	if len(eng.donations[id]) != 0 {
		t.Errorf("ledger entries = %d, want 0", len(eng.donations[id]))
	}
	if stats := eng.DonorStats("bob"); stats.TotalDonated != 0 || stats.DonationCount != 0 {
		t.Errorf("donor stats after persist failure = %+v", stats)
	}

	// A retry against a recovered store records the donation once.
	store.fail = false
	mustDonate(t, eng, "bob", id, 2_000_000)
	c, _ = eng.GetCampaign(id)
	if c.Raised != 2_000_000 || c.DonationCount != 1 {
		t.Errorf("raised = %d count = %d after retry", c.Raised, c.DonationCount)
	}
	if got := transfer.received(eng.cfg.Treasury); got != 2*60_000 {
		t.Errorf("treasury received %d, want both fee transfers", got)
	}
}

func TestDonate_PersistFailureSkipsRoundEnrollment(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	store := &flakyStore{}
	eng.store = store
	id := mustCreate(t, eng, "alice")

	if err := eng.FundMatchingPool(eng.cfg.Admin, 5_000_000); err != nil {
		t.Fatal(err)
	}
	roundID, err := eng.CreateMatchingRound(eng.cfg.Admin, 5_000_000, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	store.fail = true
	if err := eng.Donate("bob", id, 1_000_000); err == nil {
		t.Fatal("expected persist failure to surface")
	}
	c, _ := eng.GetCampaign(id)
	if c.MatchingRound != 0 {
		t.Errorf("campaign tagged with round %d after persist failure", c.MatchingRound)
	}
	if r, _ := eng.GetRound(roundID); len(r.Campaigns) != 0 {
		t.Errorf("round participants = %v, want none", r.Campaigns)
	}

	store.fail = false
	mustDonate(t, eng, "bob", id, 1_000_000)
	c, _ = eng.GetCampaign(id)
	if c.MatchingRound != roundID {
		t.Errorf("campaign round = %d, want %d", c.MatchingRound, roundID)
	}
	if r, _ := eng.GetRound(roundID); len(r.Campaigns) != 1 || r.Campaigns[0] != id {
		t.Errorf("round participants = %v", r.Campaigns)
	}
}
