package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/fundhive-network/fundhive/internal/domain"
)

// ─── Helpers ────────────────────────────────────────────────────────────────

type testClock struct {
	at time.Time
}

func (c *testClock) Now() time.Time { return c.at }

func (c *testClock) Advance(d time.Duration) { c.at = c.at.Add(d) }

type transferCall struct {
	to     domain.AccountID
	amount domain.Amount
}

type mockTransfer struct {
	calls []transferCall
	fail  bool
}

func (m *mockTransfer) Transfer(to domain.AccountID, amount domain.Amount) error {
	if m.fail {
		return errors.New("transfer rejected")
	}
	m.calls = append(m.calls, transferCall{to: to, amount: amount})
	return nil
}

// received sums everything transferred to one account.
func (m *mockTransfer) received(to domain.AccountID) domain.Amount {
	var total domain.Amount
	for _, c := range m.calls {
		if c.to == to {
			total += c.amount
		}
	}
	return total
}

type mockMinter struct {
	mints int
	fail  bool
}

func (m *mockMinter) MintReceipt(domain.AccountID, uint64, string, domain.Amount, time.Time) error {
	if m.fail {
		return errors.New("mint rejected")
	}
	m.mints++
	return nil
}

// flakyStore satisfies Persister and fails every write while fail is
// set, for exercising persistence-failure paths.
type flakyStore struct {
	fail bool
}

func (s *flakyStore) err() error {
	if s.fail {
		return errors.New("disk full")
	}
	return nil
}

func (s *flakyStore) SaveCampaign(*domain.Campaign) error { return s.err() }
func (s *flakyStore) CommitCampaign(*domain.Campaign, *domain.MatchingRound) error {
	return s.err()
}
func (s *flakyStore) CommitDonation(*domain.Campaign, domain.Donation, *domain.MatchingRound) error {
	return s.err()
}
func (s *flakyStore) SaveRound(*domain.MatchingRound) error { return s.err() }
func (s *flakyStore) SaveVote(uint64, int, domain.AccountID, domain.Amount, bool) error {
	return s.err()
}
func (s *flakyStore) SaveRefundClaim(uint64, domain.AccountID, domain.Amount) error {
	return s.err()
}
func (s *flakyStore) SavePoolBalance(domain.Amount) error { return s.err() }
func (s *flakyStore) AppendEvent(Event) error             { return s.err() }

func newTestEngine(t *testing.T) (*Engine, *mockTransfer, *testClock) {
	t.Helper()
	clk := &testClock{at: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	transfer := &mockTransfer{}
	eng := New(DefaultConfig(), transfer, nil, nil)
	eng.now = clk.Now
	return eng, transfer, clk
}

func testInput(e *Engine) CampaignInput {
	return CampaignInput{
		Title:       "Clean Water",
		Description: "Wells for the valley",
		Goal:        10_000_000,
		Deadline:    e.now().Add(30 * 24 * time.Hour),
		Beneficiary: "bene",
	}
}

func mustCreate(t *testing.T, e *Engine, owner domain.AccountID) uint64 {
	t.Helper()
	id, err := e.CreateCampaign(owner, testInput(e))
	if err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	return id
}

func mustDonate(t *testing.T, e *Engine, donor domain.AccountID, id uint64, amount domain.Amount) {
	t.Helper()
	if err := e.Donate(donor, id, amount); err != nil {
		t.Fatalf("Donate(%s, %d, %d): %v", donor, id, amount, err)
	}
}

// ─── Execution Guard Tests ──────────────────────────────────────────────────

func TestGuard_RejectsHeldLock(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	mustCreate(t, eng, "alice")

	if !eng.locked.CompareAndSwap(false, true) {
		t.Fatal("could not hold the lock")
	}
	defer eng.locked.Store(false)

	if err := eng.Donate("bob", 1, 1_000_000); !errors.Is(err, domain.ErrReentrantCall) {
		t.Errorf("Donate under held lock = %v, want ErrReentrantCall", err)
	}
	if _, err := eng.CreateCampaign("alice", testInput(eng)); !errors.Is(err, domain.ErrReentrantCall) {
		t.Errorf("CreateCampaign under held lock = %v, want ErrReentrantCall", err)
	}
}

// reentrantTransfer calls back into the engine mid-transfer, the way a
// malicious currency hook would.
type reentrantTransfer struct {
	eng      *Engine
	innerErr error
}

func (r *reentrantTransfer) Transfer(domain.AccountID, domain.Amount) error {
	r.innerErr = r.eng.Donate("mallory", 1, 1_000_000)
	return nil
}

func TestGuard_ReentrantTransferFailsFast(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	mustCreate(t, eng, "alice")

	rt := &reentrantTransfer{eng: eng}
	eng.transfer = rt

	if err := eng.Donate("bob", 1, 1_000_000); err != nil {
		t.Fatalf("outer Donate: %v", err)
	}
	if !errors.Is(rt.innerErr, domain.ErrReentrantCall) {
		t.Errorf("inner call = %v, want ErrReentrantCall", rt.innerErr)
	}
}

func TestGuard_ReleasedAfterError(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	if err := eng.Donate("bob", 99, 1_000_000); !errors.Is(err, domain.ErrCampaignNotFound) {
		t.Fatalf("Donate = %v, want ErrCampaignNotFound", err)
	}
	// The failed call must not leave the lock held.
	mustCreate(t, eng, "alice")
}

// ─── Event Journal Tests ────────────────────────────────────────────────────

func TestEvents_RecordedInOrder(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	id := mustCreate(t, eng, "alice")
	mustDonate(t, eng, "bob", id, 1_000_000)

	evs := eng.Events(0)
	if len(evs) != 2 {
		t.Fatalf("event count = %d, want 2", len(evs))
	}
	if evs[0].Type != EventCampaignCreated {
		t.Errorf("first event = %s, want %s", evs[0].Type, EventCampaignCreated)
	}
	if evs[1].Type != EventDonationReceived {
		t.Errorf("second event = %s, want %s", evs[1].Type, EventDonationReceived)
	}
	if evs[1].Campaign != id || evs[1].Account != "bob" || evs[1].Amount != 1_000_000 {
		t.Errorf("donation event = %+v", evs[1])
	}
	if evs[0].ID == "" || evs[0].ID == evs[1].ID {
		t.Error("event IDs should be unique non-empty")
	}
}

func TestEvents_LimitReturnsNewest(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	id := mustCreate(t, eng, "alice")
	mustDonate(t, eng, "bob", id, 1_000_000)
	mustDonate(t, eng, "carol", id, 2_000_000)

	evs := eng.Events(1)
	if len(evs) != 1 {
		t.Fatalf("event count = %d, want 1", len(evs))
	}
	if evs[0].Account != "carol" {
		t.Errorf("newest event account = %s, want carol", evs[0].Account)
	}
}

// ─── Restore Tests ──────────────────────────────────────────────────────────

func TestRestore_RebuildsAggregates(t *testing.T) {
	eng, _, clk := newTestEngine(t)

	snap := RestoreState{
		Campaigns: []domain.Campaign{
			{ID: 3, Owner: "alice", Title: "Restored", Goal: 10_000_000,
				Raised: 3_000_000, Deadline: clk.at.Add(time.Hour),
				State: domain.StateActive, Beneficiary: "bene", DonationCount: 2},
		},
		Donations: map[uint64][]domain.Donation{
			3: {
				{Donor: "bob", Amount: 1_000_000, Timestamp: clk.at},
				{Donor: "bob", Amount: 2_000_000, Timestamp: clk.at},
			},
		},
		Rounds: []domain.MatchingRound{
			{ID: 2, Pool: 5_000_000, EndTime: clk.at.Add(time.Hour)},
		},
		Claims:      []ClaimRecord{{Campaign: 1, Donor: "dana", Amount: 500}},
		PoolBalance: 7_000_000,
	}
	eng.Restore(snap)

	if eng.CampaignCount() != 3 {
		t.Errorf("campaign count = %d, want 3 (IDs continue past restored max)", eng.CampaignCount())
	}
	if got := eng.donorTotalFor(3, "bob"); got != 3_000_000 {
		t.Errorf("donor total = %d, want 3000000", got)
	}
	stats := eng.DonorStats("bob")
	if stats.DonationCount != 2 || stats.TotalDonated != 3_000_000 {
		t.Errorf("donor stats = %+v", stats)
	}
	if eng.CurrentRound() != 2 {
		t.Errorf("current round = %d, want 2", eng.CurrentRound())
	}
	if eng.PoolBalance() != 7_000_000 {
		t.Errorf("pool balance = %d, want 7000000", eng.PoolBalance())
	}
	if _, claimed := eng.claims[refundKey{Campaign: 1, Donor: "dana"}]; !claimed {
		t.Error("restored claim marker missing")
	}

	// New IDs continue after the restored maximum.
	id := mustCreate(t, eng, "alice")
	if id != 4 {
		t.Errorf("next campaign ID = %d, want 4", id)
	}
}
