package engine

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fundhive-network/fundhive/internal/domain"
)

// ─── Withdrawal Tests ───────────────────────────────────────────────────────

func TestWithdraw_Successful(t *testing.T) {
	eng, transfer, _ := newTestEngine(t)
	id := mustCreate(t, eng, "alice") // goal 10_000_000

	mustDonate(t, eng, "bob", id, 10_000_000)

	if err := eng.Withdraw("alice", id); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	// Net payable is gross minus the 3% fee re-derived from the gross.
	if got := transfer.received("bene"); got != 9_700_000 {
		t.Errorf("beneficiary received %d, want 9700000", got)
	}
	c, _ := eng.GetCampaign(id)
	if c.State != domain.StateWithdrawn {
		t.Errorf("state = %s, want WITHDRAWN", c.State)
	}

	if err := eng.Withdraw("alice", id); !errors.Is(err, domain.ErrAlreadyWithdrawn) {
		t.Errorf("second withdraw = %v, want ErrAlreadyWithdrawn", err)
	}
}

func TestWithdraw_NotOwner(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	id := mustCreate(t, eng, "alice")
	mustDonate(t, eng, "bob", id, 10_000_000)

	if err := eng.Withdraw("bob", id); !errors.Is(err, domain.ErrNotOwner) {
		t.Errorf("err = %v, want ErrNotOwner", err)
	}
	if err := eng.Withdraw(eng.cfg.Admin, id); err != nil {
		t.Errorf("admin withdraw: %v", err)
	}
}

func TestWithdraw_BeforeDeadlineUnsuccessful(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	id := mustCreate(t, eng, "alice")
	mustDonate(t, eng, "bob", id, 1_000_000)

	if err := eng.Withdraw("alice", id); !errors.Is(err, domain.ErrDeadlineNotReached) {
		t.Errorf("err = %v, want ErrDeadlineNotReached", err)
	}
}

func TestWithdraw_PartialAfterDeadline(t *testing.T) {
	eng, transfer, clk := newTestEngine(t)
	id := mustCreate(t, eng, "alice")
	mustDonate(t, eng, "bob", id, 4_000_000) // below the 10M goal

	clk.Advance(31 * 24 * time.Hour)

	// Partly funded past the deadline: the campaign fails, the funds
	// still settle to the beneficiary net of fee.
	if err := eng.Withdraw("alice", id); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if got := transfer.received("bene"); got != 3_880_000 {
		t.Errorf("beneficiary received %d, want 3880000", got)
	}
	c, _ := eng.GetCampaign(id)
	if c.State != domain.StateWithdrawn {
		t.Errorf("state = %s, want WITHDRAWN", c.State)
	}
}

func TestWithdraw_ZeroRaisedFailsTerminally(t *testing.T) {
	eng, transfer, clk := newTestEngine(t)
	id := mustCreate(t, eng, "alice")

	clk.Advance(31 * 24 * time.Hour)

	// Nothing raised: not an error, no transfer, terminal Failed.
	if err := eng.Withdraw("alice", id); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if len(transfer.calls) != 0 {
		t.Errorf("zero-raised withdraw made %d transfers", len(transfer.calls))
	}
	c, _ := eng.GetCampaign(id)
	if c.State != domain.StateFailed {
		t.Errorf("state = %s, want FAILED", c.State)
	}
}

func TestWithdraw_IncludesMatchingAmount(t *testing.T) {
	eng, transfer, _ := newTestEngine(t)
	id := mustCreate(t, eng, "alice")
	mustDonate(t, eng, "bob", id, 10_000_000)

	eng.campaigns[id].MatchingAmount = 2_000_000

	if err := eng.Withdraw("alice", id); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if got := transfer.received("bene"); got != 11_700_000 {
		t.Errorf("beneficiary received %d, want 11700000", got)
	}
}

func TestWithdraw_TransferFailure(t *testing.T) {
	eng, transfer, _ := newTestEngine(t)
	id := mustCreate(t, eng, "alice")
	mustDonate(t, eng, "bob", id, 10_000_000)

	transfer.fail = true
	if err := eng.Withdraw("alice", id); !errors.Is(err, domain.ErrTransferFailed) {
		t.Fatalf("err = %v, want ErrTransferFailed", err)
	}
	// A failed transfer leaves the campaign withdrawable.
	c, _ := eng.GetCampaign(id)
	if c.State != domain.StateSuccessful {
		t.Errorf("state = %s, want SUCCESSFUL", c.State)
	}
	transfer.fail = false
	if err := eng.Withdraw("alice", id); err != nil {
		t.Errorf("retry after transfer failure: %v", err)
	}
}

func TestWithdrawBatch(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	a := mustCreate(t, eng, "alice")
	b := mustCreate(t, eng, "alice")
	mustDonate(t, eng, "bob", a, 10_000_000)
	// b stays active and below goal: its withdraw fails in the tally.

	res, err := eng.WithdrawBatch("alice", []uint64{a, b, 99})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if res.Successful != 1 || res.Failed != 2 {
		t.Errorf("tally = %d/%d, want 1/2", res.Successful, res.Failed)
	}
	if len(res.SuccessIDs) != 1 || res.SuccessIDs[0] != a {
		t.Errorf("success IDs = %v", res.SuccessIDs)
	}
	for _, msg := range res.Errors {
		if !strings.HasPrefix(msg, "campaign ") {
			t.Errorf("error message %q missing campaign prefix", msg)
		}
	}
}

func TestWithdrawBatch_Oversize(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	ids := make([]uint64, eng.cfg.MaxBatch+1)
	if _, err := eng.WithdrawBatch("alice", ids); !errors.Is(err, domain.ErrBatchTooLarge) {
		t.Errorf("err = %v, want ErrBatchTooLarge", err)
	}
}

// ─── Refund Tests ───────────────────────────────────────────────────────────

func TestClaimRefund(t *testing.T) {
	eng, transfer, _ := newTestEngine(t)
	id := mustCreate(t, eng, "alice")
	mustDonate(t, eng, "bob", id, 1_000_000)
	mustDonate(t, eng, "bob", id, 2_000_000)

	if err := eng.Cancel("alice", id); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if err := eng.ClaimRefund("bob", id); err != nil {
		t.Fatalf("claim: %v", err)
	}
	// Refund returns the gross total across all of the donor's donations.
	if got := transfer.received("bob"); got != 3_000_000 {
		t.Errorf("refunded %d, want gross 3000000", got)
	}

	if err := eng.ClaimRefund("bob", id); !errors.Is(err, domain.ErrAlreadyClaimed) {
		t.Errorf("second claim = %v, want ErrAlreadyClaimed", err)
	}
}

func TestClaimRefund_Preconditions(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	id := mustCreate(t, eng, "alice")
	mustDonate(t, eng, "bob", id, 1_000_000)

	if err := eng.ClaimRefund("bob", id); !errors.Is(err, domain.ErrCampaignNotFailed) {
		t.Errorf("claim while active = %v, want ErrCampaignNotFailed", err)
	}

	if err := eng.Cancel("alice", id); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := eng.ClaimRefund("carol", id); !errors.Is(err, domain.ErrNoDonation) {
		t.Errorf("non-donor claim = %v, want ErrNoDonation", err)
	}
	if err := eng.ClaimRefund("bob", 99); !errors.Is(err, domain.ErrCampaignNotFound) {
		t.Errorf("unknown campaign = %v, want ErrCampaignNotFound", err)
	}
}

func TestClaimRefund_TransferFailureRollsBack(t *testing.T) {
	eng, transfer, _ := newTestEngine(t)
	id := mustCreate(t, eng, "alice")
	mustDonate(t, eng, "bob", id, 1_000_000)
	if err := eng.Cancel("alice", id); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	transfer.fail = true
	if err := eng.ClaimRefund("bob", id); !errors.Is(err, domain.ErrTransferFailed) {
		t.Fatalf("err = %v, want ErrTransferFailed", err)
	}

	// The claim marker rolled back, so the donor may retry.
	transfer.fail = false
	if err := eng.ClaimRefund("bob", id); err != nil {
		t.Errorf("retry after transfer failure: %v", err)
	}
	if got := transfer.received("bob"); got != 1_000_000 {
		t.Errorf("refunded %d, want 1000000", got)
	}
}
