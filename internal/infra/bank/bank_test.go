package bank

import (
	"testing"

	"github.com/fundhive-network/fundhive/internal/domain"
)

func TestTransferAccumulates(t *testing.T) {
	b := New()

	if err := b.Transfer("alice", 100); err != nil {
		t.Fatalf("Transfer() error: %v", err)
	}
	if err := b.Transfer("alice", 50); err != nil {
		t.Fatalf("Transfer() error: %v", err)
	}
	if got := b.Balance("alice"); got != 150 {
		t.Errorf("balance = %d, want 150", got)
	}
	if got := b.Balance("bob"); got != 0 {
		t.Errorf("untouched balance = %d, want 0", got)
	}
}

func TestTransfer_RejectsZeroAccount(t *testing.T) {
	b := New()
	if err := b.Transfer(domain.ZeroAccount, 100); err == nil {
		t.Error("Transfer to zero account should fail")
	}
}
