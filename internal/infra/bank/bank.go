// Package bank provides the standalone daemon's currency collaborator:
// an in-process credit ledger the engine settles transfers against.
// Deployments fronted by a real payment rail replace this with their
// own Transferrer.
package bank

import (
	"log"
	"sync"
	"time"

	"github.com/fundhive-network/fundhive/internal/domain"
)

// Bank is a concurrency-safe credit ledger.
type Bank struct {
	mu       sync.Mutex
	balances map[domain.AccountID]domain.Amount
}

// New creates an empty bank.
func New() *Bank {
	return &Bank{balances: make(map[domain.AccountID]domain.Amount)}
}

// Transfer credits amount to the destination account.
func (b *Bank) Transfer(to domain.AccountID, amount domain.Amount) error {
	if to == domain.ZeroAccount {
		return domain.ErrZeroBeneficiary
	}
	b.mu.Lock()
	b.balances[to] += amount
	b.mu.Unlock()
	log.Printf("[bank] credited %d to %s", amount, to)
	return nil
}

// Balance returns an account's credited total.
func (b *Bank) Balance(account domain.AccountID) domain.Amount {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[account]
}

// ReceiptLog is a ReceiptMinter that journals mints to the process log.
type ReceiptLog struct{}

// MintReceipt records the receipt. Never fails.
func (ReceiptLog) MintReceipt(to domain.AccountID, campaignID uint64, title string, amount domain.Amount, at time.Time) error {
	log.Printf("[bank] receipt for %s: campaign %d (%s) amount %d at %s",
		to, campaignID, title, amount, at.Format(time.RFC3339))
	return nil
}
