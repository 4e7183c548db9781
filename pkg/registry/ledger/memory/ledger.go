// Package memory provides an in-memory balance ledger.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tendant/simple-registry/pkg/registry"
)

// ErrInsufficientFunds is returned when the payer's balance is below the amount.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Ledger implements registry.Ledger over a balance map.
type Ledger struct {
	mu       sync.Mutex
	balances map[common.Address]uint64
}

var (
	_ registry.Ledger        = (*Ledger)(nil)
	_ registry.BalanceReader = (*Ledger)(nil)
)

// New creates a ledger seeded with the given balances.
func New(seed map[common.Address]uint64) *Ledger {
	l := &Ledger{balances: make(map[common.Address]uint64, len(seed))}
	for addr, amount := range seed {
		l.balances[addr] = amount
	}
	return l
}

// Deposit credits amount to owner.
func (l *Ledger) Deposit(owner common.Address, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[owner] += amount
}

func (l *Ledger) Balance(ctx context.Context, owner common.Address) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[owner], nil
}

func (l *Ledger) Transfer(ctx context.Context, from, to common.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if to == (common.Address{}) {
		return fmt.Errorf("transfer to zero address")
	}
	if l.balances[from] < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, from.Hex(), l.balances[from], amount)
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}
