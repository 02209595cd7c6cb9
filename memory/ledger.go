package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/edgeee/likeboard/board"
	"lukechampine.com/uint128"
)

// Ledger tracks settlement balances per (account, denom) in memory.
// Deposit credits the board's holding account with funds attached to a
// call; Send moves funds from the holding account to a recipient.
type Ledger struct {
	mu       sync.Mutex
	holding  string
	balances map[string]map[string]uint128.Uint128
}

func NewLedger(holding string) *Ledger {
	return &Ledger{
		holding:  holding,
		balances: make(map[string]map[string]uint128.Uint128),
	}
}

func (l *Ledger) Deposit(_ context.Context, amount board.Coin) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(l.holding, amount)
	return nil
}

func (l *Ledger) Send(_ context.Context, to string, amount board.Coin) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	held := l.balances[l.holding][amount.Denom]
	if held.Cmp(amount.Amount) < 0 {
		return fmt.Errorf("ledger: holding account has %s %s, cannot send %s", held, amount.Denom, amount)
	}
	l.balances[l.holding][amount.Denom] = held.Sub(amount.Amount)
	l.credit(to, amount)
	return nil
}

// Balance returns the balance of an account in the given denom, zero if
// the account has never been credited.
func (l *Ledger) Balance(_ context.Context, account, denom string) (uint128.Uint128, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account][denom], nil
}

func (l *Ledger) credit(account string, amount board.Coin) {
	if l.balances[account] == nil {
		l.balances[account] = make(map[string]uint128.Uint128)
	}
	l.balances[account][amount.Denom] = l.balances[account][amount.Denom].Add(amount.Amount)
}
