// Package token spec's the IToken external collaborator (spec §1, §6):
// USD-stablecoin transfer_from/transfer/balance_of. Real token transfers
// are out of scope; this package states the interface the core depends
// on and ships an in-memory double for tests and examples.
//
// Unlike a Solidity ERC-20, there is no implicit msg.sender in Go, so
// Transfer takes an explicit from address — the engine calls it with its
// own component addresses (Escrow's, a PaymentSplitter's) standing in for
// "transfer out of my own balance".
package token

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/coretypes"
)

// Token is the IToken boundary.
type Token interface {
	TransferFrom(ctx context.Context, from, to coretypes.Principal, amount *big.Int) error
	Transfer(ctx context.Context, from, to coretypes.Principal, amount *big.Int) error
	BalanceOf(ctx context.Context, who coretypes.Principal) (*big.Int, error)
}

// Memory is an in-memory Token double with allowance accounting, standing
// in for the real stablecoin contract.
type Memory struct {
	mu         sync.Mutex
	balances   map[coretypes.Principal]*big.Int
	allowances map[coretypes.Principal]map[coretypes.Principal]*big.Int
}

// NewMemory returns a Token double with zero balances.
func NewMemory() *Memory {
	return &Memory{
		balances:   make(map[coretypes.Principal]*big.Int),
		allowances: make(map[coretypes.Principal]map[coretypes.Principal]*big.Int),
	}
}

// Credit mints amount units to who, for test/example setup.
func (m *Memory) Credit(who coretypes.Principal, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addBalance(who, amount)
}

// Approve authorizes spender to pull up to amount from owner's balance,
// the pre-authorization the spec assumes the payer has already performed
// before signing a receipt (spec §4.6 step 5).
func (m *Memory) Approve(owner, spender coretypes.Principal, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.allowances[owner] == nil {
		m.allowances[owner] = make(map[coretypes.Principal]*big.Int)
	}
	m.allowances[owner][spender] = new(big.Int).Set(amount)
}

func (m *Memory) addBalance(who coretypes.Principal, amount *big.Int) {
	cur := m.balances[who]
	if cur == nil {
		cur = big.NewInt(0)
	}
	m.balances[who] = new(big.Int).Add(cur, amount)
}

func (m *Memory) BalanceOf(_ context.Context, who coretypes.Principal) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.balances[who]
	if cur == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(cur), nil
}

func (m *Memory) TransferFrom(_ context.Context, from, to coretypes.Principal, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	allowed := m.allowances[from][to]
	if allowed == nil || allowed.Cmp(amount) < 0 {
		return fmt.Errorf("token: insufficient allowance from %s to %s", from.Hex(), to.Hex())
	}
	bal := m.balances[from]
	if bal == nil || bal.Cmp(amount) < 0 {
		return fmt.Errorf("token: insufficient balance for %s", from.Hex())
	}
	m.balances[from] = new(big.Int).Sub(bal, amount)
	m.allowances[from][to] = new(big.Int).Sub(allowed, amount)
	m.addBalance(to, amount)
	return nil
}

func (m *Memory) Transfer(_ context.Context, from, to coretypes.Principal, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal := m.balances[from]
	if bal == nil || bal.Cmp(amount) < 0 {
		return fmt.Errorf("token: insufficient balance for %s", from.Hex())
	}
	m.balances[from] = new(big.Int).Sub(bal, amount)
	m.addBalance(to, amount)
	return nil
}
