package token

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func addr(b byte) common.Address {
	var a common.Address
	a[19] = b
	return a
}

func TestTransferFromRequiresAllowance(t *testing.T) {
	m := NewMemory()
	from := addr(1)
	to := addr(2)
	m.Credit(from, big.NewInt(1000))

	ctx := context.Background()
	if err := m.TransferFrom(ctx, from, to, big.NewInt(100)); err == nil {
		t.Fatalf("expected transfer without allowance to fail")
	}
	m.Approve(from, to, big.NewInt(50))
	if err := m.TransferFrom(ctx, from, to, big.NewInt(100)); err == nil {
		t.Fatalf("expected transfer over allowance to fail")
	}
	if err := m.TransferFrom(ctx, from, to, big.NewInt(50)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bal, _ := m.BalanceOf(ctx, to)
	if bal.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("expected balance 50, got %s", bal)
	}
}

func TestTransferRequiresSufficientBalance(t *testing.T) {
	m := NewMemory()
	from := addr(1)
	to := addr(2)
	ctx := context.Background()
	if err := m.Transfer(ctx, from, to, big.NewInt(1)); err == nil {
		t.Fatalf("expected transfer from empty balance to fail")
	}
	m.Credit(from, big.NewInt(10))
	if err := m.Transfer(ctx, from, to, big.NewInt(10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fromBal, _ := m.BalanceOf(ctx, from)
	if fromBal.Sign() != 0 {
		t.Fatalf("expected sender balance to be drained, got %s", fromBal)
	}
}
