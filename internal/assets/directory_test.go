package assets

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/coretypes"
)

func addr(b byte) common.Address {
	var a common.Address
	a[19] = b
	return a
}

func TestMintAndOwnerOf(t *testing.T) {
	m := NewMemory()
	owner := addr(1)
	ctx := context.Background()

	if exists, _ := m.Exists(ctx, 1); exists {
		t.Fatalf("expected asset 1 not to exist before mint")
	}
	m.Mint(1, owner)
	if exists, _ := m.Exists(ctx, 1); !exists {
		t.Fatalf("expected asset 1 to exist after mint")
	}
	got, err := m.OwnerOf(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != owner {
		t.Fatalf("expected owner %s, got %s", owner.Hex(), got.Hex())
	}
}

func TestOwnerOfMissingAssetErrors(t *testing.T) {
	m := NewMemory()
	if _, err := m.OwnerOf(context.Background(), 99); err != coretypes.ErrAssetDoesNotExist {
		t.Fatalf("expected ErrAssetDoesNotExist, got %v", err)
	}
}

func TestTransfer(t *testing.T) {
	m := NewMemory()
	owner := addr(1)
	newOwner := addr(2)
	m.Mint(1, owner)
	if err := m.Transfer(1, newOwner); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := m.OwnerOf(context.Background(), 1)
	if got != newOwner {
		t.Fatalf("expected new owner %s, got %s", newOwner.Hex(), got.Hex())
	}
}

func TestTransferMissingAssetErrors(t *testing.T) {
	m := NewMemory()
	if err := m.Transfer(1, addr(2)); err != coretypes.ErrAssetDoesNotExist {
		t.Fatalf("expected ErrAssetDoesNotExist, got %v", err)
	}
}
