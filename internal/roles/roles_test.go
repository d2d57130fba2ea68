package roles

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/coretypes"
)

func addr(b byte) common.Address {
	var a common.Address
	a[19] = b
	return a
}

func TestGrantRequiresAdmin(t *testing.T) {
	admin := addr(1)
	other := addr(2)
	target := addr(3)

	g := New(admin)
	if err := g.Grant(other, Verifier, target); err == nil {
		t.Fatalf("expected non-admin grant to fail")
	}
	if err := g.Grant(admin, Verifier, target); err != nil {
		t.Fatalf("expected admin grant to succeed: %v", err)
	}
	if !g.Has(Verifier, target) {
		t.Fatalf("expected target to hold VERIFIER after grant")
	}
}

func TestGrantRejectsZeroAddress(t *testing.T) {
	admin := addr(1)
	g := New(admin)
	if err := g.Grant(admin, Verifier, common.Address{}); err == nil {
		t.Fatalf("expected zero-address grant to fail")
	}
}

func TestRevoke(t *testing.T) {
	admin := addr(1)
	target := addr(2)
	g := New(admin)
	if err := g.Grant(admin, Arbiter, target); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if err := g.Revoke(admin, Arbiter, target); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if g.Has(Arbiter, target) {
		t.Fatalf("expected target to no longer hold ARBITER")
	}
}

func TestPauseRequiresPauser(t *testing.T) {
	admin := addr(1)
	other := addr(2)
	g := New(admin)
	if err := g.Pause(other, "escrow"); err == nil {
		t.Fatalf("expected non-pauser pause to fail")
	}
	if err := g.Grant(admin, Pauser, admin); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if err := g.Pause(admin, "escrow"); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if !g.IsPaused("escrow") {
		t.Fatalf("expected escrow to be paused")
	}
	if err := g.RequireNotPaused("escrow"); err == nil {
		t.Fatalf("expected RequireNotPaused to fail while paused")
	}
	if err := g.RequireNotPaused("receipt_verifier"); err != nil {
		t.Fatalf("expected unrelated component to remain unpaused: %v", err)
	}
}

func TestRequireReturnsMissingRoleError(t *testing.T) {
	admin := addr(1)
	g := New(admin)
	err := g.Require(Verifier, addr(9))
	if _, ok := err.(*coretypes.MissingRoleError); !ok {
		t.Fatalf("expected *coretypes.MissingRoleError, got %T", err)
	}
}
