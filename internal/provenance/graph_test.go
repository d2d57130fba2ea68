package provenance

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/assets"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/coretypes"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/roles"
)

func addr(b byte) common.Address {
	var a common.Address
	a[19] = b
	return a
}

func setup() (*Graphs, coretypes.Principal, coretypes.Principal) {
	admin := addr(1)
	owner := addr(2)
	contributor := addr(3)

	dir := assets.NewMemory()
	dir.Mint(1, owner)

	rg := roles.New(admin)
	_ = rg.Grant(admin, roles.Contributor, contributor)

	return New(dir, rg), owner, contributor
}

func TestAddContributorEdgeRequiresOwner(t *testing.T) {
	g, _, contributor := setup()
	ctx := context.Background()
	if err := g.AddContributorEdge(ctx, addr(9), 1, contributor, 5000); err != coretypes.ErrNotAssetOwner {
		t.Fatalf("expected ErrNotAssetOwner, got %v", err)
	}
}

func TestAddContributorEdgeRequiresContributorRole(t *testing.T) {
	g, owner, _ := setup()
	ctx := context.Background()
	if err := g.AddContributorEdge(ctx, owner, 1, addr(99), 5000); err != coretypes.ErrNotAContributor {
		t.Fatalf("expected ErrNotAContributor, got %v", err)
	}
}

func TestAddContributorEdgeRejectsOverAllocation(t *testing.T) {
	g, owner, contributor := setup()
	ctx := context.Background()
	if err := g.AddContributorEdge(ctx, owner, 1, contributor, 9000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.AddContributorEdge(ctx, owner, 1, contributor, 2000); err != coretypes.ErrTotalWeightExceeded {
		t.Fatalf("expected ErrTotalWeightExceeded, got %v", err)
	}
}

func TestFinalizeLocksGraph(t *testing.T) {
	g, owner, contributor := setup()
	ctx := context.Background()
	if err := g.AddContributorEdge(ctx, owner, 1, contributor, 10000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.Finalize(ctx, owner, 1); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if !g.IsFinalized(1) {
		t.Fatalf("expected graph to be finalized")
	}
	if err := g.AddContributorEdge(ctx, owner, 1, contributor, 1); err != coretypes.ErrGraphIsFinalized {
		t.Fatalf("expected ErrGraphIsFinalized, got %v", err)
	}
	if err := g.Finalize(ctx, owner, 1); err != coretypes.ErrGraphIsFinalized {
		t.Fatalf("expected double-finalize to fail, got %v", err)
	}
}

func TestFinalizeEmptyGraphPermitted(t *testing.T) {
	g, owner, _ := setup()
	ctx := context.Background()
	const emptyAsset coretypes.AssetID = 1
	if err := g.Finalize(ctx, owner, emptyAsset); err != nil {
		t.Fatalf("expected finalize of empty graph to succeed, got %v", err)
	}
}

func TestAddParentEdgeRequiresParentExists(t *testing.T) {
	g, owner, _ := setup()
	ctx := context.Background()
	if err := g.AddParentEdge(ctx, owner, 1, 999, 1000); err != coretypes.ErrAssetDoesNotExist {
		t.Fatalf("expected ErrAssetDoesNotExist, got %v", err)
	}
}

func TestAddContributorEdgeRejectsInvalidWeight(t *testing.T) {
	g, owner, contributor := setup()
	ctx := context.Background()
	if err := g.AddContributorEdge(ctx, owner, 1, contributor, 0); err != coretypes.ErrInvalidWeight {
		t.Fatalf("expected ErrInvalidWeight for zero weight, got %v", err)
	}
	if err := g.AddContributorEdge(ctx, owner, 1, contributor, 10001); err != coretypes.ErrInvalidWeight {
		t.Fatalf("expected ErrInvalidWeight for >10000 weight, got %v", err)
	}
}
