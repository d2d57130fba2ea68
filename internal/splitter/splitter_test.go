package splitter

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/assets"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/coretypes"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/provenance"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/roles"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/token"
)

func addr(b byte) common.Address {
	var a common.Address
	a[19] = b
	return a
}

func finalizedGraph(t *testing.T, weights map[common.Address]coretypes.Bps) (*provenance.Graphs, coretypes.AssetID) {
	t.Helper()
	admin := addr(1)
	owner := addr(2)
	const assetID coretypes.AssetID = 7

	dir := assets.NewMemory()
	dir.Mint(assetID, owner)
	rg := roles.New(admin)

	graphs := provenance.New(dir, rg)
	ctx := context.Background()
	for payee, weight := range weights {
		if err := rg.Grant(admin, roles.Contributor, payee); err != nil {
			t.Fatalf("grant failed: %v", err)
		}
		if err := graphs.AddContributorEdge(ctx, owner, assetID, payee, weight); err != nil {
			t.Fatalf("add edge failed: %v", err)
		}
	}
	if err := graphs.Finalize(ctx, owner, assetID); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	return graphs, assetID
}

func TestCreateSplitterRequiresFinalizedGraph(t *testing.T) {
	dir := assets.NewMemory()
	dir.Mint(1, addr(2))
	rg := roles.New(addr(1))
	graphs := provenance.New(dir, rg)
	f := New(graphs)
	if _, err := f.CreateSplitter(1); err != coretypes.ErrGraphNotFinalized {
		t.Fatalf("expected ErrGraphNotFinalized, got %v", err)
	}
}

func TestCreateSplitterRejectsEmptyContributorSet(t *testing.T) {
	graphs, assetID := finalizedGraph(t, nil)
	f := New(graphs)
	if _, err := f.CreateSplitter(assetID); err != coretypes.ErrNoContributors {
		t.Fatalf("expected ErrNoContributors, got %v", err)
	}
}

func TestCreateSplitterIsOneShot(t *testing.T) {
	contributor := addr(5)
	graphs, assetID := finalizedGraph(t, map[common.Address]coretypes.Bps{contributor: 10000})
	f := New(graphs)
	if _, err := f.CreateSplitter(assetID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.CreateSplitter(assetID); err != coretypes.ErrSplitterAlreadyExists {
		t.Fatalf("expected ErrSplitterAlreadyExists, got %v", err)
	}
}

func TestReleaseSplitsProportionally(t *testing.T) {
	alice := addr(10)
	bob := addr(11)
	graphs, assetID := finalizedGraph(t, map[common.Address]coretypes.Bps{alice: 7000, bob: 3000})
	f := New(graphs)
	sp, err := f.CreateSplitter(assetID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tok := token.NewMemory()
	tok.Credit(sp.Address(), big.NewInt(1000))

	ctx := context.Background()
	if err := sp.Release(ctx, tok, alice); err != nil {
		t.Fatalf("release to alice failed: %v", err)
	}
	if err := sp.Release(ctx, tok, bob); err != nil {
		t.Fatalf("release to bob failed: %v", err)
	}

	aliceBal, _ := tok.BalanceOf(ctx, alice)
	bobBal, _ := tok.BalanceOf(ctx, bob)
	if aliceBal.Cmp(big.NewInt(700)) != 0 {
		t.Fatalf("expected alice to receive 700, got %s", aliceBal)
	}
	if bobBal.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("expected bob to receive 300, got %s", bobBal)
	}
}

func TestReleaseIsIdempotentAfterFullPayout(t *testing.T) {
	alice := addr(10)
	graphs, assetID := finalizedGraph(t, map[common.Address]coretypes.Bps{alice: 10000})
	f := New(graphs)
	sp, _ := f.CreateSplitter(assetID)

	tok := token.NewMemory()
	tok.Credit(sp.Address(), big.NewInt(500))

	ctx := context.Background()
	if err := sp.Release(ctx, tok, alice); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// A second release with no new funds received should be a no-op.
	if err := sp.Release(ctx, tok, alice); err != nil {
		t.Fatalf("unexpected error on second release: %v", err)
	}
	bal, _ := tok.BalanceOf(ctx, alice)
	if bal.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expected alice balance to remain 500, got %s", bal)
	}
}

func TestStatementReportsReleasableBeforeRelease(t *testing.T) {
	alice := addr(10)
	bob := addr(11)
	graphs, assetID := finalizedGraph(t, map[common.Address]coretypes.Bps{alice: 7000, bob: 3000})
	f := New(graphs)
	sp, _ := f.CreateSplitter(assetID)

	tok := token.NewMemory()
	tok.Credit(sp.Address(), big.NewInt(1000))

	ctx := context.Background()
	st, err := sp.Statement(ctx, tok, alice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Shares != 7000 {
		t.Fatalf("expected shares 7000, got %d", st.Shares)
	}
	if st.Releasable.Cmp(big.NewInt(700)) != 0 {
		t.Fatalf("expected releasable 700, got %s", st.Releasable)
	}
	if st.Released.Sign() != 0 {
		t.Fatalf("expected released 0 before any release, got %s", st.Released)
	}

	if err := sp.Release(ctx, tok, alice); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	st, err = sp.Statement(ctx, tok, alice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Releasable.Sign() != 0 {
		t.Fatalf("expected releasable 0 after full release, got %s", st.Releasable)
	}
	if st.Released.Cmp(big.NewInt(700)) != 0 {
		t.Fatalf("expected released 700, got %s", st.Released)
	}
}

func TestStatementForNonContributorReportsZeroShares(t *testing.T) {
	alice := addr(10)
	graphs, assetID := finalizedGraph(t, map[common.Address]coretypes.Bps{alice: 10000})
	f := New(graphs)
	sp, _ := f.CreateSplitter(assetID)
	tok := token.NewMemory()

	st, err := sp.Statement(context.Background(), tok, addr(99))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Shares != 0 || st.Releasable.Sign() != 0 {
		t.Fatalf("expected zero shares/releasable for non-contributor, got %+v", st)
	}
}

func TestReleaseRejectsNonContributor(t *testing.T) {
	alice := addr(10)
	graphs, assetID := finalizedGraph(t, map[common.Address]coretypes.Bps{alice: 10000})
	f := New(graphs)
	sp, _ := f.CreateSplitter(assetID)
	tok := token.NewMemory()
	if err := sp.Release(context.Background(), tok, addr(99)); err != coretypes.ErrNotAContributor {
		t.Fatalf("expected ErrNotAContributor, got %v", err)
	}
}
