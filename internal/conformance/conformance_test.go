package conformance

import (
	"path/filepath"
	"testing"
)

func loadFixture(t *testing.T, name string) Fixture {
	t.Helper()
	f, err := Load(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("loading fixture %s: %v", name, err)
	}
	return f
}

func TestHappyPath(t *testing.T) {
	f := loadFixture(t, "happy_path.json")
	out := Run(f)
	if out.VerifyAndPayErr != f.Expect.VerifyAndPayError {
		t.Fatalf("verify_and_pay error: got %q, want %q", out.VerifyAndPayErr, f.Expect.VerifyAndPayError)
	}
	if out.ReleaseErr != f.Expect.ReleaseError {
		t.Fatalf("release error: got %q, want %q", out.ReleaseErr, f.Expect.ReleaseError)
	}
	if len(out.ContributorBalances) != len(f.Expect.ContributorReleaseAmount) {
		t.Fatalf("expected %d contributor balances, got %d", len(f.Expect.ContributorReleaseAmount), len(out.ContributorBalances))
	}
	for i, want := range f.Expect.ContributorReleaseAmount {
		if out.ContributorBalances[i] != want {
			t.Fatalf("contributor[%d] balance: got %s, want %s", i, out.ContributorBalances[i], want)
		}
	}
}

func TestExpiredReceipt(t *testing.T) {
	f := loadFixture(t, "expired_receipt.json")
	out := Run(f)
	if out.VerifyAndPayErr != f.Expect.VerifyAndPayError {
		t.Fatalf("verify_and_pay error: got %q, want %q", out.VerifyAndPayErr, f.Expect.VerifyAndPayError)
	}
}

func TestReplayAttack(t *testing.T) {
	f := loadFixture(t, "replay_attack.json")
	out := Run(f)
	if out.VerifyAndPayErr != f.Expect.VerifyAndPayError {
		t.Fatalf("verify_and_pay error: got %q, want %q", out.VerifyAndPayErr, f.Expect.VerifyAndPayError)
	}
	if out.ReplayErr != f.Expect.ReplayError {
		t.Fatalf("replay error: got %q, want %q", out.ReplayErr, f.Expect.ReplayError)
	}
}

func TestDisputeArbiterRefund(t *testing.T) {
	f := loadFixture(t, "dispute_arbiter_refund.json")
	out := Run(f)
	if out.VerifyAndPayErr != f.Expect.VerifyAndPayError {
		t.Fatalf("verify_and_pay error: got %q, want %q", out.VerifyAndPayErr, f.Expect.VerifyAndPayError)
	}
	if out.DisputeErr != f.Expect.DisputeError {
		t.Fatalf("dispute error: got %q, want %q", out.DisputeErr, f.Expect.DisputeError)
	}
	if out.ResolveErr != f.Expect.ResolveError {
		t.Fatalf("resolve error: got %q, want %q", out.ResolveErr, f.Expect.ResolveError)
	}
	if out.UserRefundBalance != f.Expect.UserRefundAmount {
		t.Fatalf("user refund balance: got %s, want %s", out.UserRefundBalance, f.Expect.UserRefundAmount)
	}
}

func TestOverAllocatedWeights(t *testing.T) {
	f := loadFixture(t, "over_allocated_weights.json")
	out := Run(f)
	if out.AddContributorEdgeErr != f.Expect.AddContributorEdgeError {
		t.Fatalf("add_contributor_edge error: got %q, want %q", out.AddContributorEdgeErr, f.Expect.AddContributorEdgeError)
	}
}

func TestSplitterBeforeFinalize(t *testing.T) {
	f := loadFixture(t, "splitter_before_finalize.json")
	out := Run(f)
	if out.CreateSplitterErr != f.Expect.CreateSplitterError {
		t.Fatalf("create_splitter error: got %q, want %q", out.CreateSplitterErr, f.Expect.CreateSplitterError)
	}
}
