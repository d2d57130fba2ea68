// Package conformance replays the end-to-end scenarios from spec §8 as
// data-driven fixtures against the real internal/engine wiring, grounded
// on the teacher's conformance/ directory (fixture JSON in, expected
// outcome out, run by go test) — so the specification's own worked
// examples are executable tests rather than prose a reviewer has to take
// on faith.
package conformance

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/assets"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/coretypes"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/engine"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/roles"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/token"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/typeddata"
)

// Dispute describes the fixture's optional dispute sub-scenario.
type Dispute struct {
	OpenBeforeRelease bool `json:"open_before_release"`
	RefundToUser      bool `json:"refund_to_user"`
}

// Expect is the set of outcomes a fixture may assert. Every field is
// optional; an empty error-string field means "no error expected".
type Expect struct {
	AddContributorEdgeError  string   `json:"add_contributor_edge_error"`
	CreateSplitterError      string   `json:"create_splitter_error"`
	VerifyAndPayError        string   `json:"verify_and_pay_error"`
	ReplayError              string   `json:"replay_error"`
	ReleaseError             string   `json:"release_error"`
	DisputeError             string   `json:"dispute_error"`
	ResolveError             string   `json:"resolve_error"`
	ContributorReleaseAmount []string `json:"contributor_release_amounts"`
	UserRefundAmount         string   `json:"user_refund_amount"`
}

// Fixture is the on-disk shape of a single conformance scenario.
type Fixture struct {
	Name                 string   `json:"name"`
	Description          string   `json:"description"`
	AdminKey             string   `json:"admin_key"`
	VerifierKey          string   `json:"verifier_key"`
	OwnerKey             string   `json:"owner_key"`
	ContributorKeys      []string `json:"contributor_keys"`
	ContributorWeights   []int    `json:"contributor_weights_bps"`
	UserKey              string   `json:"user_key"`
	ArbiterKey           string   `json:"arbiter_key"`
	FeeBps               int      `json:"fee_bps"`
	DisputeWindowSeconds int64    `json:"dispute_window_seconds"`
	PaymentAmount        string   `json:"payment_amount"`
	DeadlineOffsetSec    int64    `json:"deadline_offset_seconds"`
	Nonce                int64    `json:"nonce"`
	AdvanceSecBeforeRel  int64    `json:"advance_seconds_before_release"`
	ReplaySameReceipt    bool     `json:"replay_same_receipt"`
	SkipFinalize         bool     `json:"skip_finalize"`
	Dispute              *Dispute `json:"dispute"`
	Expect               Expect   `json:"expect"`
}

// Load reads and decodes a single fixture file.
func Load(path string) (Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, err
	}
	var f Fixture
	if err := json.Unmarshal(raw, &f); err != nil {
		return Fixture{}, err
	}
	return f, nil
}

func mustKey(hexkey string) (*ecdsa.PrivateKey, coretypes.Principal) {
	if hexkey == "" {
		return nil, coretypes.Principal{}
	}
	priv, err := crypto.HexToECDSA(strings.TrimPrefix(hexkey, "0x"))
	if err != nil {
		panic(err)
	}
	return priv, crypto.PubkeyToAddress(priv.PublicKey)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// clockBox lets a running scenario advance the engine's notion of "now"
// deterministically instead of depending on wall-clock sleeps.
type clockBox struct{ now time.Time }

func (c *clockBox) Now() time.Time { return c.now }

// Outcome is what Run actually observed, for the test harness to compare
// against Fixture.Expect.
type Outcome struct {
	AddContributorEdgeErr string
	CreateSplitterErr     string
	VerifyAndPayErr       string
	ReplayErr             string
	ReleaseErr            string
	DisputeErr            string
	ResolveErr            string
	ContributorBalances   []string
	UserRefundBalance     string
}

// Run replays f against a freshly wired Engine and returns what actually
// happened, component by component, in the same order spec §4 lists them:
// graph -> splitter -> receipt -> escrow.
func Run(f Fixture) Outcome {
	var out Outcome

	_, admin := mustKey(f.AdminKey)
	_, verifier := mustKey(f.VerifierKey)
	_, owner := mustKey(f.OwnerKey)
	var arbiter coretypes.Principal
	if f.ArbiterKey != "" {
		_, arbiter = mustKey(f.ArbiterKey)
	}

	contributors := make([]coretypes.Principal, len(f.ContributorKeys))
	for i, k := range f.ContributorKeys {
		_, contributors[i] = mustKey(k)
	}

	clock := &clockBox{now: time.Unix(1_700_000_000, 0)}
	tok := token.NewMemory()
	dir := assets.NewMemory()
	const assetID coretypes.AssetID = 1
	dir.Mint(assetID, owner)

	sink := coretypes.Principal{}
	sink[19] = 0xFE
	verifyingContract := coretypes.Principal{}
	verifyingContract[19] = 0xEE

	eng, err := engine.New(engine.Config{
		Admin:             admin,
		DisputeWindow:     time.Duration(f.DisputeWindowSeconds) * time.Second,
		EIP712Name:        "ConformanceEngine",
		EIP712Version:     "1",
		ChainID:           1,
		VerifyingContract: verifyingContract,
		InitialFeeBps:     coretypes.Bps(f.FeeBps),
		TreasurySink:      sink,
		Token:             tok,
		Assets:            dir,
		Clock:             clock.Now,
	}, nil)
	if err != nil {
		panic(err)
	}

	ctx := context.Background()

	if err := eng.Grant(admin, roles.Verifier, verifier); err != nil {
		panic(err)
	}
	if arbiter != (coretypes.Principal{}) {
		if err := eng.Grant(admin, roles.Arbiter, arbiter); err != nil {
			panic(err)
		}
	}
	for _, c := range contributors {
		if err := eng.Grant(admin, roles.Contributor, c); err != nil {
			panic(err)
		}
	}

	for i, c := range contributors {
		err := eng.AddContributorEdge(ctx, owner, assetID, c, coretypes.Bps(f.ContributorWeights[i]))
		if err != nil {
			out.AddContributorEdgeErr = errString(err)
			return out
		}
	}
	out.AddContributorEdgeErr = ""

	if !f.SkipFinalize {
		if err := eng.Finalize(ctx, owner, assetID); err != nil {
			panic(err)
		}
	}

	sp, err := eng.CreateSplitter(ctx, assetID)
	if err != nil {
		out.CreateSplitterErr = errString(err)
		return out
	}
	out.CreateSplitterErr = ""

	if f.UserKey == "" {
		return out
	}
	userPriv, user := mustKey(f.UserKey)
	amount, _ := new(big.Int).SetString(f.PaymentAmount, 10)
	tok.Credit(user, amount)
	tok.Approve(user, eng.EscrowAddress(), amount)

	receipt := typeddata.UsageReceipt{
		AssetID:  assetID,
		Amount:   amount,
		User:     user,
		Nonce:    big.NewInt(f.Nonce),
		Deadline: clock.now.Add(time.Duration(f.DeadlineOffsetSec) * time.Second).Unix(),
	}
	digest := eng.UsageReceiptDigest(receipt)
	sig, err := typeddata.Sign(digest, userPriv)
	if err != nil {
		panic(err)
	}

	paymentID, err := eng.VerifyAndPay(ctx, verifier, receipt, sig)
	out.VerifyAndPayErr = errString(err)
	if err != nil {
		return out
	}

	if f.ReplaySameReceipt {
		_, replayErr := eng.VerifyAndPay(ctx, verifier, receipt, sig)
		out.ReplayErr = errString(replayErr)
	}

	if f.Dispute != nil && f.Dispute.OpenBeforeRelease {
		out.DisputeErr = errString(eng.OpenDispute(ctx, user, paymentID, "quality dispute"))
		if out.DisputeErr != "" {
			return out
		}
		out.ResolveErr = errString(eng.ResolveDispute(ctx, arbiter, paymentID, f.Dispute.RefundToUser))
		bal, _ := tok.BalanceOf(ctx, user)
		out.UserRefundBalance = bal.String()
		return out
	}

	clock.now = clock.now.Add(time.Duration(f.AdvanceSecBeforeRel) * time.Second)
	out.ReleaseErr = errString(eng.Release(ctx, paymentID))
	if out.ReleaseErr != "" {
		return out
	}

	out.ContributorBalances = make([]string, len(contributors))
	for i, c := range contributors {
		if err := sp.Release(ctx, tok, c); err != nil {
			panic(err)
		}
		bal, _ := tok.BalanceOf(ctx, c)
		out.ContributorBalances[i] = bal.String()
	}
	return out
}
