// Package receipt implements ReceiptVerifier (spec §4.6): typed-data
// signature verification, nonce-based replay protection, and the fund
// pull that hands a verified receipt off to Escrow.
package receipt

import (
	"context"
	"math/big"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/coretypes"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/escrow"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/roles"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/splitter"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/telemetry"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/token"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/typeddata"
)

// PauseComponent is the RolesGate pause-flag key this package checks
// (spec §4.6 "gated by VERIFIER role, !paused").
const PauseComponent = "receipt_verifier"

// SplitterLookup resolves the materialized splitter for an asset (spec
// §4.6 step 4). Satisfied by *splitter.Factory.
type SplitterLookup interface {
	SplitterOf(asset coretypes.AssetID) (*splitter.Splitter, bool)
}

// EscrowHold is the hand-off Escrow performs on a verified receipt (spec
// §4.6 step 7). Satisfied by *escrow.Escrow.
type EscrowHold interface {
	HoldPayment(ctx context.Context, caller coretypes.Principal, asset coretypes.AssetID, user coretypes.Principal, amount *big.Int, splitterRef escrow.Splitter) (coretypes.PaymentID, error)
}

// Verifier is the ReceiptVerifier collaborator.
type Verifier struct {
	mu         sync.Mutex
	domain     typeddata.Domain
	rolesGate  *roles.Gate
	splitters  SplitterLookup
	tok        token.Token
	esc        EscrowHold
	events     *telemetry.Sink
	self       coretypes.Principal
	clock      func() time.Time
	nonces     map[coretypes.Principal]*big.Int
	seenDigest *lru.Cache[[32]byte, struct{}]
}

// New returns a Verifier for domain, pulling funds into self (the
// account Escrow later distributes from) via tok.
func New(domain typeddata.Domain, rolesGate *roles.Gate, splitters SplitterLookup, tok token.Token, esc EscrowHold, events *telemetry.Sink, self coretypes.Principal, clock func() time.Time) *Verifier {
	cache, _ := lru.New[[32]byte, struct{}](4096)
	return &Verifier{
		domain:     domain,
		rolesGate:  rolesGate,
		splitters:  splitters,
		tok:        tok,
		esc:        esc,
		events:     events,
		self:       self,
		clock:      clock,
		nonces:     make(map[coretypes.Principal]*big.Int),
		seenDigest: cache,
	}
}

// Domain returns the EIP-712 domain this verifier checks signatures
// against, for callers that need to compute a digest themselves (examples,
// tests).
func (v *Verifier) Domain() typeddata.Domain { return v.domain }

// NonceOf returns user's current expected nonce.
func (v *Verifier) NonceOf(user coretypes.Principal) *big.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if n := v.nonces[user]; n != nil {
		return new(big.Int).Set(n)
	}
	return big.NewInt(0)
}

// VerifyAndPay verifies a signed UsageReceipt and, on success, pulls
// funds and hands the payment to Escrow (spec §4.6). Gated by VERIFIER;
// !paused.
func (v *Verifier) VerifyAndPay(ctx context.Context, caller coretypes.Principal, r typeddata.UsageReceipt, signature []byte) (coretypes.PaymentID, error) {
	if err := v.rolesGate.Require(roles.Verifier, caller); err != nil {
		return 0, err
	}
	if err := v.rolesGate.RequireNotPaused(PauseComponent); err != nil {
		return 0, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.clock().Unix() > r.Deadline {
		return 0, coretypes.ErrReceiptExpired
	}

	expectedNonce := v.nonces[r.User]
	if expectedNonce == nil {
		expectedNonce = big.NewInt(0)
	}
	if r.Nonce.Cmp(expectedNonce) != 0 {
		return 0, coretypes.ErrInvalidNonce
	}

	digest := typeddata.Digest(v.domain, r)
	// The recent-digest cache is a performance aid only (SPEC_FULL §11):
	// a hit means this exact receipt was already accepted, which the
	// nonce check above would also have caught since the nonce would no
	// longer match. It never substitutes for the nonce check.
	if v.seenDigest != nil {
		if _, hit := v.seenDigest.Get(digest); hit {
			return 0, coretypes.ErrInvalidNonce
		}
	}

	signer, err := typeddata.RecoverSigner(digest, signature)
	if err != nil {
		return 0, err
	}
	if signer != r.User {
		return 0, coretypes.ErrInvalidSignature
	}

	sp, ok := v.splitters.SplitterOf(r.AssetID)
	if !ok {
		return 0, coretypes.ErrSplitterNotCreated
	}

	// Checks-effects-interactions (spec §5): the nonce and recent-digest
	// cache are updated before the external TransferFrom call, not after,
	// so a reentrant token implementation that calls back into this
	// verifier mid-transfer sees the receipt as already consumed instead
	// of being able to replay it. A failed transfer rolls both back,
	// leaving no observable state change.
	v.nonces[r.User] = new(big.Int).Add(expectedNonce, big.NewInt(1))
	if v.seenDigest != nil {
		v.seenDigest.Add(digest, struct{}{})
	}

	if err := v.tok.TransferFrom(ctx, r.User, v.self, r.Amount); err != nil {
		v.nonces[r.User] = expectedNonce
		if v.seenDigest != nil {
			v.seenDigest.Remove(digest)
		}
		return 0, err
	}

	paymentID, err := v.esc.HoldPayment(ctx, caller, r.AssetID, r.User, r.Amount, sp)
	if err != nil {
		return 0, err
	}

	v.events.Emit(ctx, "ReceiptConsumed", map[string]any{
		"asset_id": r.AssetID, "user": r.User.Hex(), "amount": r.Amount.String(), "nonce": r.Nonce.String(),
	})
	return paymentID, nil
}
