// Package escrow implements Escrow (spec §4.7): time-locked payment
// holds with disputability, arbiter resolution, and fee-splitting release
// (spec §4.8).
package escrow

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/coretypes"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/roles"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/telemetry"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/token"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/treasury"
)

// PauseComponent is the RolesGate pause-flag key this package checks
// (spec §4.7 "Pausable via PAUSER").
const PauseComponent = "escrow"

// Status is a payment's position in the Held/Disputed/Released/Refunded
// state machine (spec §4.7).
type Status int

const (
	Held Status = iota
	Disputed
	Released
	Refunded
)

func (s Status) String() string {
	switch s {
	case Held:
		return "Held"
	case Disputed:
		return "Disputed"
	case Released:
		return "Released"
	case Refunded:
		return "Refunded"
	default:
		return "Unknown"
	}
}

// Splitter is the destination a released payment's non-fee remainder is
// transferred to (spec §4.8). Satisfied by *splitter.Splitter; declared
// here as an interface to avoid an import cycle back into package
// splitter, which does not need to know about Escrow.
type Splitter interface {
	Address() coretypes.Principal
}

// Payment is an EscrowedPayment (spec §3).
type Payment struct {
	ID          coretypes.PaymentID
	Asset       coretypes.AssetID
	User        coretypes.Principal
	Amount      *big.Int
	SplitterRef Splitter
	ReleaseTime time.Time
	Status      Status
	Reason      string // supplemental: optional dispute reason (SPEC_FULL §12.4)
}

// Escrow is the Escrow collaborator.
type Escrow struct {
	mu            sync.Mutex
	rolesGate     *roles.Gate
	treasury      *treasury.Treasury
	tok           token.Token
	events        *telemetry.Sink
	address       coretypes.Principal
	disputeWindow time.Duration
	clock         func() time.Time
	nextID        coretypes.PaymentID
	payments      map[coretypes.PaymentID]*Payment
}

// New returns an Escrow holding funds at address for disputeWindow before
// they become releasable.
func New(rolesGate *roles.Gate, tr *treasury.Treasury, tok token.Token, events *telemetry.Sink, address coretypes.Principal, disputeWindow time.Duration, clock func() time.Time) *Escrow {
	return &Escrow{
		rolesGate:     rolesGate,
		treasury:      tr,
		tok:           tok,
		events:        events,
		address:       address,
		disputeWindow: disputeWindow,
		clock:         clock,
		payments:      make(map[coretypes.PaymentID]*Payment),
	}
}

// Address is the Escrow's own token-holding account.
func (e *Escrow) Address() coretypes.Principal { return e.address }

// HoldPayment assigns the next payment_id and records a Held payment
// (spec §4.7). Gated by VERIFIER; !paused.
func (e *Escrow) HoldPayment(ctx context.Context, caller coretypes.Principal, asset coretypes.AssetID, user coretypes.Principal, amount *big.Int, splitterRef Splitter) (coretypes.PaymentID, error) {
	if err := e.rolesGate.Require(roles.Verifier, caller); err != nil {
		return 0, err
	}
	if err := e.rolesGate.RequireNotPaused(PauseComponent); err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextID
	e.nextID++
	now := e.clock()
	p := &Payment{
		ID:          id,
		Asset:       asset,
		User:        user,
		Amount:      new(big.Int).Set(amount),
		SplitterRef: splitterRef,
		ReleaseTime: now.Add(e.disputeWindow),
		Status:      Held,
	}
	e.payments[id] = p
	e.events.Emit(ctx, "PaymentHeld", map[string]any{
		"payment_id": id, "asset_id": asset, "user": user.Hex(), "amount": amount.String(),
	})
	return id, nil
}

// OpenDispute converts a Held payment into a Disputed one (spec §4.7).
// Caller must equal the payment's user; must be before release_time.
func (e *Escrow) OpenDispute(ctx context.Context, caller coretypes.Principal, id coretypes.PaymentID, reason string) error {
	if err := e.rolesGate.RequireNotPaused(PauseComponent); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.payments[id]
	if !ok {
		return &coretypes.InvalidStatusError{Current: "Unknown"}
	}
	if p.User != caller {
		return coretypes.ErrNotUser
	}
	if p.Status != Held {
		return &coretypes.InvalidStatusError{Current: p.Status.String()}
	}
	now := e.clock()
	if now.After(p.ReleaseTime) {
		return &coretypes.StillLockedError{ReleaseTime: p.ReleaseTime, Now: now}
	}
	p.Status = Disputed
	p.Reason = reason
	e.events.Emit(ctx, "DisputeOpened", map[string]any{"payment_id": id})
	return nil
}

// Release transitions a Held payment past its dispute window into
// Released, performing the fee-split distribution (spec §4.7, §4.8).
// Callable by anyone once now >= release_time.
func (e *Escrow) Release(ctx context.Context, id coretypes.PaymentID) error {
	if err := e.rolesGate.RequireNotPaused(PauseComponent); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.payments[id]
	if !ok {
		return &coretypes.InvalidStatusError{Current: "Unknown"}
	}
	if p.Status != Held {
		return &coretypes.InvalidStatusError{Current: p.Status.String()}
	}
	now := e.clock()
	if now.Before(p.ReleaseTime) {
		return &coretypes.StillLockedError{ReleaseTime: p.ReleaseTime, Now: now}
	}

	// Checks-effects-interactions (spec §5): flip the status before the
	// external transfer, not after, so a reentrant token call mid-transfer
	// sees this payment as already Released instead of still Held. Roll
	// the status back if the transfer fails, leaving no observable change.
	previousStatus := p.Status
	p.Status = Released
	destination := p.SplitterRef.Address()
	if err := e.distribute(ctx, p.Amount, destination); err != nil {
		p.Status = previousStatus
		return err
	}
	e.events.Emit(ctx, "PaymentReleased", map[string]any{"payment_id": id, "destination": destination.Hex()})
	return nil
}

// ResolveDispute settles a Disputed payment: full refund to the user, or
// the same fee-split distribution as Release (spec §4.7). Gated by
// ARBITER.
func (e *Escrow) ResolveDispute(ctx context.Context, caller coretypes.Principal, id coretypes.PaymentID, refundToUser bool) error {
	if err := e.rolesGate.Require(roles.Arbiter, caller); err != nil {
		return err
	}
	if err := e.rolesGate.RequireNotPaused(PauseComponent); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.payments[id]
	if !ok {
		return &coretypes.InvalidStatusError{Current: "Unknown"}
	}
	if p.Status != Disputed {
		return &coretypes.InvalidStatusError{Current: p.Status.String()}
	}

	// Checks-effects-interactions (spec §5), same rationale as Release:
	// flip the status before either external transfer, rolling back if it
	// fails.
	previousStatus := p.Status
	if refundToUser {
		p.Status = Refunded
		if err := e.tok.Transfer(ctx, e.address, p.User, p.Amount); err != nil {
			p.Status = previousStatus
			return err
		}
		e.events.Emit(ctx, "PaymentRefunded", map[string]any{"payment_id": id, "user": p.User.Hex()})
		return nil
	}

	p.Status = Released
	destination := p.SplitterRef.Address()
	if err := e.distribute(ctx, p.Amount, destination); err != nil {
		p.Status = previousStatus
		return err
	}
	e.events.Emit(ctx, "PaymentReleased", map[string]any{"payment_id": id, "destination": destination.Hex()})
	return nil
}

// distribute performs the fee-split subroutine (spec §4.8): floor(amount
// * fee_bps / 10000) to the treasury sink, the remainder to destination.
// Both transfers must succeed for the caller to observe any state change;
// this method is only ever invoked while e.mu is held, after the caller
// has set the payment's new status, and the caller restores the previous
// status when it returns an error (spec §7's "single error and zero state
// change" propagation rule).
func (e *Escrow) distribute(ctx context.Context, amount *big.Int, destination coretypes.Principal) error {
	feeBps := big.NewInt(int64(e.treasury.FeeBps()))
	fee := new(big.Int).Mul(amount, feeBps)
	fee.Div(fee, big.NewInt(int64(coretypes.BpsDenominator)))
	remainder := new(big.Int).Sub(amount, fee)

	sink := e.treasury.TreasurySink()
	if fee.Sign() > 0 {
		if err := e.tok.Transfer(ctx, e.address, sink, fee); err != nil {
			return err
		}
	}
	if remainder.Sign() > 0 {
		if err := e.tok.Transfer(ctx, e.address, destination, remainder); err != nil {
			return err
		}
	}
	return nil
}

// Get returns a copy of payment id's current state, for read-only
// inspection (tests and in-process callers; cmd/enginectl reads payment
// snapshots from internal/ledger instead).
func (e *Escrow) Get(id coretypes.PaymentID) (Payment, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.payments[id]
	if !ok {
		return Payment{}, false
	}
	return *p, true
}
