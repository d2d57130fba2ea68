// Package engine wires RolesGate, AssetDirectory, ProvenanceGraph,
// SplitterFactory, FeeTreasury, ReceiptVerifier, and Escrow together
// behind a single coarse lock, matching spec §5's "single-threaded
// serialized transaction model": every public operation below executes
// atomically relative to every other — there is no interleaving.
package engine

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/assets"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/coretypes"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/escrow"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/provenance"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/receipt"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/roles"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/splitter"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/telemetry"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/token"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/treasury"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/typeddata"
)

// Config is the construction-time configuration (spec §6 "Configuration
// parameters"), immutable thereafter except where §4.5 names an
// admin-mutable field.
type Config struct {
	Admin             coretypes.Principal
	DisputeWindow     time.Duration
	EIP712Name        string
	EIP712Version     string
	ChainID           uint64
	VerifyingContract coretypes.Principal
	InitialFeeBps     coretypes.Bps
	TreasurySink      coretypes.Principal
	Token             token.Token
	Assets            assets.Directory
	Clock             func() time.Time
}

// Engine is the coordinated state machine across the seven components
// (spec §2): asset exists -> graph finalized -> splitter created ->
// receipt accepted -> payment escrowed -> funds released.
//
// The per-component collaborators are unexported: spec §5 requires every
// public operation to execute atomically relative to every other, which
// this type enforces by taking mu before delegating. A component's own
// identically-named method (e.g. escrow.Escrow.Release) is reachable and
// fully functional on its own, so exporting these fields directly would
// let a caller bypass e.mu entirely — running concurrently with another
// goroutine that goes through Engine's wrapper, and skipping the paired
// Events.Emit call the wrapper performs. Engine's own methods below are
// the only mutation path; read-only accessors are exposed where callers
// (examples, tests) genuinely need one.
type Engine struct {
	mu sync.Mutex

	roles     *roles.Gate
	Assets    assets.Directory
	graphs    *provenance.Graphs
	splitters *splitter.Factory
	treasury  *treasury.Treasury
	receipts  *receipt.Verifier
	escrow    *escrow.Escrow
	Token     token.Token
	Events    *telemetry.Sink

	clock func() time.Time
}

// escrowAddress is the Escrow's own token-holding account, derived
// deterministically from the verifying-contract address the same way
// internal/splitter derives a per-asset account — there is no contract
// deployment step in Go to hand out a fresh address.
func escrowAddress(verifyingContract coretypes.Principal) coretypes.Principal {
	h := crypto.Keccak256([]byte("escrow"), verifyingContract.Bytes())
	return common.BytesToAddress(h[12:])
}

// New wires a complete Engine from cfg.
func New(cfg Config, events *telemetry.Sink) (*Engine, error) {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	if events == nil {
		events = telemetry.New(nil)
	}

	rolesGate := roles.New(cfg.Admin)
	tr, err := treasury.New(rolesGate, cfg.InitialFeeBps, cfg.TreasurySink)
	if err != nil {
		return nil, err
	}
	graphs := provenance.New(cfg.Assets, rolesGate)
	splitters := splitter.New(graphs)

	esc := escrow.New(rolesGate, tr, cfg.Token, events, escrowAddress(cfg.VerifyingContract), cfg.DisputeWindow, clock)

	domain := typeddata.Domain{
		Name:              cfg.EIP712Name,
		Version:           cfg.EIP712Version,
		ChainID:           cfg.ChainID,
		VerifyingContract: cfg.VerifyingContract,
	}
	verifier := receipt.New(domain, rolesGate, splitters, cfg.Token, esc, events, esc.Address(), clock)

	return &Engine{
		roles:     rolesGate,
		Assets:    cfg.Assets,
		graphs:    graphs,
		splitters: splitters,
		treasury:  tr,
		receipts:  verifier,
		escrow:    esc,
		Token:     cfg.Token,
		Events:    events,
		clock:     clock,
	}, nil
}

// --- RolesGate ---

func (e *Engine) Grant(caller coretypes.Principal, role roles.RoleID, principal coretypes.Principal) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.roles.Grant(caller, role, principal)
}

func (e *Engine) Revoke(caller coretypes.Principal, role roles.RoleID, principal coretypes.Principal) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.roles.Revoke(caller, role, principal)
}

func (e *Engine) Pause(ctx context.Context, caller coretypes.Principal, component string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.roles.Pause(caller, component); err != nil {
		return err
	}
	e.Events.Emit(ctx, "Paused", map[string]any{"by": caller.Hex(), "component": component})
	return nil
}

func (e *Engine) Unpause(ctx context.Context, caller coretypes.Principal, component string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.roles.Unpause(caller, component); err != nil {
		return err
	}
	e.Events.Emit(ctx, "Unpaused", map[string]any{"by": caller.Hex(), "component": component})
	return nil
}

// --- ProvenanceGraph ---

func (e *Engine) AddContributorEdge(ctx context.Context, caller coretypes.Principal, asset coretypes.AssetID, contributor coretypes.Principal, weightBps coretypes.Bps) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.graphs.AddContributorEdge(ctx, caller, asset, contributor, weightBps); err != nil {
		return err
	}
	e.Events.Emit(ctx, "ContributorEdgeAdded", map[string]any{
		"asset_id": asset, "contributor": contributor.Hex(), "weight_bps": weightBps,
	})
	return nil
}

func (e *Engine) AddParentEdge(ctx context.Context, caller coretypes.Principal, asset, parent coretypes.AssetID, weightBps coretypes.Bps) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.graphs.AddParentEdge(ctx, caller, asset, parent, weightBps); err != nil {
		return err
	}
	e.Events.Emit(ctx, "ParentEdgeAdded", map[string]any{
		"asset_id": asset, "parent_asset_id": parent, "weight_bps": weightBps,
	})
	return nil
}

func (e *Engine) Finalize(ctx context.Context, caller coretypes.Principal, asset coretypes.AssetID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.graphs.Finalize(ctx, caller, asset); err != nil {
		return err
	}
	e.Events.Emit(ctx, "GraphFinalized", map[string]any{"asset_id": asset})
	return nil
}

// --- SplitterFactory ---

func (e *Engine) CreateSplitter(ctx context.Context, asset coretypes.AssetID) (*splitter.Splitter, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sp, err := e.splitters.CreateSplitter(asset)
	if err != nil {
		return nil, err
	}
	rawPayees := sp.Payees()
	payees := make([]string, len(rawPayees))
	shares := make([]coretypes.Bps, len(rawPayees))
	for i, p := range rawPayees {
		payees[i] = p.Hex()
		shares[i] = sp.Shares(p)
	}
	e.Events.Emit(ctx, "SplitterCreated", map[string]any{
		"asset_id": asset, "splitter": sp.Address().Hex(), "payees": payees, "shares": shares,
	})
	return sp, nil
}

// --- FeeTreasury ---

func (e *Engine) SetFeeBps(ctx context.Context, caller coretypes.Principal, newBps coretypes.Bps) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.treasury.SetFeeBps(caller, newBps); err != nil {
		return err
	}
	e.Events.Emit(ctx, "FeeUpdated", map[string]any{"new_fee_bps": newBps})
	return nil
}

func (e *Engine) SetTreasurySink(ctx context.Context, caller coretypes.Principal, sink coretypes.Principal) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.treasury.SetTreasurySink(caller, sink); err != nil {
		return err
	}
	e.Events.Emit(ctx, "TreasuryUpdated", map[string]any{"new_sink": sink.Hex()})
	return nil
}

// --- ReceiptVerifier ---

func (e *Engine) VerifyAndPay(ctx context.Context, caller coretypes.Principal, r typeddata.UsageReceipt, signature []byte) (coretypes.PaymentID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.receipts.VerifyAndPay(ctx, caller, r, signature)
}

// NonceOf returns user's current expected receipt nonce, exported for
// examples and tests that need to build the next UsageReceipt without
// reaching into internal/receipt directly.
func (e *Engine) NonceOf(user coretypes.Principal) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.receipts.NonceOf(user)
}

// --- Escrow ---

func (e *Engine) OpenDispute(ctx context.Context, caller coretypes.Principal, id coretypes.PaymentID, reason string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.escrow.OpenDispute(ctx, caller, id, reason)
}

func (e *Engine) Release(ctx context.Context, id coretypes.PaymentID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.escrow.Release(ctx, id)
}

func (e *Engine) ResolveDispute(ctx context.Context, caller coretypes.Principal, id coretypes.PaymentID, refundToUser bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.escrow.ResolveDispute(ctx, caller, id, refundToUser)
}

// EscrowAddress returns the Escrow's own token-holding account, exported
// for examples and tests that need to pre-approve the engine's pull
// (token.Approve) without reaching into internal/escrow directly.
func (e *Engine) EscrowAddress() coretypes.Principal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.escrow.Address()
}

// Now returns the engine's configured clock, exported for examples and
// tests that need to reason about release_time without reaching into
// internal/escrow directly.
func (e *Engine) Now() time.Time { return e.clock() }

// UsageReceiptDigest is a small convenience wrapper so callers (examples,
// the signer side of a test) can compute the exact digest a receipt's
// signature must cover without reaching into internal/typeddata
// themselves.
func (e *Engine) UsageReceiptDigest(r typeddata.UsageReceipt) [32]byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return typeddata.Digest(e.receipts.Domain(), r)
}
