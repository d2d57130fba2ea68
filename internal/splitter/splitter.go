// Package splitter implements SplitterFactory and PaymentSplitter (spec
// §4.4): the one-shot materialization of a finalized provenance graph's
// contributor edges into an immutable payee/share table, plus its
// release-accounting state.
package splitter

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/coretypes"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/provenance"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/token"
)

// addressForAsset derives the splitter's own account deterministically
// from the asset id. There is no "new contract" deployment step in Go, so
// the splitter needs a stable Principal of its own to be the account that
// holds released funds until payees withdraw their share.
func addressForAsset(asset coretypes.AssetID) coretypes.Principal {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(asset >> (8 * (7 - i)))
	}
	h := crypto.Keccak256([]byte("splitter"), buf[:])
	return common.BytesToAddress(h[12:])
}

// Record is the immutable, snapshotted payee/share table derived from a
// finalized graph's contributor edges (spec §3 SplitterRecord).
type Record struct {
	Asset       coretypes.AssetID
	Address     coretypes.Principal
	Payees      []coretypes.Principal
	Shares      []coretypes.Bps
	TotalShares int
}

// ShareOf returns the bps share recorded for payee, or 0 if payee is not
// in the table.
func (r Record) ShareOf(payee coretypes.Principal) coretypes.Bps {
	for i, p := range r.Payees {
		if p == payee {
			return r.Shares[i]
		}
	}
	return 0
}

// Splitter is the materialized PaymentSplitter (spec §4.4): Record plus
// per-payee released-amount accounting.
type Splitter struct {
	mu       sync.Mutex
	record   Record
	released map[coretypes.Principal]*big.Int
}

// Payee returns the payee at index (spec §4.4 payee(index)).
func (s *Splitter) Payee(index int) coretypes.Principal { return s.record.Payees[index] }

// Shares returns payee's recorded bps share (spec §4.4 shares(payee)).
func (s *Splitter) Shares(payee coretypes.Principal) coretypes.Bps { return s.record.ShareOf(payee) }

// TotalShares returns the sum of all recorded shares (spec §4.4
// total_shares()).
func (s *Splitter) TotalShares() int { return s.record.TotalShares }

// Address is the splitter's own account, the destination Escrow.Release
// transfers the non-fee remainder to (spec §4.8).
func (s *Splitter) Address() coretypes.Principal { return s.record.Address }

// Payees returns the ordered payee list backing the share table, for
// read-only inspection (internal/engine's SplitterCreated event payload).
func (s *Splitter) Payees() []coretypes.Principal { return s.record.Payees }

// Released returns the amount already released to payee for tok (spec
// §4.4 released(token, payee)). tok is accepted for interface fidelity
// with the spec's signature; this engine is configured with a single
// payment token, so the accounting is not actually keyed by it.
func (s *Splitter) Released(_ token.Token, payee coretypes.Principal) *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v := s.released[payee]; v != nil {
		return new(big.Int).Set(v)
	}
	return big.NewInt(0)
}

// Statement is the aggregate payee view returned by Statement(payee)
// (SPEC_FULL §12.3): shares, the amount currently releasable, and the
// amount already released, in one call instead of three.
type Statement struct {
	Shares     coretypes.Bps
	Releasable *big.Int
	Released   *big.Int
}

// Statement returns payee's current share accounting without mutating
// any state (SPEC_FULL §12.3, mirroring the teacher's habit of returning
// small aggregate view structs from read calls rather than requiring
// several separate ones).
func (s *Splitter) Statement(ctx context.Context, tok token.Token, payee coretypes.Principal) (Statement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	share := s.record.ShareOf(payee)
	already := s.released[payee]
	if already == nil {
		already = big.NewInt(0)
	}
	if share == 0 {
		return Statement{Shares: 0, Releasable: big.NewInt(0), Released: new(big.Int).Set(already)}, nil
	}

	balance, err := tok.BalanceOf(ctx, s.record.Address)
	if err != nil {
		return Statement{}, err
	}
	totalReleased := big.NewInt(0)
	for _, v := range s.released {
		totalReleased.Add(totalReleased, v)
	}
	totalReceived := new(big.Int).Add(balance, totalReleased)

	entitlement := new(big.Int).Mul(totalReceived, big.NewInt(int64(share)))
	entitlement.Div(entitlement, big.NewInt(int64(s.record.TotalShares)))
	releasable := new(big.Int).Sub(entitlement, already)
	if releasable.Sign() < 0 {
		releasable = big.NewInt(0)
	}

	return Statement{Shares: share, Releasable: releasable, Released: new(big.Int).Set(already)}, nil
}

// Release transfers tok.BalanceOf(self)*shares[payee]/total_shares to
// payee, net of the amount already released to payee, following the
// standard payment-splitter accounting: totalReceived is derived from the
// current balance plus everything already paid out, so payees who
// withdraw late still receive their full entitlement out of whatever
// remains (spec §4.4, §8 invariant "sum_released + balance == sum_received").
func (s *Splitter) Release(ctx context.Context, tok token.Token, payee coretypes.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	share := s.record.ShareOf(payee)
	if share == 0 {
		return coretypes.ErrNotAContributor
	}

	balance, err := tok.BalanceOf(ctx, s.record.Address)
	if err != nil {
		return err
	}
	already := s.released[payee]
	if already == nil {
		already = big.NewInt(0)
	}

	totalReleased := big.NewInt(0)
	for _, v := range s.released {
		totalReleased.Add(totalReleased, v)
	}
	totalReceived := new(big.Int).Add(balance, totalReleased)

	entitlement := new(big.Int).Mul(totalReceived, big.NewInt(int64(share)))
	entitlement.Div(entitlement, big.NewInt(int64(s.record.TotalShares)))
	owed := new(big.Int).Sub(entitlement, already)
	if owed.Sign() <= 0 {
		return nil
	}

	if err := tok.Transfer(ctx, s.record.Address, payee, owed); err != nil {
		return err
	}
	if s.released == nil {
		s.released = make(map[coretypes.Principal]*big.Int)
	}
	s.released[payee] = new(big.Int).Add(already, owed)
	return nil
}

// Factory is the SplitterFactory collaborator (spec §4.4): one-shot
// derivation of a Splitter from a finalized Graphs entry.
type Factory struct {
	mu        sync.Mutex
	graphs    *provenance.Graphs
	splitters map[coretypes.AssetID]*Splitter
}

// New returns a Factory reading from graphs.
func New(graphs *provenance.Graphs) *Factory {
	return &Factory{
		graphs:    graphs,
		splitters: make(map[coretypes.AssetID]*Splitter),
	}
}

// CreateSplitter snapshots asset's finalized contributor edges into an
// immutable Splitter (spec §4.4). Normalization policy: if total_bps <
// 10000, weights are used as-is; Release's division by total_shares
// naturally scales per-payee amounts up rather than distributing a
// residual to anyone (spec §4.4, §9 open question — surfaced to asset
// owners by this doc comment, not silently rescaled).
func (f *Factory) CreateSplitter(asset coretypes.AssetID) (*Splitter, error) {
	if !f.graphs.IsFinalized(asset) {
		return nil, coretypes.ErrGraphNotFinalized
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.splitters[asset]; exists {
		return nil, coretypes.ErrSplitterAlreadyExists
	}

	edges := f.graphs.GetContributorEdges(asset)
	if len(edges) == 0 {
		return nil, coretypes.ErrNoContributors
	}

	record := Record{
		Asset:   asset,
		Address: addressForAsset(asset),
		Payees:  make([]coretypes.Principal, len(edges)),
		Shares:  make([]coretypes.Bps, len(edges)),
	}
	for i, e := range edges {
		record.Payees[i] = e.Contributor
		record.Shares[i] = e.WeightBps
		record.TotalShares += int(e.WeightBps)
	}

	s := &Splitter{record: record, released: make(map[coretypes.Principal]*big.Int)}
	f.splitters[asset] = s
	return s, nil
}

// SplitterOf returns the Splitter materialized for asset, if any (spec
// §4.4 splitter_of(asset_id) -> Option<SplitterRef>).
func (f *Factory) SplitterOf(asset coretypes.AssetID) (*Splitter, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.splitters[asset]
	return s, ok
}
