// Package treasury implements FeeTreasury (spec §4.5): the protocol fee
// rate and treasury sink address, admin-gated.
package treasury

import (
	"sync"

	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/coretypes"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/roles"
)

// Treasury holds fee_bps and treasury_sink (spec §3 "Fee state").
type Treasury struct {
	mu        sync.RWMutex
	rolesGate *roles.Gate
	feeBps    coretypes.Bps
	sink      coretypes.Principal
}

// New returns a Treasury with feeBps and sink set at construction,
// mirroring the spec's "Configuration parameters ... immutable
// thereafter" for everything except fee_bps/treasury_sink, which are the
// two admin-mutable fields (spec §4.5).
func New(rolesGate *roles.Gate, feeBps coretypes.Bps, sink coretypes.Principal) (*Treasury, error) {
	if int(feeBps) > coretypes.MaxFeeBps {
		return nil, coretypes.ErrFeeTooHigh
	}
	if coretypes.ZeroPrincipal(sink) {
		return nil, coretypes.ErrZeroAddress
	}
	return &Treasury{rolesGate: rolesGate, feeBps: feeBps, sink: sink}, nil
}

// SetFeeBps updates the protocol fee rate. Admin-only; requires newBps <=
// MAX_FEE_BPS (spec §4.5).
func (t *Treasury) SetFeeBps(caller coretypes.Principal, newBps coretypes.Bps) error {
	if err := t.rolesGate.Require(roles.DefaultAdmin, caller); err != nil {
		return err
	}
	if int(newBps) > coretypes.MaxFeeBps {
		return coretypes.ErrFeeTooHigh
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.feeBps = newBps
	return nil
}

// SetTreasurySink updates the treasury sink address. Admin-only; addr
// must not be the zero address (spec §4.5).
func (t *Treasury) SetTreasurySink(caller coretypes.Principal, addr coretypes.Principal) error {
	if err := t.rolesGate.Require(roles.DefaultAdmin, caller); err != nil {
		return err
	}
	if coretypes.ZeroPrincipal(addr) {
		return coretypes.ErrZeroAddress
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sink = addr
	return nil
}

// FeeBps returns the current protocol fee rate.
func (t *Treasury) FeeBps() coretypes.Bps {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.feeBps
}

// TreasurySink returns the current treasury sink address.
func (t *Treasury) TreasurySink() coretypes.Principal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sink
}
