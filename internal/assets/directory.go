// Package assets spec's the AssetDirectory external collaborator (spec
// §4.2): identity and ownership queries the ProvenanceGraph consults on
// every mutation. Minting, transfer, and ownership tracking themselves are
// out of scope (spec §1) — this package only states the interface the
// core consumes, plus an in-memory double used by tests.
package assets

import (
	"context"
	"sync"

	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/coretypes"
)

// Directory is the IAssetToken boundary: ownerOf and exists.
type Directory interface {
	OwnerOf(ctx context.Context, id coretypes.AssetID) (coretypes.Principal, error)
	Exists(ctx context.Context, id coretypes.AssetID) (bool, error)
}

// Memory is an in-memory Directory, standing in for the real external
// asset-token contract in tests and examples.
type Memory struct {
	mu     sync.RWMutex
	owners map[coretypes.AssetID]coretypes.Principal
}

// NewMemory returns an empty in-memory directory.
func NewMemory() *Memory {
	return &Memory{owners: make(map[coretypes.AssetID]coretypes.Principal)}
}

// Mint registers id as owned by owner, as the external minting
// collaborator would after a successful mint (spec §1 IAssetToken).
func (m *Memory) Mint(id coretypes.AssetID, owner coretypes.Principal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[id] = owner
}

// Transfer reassigns ownership of an existing asset.
func (m *Memory) Transfer(id coretypes.AssetID, to coretypes.Principal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.owners[id]; !ok {
		return coretypes.ErrAssetDoesNotExist
	}
	m.owners[id] = to
	return nil
}

func (m *Memory) OwnerOf(_ context.Context, id coretypes.AssetID) (coretypes.Principal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	owner, ok := m.owners[id]
	if !ok {
		return coretypes.Principal{}, coretypes.ErrAssetDoesNotExist
	}
	return owner, nil
}

func (m *Memory) Exists(_ context.Context, id coretypes.AssetID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.owners[id]
	return ok, nil
}
