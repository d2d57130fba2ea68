// Package provenance implements ProvenanceGraph (spec §4.3): the
// mutable-build-up-then-finalize-then-immutable-read per-asset graph of
// contributor and parent edges.
package provenance

import (
	"context"
	"sync"

	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/assets"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/coretypes"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/roles"
)

// ContributorEdge is a (contributor, weight_bps) edge (spec §3).
type ContributorEdge struct {
	Contributor coretypes.Principal
	WeightBps   coretypes.Bps
}

// ParentEdge is a (parent_asset, weight_bps) edge (spec §3). Parent edges
// are provenance metadata only: the splitter never expands them (spec
// §3, §4.3).
type ParentEdge struct {
	ParentAsset coretypes.AssetID
	WeightBps   coretypes.Bps
}

type entry struct {
	contributors []ContributorEdge
	parents      []ParentEdge
	totalBps     int
	finalized    bool
}

// Graphs is the ProvenanceGraph collaborator: per-asset edge storage plus
// the AssetDirectory and RolesGate it consults on every mutation (spec
// §4.3).
type Graphs struct {
	mu        sync.Mutex
	entries   map[coretypes.AssetID]*entry
	directory assets.Directory
	rolesGate *roles.Gate
}

// New returns an empty Graphs collaborator wired to directory and
// rolesGate.
func New(directory assets.Directory, rolesGate *roles.Gate) *Graphs {
	return &Graphs{
		entries:   make(map[coretypes.AssetID]*entry),
		directory: directory,
		rolesGate: rolesGate,
	}
}

func (g *Graphs) entryFor(id coretypes.AssetID) *entry {
	e, ok := g.entries[id]
	if !ok {
		e = &entry{}
		g.entries[id] = e
	}
	return e
}

func (g *Graphs) requireOwner(ctx context.Context, id coretypes.AssetID, caller coretypes.Principal) error {
	exists, err := g.directory.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return coretypes.ErrAssetDoesNotExist
	}
	owner, err := g.directory.OwnerOf(ctx, id)
	if err != nil {
		return err
	}
	if owner != caller {
		return coretypes.ErrNotAssetOwner
	}
	return nil
}

func validWeight(w coretypes.Bps) bool {
	return w >= 1 && int(w) <= coretypes.BpsDenominator
}

// AddContributorEdge appends a contributor edge to asset's graph (spec
// §4.3).
func (g *Graphs) AddContributorEdge(ctx context.Context, caller coretypes.Principal, asset coretypes.AssetID, contributor coretypes.Principal, weightBps coretypes.Bps) error {
	if err := g.requireOwner(ctx, asset, caller); err != nil {
		return err
	}
	if !validWeight(weightBps) {
		return coretypes.ErrInvalidWeight
	}
	if !g.rolesGate.Has(roles.Contributor, contributor) {
		return coretypes.ErrNotAContributor
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	e := g.entryFor(asset)
	if e.finalized {
		return coretypes.ErrGraphIsFinalized
	}
	if e.totalBps+int(weightBps) > coretypes.BpsDenominator {
		return coretypes.ErrTotalWeightExceeded
	}
	e.contributors = append(e.contributors, ContributorEdge{Contributor: contributor, WeightBps: weightBps})
	e.totalBps += int(weightBps)
	return nil
}

// AddParentEdge appends a parent edge to asset's graph (spec §4.3).
func (g *Graphs) AddParentEdge(ctx context.Context, caller coretypes.Principal, asset, parent coretypes.AssetID, weightBps coretypes.Bps) error {
	if err := g.requireOwner(ctx, asset, caller); err != nil {
		return err
	}
	if exists, err := g.directory.Exists(ctx, parent); err != nil {
		return err
	} else if !exists {
		return coretypes.ErrAssetDoesNotExist
	}
	if !validWeight(weightBps) {
		return coretypes.ErrInvalidWeight
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	e := g.entryFor(asset)
	if e.finalized {
		return coretypes.ErrGraphIsFinalized
	}
	if e.totalBps+int(weightBps) > coretypes.BpsDenominator {
		return coretypes.ErrTotalWeightExceeded
	}
	e.parents = append(e.parents, ParentEdge{ParentAsset: parent, WeightBps: weightBps})
	e.totalBps += int(weightBps)
	return nil
}

// Finalize makes asset's graph permanently read-only (spec §4.3). A
// finalize of an asset with zero edges is permitted; SplitterFactory is
// the gate that later rejects an empty contributor list (spec §9 open
// question, preserved as stated).
func (g *Graphs) Finalize(ctx context.Context, caller coretypes.Principal, asset coretypes.AssetID) error {
	if err := g.requireOwner(ctx, asset, caller); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	e := g.entryFor(asset)
	if e.finalized {
		return coretypes.ErrGraphIsFinalized
	}
	e.finalized = true
	return nil
}

// IsFinalized reports whether asset's graph has been finalized.
func (g *Graphs) IsFinalized(asset coretypes.AssetID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.entries[asset]
	return ok && e.finalized
}

// GetContributorEdges returns a copy of asset's contributor edges.
func (g *Graphs) GetContributorEdges(asset coretypes.AssetID) []ContributorEdge {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.entries[asset]
	if !ok {
		return nil
	}
	out := make([]ContributorEdge, len(e.contributors))
	copy(out, e.contributors)
	return out
}

// GetParentEdges returns a copy of asset's parent edges.
func (g *Graphs) GetParentEdges(asset coretypes.AssetID) []ParentEdge {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.entries[asset]
	if !ok {
		return nil
	}
	out := make([]ParentEdge, len(e.parents))
	copy(out, e.parents)
	return out
}

// GetTotalBps returns the running sum of all edge weights for asset.
func (g *Graphs) GetTotalBps(asset coretypes.AssetID) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.entries[asset]
	if !ok {
		return 0
	}
	return e.totalBps
}
