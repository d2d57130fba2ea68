// Package roles implements RolesGate (spec §4.1): a (role, principal)
// authorization mapping plus a per-component pause flag, generalized from
// the teacher's bearer-token-and-scope check in pkg/authn into an explicit
// collaborator queried at every mutating entry point.
package roles

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/coretypes"
)

// RoleID is a stable 32-byte identifier derived by hashing the role's
// ASCII name, for wire compatibility with external signers that may
// reference roles by hash (spec §4.1).
type RoleID [32]byte

func roleID(name string) RoleID {
	return RoleID(crypto.Keccak256Hash([]byte(name)))
}

// The role identifiers the core uses.
var (
	DefaultAdmin = roleID("DEFAULT_ADMIN")
	Pauser       = roleID("PAUSER")
	Arbiter      = roleID("ARBITER")
	Verifier     = roleID("VERIFIER")
	Minter       = roleID("MINTER")
	URISetter    = roleID("URI_SETTER")
	RoleAdmin    = roleID("ROLE_ADMIN")
	Contributor  = roleID("CONTRIBUTOR")
)

// Gate is the shared RolesGate collaborator. Every mutating entry point in
// the engine is already serialized by the engine's single coarse lock
// (spec §5); Gate also guards its own maps with a sync.RWMutex so it stays
// safe when used standalone, outside that lock (as the package tests and
// the per-component packages' own tests do).
type Gate struct {
	mu      sync.RWMutex
	grants  map[RoleID]map[coretypes.Principal]bool
	paused  map[string]bool
}

// New returns an empty Gate with admin granted to the given principal.
func New(admin coretypes.Principal) *Gate {
	g := &Gate{
		grants: make(map[RoleID]map[coretypes.Principal]bool),
		paused: make(map[string]bool),
	}
	g.grants[DefaultAdmin] = map[coretypes.Principal]bool{admin: true}
	return g
}

// Has reports whether principal currently holds role.
func (g *Gate) Has(role RoleID, principal coretypes.Principal) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.grants[role][principal]
}

// Require returns MissingRoleError if principal does not hold role.
func (g *Gate) Require(role RoleID, principal coretypes.Principal) error {
	if g.Has(role, principal) {
		return nil
	}
	return &coretypes.MissingRoleError{Role: role}
}

// Grant assigns role to principal. Requires caller to hold DEFAULT_ADMIN
// (spec §4.1: "A distinguished DEFAULT_ADMIN role gates grants/revokes of
// all other roles").
func (g *Gate) Grant(caller coretypes.Principal, role RoleID, principal coretypes.Principal) error {
	if err := g.Require(DefaultAdmin, caller); err != nil {
		return err
	}
	if coretypes.ZeroPrincipal(principal) {
		return coretypes.ErrZeroAddress
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.grants[role] == nil {
		g.grants[role] = make(map[coretypes.Principal]bool)
	}
	g.grants[role][principal] = true
	return nil
}

// Revoke removes role from principal. Requires caller to hold
// DEFAULT_ADMIN.
func (g *Gate) Revoke(caller coretypes.Principal, role RoleID, principal coretypes.Principal) error {
	if err := g.Require(DefaultAdmin, caller); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.grants[role], principal)
	return nil
}

// Pause toggles component's pause flag on. Requires caller to hold
// PAUSER. Pause flags are per-component (spec §4.1/§9): "component" is an
// arbitrary caller-chosen key, one per subsystem (e.g. "receipt_verifier",
// "escrow").
func (g *Gate) Pause(caller coretypes.Principal, component string) error {
	if err := g.Require(Pauser, caller); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paused[component] = true
	return nil
}

// Unpause toggles component's pause flag off. Requires caller to hold
// PAUSER.
func (g *Gate) Unpause(caller coretypes.Principal, component string) error {
	if err := g.Require(Pauser, caller); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paused[component] = false
	return nil
}

// IsPaused reports whether component's pause flag is set.
func (g *Gate) IsPaused(component string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.paused[component]
}

// RequireNotPaused returns ErrPaused if component is paused.
func (g *Gate) RequireNotPaused(component string) error {
	if g.IsPaused(component) {
		return fmt.Errorf("%s: %w", component, coretypes.ErrPaused)
	}
	return nil
}
