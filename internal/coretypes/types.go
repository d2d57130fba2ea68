// Package coretypes holds the identifiers shared across every engine
// component: principals, asset ids, basis points, and the sentinel errors
// named in the specification's error taxonomy.
package coretypes

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Principal identifies a human contributor, an asset owner, a payer, or a
// treasury sink. It is a 20-byte address, matching the spec's byte layout
// for UsageReceipt.user (§6).
type Principal = common.Address

// AssetID is the opaque non-zero integer identifying a dataset or model
// (spec §3).
type AssetID uint64

// PaymentID is the monotonically assigned key of an EscrowedPayment.
type PaymentID uint64

// Bps is a basis-point weight, 1/10000.
type Bps uint16

// BpsDenominator is the weight normalization base (spec §6).
const BpsDenominator = 10000

// MaxFeeBps is the upper bound enforced by FeeTreasury.SetFeeBps (spec §6).
const MaxFeeBps = 1000

// ZeroPrincipal reports whether p is the zero address.
func ZeroPrincipal(p Principal) bool {
	return p == Principal{}
}

// Authorization errors.
var (
	ErrNotAssetOwner  = errors.New("caller is not the asset owner")
	ErrNotUser        = errors.New("caller is not the payment's user")
	ErrNotAContributor = errors.New("principal does not hold the contributor role")
)

// MissingRoleError reports which role a principal lacked (spec §7
// MissingRole(role)).
type MissingRoleError struct {
	Role [32]byte
}

func (e *MissingRoleError) Error() string {
	return fmt.Sprintf("missing role %x", e.Role)
}

// State-machine errors.
var (
	ErrGraphIsFinalized     = errors.New("provenance graph is finalized")
	ErrGraphNotFinalized    = errors.New("provenance graph is not finalized")
	ErrSplitterAlreadyExists = errors.New("splitter already exists for asset")
	ErrSplitterNotCreated   = errors.New("splitter has not been created for asset")
)

// InvalidStatusError reports an operation attempted against a payment in
// the wrong state (spec §7 InvalidStatus(current)).
type InvalidStatusError struct {
	Current string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid payment status: %s", e.Current)
}

// StillLockedError reports a release attempted before the dispute window
// elapsed (spec §7 StillLocked(release_time, now)).
type StillLockedError struct {
	ReleaseTime time.Time
	Now         time.Time
}

func (e *StillLockedError) Error() string {
	return fmt.Sprintf("payment still locked until %s (now %s)", e.ReleaseTime.UTC(), e.Now.UTC())
}

// Validation errors.
var (
	ErrInvalidWeight      = errors.New("weight_bps out of range")
	ErrTotalWeightExceeded = errors.New("total_bps would exceed 10000")
	ErrNoContributors     = errors.New("asset has no contributor edges")
	ErrZeroAddress        = errors.New("principal must not be the zero address")
	ErrFeeTooHigh         = errors.New("fee_bps exceeds MAX_FEE_BPS")
	ErrAssetDoesNotExist  = errors.New("asset does not exist")
)

// Cryptographic errors.
var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidNonce     = errors.New("invalid nonce")
	ErrReceiptExpired   = errors.New("receipt expired")
)

// Operational errors.
var ErrPaused = errors.New("component is paused")
