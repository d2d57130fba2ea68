// Package typeddata implements the EIP-712-style typed-data digest
// construction required by spec §6: a domain-separated, byte-exact
// UsageReceipt hash that external signers (wallets, HSMs) must be able to
// reproduce independently. The teacher's own signature package
// (pkg/signature) only covers Ed25519/P-256 envelopes around an
// arbitrary canonical-JSON hash; this package instead follows the
// fixed-field-order byte layout spec.md mandates, using
// github.com/ethereum/go-ethereum's Keccak256 and secp256k1 recovery (the
// ecosystem library the wider retrieval pack reaches for when addressing
// is Ethereum-shaped) and github.com/holiman/uint256 for the big-endian
// u256 field encoding.
package typeddata

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/coretypes"
)

// Domain is the typed-data domain fixed at ReceiptVerifier construction
// (spec §6).
type Domain struct {
	Name              string
	Version           string
	ChainID           uint64
	VerifyingContract coretypes.Principal
}

var eip712DomainTypeHash = crypto.Keccak256Hash(
	[]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"),
)

// Separator computes the EIP-712 domain separator for d.
func (d Domain) Separator() [32]byte {
	nameHash := crypto.Keccak256Hash([]byte(d.Name))
	versionHash := crypto.Keccak256Hash([]byte(d.Version))

	var buf []byte
	buf = append(buf, eip712DomainTypeHash[:]...)
	buf = append(buf, nameHash[:]...)
	buf = append(buf, versionHash[:]...)
	buf = append(buf, leftPad32(new(big.Int).SetUint64(d.ChainID))...)
	buf = append(buf, leftPad32(d.VerifyingContract.Big())...)
	return crypto.Keccak256Hash(buf)
}

// UsageReceipt is the signed usage claim verified by ReceiptVerifier
// (spec §4.6, §6).
type UsageReceipt struct {
	AssetID  coretypes.AssetID
	Amount   *big.Int
	User     coretypes.Principal
	Nonce    *big.Int
	Deadline int64
}

// leftPad32 big-endian-encodes v into a 32-byte buffer, matching the
// spec's "u256 big-endian" field layout (spec §6). Uses
// github.com/holiman/uint256's fixed-width representation rather than
// hand-rolled math/big padding.
func leftPad32(v *big.Int) []byte {
	var u uint256.Int
	u.SetFromBig(v)
	b := u.Bytes32()
	return b[:]
}

// structHash computes the byte-exact UsageReceipt digest input mandated
// by spec §6: "asset_id (u256 BE) ‖ amount (u256 BE) ‖ user (20-byte
// address) ‖ nonce (u256 BE) ‖ deadline (u256 BE)", then keccak256'd.
func structHash(r UsageReceipt) [32]byte {
	var buf []byte
	buf = append(buf, leftPad32(new(big.Int).SetUint64(uint64(r.AssetID)))...)
	buf = append(buf, leftPad32(r.Amount)...)
	buf = append(buf, r.User.Bytes()...)
	buf = append(buf, leftPad32(r.Nonce)...)
	buf = append(buf, leftPad32(big.NewInt(r.Deadline))...)
	return crypto.Keccak256Hash(buf)
}

// Digest computes digest = keccak256(0x1901 || domain_separator ||
// struct_hash), the value external signers sign over (spec §6).
func Digest(domain Domain, r UsageReceipt) [32]byte {
	sep := domain.Separator()
	sh := structHash(r)
	buf := make([]byte, 0, 2+32+32)
	buf = append(buf, 0x19, 0x01)
	buf = append(buf, sep[:]...)
	buf = append(buf, sh[:]...)
	return crypto.Keccak256Hash(buf)
}

// RecoverSigner recovers the signer of digest from a 65-byte
// [R || S || V] signature (the standard secp256k1 recoverable-signature
// wire format). V may be 0/1 or 27/28.
func RecoverSigner(digest [32]byte, signature []byte) (coretypes.Principal, error) {
	if len(signature) != 65 {
		return coretypes.Principal{}, coretypes.ErrInvalidSignature
	}
	sig := make([]byte, 65)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pub, err := crypto.SigToPub(digest[:], sig)
	if err != nil {
		return coretypes.Principal{}, coretypes.ErrInvalidSignature
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Sign signs digest with priv, returning a 65-byte [R || S || V]
// signature with V in {27,28} — the conventional on-wire form wallets
// and HSMs produce. Exported for tests (including internal/conformance),
// which need to produce receipts the same way an external signer would.
func Sign(digest [32]byte, priv *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(digest[:], priv)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}
