// Package telemetry emits the events named in spec §6 as structured log
// lines, generalizing the teacher's "hash the canonical JSON encoding"
// idiom (pkg/evidencehash.CanonicalSHA256, pkg/canonhash.SumObject) from
// signed-payload hashing into an integrity hash over each emitted event,
// so an operator can prove a specific event was recorded.
package telemetry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
)

// Sink emits domain events. Events are emitted only on successful
// completion of the operation that produced them, and never from a
// reverted operation (spec §9) — callers in internal/escrow,
// internal/receipt, and internal/engine (which emits on behalf of the
// provenance, splitter, treasury and roles components) only call Emit
// after every precondition has already been checked and every state
// mutation has already succeeded.
type Sink struct {
	logger  *slog.Logger
	persist func(ctx context.Context, name, eventHash string, fields map[string]any)
}

// New returns a Sink logging through logger. A nil logger falls back to
// slog.Default().
func New(logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{logger: logger}
}

// WithPersist attaches a durability hook called after every Emit, so the
// same event that is logged can also be appended to the durable ledger
// (SPEC_FULL §12.1), e.g. by a wrapper around
// internal/ledger.Store.AppendEvent, whose error return the hook signature
// does not carry.
func (s *Sink) WithPersist(persist func(ctx context.Context, name, eventHash string, fields map[string]any)) *Sink {
	s.persist = persist
	return s
}

// Emit logs name with fields, alongside a sha256 hash of the canonical
// JSON encoding of fields (mirrors evidencehash.CanonicalSHA256).
func (s *Sink) Emit(ctx context.Context, name string, fields map[string]any) {
	hash := canonicalSHA256(fields)
	attrs := make([]any, 0, len(fields)*2+2)
	attrs = append(attrs, "event", name, "event_hash", hash)
	for k, v := range fields {
		attrs = append(attrs, k, v)
	}
	s.logger.InfoContext(ctx, name, attrs...)
	if s.persist != nil {
		s.persist(ctx, name, hash, fields)
	}
}

func canonicalSHA256(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
