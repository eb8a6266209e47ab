// Package identity issues the unique tokens used for document, variant and
// actor identifiers. The CSV feed carries none of these, so until an
// authoritative identity service is wired in, generated tokens stand in for
// them. Injecting the provider keeps that gap visible and lets tests swap in
// a deterministic implementation.
package identity

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Provider issues unique identifier tokens.
type Provider interface {
	// NewToken returns a globally unique token.
	NewToken() string
	// NewShortToken returns a short token suitable for embedding in SKUs.
	NewShortToken() string
}

// UUIDProvider issues random UUID-backed tokens. It is the production
// implementation.
type UUIDProvider struct{}

// NewUUIDProvider constructs a UUIDProvider.
func NewUUIDProvider() *UUIDProvider { return &UUIDProvider{} }

func (p *UUIDProvider) NewToken() string { return uuid.NewString() }

func (p *UUIDProvider) NewShortToken() string { return uuid.NewString()[:8] }

// SequenceProvider issues deterministic tokens from a monotonic counter.
// Intended for tests that assert on generated identifiers.
type SequenceProvider struct {
	prefix string
	n      atomic.Int64
}

// NewSequenceProvider constructs a SequenceProvider with the given prefix.
func NewSequenceProvider(prefix string) *SequenceProvider {
	return &SequenceProvider{prefix: prefix}
}

func (p *SequenceProvider) NewToken() string {
	return fmt.Sprintf("%s-%d", p.prefix, p.n.Add(1))
}

func (p *SequenceProvider) NewShortToken() string {
	return fmt.Sprintf("%s%d", p.prefix, p.n.Add(1))
}
