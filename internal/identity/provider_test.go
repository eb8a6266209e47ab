package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUUIDProviderTokensAreUnique(t *testing.T) {
	p := NewUUIDProvider()
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		tok := p.NewToken()
		_, dup := seen[tok]
		assert.False(t, dup, "duplicate token %q", tok)
		seen[tok] = struct{}{}
	}
	assert.Len(t, p.NewShortToken(), 8)
}

func TestSequenceProviderIsDeterministic(t *testing.T) {
	p := NewSequenceProvider("id")
	assert.Equal(t, "id-1", p.NewToken())
	assert.Equal(t, "id-2", p.NewToken())
	assert.Equal(t, "id3", p.NewShortToken())
}
