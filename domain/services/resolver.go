package services

import (
	crand "crypto/rand"
	"math/rand/v2"
	"sync"

	"teenpatti/domain/entities"
	"teenpatti/domain/interfaces"
)

// OfficialResolver decides rounds by plain hand comparison
type OfficialResolver struct {
	rng interfaces.RandomSource
}

// NewOfficialResolver creates a resolver that breaks exact ties with rng
func NewOfficialResolver(rng interfaces.RandomSource) *OfficialResolver {
	return &OfficialResolver{rng: rng}
}

// Resolve returns the winning side and the official resolver tag
func (r *OfficialResolver) Resolve(playerA, playerB entities.Hand) (entities.Side, entities.ResolverTag) {
	return CompareHands(playerA, playerB, r.rng), entities.ResolverOfficial
}

// lockedSource makes a *rand.Rand safe for concurrent use
type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// NewRandomSource returns a goroutine-safe ChaCha8 source seeded from crypto/rand
func NewRandomSource() interfaces.RandomSource {
	var seed [32]byte
	_, _ = crand.Read(seed[:])
	return &lockedSource{rng: rand.New(rand.NewChaCha8(seed))}
}

// NewSeededSource returns a deterministic goroutine-safe source
func NewSeededSource(seed1, seed2 uint64) interfaces.RandomSource {
	return &lockedSource{rng: rand.New(rand.NewPCG(seed1, seed2))}
}
