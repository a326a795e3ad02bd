package embedding

import (
	"context"
	"math/rand"

	"ragserver/internal/domain"
)

// Mock returns a random vector of the configured dimensionality. The values
// are noise but the shape contract is the real one, so the rest of the
// pipeline can run against it in tests and local setups.
type Mock struct {
	Dim int
}

func (m *Mock) Generate(_ context.Context, text string) (domain.Embedding, error) {
	vec := make([]float32, m.Dim)
	for i := range vec {
		vec[i] = rand.Float32()*2 - 1
	}
	return domain.Embedding{Text: text, Vector: vec}, nil
}

func (m *Mock) Dimensions() int { return m.Dim }
func (m *Mock) Name() string    { return "mock" }
