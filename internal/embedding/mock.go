package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Dimensions matches text-embedding-3-small and the vector column width.
const Dimensions = 1536

// MockClient derives a deterministic unit vector from the tokens of the
// input. Texts sharing words land close together, which is enough for
// offline recall.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, Dimensions)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,!?;:\"'()")
		if tok == "" {
			continue
		}
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		vec[sum%Dimensions] += 1
		vec[(sum>>32)%Dimensions] += 0.5
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	n := float32(math.Sqrt(norm))
	for i := range vec {
		vec[i] /= n
	}
	return vec, nil
}
