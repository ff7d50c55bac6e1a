package ai

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// HashingEmbedder is the default, fully local embedding function. Each
// token (and each adjacent token pair) is hashed into a fixed number of
// buckets with a signed weight, and the result is L2-normalised, so texts
// sharing vocabulary land close together under cosine distance.
type HashingEmbedder struct {
	dim          int
	tokenPattern *regexp.Regexp
}

func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = 384
	}
	return &HashingEmbedder{
		dim:          dim,
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+`),
	}
}

func (e *HashingEmbedder) Name() string { return fmt.Sprintf("local-hash-%d", e.dim) }

func (e *HashingEmbedder) Dimension() int { return e.dim }

func (e *HashingEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.embed(t)
	}
	return out, nil
}

func (e *HashingEmbedder) embed(text string) []float32 {
	vec := make([]float64, e.dim)
	tokens := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	for i, tok := range tokens {
		e.add(vec, tok, 1.0)
		if i > 0 {
			e.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, e.dim)
	if norm == 0 {
		return out
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}

func (e *HashingEmbedder) add(vec []float64, feature string, weight float64) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dim))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}
