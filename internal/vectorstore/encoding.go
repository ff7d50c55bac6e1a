package vectorstore

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Vectors are stored as raw little-endian float32 words, four bytes per
// component.
const floatSize = 4

func packVector(vec []float32) []byte {
	buf := make([]byte, 0, len(vec)*floatSize)
	for _, v := range vec {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return buf
}

func unpackVector(blob []byte) ([]float32, error) {
	if len(blob)%floatSize != 0 {
		return nil, fmt.Errorf("vectorstore: corrupt vector: %d bytes", len(blob))
	}
	vec := make([]float32, len(blob)/floatSize)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*floatSize:]))
	}
	return vec, nil
}

// cosineDistance is 1 minus the cosine similarity of a and b, in [0, 2].
// Zero vectors sit at distance 1 from everything.
func cosineDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectorstore: cannot compare %d- and %d-dimensional vectors", len(a), len(b))
	}
	var dot, aa, bb float64
	for i, x := range a {
		y := float64(b[i])
		dot += float64(x) * y
		aa += float64(x) * float64(x)
		bb += y * y
	}
	if aa == 0 || bb == 0 {
		return 1, nil
	}
	return 1 - dot/math.Sqrt(aa*bb), nil
}
