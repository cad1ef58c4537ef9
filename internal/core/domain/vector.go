package domain

import (
	"encoding/binary"
	"math"
)

// EncodeEmbedding serialises a vector to a little-endian float32 blob,
// the storage encoding for chunk embeddings.
func EncodeEmbedding(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// DecodeEmbedding deserialises a little-endian float32 blob to a vector.
func DecodeEmbedding(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector
}

// CosineSimilarity computes the cosine of the angle between two vectors,
// in [-1,1]. Mismatched dimensions or zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// NormalizeSimilarity maps a cosine similarity from [-1,1] to [0,1],
// where 1.0 means identical direction.
func NormalizeSimilarity(cos float64) float64 {
	score := (cos + 1) / 2
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}
