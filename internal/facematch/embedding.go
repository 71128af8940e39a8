// Package facematch compares face embeddings and decides which enrolled
// students appear in a set of detected faces.
package facematch

import (
	"encoding/binary"
	"fmt"
	"math"
)

// bytesPerElement is the size of one encoded embedding element (float64).
const bytesPerElement = 8

// Embedding is a fixed-length face descriptor produced by the encoder service.
type Embedding []float64

// Dim returns the number of elements in the embedding.
func (e Embedding) Dim() int {
	return len(e)
}

// Float32 returns a float32 copy of the embedding, as used by vector indexes.
func (e Embedding) Float32() []float32 {
	out := make([]float32, len(e))
	for i, v := range e {
		out[i] = float32(v)
	}
	return out
}

// MalformedEmbeddingError is returned when a stored blob is not a whole number of elements.
type MalformedEmbeddingError struct {
	Length int
}

func (e *MalformedEmbeddingError) Error() string {
	return fmt.Sprintf("malformed embedding: %d bytes is not a multiple of %d", e.Length, bytesPerElement)
}

// Encode serializes an embedding as consecutive little-endian IEEE-754 float64 values.
// The output is exactly len(e)*8 bytes.
func Encode(e Embedding) []byte {
	buf := make([]byte, len(e)*bytesPerElement)
	for i, v := range e {
		binary.LittleEndian.PutUint64(buf[i*bytesPerElement:], math.Float64bits(v))
	}
	return buf
}

// Decode parses a blob written by Encode. Values are returned bit-for-bit,
// including NaN and infinities.
func Decode(b []byte) (Embedding, error) {
	if len(b)%bytesPerElement != 0 {
		return nil, &MalformedEmbeddingError{Length: len(b)}
	}
	e := make(Embedding, len(b)/bytesPerElement)
	for i := range e {
		e[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*bytesPerElement:]))
	}
	return e, nil
}
