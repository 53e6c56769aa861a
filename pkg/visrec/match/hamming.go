package match

import (
	"encoding/hex"
	"fmt"
	"math/bits"

	"github.com/visrec/visrec/pkg/models"
)

// DecodeHash parses a hex-encoded binary hash into its raw bytes.
func DecodeHash(h string) ([]byte, error) {
	if h == "" {
		return nil, &models.ValidationError{Msg: "empty hash"}
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return nil, &models.ValidationError{Msg: fmt.Sprintf("malformed hash %q: %v", h, err)}
	}
	return b, nil
}

// HammingDistance counts the differing bit positions between two
// equal-length binary hashes.
func HammingDistance(a, b []byte) (int, error) {
	if len(a) != len(b) {
		return 0, &models.SchemaMismatchError{Field: "hash bits", Want: len(a) * 8, Got: len(b) * 8}
	}
	d := 0
	for i := range a {
		d += bits.OnesCount8(a[i] ^ b[i])
	}
	return d, nil
}
