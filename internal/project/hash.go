package project

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
)

// Digest is a fixed 256-bit content hash.
type Digest [32]byte

// String returns the lowercase hex form used for cache file names.
func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// IsZero reports whether d was never set.
func (d Digest) IsZero() bool { return d == Digest{} }

// HashBytes hashes a single blob.
func HashBytes(b []byte) Digest { return sha256.Sum256(b) }

// HashFile hashes the contents of path.
func HashFile(path string) (Digest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Digest{}, err
	}
	return HashBytes(b), nil
}

// Combine builds H(content || dep1 || dep2 ...). Callers pass deps in a
// fixed order; reordering them changes the result.
func Combine(content Digest, deps ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range deps {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
