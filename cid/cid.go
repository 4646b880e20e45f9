// Package cid implements a minimal content identifier: the digest of a
// canonical byte encoding under a fixed hash function. Real deployments of
// the original system use a multihash/multicodec pair (arbitrary hash
// function, self-describing); this implementation pins blake2b-256 as the
// single supported hash, which is enough to satisfy spec.md's requirement
// that the CID be a stable, deterministic function of the canonical bytes.
package cid

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Size is the digest length in bytes.
const Size = 32

// Cid is a content identifier: the blake2b-256 digest of a canonical byte
// encoding. Comparable and usable as a map key.
type Cid struct {
	digest [Size]byte
}

// Undef is the zero Cid, used where no CID binding is present.
var Undef Cid

// IsUndef reports whether c is the zero value.
func (c Cid) IsUndef() bool { return c == Undef }

// Of hashes data and returns its Cid.
func Of(data []byte) Cid {
	return Cid{digest: blake2b.Sum256(data)}
}

// Bytes returns the raw digest.
func (c Cid) Bytes() []byte { return c.digest[:] }

func (c Cid) String() string {
	return hex.EncodeToString(c.digest[:])
}

// Less gives Cid a total order, used to keep link sets and relation
// iteration order stable.
func (c Cid) Less(other Cid) bool {
	for i := range c.digest {
		if c.digest[i] != other.digest[i] {
			return c.digest[i] < other.digest[i]
		}
	}
	return false
}

// FromHex parses the String() form back into a Cid, for tests and
// diagnostics.
func FromHex(s string) (Cid, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Cid{}, fmt.Errorf("cid: invalid hex: %w", err)
	}
	if len(b) != Size {
		return Cid{}, fmt.Errorf("cid: expected %d bytes, got %d", Size, len(b))
	}
	var c Cid
	copy(c.digest[:], b)
	return c, nil
}
