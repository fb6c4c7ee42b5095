package keys

import (
	"strings"

	"github.com/google/uuid"

	dkCrypto "github.com/drmkeys/backend-go/internal/crypto"
)

// Pair is a key identifier and its content encryption key, both 128-bit
// hex strings without separators. The kid names the asset and is the
// message signed throughout the authorization protocol; the key itself
// is never persisted in plaintext.
type Pair struct {
	Kid string `json:"kid"`
	Key string `json:"key"`
}

// Derive turns a caller-supplied salt into a stable (kid, key) pair.
// A fresh random 128-bit seed becomes the kid; the key is a name-based
// UUID with the seed as namespace and the salt as name, so distinct
// salts give distinct keys while re-deriving with the same (salt, seed)
// is deterministic.
func Derive(salt string) (Pair, error) {
	seed, err := dkCrypto.GenerateKey(16)
	if err != nil {
		return Pair{}, err
	}
	ns, err := uuid.FromBytes(seed)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		Kid: Sanitize(ns.String()),
		Key: Sanitize(uuid.NewSHA1(ns, []byte(salt)).String()),
	}, nil
}

// DeriveWithSeed is Derive with a caller-controlled seed. Used by tests
// and by anything that needs to replay a derivation.
func DeriveWithSeed(salt string, seed [16]byte) Pair {
	ns, _ := uuid.FromBytes(seed[:])
	return Pair{
		Kid: Sanitize(ns.String()),
		Key: Sanitize(uuid.NewSHA1(ns, []byte(salt)).String()),
	}
}

// Sanitize strips grouping punctuation from a hex string and lower-cases
// it. Idempotent.
func Sanitize(hexish string) string {
	return strings.ToLower(strings.NewReplacer("-", "", ":", "", " ", "").Replace(hexish))
}
