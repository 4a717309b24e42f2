package random

import (
	"crypto/rand"
	"encoding/base64"
	"math/big"
)

// Random supplies the randomness behind room codes and session tokens
type Random interface {
	// String returns length characters drawn uniformly from alphabet
	String(length int, alphabet string) string

	// Token returns n random bytes encoded as unpadded base64url
	Token(n int) string
}

// CryptoRandom implements Random using crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// String draws each character with crypto/rand.Int so the alphabet length
// never biases the distribution
func (r *CryptoRandom) String(length int, alphabet string) string {
	if length <= 0 || len(alphabet) == 0 {
		return ""
	}
	limit := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			// crypto/rand only fails when the OS source is broken
			panic(err)
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out)
}

// Token returns n bytes from crypto/rand as base64url
func (r *CryptoRandom) Token(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
