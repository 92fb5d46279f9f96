// Package fair implements the commit-reveal randomness source. A server
// seed is generated with crypto/rand when a round opens and only its SHA-256
// commitment is published; after resolution the seed is revealed so anyone
// can re-derive the outcome from (seed, round key, nonce).
package fair

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// ErrUnavailable is returned when the secure random source cannot be read.
// Resolution fails closed on it: no round ever falls back to weak randomness.
var ErrUnavailable = errors.New("secure random source unavailable")

const seedSize = 32

// randReader is swapped out by tests to simulate an unavailable CSPRNG.
var randReader io.Reader = rand.Reader

// NewServerSeed draws a fresh 32-byte server seed and returns it hex-encoded
// together with its commitment.
func NewServerSeed() (seed string, commitment string, err error) {
	buf := make([]byte, seedSize)
	if _, err := io.ReadFull(randReader, buf); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	seed = hex.EncodeToString(buf)
	return seed, Commitment(seed), nil
}

// Commitment returns the SHA-256 hex digest of a hex-encoded seed, published
// while the round is still open.
func Commitment(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// Verify checks a revealed seed against its published commitment.
func Verify(commitment, seed string) bool {
	return hmac.Equal([]byte(Commitment(seed)), []byte(commitment))
}

// Draw is a deterministic random stream bound to one round: every value is
// derived from HMAC-SHA256(seed, roundKey:nonce:counter). Two draws over the
// same materials produce identical outcomes, which is what makes resolution
// idempotent by construction.
type Draw struct {
	key     []byte
	context string
	counter uint64
	buf     []byte
}

// NewDraw builds the stream for a round. roundKey should identify the round
// uniquely (game and round number); nonce is the optional player-supplied
// value for the fairness proof.
func NewDraw(seed, roundKey, nonce string) (*Draw, error) {
	key, err := hex.DecodeString(seed)
	if err != nil || len(key) != seedSize {
		return nil, errors.New("malformed server seed")
	}

	return &Draw{
		key:     key,
		context: roundKey + ":" + nonce,
	}, nil
}

func (d *Draw) next8() []byte {
	if len(d.buf) < 8 {
		mac := hmac.New(sha256.New, d.key)
		fmt.Fprintf(mac, "%s:%d", d.context, d.counter)
		d.counter++
		d.buf = append(d.buf, mac.Sum(nil)...)
	}

	out := d.buf[:8]
	d.buf = d.buf[8:]
	return out
}

// Uint64n returns a uniform value in [0, n). Values above the largest
// multiple of n are rejected and redrawn, so non-power-of-two slot counts
// (like a 15-sector wheel) carry no modulo bias.
func (d *Draw) Uint64n(n uint64) uint64 {
	if n == 0 {
		return 0
	}

	threshold := ^uint64(0) - (^uint64(0) % n)
	for {
		v := binary.BigEndian.Uint64(d.next8())
		if v < threshold {
			return v % n
		}
	}
}

// Float64 returns a uniform value in [0, 1) built from 52 bits of the
// stream, mirroring the precision of a float64 mantissa.
func (d *Draw) Float64() float64 {
	v := binary.BigEndian.Uint64(d.next8()) >> 12
	return float64(v) / float64(uint64(1)<<52)
}
