// Package ident generates the operator-visible identifiers used for orders,
// transactions, and correlation ids.
package ident

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const randChars = 7

// New returns an identifier of the form PREFIX_TIMESTAMP_RANDOM, upper-cased:
// the millisecond timestamp in base36 followed by 7 random base36 characters.
// Two consecutive calls with the same prefix collide only if the random
// suffix collides within the same millisecond.
func New(prefix string) string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	return strings.ToUpper(prefix + "_" + ts + "_" + randomBase36(randChars))
}

func randomBase36(n int) string {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	var b strings.Builder
	b.Grow(n)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails if the OS entropy source is broken;
			// fall back to the clock rather than panic in a test tool.
			idx = big.NewInt(time.Now().UnixNano() % int64(len(alphabet)))
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String()
}
