package slug

import (
	"context"
	"crypto/rand"
	"math/big"

	"github.com/pkg/errors"
)

const (
	// Length of every generated slug.
	Length   = 8
	alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

var alphabetSize = big.NewInt(int64(len(alphabet)))

// Source produces candidate slugs.
type Source func() (string, error)

// ExistsFunc reports whether a slug is already assigned.
type ExistsFunc func(ctx context.Context, slug string) (bool, error)

// Generate returns Length characters drawn uniformly from [a-z0-9] using
// crypto/rand. Slugs are the only credential guarding a machine's public page
// so a predictable generator must not be used.
func Generate() (string, error) {
	buf := make([]byte, Length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", errors.Wrap(err, "failed to read random source")
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}

// Unique draws candidates from next until one is not taken. There is no
// upper bound on attempts and nothing is reserved between the check and the
// caller's insert: two concurrent creations can in theory pick the same
// slug, in which case the storage unique index rejects the second insert.
func Unique(ctx context.Context, exists ExistsFunc, next Source) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate, err := next()
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", errors.Wrapf(err, "failed to check slug %q", candidate)
		}
		if !taken {
			return candidate, nil
		}
	}
}

// Valid reports whether s has the shape of a generated slug.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z') && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
