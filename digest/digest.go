// Package digest computes the fixed-width content digests an RPM package
// carries over its header and payload byte ranges, and optionally produces
// a detached OpenPGP signature over the same ranges.
package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"

	"github.com/pkg/errors"
)

// Algo identifies a digest algorithm by its RPM FILEDIGESTALGO tag value.
type Algo int

const (
	MD5    Algo = 1
	SHA256 Algo = 8
)

// ErrUnknownAlgo is returned by Sum and Hex when Algo isn't MD5 or SHA256.
var ErrUnknownAlgo = errors.New("digest: unknown algorithm")

// Sum returns the raw digest of b under algo.
func Sum(algo Algo, b []byte) ([]byte, error) {
	switch algo {
	case MD5:
		sum := md5.Sum(b)
		return sum[:], nil
	case SHA256:
		sum := sha256.Sum256(b)
		return sum[:], nil
	default:
		return nil, errors.Wrapf(ErrUnknownAlgo, "algo %d", algo)
	}
}

// Hex returns the lowercase hex digest of b under algo, the form rpmpack
// stores in FILEDIGESTS / SIGSHA256 tag values.
func Hex(algo Algo, b []byte) (string, error) {
	sum, err := Sum(algo, b)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", sum), nil
}

// SHA1Hex returns the lowercase hex SHA1 digest of b. SHA1 is fixed to the
// header-section signature tag (SIGSHA1) regardless of the package's
// configured FILEDIGESTALGO, matching historical rpm signature practice.
func SHA1Hex(b []byte) string {
	sum := sha1.Sum(b)
	return fmt.Sprintf("%x", sum)
}
