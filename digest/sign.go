package digest

import (
	"bytes"
	"crypto"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/pkg/errors"
)

// ErrNoSigningKey is returned by LoadSigningKey when the keyring contains no
// private key capable of signing.
var ErrNoSigningKey = errors.New("digest: no usable private signing key in keyring")

// Signer produces a detached, non-ASCII-armored OpenPGP signature over its
// input. It matches the signing hook shape rpmpack's own ecosystem (and
// nfpm's internal/sign package) settled on: a plain []byte-to-[]byte
// function, so callers can swap in gpg-agent or an HSM without this
// package needing to know about key material at all.
type Signer func(data []byte) ([]byte, error)

// LoadSigningKey reads an (optionally armored) OpenPGP keyring from path and
// returns a Signer bound to the first private key able to sign. passphrase
// decrypts the key if it's encrypted; pass "" for an unencrypted key.
func LoadSigningKey(path, passphrase string) (Signer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "digest: read keyring")
	}

	entities, err := readKeyRing(raw)
	if err != nil {
		return nil, err
	}

	var key *openpgp.Entity
	for _, e := range entities {
		if e.PrivateKey != nil && e.PrivateKey.CanSign() {
			key = e
			break
		}
	}
	if key == nil {
		return nil, ErrNoSigningKey
	}

	if key.PrivateKey.Encrypted {
		if passphrase == "" {
			return nil, errors.New("digest: private key is encrypted but no passphrase was given")
		}
		if err := key.PrivateKey.Decrypt([]byte(passphrase)); err != nil {
			return nil, errors.Wrap(err, "digest: decrypt private key")
		}
	}

	return func(data []byte) ([]byte, error) {
		var sig bytes.Buffer
		if err := openpgp.DetachSign(&sig, key, bytes.NewReader(data), &packet.Config{DefaultHash: crypto.SHA256}); err != nil {
			return nil, errors.Wrap(err, "digest: detach sign")
		}
		return sig.Bytes(), nil
	}, nil
}

func readKeyRing(raw []byte) (openpgp.EntityList, error) {
	if isArmored(raw) {
		el, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(raw))
		return el, errors.Wrap(err, "digest: decode armored keyring")
	}
	el, err := openpgp.ReadKeyRing(bytes.NewReader(raw))
	return el, errors.Wrap(err, "digest: decode keyring")
}

func isArmored(b []byte) bool {
	return bytes.Contains(b[:min(len(b), 64)], []byte("-----BEGIN PGP"))
}
