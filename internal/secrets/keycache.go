package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"runtime"

	kerrors "github.com/PolarWolf314/inkvault/internal/errors"

	"golang.org/x/crypto/pbkdf2"
)

// Wire-format constants. Changing any of them makes existing vaults unreadable.
const (
	SaltSize   = 16
	NonceSize  = 12
	KeySize    = 32
	Iterations = 600_000
)

// CachedKey holds a derived key together with the salt it was derived with
// and the passphrase it came from. The passphrase is kept so that assets
// sealed under a different salt can be opened by deriving again.
//
// A CachedKey is never mutated after construction. Callers that hand a key to
// another goroutine pass a Clone.
type CachedKey struct {
	salt       []byte
	key        []byte
	passphrase []byte
}

// Derive generates a fresh random salt and derives a key from passphrase.
// This runs 600,000 PBKDF2 iterations and must not be called on the
// interactive goroutine.
func Derive(passphrase []byte) (*CachedKey, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("%w: generating salt: %v", kerrors.ErrEncryptionFailed, err)
	}
	return DeriveWithSalt(passphrase, salt)
}

// DeriveWithSalt derives a key from passphrase and an existing salt.
func DeriveWithSalt(passphrase, salt []byte) (*CachedKey, error) {
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("%w: salt must be %d bytes, got %d", kerrors.ErrInvalidData, SaltSize, len(salt))
	}
	return newCachedKey(deriveKey(passphrase, salt), salt, passphrase), nil
}

// FromRaw builds a CachedKey from a key that was already derived from
// (passphrase, salt). No derivation is performed. The inputs are copied.
func FromRaw(key, salt, passphrase []byte) *CachedKey {
	return newCachedKey(key, salt, passphrase)
}

func newCachedKey(key, salt, passphrase []byte) *CachedKey {
	k := &CachedKey{
		salt:       append([]byte(nil), salt...),
		key:        append([]byte(nil), key...),
		passphrase: append([]byte(nil), passphrase...),
	}
	runtime.SetFinalizer(k, (*CachedKey).Destroy)
	return k
}

func deriveKey(passphrase, salt []byte) []byte {
	return pbkdf2.Key(passphrase, salt, Iterations, KeySize, sha256.New)
}

// Salt returns a copy of the salt. The salt is not secret.
func (k *CachedKey) Salt() []byte {
	return append([]byte(nil), k.salt...)
}

// Clone returns an independent copy, suitable for handing to a worker.
func (k *CachedKey) Clone() *CachedKey {
	if k == nil {
		return nil
	}
	return newCachedKey(k.key, k.salt, k.passphrase)
}

// Destroyed reports whether the key material has been wiped.
func (k *CachedKey) Destroyed() bool {
	return k == nil || k.key == nil
}

// Destroy wipes the key and passphrase. The CachedKey is unusable afterwards.
func (k *CachedKey) Destroy() {
	if k == nil {
		return
	}
	Wipe(k.key)
	Wipe(k.passphrase)
	k.key = nil
	k.passphrase = nil
}

// keyForSalt returns the key for salt, deriving it from the cached passphrase
// when salt differs from the cached one.
func (k *CachedKey) keyForSalt(salt []byte) ([]byte, bool) {
	if string(salt) == string(k.salt) {
		return k.key, false
	}
	return deriveKey(k.passphrase, salt), true
}

func (k *CachedKey) String() string {
	if k == nil {
		return "CachedKey(nil)"
	}
	return fmt.Sprintf("CachedKey{key: [REDACTED], passphrase: [REDACTED], salt: %s}", hex.EncodeToString(k.salt))
}

func (k *CachedKey) GoString() string {
	return k.String()
}

// Format makes every fmt verb print the redacted form.
func (k *CachedKey) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, k.String())
}
