package secrets

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"

	kerrors "github.com/PolarWolf314/inkvault/internal/errors"
)

// Envelope is the on-disk form of one encrypted payload:
//
//	{"encrypted":true,"data":"<base64(salt || nonce || ciphertext)>"}
//
// Files written before encryption existed carry "encrypted":false (or no flag
// at all) and keep their plaintext in Data, or are the plaintext themselves.
type Envelope struct {
	Encrypted bool            `json:"encrypted"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// minSealedSize is the shortest decoded payload accepted: salt, nonce and at
// least one byte of ciphertext.
const minSealedSize = SaltSize + NonceSize + 1

// EncryptText seals the vault document.
func EncryptText(plaintext string, key *CachedKey) ([]byte, error) {
	return Encrypt([]byte(plaintext), key)
}

// EncryptAsset seals the bytes of one asset.
func EncryptAsset(data []byte, key *CachedKey) ([]byte, error) {
	return Encrypt(data, key)
}

// Encrypt seals plaintext with AES-256-GCM under key, using a fresh random
// nonce, and returns the serialized envelope.
func Encrypt(plaintext []byte, key *CachedKey) ([]byte, error) {
	if key.Destroyed() {
		return nil, fmt.Errorf("%w: key has been destroyed", kerrors.ErrEncryptionFailed)
	}

	gcm, err := newGCM(key.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrEncryptionFailed, err)
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: generating nonce: %v", kerrors.ErrEncryptionFailed, err)
	}

	sealed := make([]byte, 0, SaltSize+NonceSize+len(plaintext)+gcm.Overhead())
	sealed = append(sealed, key.salt...)
	sealed = append(sealed, nonce...)
	sealed = gcm.Seal(sealed, nonce, plaintext, nil)

	data, err := json.Marshal(base64.StdEncoding.EncodeToString(sealed))
	if err != nil {
		return nil, kerrors.Op(kerrors.OpSerialization, "", err)
	}

	out, err := json.Marshal(Envelope{Encrypted: true, Data: data})
	if err != nil {
		return nil, kerrors.Op(kerrors.OpSerialization, "", err)
	}
	return out, nil
}

// Decrypt opens a vault document envelope with passphrase.
//
// On success it returns the plaintext together with a CachedKey built from
// the key that was just derived, so the next save needs no second
// derivation. Legacy unencrypted documents are returned as they are, with a
// freshly derived CachedKey.
//
// Any authentication failure returns ErrDecryptionFailed and nothing else.
func Decrypt(payload []byte, passphrase []byte) (string, *CachedKey, error) {
	env, legacy, err := parseEnvelope(payload)
	if err != nil {
		return "", nil, err
	}

	if legacy != nil {
		if !utf8.Valid(legacy) {
			return "", nil, fmt.Errorf("%w: document is not valid UTF-8", kerrors.ErrInvalidData)
		}
		key, err := Derive(passphrase)
		if err != nil {
			return "", nil, err
		}
		return string(legacy), key, nil
	}

	salt, nonce, ciphertext, err := splitSealed(env)
	if err != nil {
		return "", nil, err
	}

	key := deriveKey(passphrase, salt)
	plaintext, err := open(key, nonce, ciphertext)
	if err != nil {
		Wipe(key)
		return "", nil, err
	}
	if !utf8.Valid(plaintext) {
		Wipe(key)
		return "", nil, fmt.Errorf("%w: document is not valid UTF-8", kerrors.ErrInvalidData)
	}

	cached := FromRaw(key, salt, passphrase)
	Wipe(key)
	return string(plaintext), cached, nil
}

// DecryptAsset opens one asset with the live key. Assets sealed under a
// different salt are opened with a key derived from the cached passphrase and
// the asset's own salt. Payloads that are not JSON are returned unchanged:
// they predate encryption.
func DecryptAsset(payload []byte, key *CachedKey) ([]byte, error) {
	o := NewAssetOpener(key)
	defer o.Close()
	return o.Open(payload)
}

// IsEncrypted reports whether payload is an envelope with the encrypted flag
// set. It does not validate the ciphertext.
func IsEncrypted(payload []byte) bool {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return false
	}
	return env.Encrypted
}

// parseEnvelope returns either the envelope to decrypt, or the legacy
// plaintext when the payload is not flagged as encrypted.
func parseEnvelope(payload []byte) (*Envelope, []byte, error) {
	trimmed := bytes.TrimSpace(payload)
	if !json.Valid(trimmed) {
		return nil, nil, fmt.Errorf("%w: payload is not valid JSON", kerrors.ErrInvalidData)
	}

	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, payload, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidData, err)
	}

	var env Envelope
	if raw, ok := fields["encrypted"]; ok {
		if err := json.Unmarshal(raw, &env.Encrypted); err != nil {
			return nil, nil, fmt.Errorf("%w: encrypted flag is not a boolean", kerrors.ErrInvalidData)
		}
	}
	env.Data = fields["data"]

	if env.Encrypted {
		return &env, nil, nil
	}

	// Legacy: the data field if present, otherwise the whole document.
	if len(env.Data) == 0 {
		return nil, payload, nil
	}
	var text string
	if err := json.Unmarshal(env.Data, &text); err == nil {
		return nil, []byte(text), nil
	}
	return nil, []byte(env.Data), nil
}

func splitSealed(env *Envelope) (salt, nonce, ciphertext []byte, err error) {
	if len(env.Data) == 0 {
		return nil, nil, nil, fmt.Errorf("%w: missing data field", kerrors.ErrInvalidData)
	}
	var encoded string
	if err := json.Unmarshal(env.Data, &encoded); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: data field is not a string", kerrors.ErrInvalidData)
	}
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: data is not valid base64", kerrors.ErrInvalidData)
	}
	if len(sealed) < minSealedSize {
		return nil, nil, nil, fmt.Errorf("%w: payload truncated (%d bytes)", kerrors.ErrInvalidData, len(sealed))
	}
	return sealed[:SaltSize], sealed[SaltSize : SaltSize+NonceSize], sealed[SaltSize+NonceSize:], nil
}

func open(key, nonce, ciphertext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, kerrors.ErrDecryptionFailed
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, kerrors.ErrDecryptionFailed
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
