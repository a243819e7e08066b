package secrets

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"
)

// AssetOpener decrypts assets with one live key, remembering every key it
// had to derive for a foreign salt. Opening many assets that share a salt
// costs one derivation.
//
// An AssetOpener is not safe for concurrent use.
type AssetOpener struct {
	key     *CachedKey
	owned   bool
	derived map[string][]byte
}

// NewAssetOpener returns an opener backed by key.
func NewAssetOpener(key *CachedKey) *AssetOpener {
	return &AssetOpener{key: key, derived: make(map[string][]byte)}
}

// NewRecoveryOpener returns an opener that derives the key for every salt
// from passphrase alone. It opens assets still sealed under a passphrase the
// vault no longer uses. The passphrase is copied and the copy is wiped by
// Close.
func NewRecoveryOpener(passphrase []byte) *AssetOpener {
	return &AssetOpener{
		key:     &CachedKey{passphrase: bytes.Clone(passphrase)},
		owned:   true,
		derived: make(map[string][]byte),
	}
}

// Open decrypts payload. Payloads that are not JSON are returned unchanged.
// An envelope not flagged as encrypted yields its legacy data field, the same
// way Decrypt treats a legacy vault document.
func (o *AssetOpener) Open(payload []byte) ([]byte, error) {
	if !utf8.Valid(payload) || !json.Valid(payload) {
		return payload, nil
	}

	env, legacy, err := parseEnvelope(payload)
	if err != nil {
		return payload, nil
	}
	if env == nil {
		return legacy, nil
	}

	salt, nonce, ciphertext, err := splitSealed(env)
	if err != nil {
		return nil, err
	}
	return open(o.keyFor(salt), nonce, ciphertext)
}

func (o *AssetOpener) keyFor(salt []byte) []byte {
	if k, ok := o.derived[string(salt)]; ok {
		return k
	}
	k, derived := o.key.keyForSalt(salt)
	if derived {
		o.derived[string(salt)] = k
	}
	return k
}

// Close wipes every key the opener derived. A live key passed to
// NewAssetOpener is left intact.
func (o *AssetOpener) Close() {
	for salt, k := range o.derived {
		Wipe(k)
		delete(o.derived, salt)
	}
	if o.owned {
		o.key.Destroy()
	}
}
