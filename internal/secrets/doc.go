// Package secrets implements key derivation and the envelope codec used for
// the vault document and every asset file.
//
// # Key Derivation
//
// Keys are derived with PBKDF2-HMAC-SHA256, 600,000 iterations, a 16-byte
// random salt and a 32-byte output. Derivation takes hundreds of
// milliseconds, so a CachedKey keeps the result (plus its salt and the
// passphrase) for the lifetime of an unlocked session:
//
//	key, err := secrets.Derive(passphrase) // on a worker goroutine
//	defer key.Destroy()
//
// FromRaw rebuilds a CachedKey from a key that was already derived, which is
// how Decrypt hands back a key without deriving twice.
//
// # Envelope Format
//
// Every payload is sealed with AES-256-GCM under a fresh 12-byte nonce and
// stored as:
//
//	{"encrypted":true,"data":"<base64(salt(16) || nonce(12) || ciphertext)>"}
//
// The salt travels with the ciphertext, so an asset written in an earlier
// session can be opened by deriving a key from the cached passphrase and the
// asset's own salt. AssetOpener memoises those per-salt keys.
//
// # Failure Semantics
//
// Decryption fails closed: a wrong passphrase and a tampered ciphertext both
// return errors.ErrDecryptionFailed with the same message. Malformed
// envelopes return errors.ErrInvalidData.
//
// Files without "encrypted":true predate encryption. Decrypt returns their
// content as plaintext (and still derives a key for the next save);
// DecryptAsset returns legacy asset bytes unchanged.
//
// # Secret Hygiene
//
// Destroy wipes the key and passphrase (via memguard); a finalizer does the
// same for keys that are dropped without Destroy. CachedKey prints as a
// redacted marker plus its salt under every fmt verb.
package secrets
