package secrets

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"strings"
	"testing"

	"golang.org/x/crypto/pbkdf2"
)

// rawTestKey builds a CachedKey without running the KDF.
func rawTestKey(t *testing.T, passphrase string) *CachedKey {
	t.Helper()
	key := make([]byte, KeySize)
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	if _, err := rand.Read(salt); err != nil {
		t.Fatalf("Failed to generate salt: %v", err)
	}
	return FromRaw(key, salt, []byte(passphrase))
}

func TestDerive_MatchesPBKDF2(t *testing.T) {
	passphrase := []byte("correct-horse-battery")

	key, err := Derive(passphrase)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	defer key.Destroy()

	if len(key.salt) != SaltSize {
		t.Errorf("Expected %d-byte salt, got %d", SaltSize, len(key.salt))
	}
	if len(key.key) != KeySize {
		t.Errorf("Expected %d-byte key, got %d", KeySize, len(key.key))
	}

	want := pbkdf2.Key(passphrase, key.salt, 600000, 32, sha256.New)
	if !bytes.Equal(key.key, want) {
		t.Error("Derived key does not match PBKDF2-HMAC-SHA256 with 600000 iterations")
	}
}

func TestDerive_FreshSaltEachCall(t *testing.T) {
	a := rawTestKey(t, "x")
	b, err := Derive([]byte("x"))
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	if bytes.Equal(a.salt, b.salt) {
		t.Error("Expected two keys to have different salts")
	}
}

func TestDeriveWithSalt_RejectsBadSalt(t *testing.T) {
	if _, err := DeriveWithSalt([]byte("x"), []byte("short")); err == nil {
		t.Error("Expected error for short salt")
	}
}

func TestFromRaw_CopiesInputs(t *testing.T) {
	key := bytes.Repeat([]byte{1}, KeySize)
	salt := bytes.Repeat([]byte{2}, SaltSize)
	pass := []byte("secret")

	cached := FromRaw(key, salt, pass)
	key[0], salt[0], pass[0] = 9, 9, 9

	if cached.key[0] != 1 || cached.salt[0] != 2 || cached.passphrase[0] != 's' {
		t.Error("FromRaw must not alias caller buffers")
	}
}

func TestCachedKey_DestroyWipes(t *testing.T) {
	cached := rawTestKey(t, "secret")
	keyBuf := cached.key
	passBuf := cached.passphrase

	cached.Destroy()

	if !cached.Destroyed() {
		t.Error("Expected key to report destroyed")
	}
	if !bytes.Equal(keyBuf, make([]byte, KeySize)) {
		t.Error("Expected key buffer to be zeroed")
	}
	if !bytes.Equal(passBuf, make([]byte, len(passBuf))) {
		t.Error("Expected passphrase buffer to be zeroed")
	}

	// Destroying twice is harmless.
	cached.Destroy()
}

func TestCachedKey_CloneIsIndependent(t *testing.T) {
	cached := rawTestKey(t, "secret")
	clone := cached.Clone()
	cached.Destroy()

	if clone.Destroyed() {
		t.Fatal("Destroying the original must not affect the clone")
	}
	if !bytes.Equal(clone.Salt(), clone.salt) {
		t.Error("Salt() should return the salt")
	}
}

func TestCachedKey_FormattingIsRedacted(t *testing.T) {
	cached := FromRaw(bytes.Repeat([]byte{0xAB}, KeySize), bytes.Repeat([]byte{0x01}, SaltSize), []byte("hunter2-passphrase"))

	verbs := []string{"%v", "%+v", "%#v", "%s", "%q", "%x", "%d"}
	for _, verb := range verbs {
		t.Run(verb, func(t *testing.T) {
			out := fmt.Sprintf(verb, cached)
			if strings.Contains(out, "hunter2") {
				t.Errorf("%s leaked the passphrase: %s", verb, out)
			}
			if strings.Contains(strings.ToLower(out), "abababab") {
				t.Errorf("%s leaked the key: %s", verb, out)
			}
			if !strings.Contains(out, "[REDACTED]") {
				t.Errorf("%s should contain the redaction marker: %s", verb, out)
			}
			if !strings.Contains(out, "01010101") {
				t.Errorf("%s should show the salt: %s", verb, out)
			}
		})
	}
}
