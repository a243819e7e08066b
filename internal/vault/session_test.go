package vault

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	kerrors "github.com/PolarWolf314/inkvault/internal/errors"
	"github.com/PolarWolf314/inkvault/internal/secrets"
)

func waitIdle(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.WaitIdle(ctx); err != nil {
		t.Fatalf("WaitIdle: %v", err)
	}
}

func TestCreateThenUnlock(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	s := New(Options{Dir: dir, Notifier: rec, PollInterval: time.Millisecond})

	pass := []byte("correct-horse-battery")
	if err := s.BeginCreate(pass, ""); err != nil {
		t.Fatalf("BeginCreate: %v", err)
	}
	waitIdle(t, s)

	if ev := rec.last(t); ev.Kind != EventCreated {
		t.Fatalf("event = %+v, want created", ev)
	}
	if !s.Unlocked() || s.Content() != InitialDocument || s.Dirty() {
		t.Fatalf("after create: unlocked=%v content=%q dirty=%v", s.Unlocked(), s.Content(), s.Dirty())
	}
	for i, b := range pass {
		if b != 0 {
			t.Fatalf("passphrase byte %d not wiped", i)
		}
	}
	if info, err := os.Stat(AssetsDir(dir)); err != nil || !info.IsDir() {
		t.Errorf("assets dir missing: %v", err)
	}

	data, err := os.ReadFile(VaultPath(dir))
	if err != nil {
		t.Fatalf("reading vault: %v", err)
	}
	if !secrets.IsEncrypted(data) {
		t.Fatalf("vault on disk is not an envelope: %s", data)
	}

	rec2 := &recorder{}
	other := New(Options{Dir: dir, Notifier: rec2, PollInterval: time.Millisecond})
	if err := other.BeginUnlock([]byte("correct-horse-battery")); err != nil {
		t.Fatalf("BeginUnlock: %v", err)
	}
	waitIdle(t, other)
	if ev := rec2.last(t); ev.Kind != EventUnlocked {
		t.Fatalf("event = %+v, want unlocked", ev)
	}
	if other.Content() != `{"tree":[],"trash":[]}` {
		t.Errorf("unlocked content = %q", other.Content())
	}

	rec3 := &recorder{}
	wrong := New(Options{Dir: dir, Notifier: rec3, PollInterval: time.Millisecond})
	if err := wrong.BeginUnlock([]byte("wrong")); err != nil {
		t.Fatalf("BeginUnlock: %v", err)
	}
	waitIdle(t, wrong)
	ev := rec3.last(t)
	if ev.Kind != EventUnlockFailed || !errors.Is(ev.Err, kerrors.ErrDecryptionFailed) {
		t.Fatalf("event = %+v, want unlock-failed with generic decryption error", ev)
	}
	if wrong.Unlocked() {
		t.Error("wrong passphrase must not unlock")
	}
}

func TestBeginCreate_RefusesExistingVault(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(VaultPath(dir), []byte(`{"tree":[]}`), 0600); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	s := New(Options{Dir: dir, Notifier: rec, PollInterval: time.Millisecond})
	if err := s.BeginCreate([]byte("pass"), ""); err != nil {
		t.Fatalf("BeginCreate: %v", err)
	}
	waitIdle(t, s)

	ev := rec.last(t)
	if ev.Kind != EventCreateFailed || !errors.Is(ev.Err, kerrors.ErrVaultExists) {
		t.Fatalf("event = %+v, want create-failed ErrVaultExists", ev)
	}
}

func TestBeginUnlock_MissingVault(t *testing.T) {
	rec := &recorder{}
	s := New(Options{Dir: t.TempDir(), Notifier: rec, PollInterval: time.Millisecond})
	if err := s.BeginUnlock([]byte("pass")); err != nil {
		t.Fatalf("BeginUnlock: %v", err)
	}
	waitIdle(t, s)
	if ev := rec.last(t); !errors.Is(ev.Err, kerrors.ErrVaultNotFound) {
		t.Fatalf("event = %+v, want ErrVaultNotFound", ev)
	}
}

func TestBeginUnlock_LegacyPlaintextVault(t *testing.T) {
	dir := t.TempDir()
	legacy := `{"tree":[{"id":"n1"}],"trash":[]}`
	if err := os.WriteFile(VaultPath(dir), []byte(legacy), 0600); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	s := New(Options{Dir: dir, Notifier: rec, PollInterval: time.Millisecond})
	if err := s.BeginUnlock([]byte("new-pass")); err != nil {
		t.Fatalf("BeginUnlock: %v", err)
	}
	waitIdle(t, s)
	if !s.Unlocked() || s.Content() != legacy {
		t.Fatalf("legacy unlock: unlocked=%v content=%q", s.Unlocked(), s.Content())
	}

	// The next save upgrades the file to an envelope.
	if err := s.SaveSync(); err != nil {
		t.Fatalf("SaveSync: %v", err)
	}
	data, err := os.ReadFile(VaultPath(dir))
	if err != nil {
		t.Fatal(err)
	}
	if !secrets.IsEncrypted(data) {
		t.Error("legacy vault was not encrypted on save")
	}
}

func TestBeginUnlock_Refused(t *testing.T) {
	s := New(Options{})
	pass := []byte("secret")
	if err := s.BeginUnlock(pass); !errors.Is(err, kerrors.ErrNoVaultLocation) {
		t.Fatalf("err = %v, want ErrNoVaultLocation", err)
	}
	for i, b := range pass {
		if b != 0 {
			t.Fatalf("refused passphrase byte %d not wiped", i)
		}
	}
}

func TestSessionAssets(t *testing.T) {
	dir := t.TempDir()
	s, _ := unlockedSession(t, dir, &recorder{})

	meta, err := s.AddAsset("Diagram.PNG", []byte("\x89PNG fake"))
	if err != nil {
		t.Fatalf("AddAsset: %v", err)
	}
	if meta.MIMEType != "image/png" || meta.Size != 9 {
		t.Errorf("meta = %+v", meta)
	}
	if got := s.Assets(); len(got) != 1 || got[0].ID != meta.ID {
		t.Fatalf("Assets() = %+v", got)
	}

	raw, err := os.ReadFile(filepath.Join(AssetsDir(dir), meta.ID))
	if err != nil {
		t.Fatal(err)
	}
	if !secrets.IsEncrypted(raw) {
		t.Error("asset stored in plaintext")
	}

	plain, err := s.ReadAsset(meta.ID)
	if err != nil {
		t.Fatalf("ReadAsset: %v", err)
	}
	if string(plain) != "\x89PNG fake" {
		t.Errorf("ReadAsset = %q", plain)
	}

	if _, err := s.ReadAsset("../vault.json"); !errors.Is(err, kerrors.ErrInvalidAssetID) {
		t.Errorf("traversal id: err = %v", err)
	}

	if err := s.Lock(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ReadAsset(meta.ID); !errors.Is(err, kerrors.ErrVaultLocked) {
		t.Errorf("locked read: err = %v", err)
	}
}
