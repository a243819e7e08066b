package vault

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PolarWolf314/inkvault/internal/assets"
	kerrors "github.com/PolarWolf314/inkvault/internal/errors"
	logger "github.com/PolarWolf314/inkvault/internal/logging"
	"github.com/PolarWolf314/inkvault/internal/secrets"
)

const rotationDoc = `{"tree":[{"id":"n1","title":"Plans"}],"trash":[]}`

// rotationFixture writes a vault sealed under oldPass plus two assets: one
// sealed under a different salt and one legacy plaintext file.
func rotationFixture(t *testing.T, oldPass string) (string, *Session, *recorder) {
	t.Helper()
	dir := t.TempDir()

	key, err := secrets.Derive([]byte(oldPass))
	if err != nil {
		t.Fatal(err)
	}
	sealed, err := secrets.EncryptText(rotationDoc, key)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(VaultPath(dir), sealed, 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(AssetsDir(dir), 0700); err != nil {
		t.Fatal(err)
	}

	foreign, err := secrets.Derive([]byte(oldPass))
	if err != nil {
		t.Fatal(err)
	}
	defer foreign.Destroy()
	img, err := secrets.EncryptAsset([]byte("image bytes"), foreign)
	if err != nil {
		t.Fatal(err)
	}
	writeTestAsset(t, dir, "img.png", img)
	writeTestAsset(t, dir, "legacy.txt", []byte("old plaintext"))

	rec := &recorder{}
	s := New(Options{Dir: dir, Notifier: rec, PollInterval: time.Millisecond})
	s.key = key
	s.doc = rotationDoc
	metas, err := assets.NewStore(AssetsDir(dir)).List()
	if err != nil {
		t.Fatal(err)
	}
	s.SetAssets(metas)
	return dir, s, rec
}

func writeTestAsset(t *testing.T, dir, id string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(AssetsDir(dir), id), data, 0600); err != nil {
		t.Fatal(err)
	}
}

func readTestAsset(t *testing.T, dir, id string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(AssetsDir(dir), id))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestRotatePassphrase_ReencryptsVaultAndAssets(t *testing.T) {
	dir, s, rec := rotationFixture(t, "old-pass")
	oldSalt := s.key.Salt()

	oldPass, newPass := []byte("old-pass"), []byte("new-pass")
	if err := s.RotatePassphrase(oldPass, newPass); err != nil {
		t.Fatalf("RotatePassphrase: %v", err)
	}
	waitIdle(t, s)

	ev := rec.last(t)
	if ev.Kind != EventRotated || ev.Assets != 2 {
		t.Fatalf("event = %+v, want rotated with 2 assets", ev)
	}
	if bytes.Equal(s.key.Salt(), oldSalt) {
		t.Error("live key was not replaced")
	}
	if !bytes.Equal(oldPass, make([]byte, len(oldPass))) || !bytes.Equal(newPass, make([]byte, len(newPass))) {
		t.Error("passphrases not wiped")
	}

	data, err := os.ReadFile(VaultPath(dir))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := secrets.Decrypt(data, []byte("old-pass")); !errors.Is(err, kerrors.ErrDecryptionFailed) {
		t.Errorf("old passphrase still opens the vault: %v", err)
	}
	doc, key, err := secrets.Decrypt(data, []byte("new-pass"))
	if err != nil {
		t.Fatalf("new passphrase: %v", err)
	}
	defer key.Destroy()
	if doc != rotationDoc {
		t.Errorf("rotated doc = %q", doc)
	}

	for id, want := range map[string]string{"img.png": "image bytes", "legacy.txt": "old plaintext"} {
		raw := readTestAsset(t, dir, id)
		if !secrets.IsEncrypted(raw) {
			t.Errorf("%s not encrypted after rotation", id)
			continue
		}
		plain, err := s.ReadAsset(id)
		if err != nil {
			t.Errorf("ReadAsset(%s): %v", id, err)
			continue
		}
		if string(plain) != want {
			t.Errorf("%s = %q, want %q", id, plain, want)
		}
	}
}

func TestRotatePassphrase_WrongCurrentPassphrase(t *testing.T) {
	dir, s, rec := rotationFixture(t, "old-pass")
	before, _ := os.ReadFile(VaultPath(dir))

	if err := s.RotatePassphrase([]byte("not-it"), []byte("new-pass")); err != nil {
		t.Fatalf("RotatePassphrase: %v", err)
	}
	waitIdle(t, s)

	ev := rec.last(t)
	if ev.Kind != EventRotationFailed || !errors.Is(ev.Err, kerrors.ErrWrongCurrentPassphrase) {
		t.Fatalf("event = %+v, want ErrWrongCurrentPassphrase", ev)
	}
	after, _ := os.ReadFile(VaultPath(dir))
	if !bytes.Equal(before, after) {
		t.Error("vault changed after a refused rotation")
	}
}

func TestRotatePassphrase_UnreadableAssetAbortsBeforeCommit(t *testing.T) {
	dir, s, rec := rotationFixture(t, "old-pass")
	s.assets["missing.bin"] = assets.Meta{ID: "missing.bin"}
	oldSalt := s.key.Salt()

	if err := s.RotatePassphrase([]byte("old-pass"), []byte("new-pass")); err != nil {
		t.Fatalf("RotatePassphrase: %v", err)
	}
	waitIdle(t, s)

	ev := rec.last(t)
	if ev.Kind != EventRotationFailed || !errors.Is(ev.Err, kerrors.ErrAssetNotFound) {
		t.Fatalf("event = %+v, want ErrAssetNotFound", ev)
	}
	if !bytes.Equal(s.key.Salt(), oldSalt) {
		t.Error("live key replaced although nothing was committed")
	}

	data, _ := os.ReadFile(VaultPath(dir))
	_, key, err := secrets.Decrypt(data, []byte("old-pass"))
	if err != nil {
		t.Fatalf("vault no longer opens with the old passphrase: %v", err)
	}
	key.Destroy()
	if secrets.IsEncrypted(readTestAsset(t, dir, "legacy.txt")) {
		t.Error("asset rewritten although the rotation aborted")
	}
}

func TestRotatePassphrase_PartialAssetFailure(t *testing.T) {
	dir, s, rec := rotationFixture(t, "old-pass")
	s.writeAsset = func(dir, id string, data []byte) error {
		if id == "legacy.txt" {
			return errors.New("permission denied")
		}
		return writeAsset(dir, id, data)
	}

	if err := s.RotatePassphrase([]byte("old-pass"), []byte("new-pass")); err != nil {
		t.Fatalf("RotatePassphrase: %v", err)
	}
	waitIdle(t, s)

	ev := rec.last(t)
	if ev.Kind != EventRotationFailed || !errors.Is(ev.Err, kerrors.ErrAssetMigrationIncomplete) {
		t.Fatalf("event = %+v, want ErrAssetMigrationIncomplete", ev)
	}
	if ev.Assets != 1 {
		t.Errorf("migrated = %d, want 1", ev.Assets)
	}

	data, _ := os.ReadFile(VaultPath(dir))
	_, key, err := secrets.Decrypt(data, []byte("new-pass"))
	if err != nil {
		t.Fatalf("vault should already be on the new passphrase: %v", err)
	}
	defer key.Destroy()
	if !bytes.Equal(s.key.Salt(), key.Salt()) {
		t.Error("live key must follow the committed vault")
	}
}

// failingAssetWriter fails every write of id until fixed is set.
type failingAssetWriter struct {
	id    string
	fixed bool
}

func (w *failingAssetWriter) write(dir, id string, data []byte) error {
	if id == w.id && !w.fixed {
		return errors.New("no space left on device")
	}
	return writeAsset(dir, id, data)
}

// reopenSession unlocks dir with passphrase the way a fresh process would.
func reopenSession(t *testing.T, dir, passphrase string) (*Session, *recorder) {
	t.Helper()
	data, err := os.ReadFile(VaultPath(dir))
	if err != nil {
		t.Fatal(err)
	}
	doc, key, err := secrets.Decrypt(data, []byte(passphrase))
	if err != nil {
		t.Fatalf("unlocking with %q: %v", passphrase, err)
	}
	rec := &recorder{}
	s := New(Options{Dir: dir, Notifier: rec, PollInterval: time.Millisecond})
	s.key = key
	s.doc = doc
	metas, err := assets.NewStore(AssetsDir(dir)).List()
	if err != nil {
		t.Fatal(err)
	}
	s.SetAssets(metas)
	return s, rec
}

func TestRotatePassphrase_FailedAssetWriteIsRetried(t *testing.T) {
	dir, s, rec := rotationFixture(t, "old-pass")
	w := &failingAssetWriter{id: "img.png"}
	s.writeAsset = w.write

	if err := s.RotatePassphrase([]byte("old-pass"), []byte("new-pass")); err != nil {
		t.Fatalf("RotatePassphrase: %v", err)
	}
	waitIdle(t, s)

	if ev := rec.last(t); ev.Kind != EventRotationFailed || !errors.Is(ev.Err, kerrors.ErrAssetMigrationIncomplete) {
		t.Fatalf("event = %+v, want ErrAssetMigrationIncomplete", ev)
	}
	if got := s.PendingAssetWrites(); len(got) != 1 || got[0] != "img.png" {
		t.Fatalf("pending = %v, want [img.png]", got)
	}
	plain, err := s.ReadAsset("img.png")
	if err != nil || string(plain) != "image bytes" {
		t.Fatalf("ReadAsset before retry = %q, %v", plain, err)
	}

	if n, err := s.RetryAssetWrites(); !errors.Is(err, kerrors.ErrAssetMigrationIncomplete) || n != 0 {
		t.Fatalf("retry while the disk still fails = %d, %v", n, err)
	}
	if len(s.PendingAssetWrites()) != 1 {
		t.Fatal("pending asset dropped after a failed retry")
	}

	w.fixed = true
	n, err := s.RetryAssetWrites()
	if err != nil || n != 1 {
		t.Fatalf("RetryAssetWrites = %d, %v", n, err)
	}
	if len(s.PendingAssetWrites()) != 0 {
		t.Error("pending list not cleared")
	}

	o := secrets.NewRecoveryOpener([]byte("new-pass"))
	defer o.Close()
	plain, err = o.Open(readTestAsset(t, dir, "img.png"))
	if err != nil || string(plain) != "image bytes" {
		t.Fatalf("img.png on disk after retry = %q, %v", plain, err)
	}
}

func TestRotatePassphrase_PendingAssetsCarryIntoNextRotation(t *testing.T) {
	dir, s, _ := rotationFixture(t, "old-pass")
	w := &failingAssetWriter{id: "img.png"}
	s.writeAsset = w.write

	if err := s.RotatePassphrase([]byte("old-pass"), []byte("new-pass")); err != nil {
		t.Fatal(err)
	}
	waitIdle(t, s)

	w.fixed = true
	rec := &recorder{}
	s.notifier = rec
	if err := s.RotatePassphrase([]byte("new-pass"), []byte("third-pass")); err != nil {
		t.Fatal(err)
	}
	waitIdle(t, s)

	if ev := rec.last(t); ev.Kind != EventRotated || ev.Assets != 2 {
		t.Fatalf("event = %+v, want rotated with 2 assets", ev)
	}
	if len(s.PendingAssetWrites()) != 0 {
		t.Error("pending list not cleared by a complete rotation")
	}

	o := secrets.NewRecoveryOpener([]byte("third-pass"))
	defer o.Close()
	plain, err := o.Open(readTestAsset(t, dir, "img.png"))
	if err != nil || string(plain) != "image bytes" {
		t.Fatalf("img.png on disk = %q, %v", plain, err)
	}
}

func TestRotatePassphrase_RecoversAssetLeftUnderPreviousPassphrase(t *testing.T) {
	dir, s, _ := rotationFixture(t, "old-pass")
	s.writeAsset = (&failingAssetWriter{id: "img.png"}).write

	if err := s.RotatePassphrase([]byte("old-pass"), []byte("new-pass")); err != nil {
		t.Fatal(err)
	}
	waitIdle(t, s)
	// The process exits here and the pending write is lost.

	t.Run("without recovery passphrase", func(t *testing.T) {
		s2, rec := reopenSession(t, dir, "new-pass")
		if err := s2.RotatePassphrase([]byte("new-pass"), []byte("new-pass")); err != nil {
			t.Fatal(err)
		}
		waitIdle(t, s2)
		if ev := rec.last(t); ev.Kind != EventRotationFailed || !errors.Is(ev.Err, kerrors.ErrDecryptionFailed) {
			t.Fatalf("event = %+v, want ErrDecryptionFailed", ev)
		}
	})

	t.Run("with recovery passphrase", func(t *testing.T) {
		s2, rec := reopenSession(t, dir, "new-pass")
		recovery := []byte("old-pass")
		s2.SetRecoveryPassphrase(recovery)
		if err := s2.RotatePassphrase([]byte("new-pass"), []byte("new-pass")); err != nil {
			t.Fatal(err)
		}
		waitIdle(t, s2)

		if ev := rec.last(t); ev.Kind != EventRotated || ev.Assets != 2 {
			t.Fatalf("event = %+v, want rotated with 2 assets", ev)
		}
		if !bytes.Equal(recovery, make([]byte, len(recovery))) {
			t.Error("recovery passphrase not wiped")
		}
		plain, err := s2.ReadAsset("img.png")
		if err != nil || string(plain) != "image bytes" {
			t.Fatalf("ReadAsset(img.png) = %q, %v", plain, err)
		}

		s3, _ := reopenSession(t, dir, "new-pass")
		if plain, err := s3.ReadAsset("img.png"); err != nil || string(plain) != "image bytes" {
			t.Fatalf("img.png after reopening = %q, %v", plain, err)
		}
	})
}

func TestRotatePassphrase_Refusals(t *testing.T) {
	t.Run("save in flight", func(t *testing.T) {
		s, _ := unlockedSession(t, t.TempDir(), &recorder{})
		g := newGatedPersist()
		s.persist = g.persist
		s.SetContent("x")
		if err := s.SaveAsync(false); err != nil {
			t.Fatal(err)
		}
		waitStarted(t, g)

		oldPass, newPass := []byte("a"), []byte("b")
		if err := s.RotatePassphrase(oldPass, newPass); !errors.Is(err, kerrors.ErrSaveInFlight) {
			t.Fatalf("err = %v, want ErrSaveInFlight", err)
		}
		if oldPass[0] != 0 || newPass[0] != 0 {
			t.Error("passphrases not wiped on refusal")
		}
		g.release <- nil
		pollUntil(t, s, func() bool { return s.writing == nil })
	})

	t.Run("locked", func(t *testing.T) {
		s := New(Options{Dir: t.TempDir()})
		if err := s.RotatePassphrase([]byte("a"), []byte("b")); !errors.Is(err, kerrors.ErrVaultLocked) {
			t.Fatalf("err = %v, want ErrVaultLocked", err)
		}
	})

	t.Run("empty new passphrase", func(t *testing.T) {
		s, _ := unlockedSession(t, t.TempDir(), &recorder{})
		if err := s.RotatePassphrase([]byte("a"), nil); !errors.Is(err, kerrors.ErrEmptyPassphrase) {
			t.Fatalf("err = %v, want ErrEmptyPassphrase", err)
		}
	})
}

func TestRotatePassphrase_SuppressesAutosave(t *testing.T) {
	_, s, rec := rotationFixture(t, "old-pass")
	gate := make(chan struct{})
	var commits int
	s.persist = func(log logger.Logger, dir string, data []byte, backup bool) error {
		<-gate
		commits++
		return writeVault(log, dir, data, backup)
	}

	if err := s.RotatePassphrase([]byte("old-pass"), []byte("new-pass")); err != nil {
		t.Fatal(err)
	}
	s.SetContent(`{"tree":[],"trash":["n1"]}`)
	if !s.pendingAt.IsZero() {
		t.Error("autosave armed during rotation")
	}
	if err := s.SaveAsync(true); !errors.Is(err, kerrors.ErrRotationInProgress) {
		t.Errorf("SaveAsync during rotation: %v", err)
	}
	if err := s.RotatePassphrase([]byte("x"), []byte("y")); !errors.Is(err, kerrors.ErrRotationInProgress) {
		t.Errorf("second rotation: %v", err)
	}

	close(gate)
	pollUntil(t, s, func() bool { return s.rotation == nil })

	if k := rec.last(t).Kind; k != EventRotated {
		t.Fatalf("event = %s, want rotated", k)
	}
	if s.pendingAt.IsZero() {
		t.Error("unsaved edit was not rescheduled after rotation")
	}
	waitIdle(t, s)
	if s.Dirty() {
		t.Error("edit made during rotation was not saved")
	}
	if commits != 2 {
		t.Errorf("vault writes = %d, want rotation commit plus one autosave", commits)
	}
}
