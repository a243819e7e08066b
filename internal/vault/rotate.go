package vault

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/PolarWolf314/inkvault/internal/assets"
	kerrors "github.com/PolarWolf314/inkvault/internal/errors"
	logger "github.com/PolarWolf314/inkvault/internal/logging"
	"github.com/PolarWolf314/inkvault/internal/secrets"
	"github.com/PolarWolf314/inkvault/internal/storage"
)

type rotationJob struct {
	done chan rotationResult
}

type rotationResult struct {
	key      *secrets.CachedKey
	migrated int
	pending  []stagedAsset
	err      error
}

// stagedAsset is an asset already sealed under the rotated key.
type stagedAsset struct {
	id   string
	data []byte
}

// rotation carries everything the worker needs so it never reads the Session.
type rotation struct {
	log        logger.Logger
	dir        string
	ids        []string
	backups    bool
	persist    persistFunc
	writeAsset assetWriteFunc

	// staged holds sealed blobs from an earlier partial rotation that never
	// reached disk. They replace the stale files when re-encrypting.
	staged map[string][]byte
	// recovery opens assets the current key cannot.
	recovery []byte
}

// RotatePassphrase re-encrypts the vault and every known asset under a new
// passphrase on a worker goroutine. The outcome is reported through the
// Notifier as EventRotated or EventRotationFailed.
//
// The session takes ownership of both passphrases and wipes them on every
// path, including refusal.
func (s *Session) RotatePassphrase(oldPassphrase, newPassphrase []byte) error {
	refuse := func(err error) error {
		secrets.Wipe(oldPassphrase)
		secrets.Wipe(newPassphrase)
		return err
	}
	switch {
	case s.closed:
		return refuse(kerrors.ErrSessionClosed)
	case s.rotation != nil:
		return refuse(kerrors.ErrRotationInProgress)
	case s.writing != nil:
		return refuse(kerrors.ErrSaveInFlight)
	case s.key == nil, s.opening != nil:
		return refuse(kerrors.ErrVaultLocked)
	case s.dir == "":
		return refuse(kerrors.ErrNoVaultLocation)
	case len(newPassphrase) == 0:
		return refuse(kerrors.ErrEmptyPassphrase)
	}

	s.CancelPendingSave()
	s.suppressed = true

	r := rotation{
		log:        s.log,
		dir:        s.dir,
		ids:        s.assetIDs(),
		backups:    s.backups,
		persist:    s.persist,
		writeAsset: s.writeAsset,
		staged:     make(map[string][]byte, len(s.pendingAssets)),
		recovery:   s.recovery,
	}
	for _, a := range s.pendingAssets {
		r.staged[a.id] = a.data
	}
	s.recovery = nil

	job := &rotationJob{done: make(chan rotationResult, 1)}
	s.rotation = job
	go func() {
		res := r.run(oldPassphrase, newPassphrase)
		// Wiped before the result is published, so Poll never sees them live.
		secrets.Wipe(oldPassphrase)
		secrets.Wipe(newPassphrase)
		secrets.Wipe(r.recovery)
		job.done <- res
	}()
	return nil
}

// SetRecoveryPassphrase hands the session a passphrase that the next
// RotatePassphrase uses for assets the current passphrase cannot open, such
// as assets a crashed or failed rotation left under the previous one. The
// session takes ownership and wipes it once the rotation is done.
func (s *Session) SetRecoveryPassphrase(passphrase []byte) {
	secrets.Wipe(s.recovery)
	s.recovery = passphrase
}

// PendingAssetWrites lists assets re-encrypted by the last rotation whose
// new contents are held in memory because writing them failed.
func (s *Session) PendingAssetWrites() []string {
	ids := make([]string, 0, len(s.pendingAssets))
	for _, a := range s.pendingAssets {
		ids = append(ids, a.id)
	}
	return ids
}

// RetryAssetWrites writes the assets left pending by a partial rotation. It
// blocks on disk I/O and returns the number written. Assets that fail again
// stay pending and are reported with ErrAssetMigrationIncomplete.
func (s *Session) RetryAssetWrites() (int, error) {
	switch {
	case s.closed:
		return 0, kerrors.ErrSessionClosed
	case s.rotation != nil:
		return 0, kerrors.ErrRotationInProgress
	}

	var remaining []stagedAsset
	var failed []error
	written := 0
	for _, a := range s.pendingAssets {
		if err := s.writeAsset(s.dir, a.id, a.data); err != nil {
			remaining = append(remaining, a)
			failed = append(failed, fmt.Errorf("%s: %w", a.id, err))
			continue
		}
		written++
	}
	s.pendingAssets = remaining
	if len(failed) > 0 {
		return written, fmt.Errorf("%w: %w", kerrors.ErrAssetMigrationIncomplete, errors.Join(failed...))
	}
	return written, nil
}

func (s *Session) pendingAsset(id string) ([]byte, bool) {
	for _, a := range s.pendingAssets {
		if a.id == id {
			return a.data, true
		}
	}
	return nil, false
}

func (s *Session) pollRotation() {
	if s.rotation == nil {
		return
	}
	var res rotationResult
	select {
	case res = <-s.rotation.done:
	default:
		return
	}
	s.rotation = nil
	s.suppressed = false

	// The vault file is on the new passphrase whenever a key came back,
	// even if some assets could not be rewritten.
	if res.key != nil {
		s.replaceKey(res.key)
		s.pendingAssets = res.pending
	}
	if res.err != nil {
		s.notify(Event{Kind: EventRotationFailed, Err: res.err, Assets: res.migrated})
	} else {
		s.notify(Event{Kind: EventRotated, Assets: res.migrated})
	}
	if s.dirty {
		s.Trigger()
	}
	s.resumeClose()
}

// run returns a non-nil key once the vault document has been committed
// under the new passphrase. Assets it could not write come back as pending,
// already sealed under that key.
func (r rotation) run(oldPassphrase, newPassphrase []byte) rotationResult {
	path := VaultPath(r.dir)
	data, err := storage.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return rotationResult{err: kerrors.ErrVaultNotFound}
		}
		return rotationResult{err: err}
	}
	plaintext, oldKey, err := secrets.Decrypt(data, oldPassphrase)
	if err != nil {
		if errors.Is(err, kerrors.ErrDecryptionFailed) {
			return rotationResult{err: kerrors.ErrWrongCurrentPassphrase}
		}
		return rotationResult{err: fmt.Errorf("reading current vault: %w", err)}
	}
	defer oldKey.Destroy()

	newKey, err := secrets.Derive(newPassphrase)
	if err != nil {
		return rotationResult{err: err}
	}
	sealedVault, err := secrets.EncryptText(plaintext, newKey)
	if err != nil {
		newKey.Destroy()
		return rotationResult{err: err}
	}

	staged, err := r.stageAssets(oldKey, newKey)
	if err != nil {
		newKey.Destroy()
		return rotationResult{err: err}
	}

	if err := r.persist(r.log, r.dir, sealedVault, r.backups); err != nil {
		newKey.Destroy()
		return rotationResult{err: fmt.Errorf("writing re-encrypted vault: %w", err)}
	}
	r.log.Debugf("Vault re-encrypted, writing %d assets", len(staged))

	res := rotationResult{key: newKey}
	var failed []error
	for _, a := range staged {
		if err := r.writeAsset(r.dir, a.id, a.data); err != nil {
			res.pending = append(res.pending, a)
			failed = append(failed, fmt.Errorf("%s: %w", a.id, err))
			continue
		}
		res.migrated++
	}
	if len(failed) > 0 {
		res.err = fmt.Errorf("%w: %w", kerrors.ErrAssetMigrationIncomplete, errors.Join(failed...))
	}
	return res
}

// stageAssets re-encrypts every asset in memory. Nothing is written.
func (r rotation) stageAssets(oldKey, newKey *secrets.CachedKey) ([]stagedAsset, error) {
	store := assets.NewStore(AssetsDir(r.dir))
	opener := secrets.NewAssetOpener(oldKey)
	defer opener.Close()

	var recovery *secrets.AssetOpener
	if len(r.recovery) > 0 {
		recovery = secrets.NewRecoveryOpener(r.recovery)
		defer recovery.Close()
	}

	staged := make([]stagedAsset, 0, len(r.ids))
	for _, id := range r.ids {
		if err := assets.ValidateID(id); err != nil {
			return nil, err
		}
		raw, ok := r.staged[id]
		if !ok {
			var err error
			if raw, err = store.Read(id); err != nil {
				return nil, fmt.Errorf("re-encrypting asset %s: %w", id, err)
			}
		}
		plain, err := opener.Open(raw)
		if errors.Is(err, kerrors.ErrDecryptionFailed) && recovery != nil {
			r.log.Debugf("Opening asset %s with the recovery passphrase", id)
			plain, err = recovery.Open(raw)
		}
		if err != nil {
			return nil, fmt.Errorf("re-encrypting asset %s: %w", id, err)
		}
		sealed, err := secrets.EncryptAsset(plain, newKey)
		secrets.Wipe(plain)
		if err != nil {
			return nil, fmt.Errorf("re-encrypting asset %s: %w", id, err)
		}
		staged = append(staged, stagedAsset{id: id, data: sealed})
	}
	return staged, nil
}
