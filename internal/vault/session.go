package vault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"time"

	"github.com/PolarWolf314/inkvault/internal/assets"
	kerrors "github.com/PolarWolf314/inkvault/internal/errors"
	logger "github.com/PolarWolf314/inkvault/internal/logging"
	"github.com/PolarWolf314/inkvault/internal/secrets"
	"github.com/PolarWolf314/inkvault/internal/storage"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultDebounce     = 500 * time.Millisecond
	DefaultPollInterval = 50 * time.Millisecond
)

// State is the save pipeline state observed by the UI.
type State int

const (
	StateIdle State = iota
	StatePreparing
	StateWriting
	StateSettled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StateWriting:
		return "writing"
	case StateSettled:
		return "settled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options configures a Session.
type Options struct {
	Dir          string
	Debounce     time.Duration
	PollInterval time.Duration
	Backups      bool
	Logger       logger.Logger
	Notifier     Notifier
	Now          func() time.Time
}

// persistFunc writes a sealed vault document into a vault folder.
type persistFunc func(log logger.Logger, dir string, data []byte, backup bool) error

// assetWriteFunc writes a sealed asset into a vault folder.
type assetWriteFunc func(dir, id string, data []byte) error

// Session owns the unlocked state of one vault.
//
// A Session is not safe for concurrent use. Exactly one goroutine, the one
// driving the UI, calls its methods and Poll. Slow work (key derivation,
// encryption, disk writes) runs on worker goroutines that never touch the
// Session; they report back through one-shot channels drained by Poll.
type Session struct {
	log          logger.Logger
	notifier     Notifier
	now          func() time.Time
	debounce     time.Duration
	pollInterval time.Duration
	backups      bool

	persist    persistFunc
	writeAsset assetWriteFunc

	dir    string
	key    *secrets.CachedKey
	doc    string
	dirty  bool
	assets map[string]assets.Meta

	state         State
	generation    uint64
	writing       *saveJob
	followUpToast bool
	pendingAt     time.Time
	suppressed    bool

	opening  *openJob
	rotation *rotationJob

	pendingAssets []stagedAsset
	recovery      []byte

	closeRequested bool
	closed         bool
}

// New returns a locked Session.
func New(opts Options) *Session {
	s := &Session{
		log:          opts.Logger,
		notifier:     opts.Notifier,
		now:          opts.Now,
		debounce:     opts.Debounce,
		pollInterval: opts.PollInterval,
		backups:      opts.Backups,
		persist:      writeVault,
		writeAsset:   writeAsset,
		dir:          opts.Dir,
		assets:       map[string]assets.Meta{},
	}
	if s.notifier == nil {
		s.notifier = NopNotifier{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.debounce <= 0 {
		s.debounce = DefaultDebounce
	}
	if s.pollInterval <= 0 {
		s.pollInterval = DefaultPollInterval
	}
	return s
}

func writeVault(log logger.Logger, dir string, data []byte, backup bool) error {
	path := VaultPath(dir)
	if backup {
		if err := storage.Backup(path); err != nil {
			log.Warnf("Could not back up %s: %v", path, err)
		}
	}
	return storage.WriteFile(path, data, 0600)
}

func writeAsset(dir, id string, data []byte) error {
	return assets.NewStore(AssetsDir(dir)).Write(id, data)
}

func (s *Session) Location() string { return s.dir }
func (s *Session) Unlocked() bool { return s.key != nil }
func (s *Session) Dirty() bool { return s.dirty }
func (s *Session) Content() string { return s.doc }
func (s *Session) State() State { return s.state }
func (s *Session) Closed() bool { return s.closed }
func (s *Session) Generation() uint64 { return s.generation }

// Busy reports whether any worker is running or a debounced save is pending.
func (s *Session) Busy() bool {
	return s.writing != nil || s.opening != nil || s.rotation != nil || !s.pendingAt.IsZero()
}

// SetLocation points the session at a vault folder. An unlocked session is
// locked first, saving unsaved content.
func (s *Session) SetLocation(dir string) error {
	if s.closed {
		return kerrors.ErrSessionClosed
	}
	if dir == s.dir {
		return nil
	}
	if s.rotation != nil {
		return kerrors.ErrRotationInProgress
	}
	if s.key != nil {
		if err := s.Lock(); err != nil {
			return err
		}
	}
	s.dir = dir
	s.assets = map[string]assets.Meta{}
	s.pendingAssets = nil
	secrets.Wipe(s.recovery)
	s.recovery = nil
	return nil
}

// SetContent replaces the document and schedules an autosave.
func (s *Session) SetContent(doc string) {
	if s.closed || doc == s.doc {
		return
	}
	s.doc = doc
	s.dirty = true
	s.Trigger()
}

// Poll drains finished workers and fires a due autosave. It never blocks.
func (s *Session) Poll() {
	s.pollOpening()
	s.pollRotation()
	s.pollSave()
	s.pollDebounce()
}

// WaitIdle polls until no work is outstanding.
func (s *Session) WaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		s.Poll()
		if !s.Busy() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Session) notify(e Event) {
	s.notifier.Notify(e)
}

type openKind int

const (
	openUnlock openKind = iota
	openCreate
)

type openJob struct {
	kind openKind
	done chan openResult
}

type openResult struct {
	doc string
	key *secrets.CachedKey
	err error
}

// BeginUnlock starts deriving the key for the vault at the current location.
// The session takes ownership of passphrase and wipes it once used.
func (s *Session) BeginUnlock(passphrase []byte) error {
	if err := s.canOpen(); err != nil {
		secrets.Wipe(passphrase)
		return err
	}
	dir := s.dir
	job := &openJob{kind: openUnlock, done: make(chan openResult, 1)}
	s.opening = job
	go func() {
		doc, key, err := unlockVault(dir, passphrase)
		secrets.Wipe(passphrase)
		job.done <- openResult{doc: doc, key: key, err: err}
	}()
	return nil
}

// BeginCreate starts writing a new vault holding doc at the current location.
// The session takes ownership of passphrase and wipes it once used.
func (s *Session) BeginCreate(passphrase []byte, doc string) error {
	if err := s.canOpen(); err != nil {
		secrets.Wipe(passphrase)
		return err
	}
	if doc == "" {
		doc = InitialDocument
	}
	dir := s.dir
	log := s.log
	persist := s.persist
	job := &openJob{kind: openCreate, done: make(chan openResult, 1)}
	s.opening = job
	go func() {
		key, err := createVault(log, dir, doc, passphrase, persist)
		secrets.Wipe(passphrase)
		job.done <- openResult{doc: doc, key: key, err: err}
	}()
	return nil
}

func (s *Session) canOpen() error {
	switch {
	case s.closed:
		return kerrors.ErrSessionClosed
	case s.dir == "":
		return kerrors.ErrNoVaultLocation
	case s.rotation != nil:
		return kerrors.ErrRotationInProgress
	case s.opening != nil, s.writing != nil:
		return kerrors.ErrSaveInFlight
	}
	return nil
}

func unlockVault(dir string, passphrase []byte) (string, *secrets.CachedKey, error) {
	data, err := storage.ReadFile(VaultPath(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil, kerrors.ErrVaultNotFound
		}
		return "", nil, err
	}
	return secrets.Decrypt(data, passphrase)
}

func createVault(log logger.Logger, dir, doc string, passphrase []byte, persist persistFunc) (*secrets.CachedKey, error) {
	if _, err := os.Stat(VaultPath(dir)); err == nil {
		return nil, kerrors.ErrVaultExists
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, kerrors.Op(kerrors.OpRead, VaultPath(dir), err)
	}
	key, err := secrets.Derive(passphrase)
	if err != nil {
		return nil, err
	}
	sealed, err := secrets.EncryptText(doc, key)
	if err != nil {
		key.Destroy()
		return nil, err
	}
	if err := os.MkdirAll(AssetsDir(dir), 0700); err != nil {
		key.Destroy()
		return nil, kerrors.Op(kerrors.OpWrite, AssetsDir(dir), err)
	}
	if err := persist(log, dir, sealed, false); err != nil {
		key.Destroy()
		return nil, err
	}
	return key, nil
}

func (s *Session) pollOpening() {
	if s.opening == nil {
		return
	}
	var res openResult
	select {
	case res = <-s.opening.done:
	default:
		return
	}
	kind := s.opening.kind
	s.opening = nil

	if res.err != nil {
		if kind == openCreate {
			s.notify(Event{Kind: EventCreateFailed, Err: res.err})
		} else {
			s.notify(Event{Kind: EventUnlockFailed, Err: res.err})
		}
	} else {
		s.replaceKey(res.key)
		s.doc = res.doc
		s.dirty = false
		s.state = StateSettled
		if kind == openCreate {
			s.notify(Event{Kind: EventCreated})
		} else {
			s.notify(Event{Kind: EventUnlocked})
		}
	}
	s.resumeClose()
}

func (s *Session) replaceKey(key *secrets.CachedKey) {
	if s.key != nil && s.key != key {
		s.key.Destroy()
	}
	s.key = key
}

// Lock saves unsaved content, then drops the key and the plaintext.
func (s *Session) Lock() error {
	if s.rotation != nil {
		return kerrors.ErrRotationInProgress
	}
	if s.key != nil && s.dirty {
		if err := s.SaveSync(); err != nil {
			return err
		}
	} else if s.writing != nil {
		if err := s.drainWriting(); err != nil {
			return err
		}
	}
	s.CancelPendingSave()
	s.replaceKey(nil)
	s.doc = ""
	s.dirty = false
	s.state = StateIdle
	s.assets = map[string]assets.Meta{}
	return nil
}

// RequestClose asks the session to shut down. Unsaved content is saved
// first; if that save fails the Notifier is asked whether to close anyway.
func (s *Session) RequestClose() {
	if s.closed {
		return
	}
	s.closeRequested = true
	if s.rotation != nil || s.opening != nil || s.writing != nil {
		return
	}
	if !s.dirty {
		s.shutdown()
		return
	}
	if err := s.startSave(false); err != nil {
		s.closeRequested = false
		if s.notifier.ConfirmDiscard(err) {
			s.shutdown()
		}
	}
}

func (s *Session) resumeClose() {
	if s.closeRequested {
		s.closeRequested = false
		s.RequestClose()
	}
}

func (s *Session) shutdown() {
	s.CancelPendingSave()
	s.replaceKey(nil)
	s.doc = ""
	s.closeRequested = false
	s.closed = true
	s.notify(Event{Kind: EventClosed})
}

// SetAssets replaces the known asset index.
func (s *Session) SetAssets(metas []assets.Meta) {
	s.assets = assets.Index(metas)
}

// Assets returns the known assets sorted by id.
func (s *Session) Assets() []assets.Meta {
	out := make([]assets.Meta, 0, len(s.assets))
	for _, m := range s.assets {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Session) assetIDs() []string {
	ids := make([]string, 0, len(s.assets))
	for id := range s.assets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AddAsset encrypts data under the live key and stores it under a fresh id.
// It blocks on disk I/O.
func (s *Session) AddAsset(filename string, data []byte) (assets.Meta, error) {
	if err := s.canUseKey(); err != nil {
		return assets.Meta{}, err
	}
	id := assets.NewID(filename)
	sealed, err := secrets.EncryptAsset(data, s.key)
	if err != nil {
		return assets.Meta{}, err
	}
	if err := s.writeAsset(s.dir, id, sealed); err != nil {
		return assets.Meta{}, fmt.Errorf("storing asset %s: %w", filename, err)
	}
	meta := assets.NewMeta(id, filename, int64(len(data)))
	s.assets[id] = meta
	return meta, nil
}

// ReadAsset returns the plaintext of a stored asset. It blocks on disk I/O
// and, for assets sealed under a different salt, on key derivation.
func (s *Session) ReadAsset(id string) ([]byte, error) {
	if err := s.canUseKey(); err != nil {
		return nil, err
	}
	raw, ok := s.pendingAsset(id)
	if !ok {
		var err error
		if raw, err = assets.NewStore(AssetsDir(s.dir)).Read(id); err != nil {
			return nil, err
		}
	}
	return secrets.DecryptAsset(raw, s.key)
}

func (s *Session) canUseKey() error {
	switch {
	case s.closed:
		return kerrors.ErrSessionClosed
	case s.rotation != nil:
		return kerrors.ErrRotationInProgress
	case s.key == nil:
		return kerrors.ErrVaultLocked
	case s.dir == "":
		return kerrors.ErrNoVaultLocation
	}
	return nil
}
