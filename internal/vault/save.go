package vault

import (
	"time"

	kerrors "github.com/PolarWolf314/inkvault/internal/errors"
	"github.com/PolarWolf314/inkvault/internal/secrets"
)

type saveJob struct {
	generation uint64
	doc        string
	toast      bool
	done       chan error
}

type snapshot struct {
	dir     string
	doc     string
	key     *secrets.CachedKey
	backups bool
}

// Trigger (re)arms the autosave debounce. It is ignored while a passphrase
// change is running.
func (s *Session) Trigger() {
	if s.closed || s.suppressed {
		return
	}
	s.pendingAt = s.now().Add(s.debounce)
}

// CancelPendingSave drops an armed autosave without writing.
func (s *Session) CancelPendingSave() {
	s.pendingAt = time.Time{}
}

func (s *Session) pollDebounce() {
	if s.pendingAt.IsZero() || s.now().Before(s.pendingAt) {
		return
	}
	s.pendingAt = time.Time{}
	if s.suppressed || s.closed {
		return
	}
	if err := s.SaveAsync(false); err != nil {
		s.log.Debugf("Autosave skipped: %v", err)
	}
}

// SaveAsync writes the current document on a worker goroutine. While a
// write is in flight further requests are coalesced into a single
// follow-up write of whatever the document holds when the first finishes.
func (s *Session) SaveAsync(toast bool) error {
	if s.closed {
		return kerrors.ErrSessionClosed
	}
	if s.rotation != nil {
		return kerrors.ErrRotationInProgress
	}
	s.CancelPendingSave()
	if s.writing != nil {
		s.generation++
		s.followUpToast = s.followUpToast || toast
		s.log.Debugf("Save in flight, coalescing request %d", s.generation)
		return nil
	}
	return s.startSave(toast)
}

// SaveSync writes the current document before returning. A save already in
// flight is waited out and its result discarded so that it cannot land on
// top of this one.
func (s *Session) SaveSync() error {
	if s.closed {
		return kerrors.ErrSessionClosed
	}
	if s.rotation != nil {
		return kerrors.ErrRotationInProgress
	}
	snap, err := s.prepare()
	if err != nil {
		s.state = StateFailed
		return err
	}
	defer snap.key.Destroy()

	s.CancelPendingSave()
	if s.writing != nil {
		s.log.Debugf("Discarding in-flight save %d", s.writing.generation)
		_ = s.drainWriting()
	}
	s.generation++
	s.followUpToast = false
	s.state = StateWriting

	if err := s.write(snap); err != nil {
		s.state = StateFailed
		return err
	}
	s.state = StateSettled
	if s.doc == snap.doc {
		s.dirty = false
	}
	return nil
}

func (s *Session) prepare() (snapshot, error) {
	if s.key == nil {
		return snapshot{}, kerrors.ErrVaultLocked
	}
	if s.dir == "" {
		return snapshot{}, kerrors.ErrNoVaultLocation
	}
	s.state = StatePreparing
	return snapshot{dir: s.dir, doc: s.doc, key: s.key.Clone(), backups: s.backups}, nil
}

func (s *Session) write(snap snapshot) error {
	data, err := secrets.EncryptText(snap.doc, snap.key)
	if err != nil {
		return err
	}
	return s.persist(s.log, snap.dir, data, snap.backups)
}

func (s *Session) startSave(toast bool) error {
	snap, err := s.prepare()
	if err != nil {
		s.state = StateFailed
		s.notify(Event{Kind: EventSaveFailed, Err: err})
		return err
	}
	s.generation++
	job := &saveJob{generation: s.generation, doc: snap.doc, toast: toast, done: make(chan error, 1)}
	s.writing = job
	s.state = StateWriting

	log := s.log
	persist := s.persist
	go func() {
		defer snap.key.Destroy()
		data, err := secrets.EncryptText(snap.doc, snap.key)
		if err == nil {
			err = persist(log, snap.dir, data, snap.backups)
		}
		job.done <- err
	}()
	return nil
}

// drainWriting blocks until the in-flight save finishes and forgets it.
func (s *Session) drainWriting() error {
	job := s.writing
	s.writing = nil
	return <-job.done
}

func (s *Session) pollSave() {
	if s.writing == nil {
		return
	}
	select {
	case err := <-s.writing.done:
		s.finishSave(s.writing, err)
	default:
	}
}

func (s *Session) finishSave(job *saveJob, err error) {
	s.writing = nil
	pending := s.generation != job.generation

	if err != nil {
		s.state = StateFailed
		s.notify(Event{Kind: EventSaveFailed, Err: err})
		if s.closeRequested {
			s.closeRequested = false
			if s.notifier.ConfirmDiscard(err) {
				s.shutdown()
				return
			}
		}
		if pending {
			s.Trigger()
		}
		return
	}

	s.state = StateSettled
	if s.doc == job.doc {
		s.dirty = false
	}
	s.notify(Event{Kind: EventSaved, Toast: job.toast})

	if pending || (s.closeRequested && s.dirty) {
		toast := s.followUpToast
		s.followUpToast = false
		if err := s.startSave(toast); err != nil && s.closeRequested {
			s.closeRequested = false
			if s.notifier.ConfirmDiscard(err) {
				s.shutdown()
			}
		}
		return
	}
	if s.closeRequested {
		s.shutdown()
	}
}
