package vault

import (
	"errors"
	"os"
	"testing"
	"time"

	kerrors "github.com/PolarWolf314/inkvault/internal/errors"
	logger "github.com/PolarWolf314/inkvault/internal/logging"
)

func TestSaveAsync_WritesEncryptedDocument(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	s, _ := unlockedSession(t, dir, rec)

	s.SetContent(`{"tree":["a"],"trash":[]}`)
	if !s.Dirty() {
		t.Fatal("expected dirty after SetContent")
	}
	if err := s.SaveAsync(true); err != nil {
		t.Fatalf("SaveAsync: %v", err)
	}
	if s.State() != StateWriting {
		t.Fatalf("state = %s, want writing", s.State())
	}
	pollUntil(t, s, func() bool { return !s.Busy() })

	if s.Dirty() {
		t.Error("expected clean after save")
	}
	if s.State() != StateSettled {
		t.Errorf("state = %s, want settled", s.State())
	}
	ev := rec.last(t)
	if ev.Kind != EventSaved || !ev.Toast {
		t.Errorf("last event = %+v, want toasted save", ev)
	}

	data, err := os.ReadFile(VaultPath(dir))
	if err != nil {
		t.Fatalf("reading vault: %v", err)
	}
	if got := openText(t, s.key, data); got != `{"tree":["a"],"trash":[]}` {
		t.Errorf("vault holds %q", got)
	}
}

func TestSaveAsync_CoalescesRequestsWhileWriting(t *testing.T) {
	rec := &recorder{}
	s, _ := unlockedSession(t, t.TempDir(), rec)
	s.debounce = time.Hour
	g := newGatedPersist()
	s.persist = g.persist

	s.SetContent("v1")
	if err := s.SaveAsync(false); err != nil {
		t.Fatalf("SaveAsync: %v", err)
	}
	waitStarted(t, g)

	for _, doc := range []string{"v2", "v3", "v4"} {
		s.SetContent(doc)
		if err := s.SaveAsync(false); err != nil {
			t.Fatalf("SaveAsync(%s): %v", doc, err)
		}
	}
	s.Poll()
	if g.count() != 1 {
		t.Fatalf("writes while first in flight = %d, want 1", g.count())
	}

	g.release <- nil
	pollUntil(t, s, func() bool { return g.count() == 2 })
	waitStarted(t, g)
	g.release <- nil
	pollUntil(t, s, func() bool { return !s.Busy() })

	if g.count() != 2 {
		t.Fatalf("total writes = %d, want 2", g.count())
	}
	if got := openText(t, s.key, g.write(0)); got != "v1" {
		t.Errorf("first write = %q, want v1", got)
	}
	if got := openText(t, s.key, g.write(1)); got != "v4" {
		t.Errorf("follow-up write = %q, want v4", got)
	}
	if s.Dirty() {
		t.Error("expected clean after follow-up write")
	}
}

func TestSaveAsync_EditDuringWriteStaysDirty(t *testing.T) {
	rec := &recorder{}
	s, _ := unlockedSession(t, t.TempDir(), rec)
	s.debounce = time.Hour
	g := newGatedPersist()
	s.persist = g.persist

	s.SetContent("v1")
	if err := s.SaveAsync(false); err != nil {
		t.Fatalf("SaveAsync: %v", err)
	}
	waitStarted(t, g)
	s.SetContent("v2")
	g.release <- nil
	pollUntil(t, s, func() bool { return s.writing == nil })

	if !s.Dirty() {
		t.Error("document edited mid-write must stay dirty")
	}
	if g.count() != 1 {
		t.Errorf("writes = %d, want 1", g.count())
	}
}

func TestSaveAsync_RefusedStates(t *testing.T) {
	t.Run("locked", func(t *testing.T) {
		rec := &recorder{}
		s := New(Options{Dir: t.TempDir(), Notifier: rec})
		if err := s.SaveAsync(false); !errors.Is(err, kerrors.ErrVaultLocked) {
			t.Fatalf("err = %v, want ErrVaultLocked", err)
		}
		if ev := rec.last(t); ev.Kind != EventSaveFailed {
			t.Errorf("event = %s, want save-failed", ev.Kind)
		}
		if s.State() != StateFailed {
			t.Errorf("state = %s, want failed", s.State())
		}
	})

	t.Run("no location", func(t *testing.T) {
		rec := &recorder{}
		s, _ := unlockedSession(t, "", rec)
		if err := s.SaveAsync(false); !errors.Is(err, kerrors.ErrNoVaultLocation) {
			t.Fatalf("err = %v, want ErrNoVaultLocation", err)
		}
	})

	t.Run("closed", func(t *testing.T) {
		s, _ := unlockedSession(t, t.TempDir(), &recorder{})
		s.RequestClose()
		if err := s.SaveAsync(false); !errors.Is(err, kerrors.ErrSessionClosed) {
			t.Fatalf("err = %v, want ErrSessionClosed", err)
		}
	})
}

func TestSaveAsync_FailureKeepsDocumentDirty(t *testing.T) {
	rec := &recorder{}
	s, _ := unlockedSession(t, t.TempDir(), rec)
	s.debounce = time.Hour
	boom := errors.New("disk full")
	g := newGatedPersist()
	s.persist = g.persist

	s.SetContent("v1")
	if err := s.SaveAsync(false); err != nil {
		t.Fatalf("SaveAsync: %v", err)
	}
	waitStarted(t, g)
	g.release <- boom
	pollUntil(t, s, func() bool { return s.writing == nil })

	if !s.Dirty() {
		t.Error("failed save must leave the document dirty")
	}
	if s.State() != StateFailed {
		t.Errorf("state = %s, want failed", s.State())
	}
	ev := rec.last(t)
	if ev.Kind != EventSaveFailed || !errors.Is(ev.Err, boom) {
		t.Errorf("last event = %+v, want save-failed wrapping %v", ev, boom)
	}
	if s.Busy() {
		t.Error("a failed save must not retry on its own")
	}
}

func TestDebounce_FiresOnceAfterQuietPeriod(t *testing.T) {
	rec := &recorder{}
	s, clock := unlockedSession(t, t.TempDir(), rec)
	g := newGatedPersist()
	g.ungate()
	s.persist = g.persist

	for _, doc := range []string{"a", "ab", "abc"} {
		s.SetContent(doc)
		clock.Advance(200 * time.Millisecond)
		s.Poll()
	}
	if g.count() != 0 {
		t.Fatalf("saved during typing: %d writes", g.count())
	}

	clock.Advance(400 * time.Millisecond)
	s.Poll()
	waitStarted(t, g)
	pollUntil(t, s, func() bool { return !s.Busy() })

	if g.count() != 1 {
		t.Fatalf("writes = %d, want 1", g.count())
	}
	if got := openText(t, s.key, g.write(0)); got != "abc" {
		t.Errorf("autosaved %q, want abc", got)
	}
}

func TestDebounce_CancelPendingSave(t *testing.T) {
	s, clock := unlockedSession(t, t.TempDir(), &recorder{})
	g := newGatedPersist()
	g.ungate()
	s.persist = g.persist

	s.SetContent("draft")
	s.CancelPendingSave()
	clock.Advance(time.Second)
	s.Poll()

	if s.Busy() || g.count() != 0 {
		t.Errorf("cancelled autosave still ran: busy=%v writes=%d", s.Busy(), g.count())
	}
}

func TestSaveSync_InvalidatesInFlightSave(t *testing.T) {
	rec := &recorder{}
	s, _ := unlockedSession(t, t.TempDir(), rec)
	s.debounce = time.Hour
	g := newGatedPersist()
	s.persist = g.persist

	s.SetContent("stale")
	if err := s.SaveAsync(true); err != nil {
		t.Fatalf("SaveAsync: %v", err)
	}
	waitStarted(t, g)
	s.SetContent("fresh")

	go func() {
		g.ungate()
		g.release <- nil
	}()
	if err := s.SaveSync(); err != nil {
		t.Fatalf("SaveSync: %v", err)
	}

	if g.count() != 2 {
		t.Fatalf("writes = %d, want 2", g.count())
	}
	if got := openText(t, s.key, g.write(1)); got != "fresh" {
		t.Errorf("last write = %q, want fresh", got)
	}
	if s.Dirty() {
		t.Error("expected clean after SaveSync")
	}

	s.Poll()
	for _, ev := range rec.events {
		if ev.Kind == EventSaved {
			t.Errorf("the discarded async save must not report completion: %+v", ev)
		}
	}
	if s.Busy() {
		t.Error("expected no outstanding work")
	}
}

func TestRequestClose(t *testing.T) {
	t.Run("clean closes at once", func(t *testing.T) {
		rec := &recorder{}
		s, _ := unlockedSession(t, t.TempDir(), rec)
		s.RequestClose()
		if !s.Closed() {
			t.Fatal("expected closed")
		}
		if s.Unlocked() {
			t.Error("key must be dropped on close")
		}
		if ev := rec.last(t); ev.Kind != EventClosed {
			t.Errorf("last event = %s, want closed", ev.Kind)
		}
	})

	t.Run("dirty saves then closes", func(t *testing.T) {
		dir := t.TempDir()
		rec := &recorder{}
		s, _ := unlockedSession(t, dir, rec)
		key := s.key.Clone()
		defer key.Destroy()

		s.SetContent("last words")
		s.RequestClose()
		if s.Closed() {
			t.Fatal("closed before the save finished")
		}
		pollUntil(t, s, s.Closed)

		data, err := os.ReadFile(VaultPath(dir))
		if err != nil {
			t.Fatalf("reading vault: %v", err)
		}
		if got := openText(t, key, data); got != "last words" {
			t.Errorf("vault holds %q", got)
		}
		if len(rec.confirmed) != 0 {
			t.Error("ConfirmDiscard asked after a successful save")
		}
	})

	t.Run("failed save asks before discarding", func(t *testing.T) {
		for _, discard := range []bool{false, true} {
			rec := &recorder{discard: discard}
			s, _ := unlockedSession(t, t.TempDir(), rec)
			s.persist = func(_ logger.Logger, _ string, _ []byte, _ bool) error {
				return errors.New("read-only filesystem")
			}

			s.SetContent("unsaved")
			s.RequestClose()
			pollUntil(t, s, func() bool { return s.writing == nil })

			if len(rec.confirmed) != 1 {
				t.Fatalf("discard=%v: ConfirmDiscard called %d times", discard, len(rec.confirmed))
			}
			if s.Closed() != discard {
				t.Errorf("discard=%v: closed = %v", discard, s.Closed())
			}
			if !discard && s.Content() != "unsaved" {
				t.Errorf("cancelled close lost the document: %q", s.Content())
			}
		}
	})

	t.Run("waits for in-flight save", func(t *testing.T) {
		rec := &recorder{}
		s, _ := unlockedSession(t, t.TempDir(), rec)
		s.debounce = time.Hour
		g := newGatedPersist()
		s.persist = g.persist

		s.SetContent("one")
		if err := s.SaveAsync(false); err != nil {
			t.Fatalf("SaveAsync: %v", err)
		}
		waitStarted(t, g)
		s.SetContent("two")
		s.RequestClose()
		if s.Closed() {
			t.Fatal("closed while a save was in flight")
		}

		g.ungate()
		g.release <- nil
		pollUntil(t, s, s.Closed)

		if g.count() != 2 {
			t.Fatalf("writes = %d, want 2", g.count())
		}
	})
}

func TestLock_SavesAndDropsKey(t *testing.T) {
	dir := t.TempDir()
	s, _ := unlockedSession(t, dir, &recorder{})
	key := s.key.Clone()
	defer key.Destroy()

	s.SetContent("before lock")
	if err := s.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if s.Unlocked() || s.Content() != "" || s.Dirty() {
		t.Errorf("lock left state behind: unlocked=%v content=%q dirty=%v", s.Unlocked(), s.Content(), s.Dirty())
	}
	data, err := os.ReadFile(VaultPath(dir))
	if err != nil {
		t.Fatalf("reading vault: %v", err)
	}
	if got := openText(t, key, data); got != "before lock" {
		t.Errorf("vault holds %q", got)
	}
}

func TestSetLocation_LocksPreviousVault(t *testing.T) {
	first := t.TempDir()
	s, _ := unlockedSession(t, first, &recorder{})
	s.SetContent("first vault")

	second := t.TempDir()
	if err := s.SetLocation(second); err != nil {
		t.Fatalf("SetLocation: %v", err)
	}
	if s.Location() != second || s.Unlocked() {
		t.Errorf("location=%q unlocked=%v", s.Location(), s.Unlocked())
	}
	if _, err := os.Stat(VaultPath(first)); err != nil {
		t.Errorf("previous vault not saved: %v", err)
	}
}
