package vault

import (
	"bytes"
	"sync"
	"testing"
	"time"

	logger "github.com/PolarWolf314/inkvault/internal/logging"
	"github.com/PolarWolf314/inkvault/internal/secrets"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// recorder collects events and answers ConfirmDiscard with discard.
type recorder struct {
	events    []Event
	discard   bool
	confirmed []error
}

func (r *recorder) Notify(e Event) { r.events = append(r.events, e) }

func (r *recorder) ConfirmDiscard(err error) bool {
	r.confirmed = append(r.confirmed, err)
	return r.discard
}

func (r *recorder) kinds() []EventKind {
	var out []EventKind
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func (r *recorder) last(t *testing.T) Event {
	t.Helper()
	if len(r.events) == 0 {
		t.Fatal("no events recorded")
	}
	return r.events[len(r.events)-1]
}

// gatedPersist records every vault write and blocks each one until released.
type gatedPersist struct {
	mu      sync.Mutex
	writes  [][]byte
	started chan struct{}
	release chan error
	gated   bool
}

func newGatedPersist() *gatedPersist {
	return &gatedPersist{
		started: make(chan struct{}, 16),
		release: make(chan error),
		gated:   true,
	}
}

func (g *gatedPersist) persist(_ logger.Logger, _ string, data []byte, _ bool) error {
	g.mu.Lock()
	g.writes = append(g.writes, bytes.Clone(data))
	gated := g.gated
	g.mu.Unlock()
	g.started <- struct{}{}
	if !gated {
		return nil
	}
	return <-g.release
}

func (g *gatedPersist) ungate() {
	g.mu.Lock()
	g.gated = false
	g.mu.Unlock()
}

func (g *gatedPersist) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.writes)
}

func (g *gatedPersist) write(i int) []byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.writes[i]
}

func waitStarted(t *testing.T, g *gatedPersist) {
	t.Helper()
	select {
	case <-g.started:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a write to start")
	}
}

func pollUntil(t *testing.T, s *Session, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		s.Poll()
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func testKey(t *testing.T) *secrets.CachedKey {
	t.Helper()
	key := bytes.Repeat([]byte{0x42}, secrets.KeySize)
	salt := bytes.Repeat([]byte{0x07}, secrets.SaltSize)
	return secrets.FromRaw(key, salt, []byte("test passphrase"))
}

// unlockedSession returns a session holding a raw test key, so no
// key derivation runs.
func unlockedSession(t *testing.T, dir string, rec *recorder) (*Session, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	s := New(Options{
		Dir:      dir,
		Debounce: 500 * time.Millisecond,
		Notifier: rec,
		Now:      clock.Now,
	})
	s.key = testKey(t)
	return s, clock
}

func openText(t *testing.T, key *secrets.CachedKey, payload []byte) string {
	t.Helper()
	plain, err := secrets.DecryptAsset(payload, key)
	if err != nil {
		t.Fatalf("decrypting payload: %v", err)
	}
	return string(plain)
}
