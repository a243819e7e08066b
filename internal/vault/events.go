package vault

import (
	logger "github.com/PolarWolf314/inkvault/internal/logging"
)

// EventKind identifies what a session is reporting.
type EventKind int

const (
	EventSaved EventKind = iota
	EventSaveFailed
	EventCreated
	EventCreateFailed
	EventUnlocked
	EventUnlockFailed
	EventRotated
	EventRotationFailed
	EventClosed
)

func (k EventKind) String() string {
	switch k {
	case EventSaved:
		return "saved"
	case EventSaveFailed:
		return "save-failed"
	case EventCreated:
		return "created"
	case EventCreateFailed:
		return "create-failed"
	case EventUnlocked:
		return "unlocked"
	case EventUnlockFailed:
		return "unlock-failed"
	case EventRotated:
		return "rotated"
	case EventRotationFailed:
		return "rotation-failed"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is delivered to the Notifier on the goroutine that owns the session.
type Event struct {
	Kind EventKind
	Err  error

	// Toast is set on EventSaved when the caller asked for visible confirmation.
	Toast bool

	// Assets is the number of assets rewritten, for EventRotated and EventRotationFailed.
	Assets int
}

// Notifier is the UI side of a session.
type Notifier interface {
	Notify(Event)

	// ConfirmDiscard is asked after a save requested by RequestClose has
	// failed. Returning true closes the session without saving.
	ConfirmDiscard(err error) bool
}

// NopNotifier ignores every event and never discards unsaved work.
type NopNotifier struct{}

func (NopNotifier) Notify(Event) {}
func (NopNotifier) ConfirmDiscard(error) bool { return false }

// LogNotifier reports events through a Logger.
type LogNotifier struct {
	Logger logger.Logger

	// DiscardOnFailedClose is the answer given to ConfirmDiscard.
	DiscardOnFailedClose bool
}

func (n LogNotifier) Notify(e Event) {
	switch e.Kind {
	case EventSaved:
		if e.Toast {
			n.Logger.Infof("Vault saved")
		} else {
			n.Logger.Debugf("Vault saved")
		}
	case EventCreated:
		n.Logger.Infof("Vault created")
	case EventUnlocked:
		n.Logger.Infof("Vault unlocked")
	case EventRotated:
		n.Logger.Infof("Passphrase changed, %d assets rewritten", e.Assets)
	case EventClosed:
		n.Logger.Debugf("Session closed")
	default:
		n.Logger.Warnf("%s: %v", e.Kind, e.Err)
	}
}

func (n LogNotifier) ConfirmDiscard(err error) bool {
	if n.DiscardOnFailedClose {
		n.Logger.WarnfAlways("Closing without saving: %v", err)
	}
	return n.DiscardOnFailedClose
}
