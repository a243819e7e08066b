package workflows

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/inkvault/internal/assets"
	"github.com/PolarWolf314/inkvault/internal/configs"
	kerrors "github.com/PolarWolf314/inkvault/internal/errors"
	logger "github.com/PolarWolf314/inkvault/internal/logging"
	"github.com/PolarWolf314/inkvault/internal/vault"
)

// collector records session events for a headless workflow and logs them.
// A close-time save failure is discarded: the workflow reports the error itself.
type collector struct {
	vault.LogNotifier
	events []vault.Event
}

func newCollector(log logger.Logger) *collector {
	return &collector{LogNotifier: vault.LogNotifier{Logger: log, DiscardOnFailedClose: true}}
}

func (c *collector) Notify(e vault.Event) {
	c.events = append(c.events, e)
	c.LogNotifier.Notify(e)
}

// since returns the events recorded after the first n.
func (c *collector) since(n int) []vault.Event {
	return c.events[n:]
}

// failure returns the error of the first failure event after the first n.
func (c *collector) failure(n int) error {
	for _, e := range c.since(n) {
		if e.Err != nil {
			return e.Err
		}
	}
	return nil
}

// openSession resolves the vault folder and builds a locked session for it.
func openSession(vaultDir string, log logger.Logger) (*vault.Session, *collector, error) {
	if err := configs.InitVaultSettings(vaultDir); err != nil {
		return nil, nil, fmt.Errorf("resolving vault location: %w", err)
	}

	cfg, err := configs.LoadUserConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading user config: %w", err)
	}

	c := newCollector(log)
	s := vault.New(vault.Options{
		Debounce:     cfg.Debounce(),
		PollInterval: cfg.PollInterval(),
		Backups:      cfg.Vault.Backups,
		Logger:       log,
		Notifier:     c,
	})
	if err := s.SetLocation(configs.VaultInkvaultSettings.VaultPath); err != nil {
		return nil, nil, err
	}
	log.Debugf("Opened session for %s", s.Location())
	return s, c, nil
}

// unlockSession unlocks s and loads the asset index. passphrase is wiped.
func unlockSession(ctx context.Context, s *vault.Session, c *collector, passphrase []byte) error {
	if !configs.VaultInkvaultSettings.VaultExists() {
		return kerrors.ErrVaultNotFound
	}

	mark := len(c.events)
	if err := s.BeginUnlock(passphrase); err != nil {
		return err
	}
	if err := s.WaitIdle(ctx); err != nil {
		return err
	}
	if err := c.failure(mark); err != nil {
		return err
	}

	metas, err := assets.NewStore(configs.VaultInkvaultSettings.AssetsPath).List()
	if err != nil {
		return fmt.Errorf("listing assets: %w", err)
	}
	s.SetAssets(metas)
	return nil
}

// saveAndWait runs one coordinated save and waits for it to land.
func saveAndWait(ctx context.Context, s *vault.Session, c *collector) error {
	mark := len(c.events)
	if err := s.SaveAsync(true); err != nil {
		return err
	}
	if err := s.WaitIdle(ctx); err != nil {
		return err
	}
	return c.failure(mark)
}

// closeSession locks s, which saves anything still dirty and wipes the key,
// then shuts it down. A failed lock leaves the close-time save to
// RequestClose.
func closeSession(ctx context.Context, s *vault.Session, log logger.Logger) {
	if s.Unlocked() {
		if err := s.Lock(); err != nil {
			log.Warnf("Locking vault: %v", err)
		}
	}
	s.RequestClose()
	_ = s.WaitIdle(ctx)
}
