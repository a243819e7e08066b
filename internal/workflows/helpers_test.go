package workflows

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PolarWolf314/inkvault/internal/audit"
	"github.com/PolarWolf314/inkvault/internal/configs"
	logger "github.com/PolarWolf314/inkvault/internal/logging"
)

var testLogger = logger.Logger{}

// setupVaultDir isolates the user config and returns an empty vault folder.
func setupVaultDir(t *testing.T) string {
	t.Helper()

	oldConfigs := configs.UserInkvaultSettings.UserConfigsPath
	oldVault := configs.VaultInkvaultSettings
	configs.UserInkvaultSettings.UserConfigsPath = t.TempDir()
	t.Cleanup(func() {
		configs.UserInkvaultSettings.UserConfigsPath = oldConfigs
		configs.VaultInkvaultSettings = oldVault
	})
	t.Setenv(configs.VaultDirEnv, "")

	// A short poll interval keeps the waits in these tests quick.
	cfg := configs.DefaultUserConfig()
	cfg.Autosave.PollIntervalMS = 1
	if err := configs.SaveUserConfig(cfg); err != nil {
		t.Fatalf("saving test config: %v", err)
	}

	return filepath.Join(t.TempDir(), "vault")
}

func pass(s string) []byte {
	return []byte(s)
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)
	return ctx
}

func createVault(t *testing.T, dir, passphrase, doc string) {
	t.Helper()
	_, err := Create(testContext(t), CreateOptions{
		VaultDir:   dir,
		Passphrase: pass(passphrase),
		Document:   doc,
		Logger:     testLogger,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
}

func auditOps(t *testing.T) []string {
	t.Helper()
	entries, err := audit.ReadEntries()
	if err != nil {
		t.Fatalf("ReadEntries failed: %v", err)
	}
	var ops []string
	for _, e := range entries {
		ops = append(ops, e.Operation)
	}
	return ops
}

func writeFile(t *testing.T, path string, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}
}
