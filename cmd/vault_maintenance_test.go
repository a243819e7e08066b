package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PolarWolf314/inkvault/internal/vault"
)

func TestVaultDoctor(t *testing.T) {
	dir := setupTestEnvironment(t)
	createTestVault(t, dir)

	exitCode := -1
	SetDoctorExitFunc(func(code int) { exitCode = code })
	t.Cleanup(func() { SetDoctorExitFunc(os.Exit) })

	output, err := runCLI(t, "vault", "doctor", "--vault", dir)
	if err != nil {
		t.Fatalf("doctor failed: %v\nOutput: %s", err, output)
	}
	if exitCode != -1 {
		t.Errorf("healthy vault exited with %d\nOutput: %s", exitCode, output)
	}
	if !strings.Contains(output, "Summary:") {
		t.Errorf("expected summary, got: %s", output)
	}

	stale := filepath.Join(dir, ".vault.json.tmp-123")
	if err := os.WriteFile(stale, []byte("partial"), 0600); err != nil {
		t.Fatal(err)
	}
	SetDoctorExitFunc(func(code int) { exitCode = code })

	output, err = runCLI(t, "vault", "doctor", "--vault", dir)
	if err != nil {
		t.Fatalf("doctor failed: %v\nOutput: %s", err, output)
	}
	if exitCode != 1 {
		t.Errorf("expected exit code 1 for warnings, got %d\nOutput: %s", exitCode, output)
	}
	if !strings.Contains(output, "inkvault vault clean") {
		t.Errorf("expected clean suggestion, got: %s", output)
	}
}

func TestVaultDoctor_MissingVault(t *testing.T) {
	dir := setupTestEnvironment(t)

	exitCode := -1
	SetDoctorExitFunc(func(code int) { exitCode = code })
	t.Cleanup(func() { SetDoctorExitFunc(os.Exit) })

	output, err := runCLI(t, "vault", "doctor", "--vault", dir, "--json")
	if err != nil {
		t.Fatalf("doctor failed: %v\nOutput: %s", err, output)
	}
	if exitCode != 2 {
		t.Errorf("expected exit code 2, got %d", exitCode)
	}
	if !strings.Contains(output, `"status": "error"`) {
		t.Errorf("expected JSON error status, got: %s", output)
	}
}

func TestVaultClean(t *testing.T) {
	dir := setupTestEnvironment(t)
	createTestVault(t, dir)

	output, err := runCLI(t, "vault", "clean", "--vault", dir)
	if err != nil {
		t.Fatalf("clean failed: %v", err)
	}
	if !strings.Contains(output, "Nothing to clean") {
		t.Errorf("expected nothing to clean, got: %s", output)
	}

	stale := filepath.Join(vault.AssetsDir(dir), ".abc.png.tmp-99")
	if err := os.WriteFile(stale, []byte("partial"), 0600); err != nil {
		t.Fatal(err)
	}

	output, err = runCLI(t, "vault", "clean", "--vault", dir, "--dry-run")
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	if !strings.Contains(output, "[dry-run]") {
		t.Errorf("expected dry-run output, got: %s", output)
	}
	if _, err := os.Stat(stale); err != nil {
		t.Fatal("dry run removed the file")
	}

	output, err = runCLI(t, "vault", "clean", "--vault", dir, "--force")
	if err != nil {
		t.Fatalf("clean failed: %v", err)
	}
	if !strings.Contains(output, "Removed 1 leftover") {
		t.Errorf("unexpected output: %s", output)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale file still present")
	}
}

func TestVaultExportImport(t *testing.T) {
	dir := setupTestEnvironment(t)
	createTestVault(t, dir)

	archive := filepath.Join(t.TempDir(), "backup.tar.gz")
	output, err := runCLI(t, "vault", "export", "--vault", dir, "-o", archive)
	if err != nil {
		t.Fatalf("export failed: %v\nOutput: %s", err, output)
	}
	if !strings.Contains(output, "Exported vault") {
		t.Errorf("unexpected export output: %s", output)
	}

	restored := filepath.Join(t.TempDir(), "restored")
	output, err = runCLI(t, "vault", "import", archive, "--vault", restored)
	if err != nil {
		t.Fatalf("import failed: %v\nOutput: %s", err, output)
	}

	output, err = runCLI(t, "vault", "show", "--vault", restored)
	if err != nil {
		t.Fatalf("show failed: %v\nOutput: %s", err, output)
	}
	if !strings.Contains(output, vault.InitialDocument) {
		t.Errorf("restored vault has wrong document: %s", output)
	}

	// A second import needs an explicit mode.
	output, err = runCLI(t, "vault", "import", archive, "--vault", restored)
	if err != nil {
		t.Fatalf("expected a handled refusal, got %v", err)
	}
	if !strings.Contains(output, "--replace") {
		t.Errorf("expected mode hint, got: %s", output)
	}
}

func TestVaultImport_BadArchive(t *testing.T) {
	dir := setupTestEnvironment(t)

	bogus := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(bogus, []byte("not an archive"), 0600); err != nil {
		t.Fatal(err)
	}

	output, err := runCLI(t, "vault", "import", bogus, "--vault", dir)
	if err != nil {
		t.Fatalf("expected a handled error, got %v", err)
	}
	if !strings.Contains(output, "✗") {
		t.Errorf("expected failure marker, got: %s", output)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("vault folder was created for a bad archive")
	}
}
