package workflows

import (
	"errors"
	"strings"
	"testing"

	"github.com/PolarWolf314/inkvault/internal/audit"
	"github.com/PolarWolf314/inkvault/internal/configs"
	kerrors "github.com/PolarWolf314/inkvault/internal/errors"
	"github.com/PolarWolf314/inkvault/internal/vault"
)

func seedAuditLog(t *testing.T, dir string) {
	t.Helper()
	writeFile(t, vault.VaultPath(dir), `{"encrypted":true,"data":"AAAA"}`)
	lines := []string{
		`{"ts":"2024-01-01T10:00:00.000000Z","user":"alice","op":"create","path":"/v"}`,
		`{"ts":"2024-01-02T10:00:00.000000Z","user":"alice","op":"asset-add","assets":["a.png","b.png"]}`,
		`{"ts":"2024-01-03T10:00:00.000000Z","user":"bob","op":"rotate","assets_count":1,"failed_count":1}`,
		`{"ts":"2024-01-04T10:00:00.000000Z","user":"alice","op":"write"}`,
	}
	writeFile(t, configs.NewVaultSettings(dir).AuditLogPath, strings.Join(lines, "\n")+"\n")
}

func TestLog(t *testing.T) {
	dir := setupVaultDir(t)
	seedAuditLog(t, dir)
	ctx := testContext(t)

	tests := []struct {
		name string
		opts LogOptions
		want []string
	}{
		{"All", LogOptions{}, []string{"create", "asset-add", "rotate", "write"}},
		{"User", LogOptions{User: "BOB"}, []string{"rotate"}},
		{"Operations", LogOptions{Operations: "write, create"}, []string{"create", "write"}},
		{"Since", LogOptions{Since: "2024-01-03"}, []string{"rotate", "write"}},
		{"Until", LogOptions{Until: "2024-01-02"}, []string{"create", "asset-add"}},
		{"LimitTakesMostRecent", LogOptions{Limit: 2}, []string{"rotate", "write"}},
		{"ReverseLimit", LogOptions{Reverse: true, Limit: 2}, []string{"write", "rotate"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.opts.VaultDir = dir
			res, err := Log(ctx, tc.opts)
			if err != nil {
				t.Fatalf("Log failed: %v", err)
			}
			var ops []string
			for _, e := range res.Entries {
				ops = append(ops, e.Operation)
			}
			if strings.Join(ops, ",") != strings.Join(tc.want, ",") {
				t.Errorf("ops = %v, expected %v", ops, tc.want)
			}
			if res.TotalEntriesBeforeFilter != 4 {
				t.Errorf("TotalEntriesBeforeFilter = %d", res.TotalEntriesBeforeFilter)
			}
		})
	}
}

func TestLog_Errors(t *testing.T) {
	dir := setupVaultDir(t)
	ctx := testContext(t)

	if _, err := Log(ctx, LogOptions{VaultDir: dir}); !errors.Is(err, kerrors.ErrVaultNotFound) {
		t.Errorf("Expected ErrVaultNotFound, got %v", err)
	}

	writeFile(t, vault.VaultPath(dir), `{}`)
	if _, err := Log(ctx, LogOptions{VaultDir: dir}); !errors.Is(err, kerrors.ErrNoFilesFound) {
		t.Errorf("Expected ErrNoFilesFound, got %v", err)
	}

	seedAuditLog(t, dir)
	if _, err := Log(ctx, LogOptions{VaultDir: dir, Since: "01/02/2024"}); !errors.Is(err, kerrors.ErrInvalidDateFormat) {
		t.Errorf("Expected ErrInvalidDateFormat, got %v", err)
	}
}

func TestFormatDetails(t *testing.T) {
	tests := []struct {
		entry   audit.Entry
		verbose string
		oneline string
	}{
		{audit.Entry{Operation: "asset-add", Assets: []string{"a", "b"}}, "a, b", "2 assets"},
		{audit.Entry{Operation: "asset-get", Assets: []string{"a"}, Path: "/tmp/a"}, "a -> /tmp/a", "a"},
		{audit.Entry{Operation: "rotate", AssetsCount: 3}, "3 assets rewritten", "3 assets"},
		{audit.Entry{Operation: "rotate", AssetsCount: 2, FailedCount: 1}, "2 assets rewritten, 1 failed", "2/3 assets"},
		{audit.Entry{Operation: "create", Path: "/v"}, "/v", "/v"},
		{audit.Entry{Operation: "show"}, "", ""},
	}
	for _, tc := range tests {
		if got := FormatDetails(tc.entry); got != tc.verbose {
			t.Errorf("FormatDetails(%s) = %q, expected %q", tc.entry.Operation, got, tc.verbose)
		}
		if got := FormatDetailsOneline(tc.entry); got != tc.oneline {
			t.Errorf("FormatDetailsOneline(%s) = %q, expected %q", tc.entry.Operation, got, tc.oneline)
		}
	}
}

func TestFormatDate(t *testing.T) {
	if got := FormatDate("2024-03-05T10:11:12.000000Z"); got != "2024-03-05" {
		t.Errorf("FormatDate = %q", got)
	}
	if got := FormatDateTime("2024-03-05T10:11:12.000000Z"); got != "2024-03-05 10:11:12" {
		t.Errorf("FormatDateTime = %q", got)
	}
	if got := FormatDate("garbage"); got != "garbage" {
		t.Errorf("FormatDate(garbage) = %q", got)
	}
}
