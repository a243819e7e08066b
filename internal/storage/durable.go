package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	kerrors "github.com/PolarWolf314/inkvault/internal/errors"
)

// BackupSuffix is appended to a file's name to form its backup sibling.
const BackupSuffix = ".bak"

// tempPattern names temp files so that a crashed write leaves an obviously
// stale, hidden sibling rather than something that looks like real data.
const tempPattern = ".%s.tmp-*"

// rename is swapped in tests to simulate a failing rename.
var rename = os.Rename

// WriteFile replaces path with data so that a reader only ever observes the
// old complete content or the new complete content.
//
// Data is written and synced to a temp file in the same directory, which is
// then renamed over path. If any step fails the temp file is removed.
func WriteFile(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return kerrors.Op(kerrors.OpWrite, path, err)
	}

	tmp, err := os.CreateTemp(dir, fmt.Sprintf(tempPattern, filepath.Base(path)))
	if err != nil {
		return kerrors.Op(kerrors.OpWrite, path, err)
	}
	tmpPath := tmp.Name()

	if err := writeAndSync(tmp, data, perm); err != nil {
		_ = os.Remove(tmpPath)
		return kerrors.Op(kerrors.OpWrite, path, err)
	}

	if err := rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return kerrors.Op(kerrors.OpWrite, path, err)
	}

	syncDir(dir)
	return nil
}

func writeAndSync(f *os.File, data []byte, perm fs.FileMode) error {
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Chmod(perm); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// syncDir flushes the directory entry for a rename. Not every platform
// supports it, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

// Backup copies path to its ".bak" sibling. A missing source is not an
// error. Callers treat any returned error as a warning: a failed backup must
// never stop the write that follows it.
func Backup(path string) error {
	src, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return kerrors.Op(kerrors.OpRead, path, err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return kerrors.Op(kerrors.OpRead, path, err)
	}

	return WriteFile(BackupPath(path), data, 0600)
}

// BackupPath returns the backup sibling of path.
func BackupPath(path string) string {
	return path + BackupSuffix
}

// ReadFile reads path. A missing file is reported with fs.ErrNotExist in the
// chain so callers can map it to their own not-found error.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, kerrors.Op(kerrors.OpRead, path, err)
	}
	return data, nil
}

// IsTempFile reports whether name looks like a temp file left by WriteFile.
func IsTempFile(name string) bool {
	ok, _ := filepath.Match(".*.tmp-*", name)
	return ok
}
