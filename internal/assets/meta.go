package assets

import (
	"fmt"
	"mime"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	kerrors "github.com/PolarWolf314/inkvault/internal/errors"

	"github.com/google/uuid"
)

// MaxIDLength is the longest asset id accepted.
const MaxIDLength = 128

var idPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

var extPattern = regexp.MustCompile(`[^a-z0-9]`)

// Meta describes one binary asset. The bytes live in assets/<ID>.
type Meta struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	MIMEType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidateID checks that id is safe to use as a file name inside the assets
// directory. Every read and write goes through it.
func ValidateID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty", kerrors.ErrInvalidAssetID)
	case len(id) > MaxIDLength:
		return fmt.Errorf("%w: longer than %d characters", kerrors.ErrInvalidAssetID, MaxIDLength)
	case strings.ContainsAny(id, `/\`):
		return fmt.Errorf("%w: contains a path separator", kerrors.ErrInvalidAssetID)
	case strings.HasPrefix(id, "."):
		return fmt.Errorf("%w: starts with a dot", kerrors.ErrInvalidAssetID)
	case !idPattern.MatchString(id):
		return fmt.Errorf("%w: only letters, digits, '-', '_' and '.' are allowed", kerrors.ErrInvalidAssetID)
	}
	return nil
}

// NewID returns a fresh asset id, keeping a sanitized extension of filename.
func NewID(filename string) string {
	id := uuid.New().String()
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	ext = extPattern.ReplaceAllString(ext, "")
	if ext == "" {
		return id
	}
	if len(ext) > 16 {
		ext = ext[:16]
	}
	return id + "." + ext
}

// NewMeta builds metadata for a freshly imported asset.
func NewMeta(id, filename string, size int64) Meta {
	return Meta{
		ID:        id,
		Filename:  filename,
		MIMEType:  DetectMIME(filename),
		Size:      size,
		CreatedAt: time.Now().UTC(),
	}
}

// DetectMIME guesses a MIME type from the file extension.
func DetectMIME(filename string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); t != "" {
		return t
	}
	return "application/octet-stream"
}
