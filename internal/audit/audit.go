package audit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"time"

	"github.com/PolarWolf314/inkvault/internal/configs"
)

// TimestampFormat is RFC3339 with microseconds, always UTC.
const TimestampFormat = "2006-01-02T15:04:05.000000Z"

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp string `json:"ts"`   // RFC3339 with microseconds.
	User      string `json:"user"` // System user performing the action.
	Operation string `json:"op"`   // Operation name.

	// Optional fields depending on operation.
	Assets      []string `json:"assets,omitempty"`       // For asset add/get and assets left behind by rotate.
	AssetsCount int      `json:"assets_count,omitempty"` // For rotate.
	FailedCount int      `json:"failed_count,omitempty"` // For a partially applied rotate.
	Path        string   `json:"path,omitempty"`         // For create, export, import and asset get output.

	Mode         string `json:"mode,omitempty"`          // For import.
	FilesCount   int    `json:"files_count,omitempty"`   // For export and import.
	RemovedCount int    `json:"removed_count,omitempty"` // For clean.
}

// Log appends an entry to the vault's audit log.
// Operations should not fail just because audit logging failed, so errors are dropped.
func Log(entry Entry) {
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(TimestampFormat)
	}

	logPath := LogPath()
	if logPath == "" {
		// No vault resolved, skip logging.
		return
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	_, _ = f.Write(append(data, '\n'))
}

// LogWithUser returns an entry for op with the user field populated.
func LogWithUser(op string) Entry {
	entry := Entry{Operation: op}
	if configs.UserInkvaultSettings != nil {
		entry.User = configs.UserInkvaultSettings.Username
	}
	return entry
}

// LogPath returns the path to the audit log file.
// Returns empty string if no vault has been resolved.
func LogPath() string {
	settings := configs.VaultInkvaultSettings
	if settings == nil || settings.VaultPath == "" {
		return ""
	}
	return settings.AuditLogPath
}

// ReadEntries reads all entries from the audit log.
// Returns an empty slice if the log doesn't exist.
func ReadEntries() ([]Entry, error) {
	logPath := LogPath()
	if logPath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(logPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseEntries(data)
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	return entries, scanner.Err()
}
