package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/cbout22/repo-import/internal/config"
)

const DefaultLedgerFile = ".rimport.lock"

// Ledger records which folders under the import root rimport created, so
// that `rimport check` and `rimport remove` know what they own.
type Ledger struct {
	// Version of the ledger format.
	Version int `json:"version"`
	// Entries keyed by folder name.
	Entries map[string]Entry `json:"entries"`
}

// Entry records a single import.
type Entry struct {
	Folder string `json:"folder"`
	// Source is the URL as given by the user.
	Source     string            `json:"source"`
	Kind       config.SourceKind `json:"kind"`
	Ref        string            `json:"ref,omitempty"`
	ArchiveURL string            `json:"archive_url"`
	ImportID   string            `json:"import_id"`
	// Checksum is the SHA-256 of the downloaded archive.
	Checksum string `json:"checksum"`
	Files    int    `json:"files"`
	// Size is the number of unpacked bytes.
	Size       int64  `json:"size"`
	ImportedAt string `json:"imported_at"` // RFC 3339
}

// New returns an initialised empty ledger.
func New() *Ledger {
	return &Ledger{
		Version: 1,
		Entries: make(map[string]Entry),
	}
}

// Load reads and parses a ledger file.
// Returns an empty ledger if the file does not exist.
func Load(path string) (*Ledger, error) {
	l := New()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("reading ledger: %w", err)
	}

	if err := json.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("parsing ledger: %w", err)
	}

	if l.Entries == nil {
		l.Entries = make(map[string]Entry)
	}

	return l, nil
}

// Save writes the ledger to the given path.
func (l *Ledger) Save(path string) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}

	return nil
}

// Record stores e under its folder name, stamping ImportedAt if unset.
func (l *Ledger) Record(e Entry) {
	if e.ImportedAt == "" {
		e.ImportedAt = time.Now().UTC().Format(time.RFC3339)
	}
	l.Entries[e.Folder] = e
}

// Get retrieves an entry, if it exists.
func (l *Ledger) Get(folder string) (Entry, bool) {
	e, ok := l.Entries[folder]
	return e, ok
}

// Remove deletes an entry.
func (l *Ledger) Remove(folder string) {
	delete(l.Entries, folder)
}

// Folders returns the recorded folder names in sorted order.
func (l *Ledger) Folders() []string {
	names := make([]string, 0, len(l.Entries))
	for k := range l.Entries {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
