package cli

import (
	"path/filepath"

	"github.com/cbout22/repo-import/internal/ledger"
	"github.com/cbout22/repo-import/internal/storage"
)

// CheckStatus describes the on-disk state of a recorded import.
type CheckStatus int

const (
	CheckOK            CheckStatus = iota // Folder exists and has content
	CheckFolderMissing                    // In ledger but folder deleted
	CheckFolderEmpty                      // Folder exists but is empty
)

// CheckResult holds the outcome of checking one ledger entry.
type CheckResult struct {
	Folder string
	Source string
	Files  int // file count recorded at import time
	Status CheckStatus
}

// CheckImports validates every ledger entry against the filesystem under rootDir.
// This is a pure function: it reads state through its arguments, not globals.
func CheckImports(led *ledger.Ledger, fs storage.FileWriter, rootDir string) ([]CheckResult, error) {
	folders := led.Folders()
	results := make([]CheckResult, 0, len(folders))

	for _, folder := range folders {
		entry, _ := led.Get(folder)
		path := filepath.Join(rootDir, folder)

		status := CheckOK
		if !fs.Exists(path) {
			status = CheckFolderMissing
		} else {
			names, err := fs.List(path)
			if err != nil {
				return nil, err
			}
			if len(names) == 0 {
				status = CheckFolderEmpty
			}
		}

		results = append(results, CheckResult{
			Folder: folder,
			Source: entry.Source,
			Files:  entry.Files,
			Status: status,
		})
	}

	return results, nil
}
