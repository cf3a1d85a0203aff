package storage

import (
	"fmt"

	"github.com/cbout22/repo-import/internal/config"
)

// FolderNames snapshots the names taken under root. Plain files count too,
// since a new folder cannot reuse their name. The returned set is not updated
// when the filesystem changes.
func FolderNames(w FileWriter, root string) (config.FolderSet, error) {
	names, err := w.List(root)
	if err != nil {
		return nil, fmt.Errorf("listing folders in %s: %w", root, err)
	}
	return config.NewFolderSet(names...), nil
}
