package resolver

import (
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/cbout22/repo-import/internal/config"
)

// DeduplicateFolderName returns candidate if it is free, otherwise the first
// of candidate_1, candidate_2, ... not present in existing.
func DeduplicateFolderName(candidate string, existing config.FolderSet) string {
	if !existing.Has(candidate) {
		return candidate
	}
	log.Info().Err(ErrFolderAlreadyExists).Str("folder", candidate).Msg("picking a new folder name")

	for i := 1; ; i++ {
		name := candidate + "_" + strconv.Itoa(i)
		if !existing.Has(name) {
			return name
		}
	}
}
