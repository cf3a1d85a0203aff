package resolver

import (
	"context"

	"github.com/cbout22/repo-import/internal/config"
)

// ArchiveResolver classifies source URLs and resolves them to archives.
type ArchiveResolver interface {
	// Classify determines the source kind of a raw URL.
	Classify(raw, branch string) (config.SourceReference, error)

	// Resolve turns a classified source into an archive URL and folder name.
	Resolve(ctx context.Context, src config.SourceReference) (config.ResolvedArchive, error)
}

// Verify Resolver implements ArchiveResolver at compile time.
var _ ArchiveResolver = (*Resolver)(nil)
