package importer

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cbout22/repo-import/internal/archive"
	"github.com/cbout22/repo-import/internal/config"
	"github.com/cbout22/repo-import/internal/ledger"
	"github.com/cbout22/repo-import/internal/resolver"
	"github.com/cbout22/repo-import/internal/storage"
)

// Fetcher downloads a URL and streams the body to consume.
type Fetcher interface {
	Fetch(ctx context.Context, url string, consume func(io.Reader) error) (archive.Download, error)
}

var _ Fetcher = (*archive.Client)(nil)

// Importer resolves sources and unpacks them into folders under rootDir.
type Importer struct {
	resolver resolver.ArchiveResolver
	fetcher  Fetcher
	fs       storage.FileWriter
	ledger   *ledger.Ledger
	rootDir  string
	exclude  *archive.Matcher
}

// New creates an Importer. exclude may be nil.
func New(res resolver.ArchiveResolver, fetcher Fetcher, fs storage.FileWriter, led *ledger.Ledger, rootDir string, exclude *archive.Matcher) *Importer {
	return &Importer{
		resolver: res,
		fetcher:  fetcher,
		fs:       fs,
		ledger:   led,
		rootDir:  rootDir,
		exclude:  exclude,
	}
}

// ImportResult holds the outcome of importing a single source.
type ImportResult struct {
	ID       string
	Source   config.SourceReference
	Archive  config.ResolvedArchive
	Folder   string // final folder name after deduplication
	Files    int
	Bytes    int64
	Checksum string
	Err      error
}

// Import resolves raw, picks a free folder name and unpacks the archive into it.
func (imp *Importer) Import(ctx context.Context, raw, branch string) ImportResult {
	result := ImportResult{ID: uuid.New().String()}
	logger := log.With().Str("import_id", result.ID).Logger()

	src, err := imp.resolver.Classify(raw, branch)
	if err != nil {
		result.Err = err
		return result
	}
	result.Source = src

	resolved, err := imp.resolver.Resolve(ctx, src)
	if err != nil {
		result.Err = err
		return result
	}
	result.Archive = resolved
	logger.Debug().Str("archive", resolved.ArchiveURL).Str("ref", resolved.Ref).Msg("resolved")

	existing, err := storage.FolderNames(imp.fs, imp.rootDir)
	if err != nil {
		result.Err = err
		return result
	}
	folder := resolver.DeduplicateFolderName(resolved.FolderName, existing)
	result.Folder = folder
	dest := filepath.Join(imp.rootDir, folder)

	var stats archive.Stats
	dl, err := imp.fetcher.Fetch(ctx, resolved.ArchiveURL, func(r io.Reader) error {
		var err error
		if src.Kind == config.Notebook {
			stats, err = imp.writeNotebook(r, dest, src.Subpath)
			return err
		}
		stats, err = archive.Unpack(r, imp.fs, dest, archive.UnpackOptions{
			StripTopDir: true,
			Exclude:     imp.exclude,
		})
		return err
	})
	if err != nil {
		if rmErr := imp.fs.Remove(dest); rmErr != nil {
			logger.Warn().Err(rmErr).Str("folder", dest).Msg("could not clean up partial import")
		}
		result.Err = fmt.Errorf("importing %s: %w", raw, err)
		return result
	}

	result.Files = stats.Files
	result.Bytes = stats.Bytes
	result.Checksum = dl.Checksum

	imp.ledger.Record(ledger.Entry{
		Folder:     folder,
		Source:     raw,
		Kind:       src.Kind,
		Ref:        resolved.Ref,
		ArchiveURL: resolved.ArchiveURL,
		ImportID:   result.ID,
		Checksum:   dl.Checksum,
		Files:      stats.Files,
		Size:       stats.Bytes,
	})
	logger.Info().Str("folder", folder).Int("files", stats.Files).Msg("imported")

	return result
}

// writeNotebook stores a single notebook file inside dest, named after the
// last element of subpath.
func (imp *Importer) writeNotebook(r io.Reader, dest, subpath string) (archive.Stats, error) {
	name := "notebook.ipynb"
	if base := path.Base(subpath); base != "." && base != "/" {
		name = config.SanitizeFolderName(base)
	}

	if err := imp.fs.MkdirAll(dest); err != nil {
		return archive.Stats{}, fmt.Errorf("creating %s: %w", dest, err)
	}
	out, err := imp.fs.Create(filepath.Join(dest, name))
	if err != nil {
		return archive.Stats{}, err
	}
	n, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return archive.Stats{}, fmt.Errorf("writing %s: %w", name, err)
	}
	return archive.Stats{Files: 1, Bytes: n}, nil
}
