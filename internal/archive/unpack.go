package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/zhyee/zipstream"

	"github.com/cbout22/repo-import/internal/storage"
)

var (
	// ErrUnsafePath is returned for entries that would land outside the destination.
	ErrUnsafePath = errors.New("unsafe path in archive")
	// ErrEmptyArchive is returned when the stream holds no zip entries.
	ErrEmptyArchive = errors.New("empty or invalid zip archive")
	// ErrUnsupportedArchive is returned for entries whose sizes are only
	// recorded in a data descriptor after the data.
	ErrUnsupportedArchive = errors.New("unsupported zip archive")
)

// UnpackOptions controls Unpack.
type UnpackOptions struct {
	// StripTopDir drops the leading "<repo>-<ref>/" directory that
	// codeload and GitLab archives wrap their content in. It only applies
	// when every entry lives under that one directory.
	StripTopDir bool
	Exclude     *Matcher
}

// Stats summarises an unpack.
type Stats struct {
	Files   int
	Skipped int
	Bytes   int64
}

// Unpack extracts a zip archive from r into dest. The archive is spooled to
// a temporary file and its headers are checked before anything is written.
func Unpack(r io.Reader, w storage.FileWriter, dest string, opts UnpackOptions) (Stats, error) {
	spool, err := os.CreateTemp("", "rimport-*.zip")
	if err != nil {
		return Stats{}, fmt.Errorf("spooling archive: %w", err)
	}
	defer func() {
		spool.Close()
		os.Remove(spool.Name())
	}()
	if _, err := io.Copy(spool, r); err != nil {
		return Stats{}, fmt.Errorf("spooling archive: %w", err)
	}

	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return Stats{}, err
	}
	names, err := scan(spool)
	if err != nil {
		return Stats{}, err
	}
	if len(names) == 0 {
		return Stats{}, ErrEmptyArchive
	}

	var top string
	if opts.StripTopDir {
		top = topDir(names)
	}
	log.Debug().Int("entries", len(names)).Str("top", top).Msg("archive scanned")

	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return Stats{}, err
	}
	return extract(spool, w, dest, top, opts.Exclude)
}

// scan reads every local header and returns the entry names.
func scan(r io.Reader) ([]string, error) {
	var names []string
	zr := zipstream.NewReader(r)
	for {
		entry, err := zr.GetNextEntry()
		if errors.Is(err, io.EOF) {
			return names, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading zip entry: %w", err)
		}
		if entry.Flags&0x8 != 0 && entry.CompressedSize64 == 0 {
			return nil, fmt.Errorf("%w: %s: sizes are stored after the data", ErrUnsupportedArchive, entry.Name)
		}
		names = append(names, entry.Name)
	}
}

// topDir returns the directory all names share as their first segment, or
// "" when there is no such single directory.
func topDir(names []string) string {
	var top string
	for _, name := range names {
		name = strings.ReplaceAll(name, "\\", "/")
		i := strings.Index(name, "/")
		if i <= 0 {
			return ""
		}
		switch {
		case top == "":
			top = name[:i]
		case name[:i] != top:
			return ""
		}
	}
	if top == "." || top == ".." {
		return ""
	}
	return top
}

func extract(r io.Reader, w storage.FileWriter, dest, top string, exclude *Matcher) (Stats, error) {
	var stats Stats

	if err := w.MkdirAll(dest); err != nil {
		return stats, fmt.Errorf("creating %s: %w", dest, err)
	}

	zr := zipstream.NewReader(r)
	for {
		entry, err := zr.GetNextEntry()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("reading zip entry: %w", err)
		}

		rel, err := entryPath(entry.Name, top)
		if err != nil {
			return stats, err
		}
		if rel == "" || entry.IsDir() {
			if err := discard(entry); err != nil {
				return stats, fmt.Errorf("reading %s: %w", entry.Name, err)
			}
			continue
		}
		if exclude.Match(rel) {
			log.Debug().Str("path", rel).Msg("excluded")
			if err := discard(entry); err != nil {
				return stats, fmt.Errorf("reading %s: %w", rel, err)
			}
			stats.Skipped++
			continue
		}

		n, err := writeEntry(w, filepath.Join(dest, filepath.FromSlash(rel)), entry)
		if err != nil {
			return stats, fmt.Errorf("writing %s: %w", rel, err)
		}
		stats.Files++
		stats.Bytes += n
	}
	return stats, nil
}

func writeEntry(w storage.FileWriter, target string, entry *zipstream.Entry) (int64, error) {
	rc, err := entry.Open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	out, err := w.Create(target)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, rc)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// discard consumes an entry's data so the stream is positioned at the next header.
func discard(entry *zipstream.Entry) error {
	rc, err := entry.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	_, err = io.Copy(io.Discard, rc)
	return err
}

// entryPath returns the cleaned relative path for a zip entry name with the
// top directory removed, or "" for entries with nothing left.
func entryPath(name, top string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	if top != "" {
		if name == top {
			return "", nil
		}
		name = strings.TrimPrefix(name, top+"/")
	}
	if name == "" {
		return "", nil
	}

	clean := path.Clean(name)
	if clean == "." {
		return "", nil
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return clean, nil
}
